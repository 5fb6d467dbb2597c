package auth

import "testing"

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"exactly minimum length", "123456", false},
		{"longer than minimum", "a-long-passphrase", false},
		{"one short of minimum", "12345", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
			if err != nil {
				if kind := authKind(t, err); kind != KindWeakPassword {
					t.Errorf("error kind = %q, want %q", kind, KindWeakPassword)
				}
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"user@example.com", false},
		{"user.name+tag@school.ac.jp", false},
		{"not-an-email", true},
		{"", true},
		{"User Name <user@example.com>", true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "secret1" {
		t.Fatal("hash must not equal the plain password")
	}

	if !VerifyPassword(hash, "secret1") {
		t.Error("expected password to verify against its hash")
	}
	if VerifyPassword(hash, "secret2") {
		t.Error("wrong password must not verify")
	}
	if VerifyPassword("not-a-hash", "secret1") {
		t.Error("malformed hash must not verify")
	}
}
