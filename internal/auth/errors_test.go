package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"

	"github.com/hitoshi/bkconnect/internal/model"
)

func TestClassify_Nil_ReturnsNil(t *testing.T) {
	if got := Classify(nil); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
}

func TestClassify_AlreadyClassified_ReturnsSame(t *testing.T) {
	original := NewError(KindWeakPassword, errors.New("password is too short"))
	wrapped := fmt.Errorf("sign up failed: %w", original)

	if got := Classify(wrapped); got != original {
		t.Errorf("Classify() = %v, want original error", got)
	}
}

func TestClassify_PqUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       ErrorKind
	}{
		{"email constraint", "identities_email_key", KindDuplicateEmail},
		{"username constraint", "profiles_username_key", KindDuplicateUsername},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("failed to insert: %w", &pq.Error{Code: "23505", Constraint: tt.constraint})
			if got := Classify(err); got.Kind != tt.want {
				t.Errorf("Classify() kind = %q, want %q", got.Kind, tt.want)
			}
		})
	}
}

func TestClassify_MessageSubstrings(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorKind
	}{
		{"User already registered", KindDuplicateEmail},
		{"username is already taken", KindDuplicateUsername},
		{"Password should be at least 6 characters", KindWeakPassword},
		{"Unable to validate email address: invalid format", KindInvalidEmailFormat},
		{"Invalid login credentials", KindInvalidCredentials},
		{"Email not confirmed", KindEmailUnconfirmed},
		{"Too many requests", KindRateLimited},
		{"rate limit exceeded", KindRateLimited},
		{"connection refused", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := Classify(errors.New(tt.msg)); got.Kind != tt.want {
				t.Errorf("Classify(%q) kind = %q, want %q", tt.msg, got.Kind, tt.want)
			}
		})
	}
}

func TestClassify_Unknown_PreservesOriginalError(t *testing.T) {
	original := errors.New("something strange happened")
	classified := Classify(original)

	if classified.Kind != KindUnknown {
		t.Fatalf("kind = %q, want %q", classified.Kind, KindUnknown)
	}
	if !errors.Is(classified, original) {
		t.Error("classified error must wrap the original error")
	}
}

func TestError_APIError_Mapping(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		wantCode string
	}{
		{KindDuplicateEmail, model.ErrCodeDuplicateEmail},
		{KindDuplicateUsername, model.ErrCodeDuplicateUsername},
		{KindWeakPassword, model.ErrCodeWeakPassword},
		{KindInvalidEmailFormat, model.ErrCodeInvalidEmailFormat},
		{KindInvalidCredentials, model.ErrCodeInvalidCredentials},
		{KindEmailUnconfirmed, model.ErrCodeEmailUnconfirmed},
		{KindRateLimited, model.ErrCodeRateLimited},
		{KindValidation, model.ErrCodeValidation},
		{KindUnknown, model.ErrCodeAuthUnknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			apiErr := NewError(tt.kind, errors.New("cause")).APIError()
			if apiErr.Code != tt.wantCode {
				t.Errorf("APIError().Code = %q, want %q", apiErr.Code, tt.wantCode)
			}
			if apiErr.Message == "" {
				t.Error("expected non-empty user-facing message")
			}
		})
	}
}

func TestError_UserFacing(t *testing.T) {
	if NewError(KindUnknown, nil).UserFacing() {
		t.Error("unknown errors are not user facing")
	}
	if !NewError(KindInvalidCredentials, nil).UserFacing() {
		t.Error("invalid credentials is user facing")
	}
}

func TestError_Unknown_MessageNotExposedToUser(t *testing.T) {
	classified := Classify(errors.New("pq: relation does not exist"))
	apiErr := classified.APIError()

	// 内部エラーの詳細はユーザー向けメッセージに含めない
	if apiErr.Code != model.ErrCodeAuthUnknown {
		t.Fatalf("code = %q, want %q", apiErr.Code, model.ErrCodeAuthUnknown)
	}
	if apiErr.Message == classified.Error() {
		t.Error("user message must not expose the internal error text")
	}
}
