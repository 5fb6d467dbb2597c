package auth

import (
	"errors"
	"net/mail"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 6

// ValidatePassword はパスワードが強度要件を満たすかを検証する。
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return NewError(KindWeakPassword, errors.New("password is too short"))
	}
	return nil
}

// ValidateEmail はメールアドレスの形式を検証する。
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return NewError(KindInvalidEmailFormat, errors.New("unable to validate email address"))
	}
	return nil
}

// HashPassword はパスワードのbcryptハッシュを生成する。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword はパスワードがハッシュと一致するかを返す。
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
