// Package auth は認証・セッションライフサイクルを管理する。
// 資格情報の検証、プロファイル解決、無操作監視、セッション構成を担う。
package auth

import (
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/bkconnect/internal/model"
)

// ErrorKind は認証エラーの分類を表す。
type ErrorKind string

const (
	KindDuplicateEmail     ErrorKind = "duplicate_email"
	KindDuplicateUsername  ErrorKind = "duplicate_username"
	KindWeakPassword       ErrorKind = "weak_password"
	KindInvalidEmailFormat ErrorKind = "invalid_email_format"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindEmailUnconfirmed   ErrorKind = "email_unconfirmed"
	KindRateLimited        ErrorKind = "rate_limited"
	KindValidation         ErrorKind = "validation"
	KindUnknown            ErrorKind = "unknown"
)

// Error は分類済みの認証エラー。
// 分類できなかった場合もKindUnknownとして元のエラーを保持する。
// Detailはユーザー向けメッセージに埋め込む補足情報（重複したユーザー名等）。
type Error struct {
	Kind   ErrorKind
	Detail string
	cause  error
}

// NewError は指定分類の認証エラーを生成する。
func NewError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.cause != nil {
		return "auth: " + string(e.Kind) + ": " + e.cause.Error()
	}
	return "auth: " + string(e.Kind)
}

// Unwrap は元のエラーを返す。分類時に元の情報を失わないため。
func (e *Error) Unwrap() error {
	return e.cause
}

// UserFacing はユーザー入力起因のエラーかを返す。
// trueの場合はHTTP 4xx、falseの場合は5xxで返す。
func (e *Error) UserFacing() bool {
	return e.Kind != KindUnknown
}

// APIError はUI表示用の統一エラーフォーマットへ変換する。
// KindUnknownの元メッセージはログにのみ残り、ここでは一般文言になる。
func (e *Error) APIError() *model.APIError {
	switch e.Kind {
	case KindDuplicateEmail:
		return model.NewDuplicateEmailError()
	case KindDuplicateUsername:
		return model.NewDuplicateUsernameError(e.Detail)
	case KindWeakPassword:
		return model.NewWeakPasswordError()
	case KindInvalidEmailFormat:
		return model.NewInvalidEmailFormatError()
	case KindInvalidCredentials:
		return model.NewInvalidCredentialsError()
	case KindEmailUnconfirmed:
		return model.NewEmailUnconfirmedError()
	case KindRateLimited:
		return model.NewRateLimitedError()
	case KindValidation:
		return model.NewValidationError(e.Detail)
	default:
		return model.NewAuthUnknownError()
	}
}

// Classify はエラーを認証エラー分類へベストエフォートでマッピングする。
// 既に分類済みならそのまま返す。PostgreSQLの一意制約違反は制約名から、
// 外部プロバイダーのエラーはメッセージ文字列から判定する。
// どの分類にも該当しない場合はKindUnknownとして元のエラーを包んで返す。
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch {
		case strings.Contains(pqErr.Constraint, "email"):
			return NewError(KindDuplicateEmail, err)
		case strings.Contains(pqErr.Constraint, "username"):
			return NewError(KindDuplicateUsername, err)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already registered"),
		strings.Contains(msg, "email address is already in use"):
		return NewError(KindDuplicateEmail, err)
	case strings.Contains(msg, "username") && strings.Contains(msg, "taken"):
		return NewError(KindDuplicateUsername, err)
	case strings.Contains(msg, "password should be at least"),
		strings.Contains(msg, "password is too short"):
		return NewError(KindWeakPassword, err)
	case strings.Contains(msg, "invalid email"),
		strings.Contains(msg, "unable to validate email"):
		return NewError(KindInvalidEmailFormat, err)
	case strings.Contains(msg, "invalid login credentials"),
		strings.Contains(msg, "invalid credentials"):
		return NewError(KindInvalidCredentials, err)
	case strings.Contains(msg, "email not confirmed"):
		return NewError(KindEmailUnconfirmed, err)
	case strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "rate limit"):
		return NewError(KindRateLimited, err)
	}

	return NewError(KindUnknown, err)
}
