// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, counseling, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeDuplicateEmail       = "DUPLICATE_EMAIL"
	ErrCodeDuplicateUsername    = "DUPLICATE_USERNAME"
	ErrCodeWeakPassword         = "WEAK_PASSWORD"
	ErrCodeInvalidEmailFormat   = "INVALID_EMAIL_FORMAT"
	ErrCodeEmailUnconfirmed     = "EMAIL_UNCONFIRMED"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	ErrCodeProfileInactive      = "PROFILE_INACTIVE"
	ErrCodeForbiddenRole        = "FORBIDDEN_ROLE"
	ErrCodeNewsNotFound         = "NEWS_NOT_FOUND"
	ErrCodeViolationNotFound    = "VIOLATION_NOT_FOUND"
	ErrCodeConsultationNotFound = "CONSULTATION_NOT_FOUND"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeAuthUnknown          = "AUTH_UNKNOWN"
)

// NewInvalidCredentialsError は認証失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  fmt.Sprintf("ユーザー名は既に使用されています: %s", username),
		Category: "auth",
		Action:   "別のユーザー名を選択してください。",
	}
}

// NewWeakPasswordError はパスワード強度不足エラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "パスワードは6文字以上で入力してください。",
		Category: "auth",
		Action:   "より長いパスワードを設定してください。",
	}
}

// NewInvalidEmailFormatError はメール形式不正エラーを生成する。
func NewInvalidEmailFormatError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmailFormat,
		Message:  "メールアドレスの形式が正しくありません。",
		Category: "validation",
		Action:   "正しい形式のメールアドレスを入力してください。",
	}
}

// NewEmailUnconfirmedError はメール未確認エラーを生成する。
func NewEmailUnconfirmedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailUnconfirmed,
		Message:  "メールアドレスの確認が完了していません。",
		Category: "auth",
		Action:   "受信した確認メールのリンクを開いてください。",
	}
}

// NewRateLimitedError は試行回数超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "試行回数が多すぎます。",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewAuthUnknownError は分類できなかった認証エラーを生成する。
// 元のメッセージはログにのみ残し、ユーザーには一般的な文言を返す。
func NewAuthUnknownError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthUnknown,
		Message:  "認証処理中にエラーが発生しました。",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewProfileNotFoundError はプロファイル未検出エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "ユーザープロファイルが見つかりません。",
		Category: "auth",
		Action:   "時間をおいて再読み込みするか、ログインし直してください。",
	}
}

// NewProfileInactiveError は無効化されたプロファイルのエラーを生成する。
func NewProfileInactiveError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileInactive,
		Message:  "このアカウントは無効化されています。",
		Category: "auth",
		Action:   "管理者に問い合わせてください。",
	}
}

// NewForbiddenRoleError は権限不足エラーを生成する。
func NewForbiddenRoleError() *APIError {
	return &APIError{
		Code:     ErrCodeForbiddenRole,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "担当の教員または管理者に依頼してください。",
	}
}

// NewNewsNotFoundError はお知らせ未検出エラーを生成する。
func NewNewsNotFoundError(newsID string) *APIError {
	return &APIError{
		Code:     ErrCodeNewsNotFound,
		Message:  fmt.Sprintf("指定されたお知らせが見つかりません: %s", newsID),
		Category: "counseling",
		Action:   "お知らせIDを確認してください。",
	}
}

// NewViolationNotFoundError は違反記録未検出エラーを生成する。
func NewViolationNotFoundError(violationID string) *APIError {
	return &APIError{
		Code:     ErrCodeViolationNotFound,
		Message:  fmt.Sprintf("指定された違反記録が見つかりません: %s", violationID),
		Category: "counseling",
		Action:   "記録IDを確認してください。",
	}
}

// NewConsultationNotFoundError は相談未検出エラーを生成する。
func NewConsultationNotFoundError(consultationID string) *APIError {
	return &APIError{
		Code:     ErrCodeConsultationNotFound,
		Message:  fmt.Sprintf("指定された相談が見つかりません: %s", consultationID),
		Category: "counseling",
		Action:   "相談IDを確認してください。",
	}
}

// NewInvalidTransitionError は相談の不正な状態遷移エラーを生成する。
func NewInvalidTransitionError(from, to ConsultationStatus) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTransition,
		Message:  fmt.Sprintf("相談の状態を %s から %s へは変更できません。", from, to),
		Category: "counseling",
		Action:   "現在の状態を確認してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}
