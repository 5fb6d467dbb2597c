// Package model はドメインモデルを定義する。
package model

import "time"

// Role はプロファイルに付与される固定の役割を表す。
// ダッシュボードの種類とアクセス権限を決定する。
type Role string

const (
	// RoleAdmin はシステム管理者。ユーザー管理とニュース管理が可能。
	RoleAdmin Role = "admin"
	// RoleCounselingTeacher はBK（ガイダンス・カウンセリング）教員。
	RoleCounselingTeacher Role = "counseling_teacher"
	// RoleHomeroomTeacher は担任教員。担当クラスの生徒情報を閲覧できる。
	RoleHomeroomTeacher Role = "homeroom_teacher"
	// RoleStudent は生徒。自身の記録と相談のみ操作できる。
	RoleStudent Role = "student"
)

// Valid はroleが定義済みの4種のいずれかであるかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCounselingTeacher, RoleHomeroomTeacher, RoleStudent:
		return true
	}
	return false
}

// Identity は認証プロバイダー側の「誰がログインしているか」を表す。
// アプリケーション固有の情報はProfileが持ち、Identityはidとemailのみを保証する。
// PasswordHashはOAuth専用アカウントの場合nil。
type Identity struct {
	ID             string
	Email          string
	PasswordHash   *string
	EmailConfirmed bool
	// Metadata はサインアップ時に受け取った登録情報。
	// プロファイル自動作成トリガーがこの内容からprofiles行を生成する。
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OAuthAccount は外部IdPとIdentityの紐付けを表す。
type OAuthAccount struct {
	ID             string
	IdentityID     string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Profile はアプリケーション側のユーザーレコードを表す。
// Identityと1対1で対応し、identity_idをキーとする。
// サインアップ直後はDBトリガーによる作成が完了するまで存在しない場合がある。
type Profile struct {
	ID         string
	IdentityID string
	Email      string
	Username   string
	FullName   string
	Role       Role
	IsActive   bool
	LastLogin  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Session はログインセッションを表す。
// ExpiresAtは絶対期限、IdleDeadlineは無操作タイムアウトの期限。
// IdleDeadlineは対象イベントのたびに前方へ更新される。
type Session struct {
	ID           string
	IdentityID   string
	IdleDeadline time.Time
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Expired はセッションが絶対期限または無操作期限を過ぎているかを返す。
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt) || now.After(s.IdleDeadline)
}
