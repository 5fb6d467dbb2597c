// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/bkconnect/internal/model"
)

// IdentityRepository は認証アカウントの永続化インターフェース。
type IdentityRepository interface {
	// Create はIdentityを作成する。
	// DBトリガーにより、対応するプロファイル行がmetadataから非同期に作成される。
	Create(ctx context.Context, identity *model.Identity) error

	// FindByID は指定IDのIdentityを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Identity, error)

	// FindByEmail はメールアドレスでIdentityを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Identity, error)

	// DeleteByID は指定IDのIdentityを削除する。
	// プロファイル、セッション、OAuth紐付けはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// OAuthAccountRepository は外部IdP紐付け情報の永続化インターフェース。
type OAuthAccountRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idで紐付けを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.OAuthAccount, error)

	// CreateWithIdentity はIdentityとOAuth紐付けを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, identity *model.Identity, account *model.OAuthAccount) error
}

// ProfileRepository はプロファイルデータの永続化インターフェース。
// プロファイル行の作成はDBトリガーが担うため、Createは提供しない。
type ProfileRepository interface {
	// FindByIdentityID はIdentityのIDでプロファイルを取得する。見つからない場合はnilを返す。
	FindByIdentityID(ctx context.Context, identityID string) (*model.Profile, error)

	// FindByUsername はユーザー名でプロファイルを検索する。見つからない場合はnilを返す。
	// サインアップ時のユーザー名重複事前チェックに使用する。
	FindByUsername(ctx context.Context, username string) (*model.Profile, error)

	// FindByID は指定IDのプロファイルを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// List は全プロファイルをrole、username順で返す。管理者のユーザー管理画面用。
	List(ctx context.Context) ([]*model.Profile, error)

	// StampLastLogin はlast_loginを現在時刻で更新する。
	// サインイン成功時のベストエフォート処理として呼ばれる。
	StampLastLogin(ctx context.Context, identityID string, at time.Time) error

	// SetActive はis_activeフラグを更新する。
	SetActive(ctx context.Context, profileID string, active bool) error

	// SetRole はroleを更新する。
	SetRole(ctx context.Context, profileID string, role model.Role) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。
	// 絶対期限または無操作期限を過ぎている場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// ExtendIdle は無操作期限を前方に更新する。
	ExtendIdle(ctx context.Context, id string, deadline time.Time) error

	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByIdentityID は指定Identityの全セッションを削除する。
	DeleteByIdentityID(ctx context.Context, identityID string) error
}

// NewsRepository はお知らせデータの永続化インターフェース。
type NewsRepository interface {
	// FindByID は指定IDのお知らせを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.News, error)

	// ListPublished は公開済みのお知らせを新しい順で返す。
	ListPublished(ctx context.Context, limit int) ([]*model.News, error)

	// ListAll は公開状態に関係なく全お知らせを新しい順で返す。管理画面用。
	ListAll(ctx context.Context, limit int) ([]*model.News, error)

	// Create はお知らせを作成する。
	Create(ctx context.Context, news *model.News) error

	// Update はタイトル・本文・公開状態を更新する。
	Update(ctx context.Context, news *model.News) error

	// DeleteByID は指定IDのお知らせを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// ViolationRepository は違反記録の永続化インターフェース。
type ViolationRepository interface {
	// Create は違反記録を作成する。
	Create(ctx context.Context, violation *model.Violation) error

	// FindByID は指定IDの違反記録を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Violation, error)

	// ListByStudentID は生徒の違反記録を新しい順で返す。
	ListByStudentID(ctx context.Context, studentID string) ([]*model.Violation, error)

	// TotalPointsByStudentID は生徒の累計ポイントを返す。記録がない場合は0。
	TotalPointsByStudentID(ctx context.Context, studentID string) (int, error)

	// DeleteByID は指定IDの違反記録を削除する。
	DeleteByID(ctx context.Context, id string) error
}

// ConsultationRepository は相談データの永続化インターフェース。
type ConsultationRepository interface {
	// Create は相談を作成する。
	Create(ctx context.Context, consultation *model.Consultation) error

	// FindByID は指定IDの相談を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Consultation, error)

	// ListByStudentID は生徒の相談を新しい順で返す。
	ListByStudentID(ctx context.Context, studentID string) ([]*model.Consultation, error)

	// ListByStatus は指定状態の相談を古い順で返す。BK教員の処理キュー用。
	ListByStatus(ctx context.Context, status model.ConsultationStatus) ([]*model.Consultation, error)

	// Update は状態・担当者・予定日時・メモを更新する。
	Update(ctx context.Context, consultation *model.Consultation) error
}
