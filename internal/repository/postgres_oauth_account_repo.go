package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/bkconnect/internal/model"
)

// PostgresOAuthAccountRepo はPostgreSQLを使用したOAuth紐付けリポジトリ。
type PostgresOAuthAccountRepo struct {
	db *sql.DB
}

// NewPostgresOAuthAccountRepo はPostgresOAuthAccountRepoを生成する。
func NewPostgresOAuthAccountRepo(db *sql.DB) *PostgresOAuthAccountRepo {
	return &PostgresOAuthAccountRepo{db: db}
}

// FindByProviderAndProviderUserID はproviderとprovider_user_idで紐付けを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresOAuthAccountRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.OAuthAccount, error) {
	account := &model.OAuthAccount{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, identity_id, provider, provider_user_id, created_at
		 FROM oauth_accounts
		 WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	).Scan(&account.ID, &account.IdentityID, &account.Provider, &account.ProviderUserID, &account.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find oauth account: %w", err)
	}

	return account, nil
}

// CreateWithIdentity はIdentityとOAuth紐付けを同一トランザクションで作成する。
// Identityの挿入によりプロファイル作成トリガーが発火する。
func (r *PostgresOAuthAccountRepo) CreateWithIdentity(ctx context.Context, identity *model.Identity, account *model.OAuthAccount) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	metadata, err := json.Marshal(identity.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal identity metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, email, password_hash, email_confirmed, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		identity.ID, identity.Email, identity.PasswordHash, identity.EmailConfirmed,
		metadata, identity.CreatedAt, identity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO oauth_accounts (id, identity_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.IdentityID, account.Provider, account.ProviderUserID, account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert oauth account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ OAuthAccountRepository = (*PostgresOAuthAccountRepo)(nil)
