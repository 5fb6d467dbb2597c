package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/bkconnect/internal/model"
)

// PostgresIdentityRepo はPostgreSQLを使用した認証アカウントリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// Create はIdentityを作成する。
// metadataはJSONBとして保存され、DBトリガーがプロファイル行を生成する際に参照する。
func (r *PostgresIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	metadata, err := json.Marshal(identity.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal identity metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO identities (id, email, password_hash, email_confirmed, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		identity.ID, identity.Email, identity.PasswordHash, identity.EmailConfirmed,
		metadata, identity.CreatedAt, identity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	return nil
}

// FindByID は指定IDのIdentityを取得する。見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	return r.findOne(ctx,
		`SELECT id, email, password_hash, email_confirmed, metadata, created_at, updated_at
		 FROM identities WHERE id = $1`,
		id,
	)
}

// FindByEmail はメールアドレスでIdentityを検索する。見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByEmail(ctx context.Context, email string) (*model.Identity, error) {
	return r.findOne(ctx,
		`SELECT id, email, password_hash, email_confirmed, metadata, created_at, updated_at
		 FROM identities WHERE email = $1`,
		email,
	)
}

// DeleteByID は指定IDのIdentityを削除する。
// プロファイル、セッション、OAuth紐付けはCASCADE削除される。
func (r *PostgresIdentityRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM identities WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("identity not found: %s", id)
	}
	return nil
}

func (r *PostgresIdentityRepo) findOne(ctx context.Context, query string, arg any) (*model.Identity, error) {
	identity := &model.Identity{}
	var metadata []byte

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash, &identity.EmailConfirmed,
		&metadata, &identity.CreatedAt, &identity.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &identity.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal identity metadata: %w", err)
		}
	}

	return identity, nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
