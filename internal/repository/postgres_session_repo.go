package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/bkconnect/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, identity_id, idle_deadline, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.IdentityID, session.IdleDeadline, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。
// 絶対期限または無操作期限を過ぎている場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, identity_id, idle_deadline, expires_at, created_at
		 FROM sessions
		 WHERE id = $1 AND expires_at > now() AND idle_deadline > now()`,
		id,
	).Scan(&session.ID, &session.IdentityID, &session.IdleDeadline, &session.ExpiresAt, &session.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

// ExtendIdle は無操作期限を前方に更新する。
// 後退させる更新は行わない（last-write-winsだが過去方向は無視）。
func (r *PostgresSessionRepo) ExtendIdle(ctx context.Context, id string, deadline time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET idle_deadline = $1 WHERE id = $2 AND idle_deadline < $1`,
		deadline, id,
	)
	if err != nil {
		return fmt.Errorf("failed to extend session idle deadline: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない（冪等）。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByIdentityID は指定Identityの全セッションを削除する。
func (r *PostgresSessionRepo) DeleteByIdentityID(ctx context.Context, identityID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE identity_id = $1`,
		identityID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete identity sessions: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
