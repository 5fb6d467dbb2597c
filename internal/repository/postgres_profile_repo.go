package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/bkconnect/internal/model"
)

const profileColumns = `id, identity_id, email, username, full_name, role, is_active, last_login, created_at, updated_at`

// PostgresProfileRepo はPostgreSQLを使用したプロファイルリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByIdentityID はIdentityのIDでプロファイルを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByIdentityID(ctx context.Context, identityID string) (*model.Profile, error) {
	return r.findOne(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE identity_id = $1`,
		identityID,
	)
}

// FindByUsername はユーザー名でプロファイルを検索する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUsername(ctx context.Context, username string) (*model.Profile, error) {
	return r.findOne(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE username = $1`,
		username,
	)
}

// FindByID は指定IDのプロファイルを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	return r.findOne(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`,
		id,
	)
}

// List は全プロファイルをrole、username順で返す。
func (r *PostgresProfileRepo) List(ctx context.Context) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY role, username`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// StampLastLogin はlast_loginを指定時刻で更新する。
// 対象行がなくてもエラーにしない（プロビジョニング完了前の呼び出しを許容する）。
func (r *PostgresProfileRepo) StampLastLogin(ctx context.Context, identityID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET last_login = $1, updated_at = now() WHERE identity_id = $2`,
		at, identityID,
	)
	if err != nil {
		return fmt.Errorf("failed to stamp last login: %w", err)
	}
	return nil
}

// SetActive はis_activeフラグを更新する。
func (r *PostgresProfileRepo) SetActive(ctx context.Context, profileID string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET is_active = $1, updated_at = now() WHERE id = $2`,
		active, profileID,
	)
	if err != nil {
		return fmt.Errorf("failed to set profile active flag: %w", err)
	}
	return requireOneRow(result, "profile", profileID)
}

// SetRole はroleを更新する。
func (r *PostgresProfileRepo) SetRole(ctx context.Context, profileID string, role model.Role) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET role = $1, updated_at = now() WHERE id = $2`,
		string(role), profileID,
	)
	if err != nil {
		return fmt.Errorf("failed to set profile role: %w", err)
	}
	return requireOneRow(result, "profile", profileID)
}

func (r *PostgresProfileRepo) findOne(ctx context.Context, query string, arg any) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return p, nil
}

// rowScanner は*sql.Rowと*sql.Rowsを同一のスキャン処理で扱うためのインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	p := &model.Profile{}
	var role string
	var lastLogin sql.NullTime

	err := row.Scan(
		&p.ID, &p.IdentityID, &p.Email, &p.Username, &p.FullName,
		&role, &p.IsActive, &lastLogin, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Role = model.Role(role)
	if lastLogin.Valid {
		p.LastLogin = &lastLogin.Time
	}

	return p, nil
}

func requireOneRow(result sql.Result, entity, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
