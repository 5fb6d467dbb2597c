package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bkconnect/internal/model"
)

const newsColumns = `id, title, body_html, author_id, published, created_at, updated_at`

// PostgresNewsRepo はPostgreSQLを使用したお知らせリポジトリ。
type PostgresNewsRepo struct {
	db *sql.DB
}

// NewPostgresNewsRepo はPostgresNewsRepoを生成する。
func NewPostgresNewsRepo(db *sql.DB) *PostgresNewsRepo {
	return &PostgresNewsRepo{db: db}
}

// FindByID は指定IDのお知らせを取得する。見つからない場合はnilを返す。
func (r *PostgresNewsRepo) FindByID(ctx context.Context, id string) (*model.News, error) {
	n := &model.News{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+newsColumns+` FROM news WHERE id = $1`,
		id,
	).Scan(&n.ID, &n.Title, &n.BodyHTML, &n.AuthorID, &n.Published, &n.CreatedAt, &n.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find news: %w", err)
	}

	return n, nil
}

// ListPublished は公開済みのお知らせを新しい順で返す。
func (r *PostgresNewsRepo) ListPublished(ctx context.Context, limit int) ([]*model.News, error) {
	return r.list(ctx,
		`SELECT `+newsColumns+` FROM news WHERE published = TRUE ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
}

// ListAll は公開状態に関係なく全お知らせを新しい順で返す。
func (r *PostgresNewsRepo) ListAll(ctx context.Context, limit int) ([]*model.News, error) {
	return r.list(ctx,
		`SELECT `+newsColumns+` FROM news ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
}

// Create はお知らせを作成する。
func (r *PostgresNewsRepo) Create(ctx context.Context, news *model.News) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO news (id, title, body_html, author_id, published, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		news.ID, news.Title, news.BodyHTML, news.AuthorID, news.Published, news.CreatedAt, news.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert news: %w", err)
	}
	return nil
}

// Update はタイトル・本文・公開状態を更新する。
func (r *PostgresNewsRepo) Update(ctx context.Context, news *model.News) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE news SET title = $1, body_html = $2, published = $3, updated_at = $4 WHERE id = $5`,
		news.Title, news.BodyHTML, news.Published, news.UpdatedAt, news.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update news: %w", err)
	}
	return requireOneRow(result, "news", news.ID)
}

// DeleteByID は指定IDのお知らせを削除する。
func (r *PostgresNewsRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM news WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete news: %w", err)
	}
	return requireOneRow(result, "news", id)
}

func (r *PostgresNewsRepo) list(ctx context.Context, query string, args ...any) ([]*model.News, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list news: %w", err)
	}
	defer rows.Close()

	var items []*model.News
	for rows.Next() {
		n := &model.News{}
		if err := rows.Scan(&n.ID, &n.Title, &n.BodyHTML, &n.AuthorID, &n.Published, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan news: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate news: %w", err)
	}

	return items, nil
}

// compile-time interface check
var _ NewsRepository = (*PostgresNewsRepo)(nil)
