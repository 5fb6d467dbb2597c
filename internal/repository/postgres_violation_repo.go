package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bkconnect/internal/model"
)

// PostgresViolationRepo はPostgreSQLを使用した違反記録リポジトリ。
type PostgresViolationRepo struct {
	db *sql.DB
}

// NewPostgresViolationRepo はPostgresViolationRepoを生成する。
func NewPostgresViolationRepo(db *sql.DB) *PostgresViolationRepo {
	return &PostgresViolationRepo{db: db}
}

// Create は違反記録を作成する。
func (r *PostgresViolationRepo) Create(ctx context.Context, violation *model.Violation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO violations (id, student_id, reporter_id, category, points, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		violation.ID, violation.StudentID, violation.ReporterID,
		violation.Category, violation.Points, violation.Note, violation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert violation: %w", err)
	}
	return nil
}

// FindByID は指定IDの違反記録を取得する。見つからない場合はnilを返す。
func (r *PostgresViolationRepo) FindByID(ctx context.Context, id string) (*model.Violation, error) {
	v := &model.Violation{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, student_id, reporter_id, category, points, note, created_at
		 FROM violations WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.StudentID, &v.ReporterID, &v.Category, &v.Points, &v.Note, &v.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find violation: %w", err)
	}

	return v, nil
}

// ListByStudentID は生徒の違反記録を新しい順で返す。
func (r *PostgresViolationRepo) ListByStudentID(ctx context.Context, studentID string) ([]*model.Violation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, student_id, reporter_id, category, points, note, created_at
		 FROM violations WHERE student_id = $1 ORDER BY created_at DESC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	defer rows.Close()

	var violations []*model.Violation
	for rows.Next() {
		v := &model.Violation{}
		if err := rows.Scan(&v.ID, &v.StudentID, &v.ReporterID, &v.Category, &v.Points, &v.Note, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate violations: %w", err)
	}

	return violations, nil
}

// TotalPointsByStudentID は生徒の累計ポイントを返す。記録がない場合は0。
func (r *PostgresViolationRepo) TotalPointsByStudentID(ctx context.Context, studentID string) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points), 0) FROM violations WHERE student_id = $1`,
		studentID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum violation points: %w", err)
	}
	return total, nil
}

// DeleteByID は指定IDの違反記録を削除する。
func (r *PostgresViolationRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM violations WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete violation: %w", err)
	}
	return requireOneRow(result, "violation", id)
}

// compile-time interface check
var _ ViolationRepository = (*PostgresViolationRepo)(nil)
