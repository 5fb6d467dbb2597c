package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bkconnect/internal/model"
)

const consultationColumns = `id, student_id, counselor_id, topic, status, scheduled_at, note, created_at, updated_at`

// PostgresConsultationRepo はPostgreSQLを使用した相談リポジトリ。
type PostgresConsultationRepo struct {
	db *sql.DB
}

// NewPostgresConsultationRepo はPostgresConsultationRepoを生成する。
func NewPostgresConsultationRepo(db *sql.DB) *PostgresConsultationRepo {
	return &PostgresConsultationRepo{db: db}
}

// Create は相談を作成する。
func (r *PostgresConsultationRepo) Create(ctx context.Context, consultation *model.Consultation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO consultations (id, student_id, counselor_id, topic, status, scheduled_at, note, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		consultation.ID, consultation.StudentID, consultation.CounselorID,
		consultation.Topic, string(consultation.Status), consultation.ScheduledAt,
		consultation.Note, consultation.CreatedAt, consultation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert consultation: %w", err)
	}
	return nil
}

// FindByID は指定IDの相談を取得する。見つからない場合はnilを返す。
func (r *PostgresConsultationRepo) FindByID(ctx context.Context, id string) (*model.Consultation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+consultationColumns+` FROM consultations WHERE id = $1`,
		id,
	)
	c, err := scanConsultation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find consultation: %w", err)
	}
	return c, nil
}

// ListByStudentID は生徒の相談を新しい順で返す。
func (r *PostgresConsultationRepo) ListByStudentID(ctx context.Context, studentID string) ([]*model.Consultation, error) {
	return r.list(ctx,
		`SELECT `+consultationColumns+` FROM consultations WHERE student_id = $1 ORDER BY created_at DESC`,
		studentID,
	)
}

// ListByStatus は指定状態の相談を古い順で返す。
func (r *PostgresConsultationRepo) ListByStatus(ctx context.Context, status model.ConsultationStatus) ([]*model.Consultation, error) {
	return r.list(ctx,
		`SELECT `+consultationColumns+` FROM consultations WHERE status = $1 ORDER BY created_at ASC`,
		string(status),
	)
}

// Update は状態・担当者・予定日時・メモを更新する。
func (r *PostgresConsultationRepo) Update(ctx context.Context, consultation *model.Consultation) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE consultations
		 SET counselor_id = $1, status = $2, scheduled_at = $3, note = $4, updated_at = $5
		 WHERE id = $6`,
		consultation.CounselorID, string(consultation.Status), consultation.ScheduledAt,
		consultation.Note, consultation.UpdatedAt, consultation.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update consultation: %w", err)
	}
	return requireOneRow(result, "consultation", consultation.ID)
}

func (r *PostgresConsultationRepo) list(ctx context.Context, query string, args ...any) ([]*model.Consultation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	defer rows.Close()

	var consultations []*model.Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consultation: %w", err)
		}
		consultations = append(consultations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate consultations: %w", err)
	}

	return consultations, nil
}

func scanConsultation(row rowScanner) (*model.Consultation, error) {
	c := &model.Consultation{}
	var counselorID sql.NullString
	var status string
	var scheduledAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.StudentID, &counselorID, &c.Topic, &status,
		&scheduledAt, &c.Note, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Status = model.ConsultationStatus(status)
	if counselorID.Valid {
		c.CounselorID = &counselorID.String
	}
	if scheduledAt.Valid {
		c.ScheduledAt = &scheduledAt.Time
	}

	return c, nil
}

// compile-time interface check
var _ ConsultationRepository = (*PostgresConsultationRepo)(nil)
