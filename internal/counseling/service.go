// Package counseling は違反記録と相談管理のドメインロジックを提供する。
package counseling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bkconnect/internal/model"
	"github.com/hitoshi/bkconnect/internal/repository"
)

// Service は違反記録と相談のサービス層。
type Service struct {
	violations    repository.ViolationRepository
	consultations repository.ConsultationRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(violations repository.ViolationRepository, consultations repository.ConsultationRepository) *Service {
	return &Service{
		violations:    violations,
		consultations: consultations,
	}
}

// --- 違反記録 ---

// RecordViolation は違反記録を作成する。
// ポイントは正の値のみ許可する。重み付けの妥当性は運用側の責任。
func (s *Service) RecordViolation(ctx context.Context, studentID, reporterID, category string, points int, note string) (*model.Violation, error) {
	if strings.TrimSpace(category) == "" {
		return nil, model.NewValidationError("カテゴリは必須です")
	}
	if points <= 0 {
		return nil, model.NewValidationError("ポイントは1以上で指定してください")
	}

	violation := &model.Violation{
		ID:         uuid.New().String(),
		StudentID:  studentID,
		ReporterID: reporterID,
		Category:   strings.TrimSpace(category),
		Points:     points,
		Note:       note,
		CreatedAt:  time.Now(),
	}

	if err := s.violations.Create(ctx, violation); err != nil {
		return nil, fmt.Errorf("違反記録の作成に失敗しました: %w", err)
	}

	slog.Info("violation recorded",
		slog.String("violation_id", violation.ID),
		slog.String("student_id", studentID),
		slog.Int("points", points),
	)
	return violation, nil
}

// ListViolations は生徒の違反記録を新しい順で返す。
func (s *Service) ListViolations(ctx context.Context, studentID string) ([]*model.Violation, error) {
	return s.violations.ListByStudentID(ctx, studentID)
}

// TotalPoints は生徒の累計ポイントを返す。
func (s *Service) TotalPoints(ctx context.Context, studentID string) (int, error) {
	return s.violations.TotalPointsByStudentID(ctx, studentID)
}

// DeleteViolation は違反記録を削除する。誤登録の取り消し用。
func (s *Service) DeleteViolation(ctx context.Context, id string) error {
	violation, err := s.violations.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("違反記録の取得に失敗しました: %w", err)
	}
	if violation == nil {
		return model.NewViolationNotFoundError(id)
	}
	if err := s.violations.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("違反記録の削除に失敗しました: %w", err)
	}
	slog.Info("violation deleted", slog.String("violation_id", id))
	return nil
}

// --- 相談 ---

// validTransitions は相談状態の許可される遷移。
// requested → scheduled → completed、cancelledはrequested/scheduledから。
var validTransitions = map[model.ConsultationStatus][]model.ConsultationStatus{
	model.ConsultationRequested: {model.ConsultationScheduled, model.ConsultationCancelled},
	model.ConsultationScheduled: {model.ConsultationCompleted, model.ConsultationCancelled},
}

func canTransition(from, to model.ConsultationStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// RequestConsultation は生徒からの相談申請を作成する。初期状態はrequested。
func (s *Service) RequestConsultation(ctx context.Context, studentID, topic string) (*model.Consultation, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, model.NewValidationError("相談内容は必須です")
	}

	now := time.Now()
	consultation := &model.Consultation{
		ID:        uuid.New().String(),
		StudentID: studentID,
		Topic:     strings.TrimSpace(topic),
		Status:    model.ConsultationRequested,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.consultations.Create(ctx, consultation); err != nil {
		return nil, fmt.Errorf("相談申請の作成に失敗しました: %w", err)
	}

	slog.Info("consultation requested",
		slog.String("consultation_id", consultation.ID),
		slog.String("student_id", studentID),
	)
	return consultation, nil
}

// ListConsultationsByStudent は生徒の相談を新しい順で返す。
func (s *Service) ListConsultationsByStudent(ctx context.Context, studentID string) ([]*model.Consultation, error) {
	return s.consultations.ListByStudentID(ctx, studentID)
}

// Queue は指定状態の相談を古い順で返す。BK教員の処理キュー用。
func (s *Service) Queue(ctx context.Context, status model.ConsultationStatus) ([]*model.Consultation, error) {
	return s.consultations.ListByStatus(ctx, status)
}

// Schedule は相談の日時と担当者を確定する。requestedからのみ遷移できる。
func (s *Service) Schedule(ctx context.Context, id, counselorID string, at time.Time) (*model.Consultation, error) {
	consultation, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(consultation.Status, model.ConsultationScheduled) {
		return nil, model.NewInvalidTransitionError(consultation.Status, model.ConsultationScheduled)
	}

	consultation.CounselorID = &counselorID
	consultation.ScheduledAt = &at
	consultation.Status = model.ConsultationScheduled
	consultation.UpdatedAt = time.Now()

	if err := s.consultations.Update(ctx, consultation); err != nil {
		return nil, fmt.Errorf("相談の更新に失敗しました: %w", err)
	}

	slog.Info("consultation scheduled",
		slog.String("consultation_id", id),
		slog.String("counselor_id", counselorID),
	)
	return consultation, nil
}

// Complete は相談を実施済みにする。scheduledからのみ遷移できる。
// noteには実施記録を残す。
func (s *Service) Complete(ctx context.Context, id, note string) (*model.Consultation, error) {
	consultation, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(consultation.Status, model.ConsultationCompleted) {
		return nil, model.NewInvalidTransitionError(consultation.Status, model.ConsultationCompleted)
	}

	consultation.Status = model.ConsultationCompleted
	consultation.Note = note
	consultation.UpdatedAt = time.Now()

	if err := s.consultations.Update(ctx, consultation); err != nil {
		return nil, fmt.Errorf("相談の更新に失敗しました: %w", err)
	}

	slog.Info("consultation completed", slog.String("consultation_id", id))
	return consultation, nil
}

// Cancel は相談を取り消す。completedからは取り消せない。
func (s *Service) Cancel(ctx context.Context, id string) (*model.Consultation, error) {
	consultation, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(consultation.Status, model.ConsultationCancelled) {
		return nil, model.NewInvalidTransitionError(consultation.Status, model.ConsultationCancelled)
	}

	consultation.Status = model.ConsultationCancelled
	consultation.UpdatedAt = time.Now()

	if err := s.consultations.Update(ctx, consultation); err != nil {
		return nil, fmt.Errorf("相談の更新に失敗しました: %w", err)
	}

	slog.Info("consultation cancelled", slog.String("consultation_id", id))
	return consultation, nil
}

func (s *Service) find(ctx context.Context, id string) (*model.Consultation, error) {
	consultation, err := s.consultations.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("相談の取得に失敗しました: %w", err)
	}
	if consultation == nil {
		return nil, model.NewConsultationNotFoundError(id)
	}
	return consultation, nil
}
