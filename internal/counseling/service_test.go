package counseling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/bkconnect/internal/model"
	"github.com/hitoshi/bkconnect/internal/repository"
)

// --- モック定義 ---

type mockViolationRepo struct {
	createFn      func(ctx context.Context, violation *model.Violation) error
	findByIDFn    func(ctx context.Context, id string) (*model.Violation, error)
	totalPointsFn func(ctx context.Context, studentID string) (int, error)
	deleteByIDFn  func(ctx context.Context, id string) error
}

func (m *mockViolationRepo) Create(ctx context.Context, violation *model.Violation) error {
	if m.createFn != nil {
		return m.createFn(ctx, violation)
	}
	return nil
}

func (m *mockViolationRepo) FindByID(ctx context.Context, id string) (*model.Violation, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockViolationRepo) ListByStudentID(_ context.Context, _ string) ([]*model.Violation, error) {
	return nil, nil
}

func (m *mockViolationRepo) TotalPointsByStudentID(ctx context.Context, studentID string) (int, error) {
	if m.totalPointsFn != nil {
		return m.totalPointsFn(ctx, studentID)
	}
	return 0, nil
}

func (m *mockViolationRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

type mockConsultationRepo struct {
	createFn   func(ctx context.Context, consultation *model.Consultation) error
	findByIDFn func(ctx context.Context, id string) (*model.Consultation, error)
	updateFn   func(ctx context.Context, consultation *model.Consultation) error
}

func (m *mockConsultationRepo) Create(ctx context.Context, consultation *model.Consultation) error {
	if m.createFn != nil {
		return m.createFn(ctx, consultation)
	}
	return nil
}

func (m *mockConsultationRepo) FindByID(ctx context.Context, id string) (*model.Consultation, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockConsultationRepo) ListByStudentID(_ context.Context, _ string) ([]*model.Consultation, error) {
	return nil, nil
}

func (m *mockConsultationRepo) ListByStatus(_ context.Context, _ model.ConsultationStatus) ([]*model.Consultation, error) {
	return nil, nil
}

func (m *mockConsultationRepo) Update(ctx context.Context, consultation *model.Consultation) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, consultation)
	}
	return nil
}

var _ repository.ViolationRepository = (*mockViolationRepo)(nil)
var _ repository.ConsultationRepository = (*mockConsultationRepo)(nil)

func wantValidationError(t *testing.T, err error) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Fatalf("error = %v, want validation error", err)
	}
}

// --- 違反記録 ---

func TestRecordViolation_Success(t *testing.T) {
	ctx := context.Background()

	var created *model.Violation
	violations := &mockViolationRepo{
		createFn: func(ctx context.Context, violation *model.Violation) error {
			created = violation
			return nil
		},
	}
	svc := NewService(violations, &mockConsultationRepo{})

	v, err := svc.RecordViolation(ctx, "student-1", "teacher-1", "遅刻", 2, "朝礼に遅刻")
	if err != nil {
		t.Fatalf("RecordViolation() error = %v", err)
	}
	if created == nil {
		t.Fatal("expected violation to be persisted")
	}
	if v.Points != 2 || v.Category != "遅刻" {
		t.Errorf("violation = %+v", v)
	}
}

func TestRecordViolation_InvalidInput(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockViolationRepo{}, &mockConsultationRepo{})

	_, err := svc.RecordViolation(ctx, "student-1", "teacher-1", "  ", 2, "")
	wantValidationError(t, err)

	_, err = svc.RecordViolation(ctx, "student-1", "teacher-1", "遅刻", 0, "")
	wantValidationError(t, err)

	_, err = svc.RecordViolation(ctx, "student-1", "teacher-1", "遅刻", -3, "")
	wantValidationError(t, err)
}

func TestDeleteViolation_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockViolationRepo{}, &mockConsultationRepo{})

	err := svc.DeleteViolation(ctx, "missing-id")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeViolationNotFound {
		t.Fatalf("error = %v, want violation not found", err)
	}
}

func TestTotalPoints_DelegatesToRepo(t *testing.T) {
	ctx := context.Background()

	violations := &mockViolationRepo{
		totalPointsFn: func(ctx context.Context, studentID string) (int, error) {
			return 7, nil
		},
	}
	svc := NewService(violations, &mockConsultationRepo{})

	total, err := svc.TotalPoints(ctx, "student-1")
	if err != nil {
		t.Fatalf("TotalPoints() error = %v", err)
	}
	if total != 7 {
		t.Errorf("total = %d, want 7", total)
	}
}

// --- 相談 ---

func TestRequestConsultation_StartsAsRequested(t *testing.T) {
	ctx := context.Background()

	var created *model.Consultation
	consultations := &mockConsultationRepo{
		createFn: func(ctx context.Context, consultation *model.Consultation) error {
			created = consultation
			return nil
		},
	}
	svc := NewService(&mockViolationRepo{}, consultations)

	c, err := svc.RequestConsultation(ctx, "student-1", "進路について")
	if err != nil {
		t.Fatalf("RequestConsultation() error = %v", err)
	}
	if c.Status != model.ConsultationRequested {
		t.Errorf("status = %q, want requested", c.Status)
	}
	if created.CounselorID != nil || created.ScheduledAt != nil {
		t.Error("new consultation must not have counselor or schedule")
	}
}

func TestRequestConsultation_EmptyTopic_Rejected(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockViolationRepo{}, &mockConsultationRepo{})

	_, err := svc.RequestConsultation(ctx, "student-1", "")
	wantValidationError(t, err)
}

func TestSchedule_FromRequested_Succeeds(t *testing.T) {
	ctx := context.Background()

	consultations := &mockConsultationRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Consultation, error) {
			return &model.Consultation{ID: id, Status: model.ConsultationRequested}, nil
		},
	}
	svc := NewService(&mockViolationRepo{}, consultations)

	at := time.Date(2026, 9, 10, 14, 0, 0, 0, time.Local)
	c, err := svc.Schedule(ctx, "c-1", "counselor-1", at)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if c.Status != model.ConsultationScheduled {
		t.Errorf("status = %q, want scheduled", c.Status)
	}
	if c.CounselorID == nil || *c.CounselorID != "counselor-1" {
		t.Errorf("counselorID = %v, want counselor-1", c.CounselorID)
	}
	if c.ScheduledAt == nil || !c.ScheduledAt.Equal(at) {
		t.Errorf("scheduledAt = %v, want %v", c.ScheduledAt, at)
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    model.ConsultationStatus
		action  string
		wantErr bool
	}{
		{"schedule from requested", model.ConsultationRequested, "schedule", false},
		{"schedule from scheduled", model.ConsultationScheduled, "schedule", true},
		{"schedule from completed", model.ConsultationCompleted, "schedule", true},
		{"complete from scheduled", model.ConsultationScheduled, "complete", false},
		{"complete from requested", model.ConsultationRequested, "complete", true},
		{"complete from cancelled", model.ConsultationCancelled, "complete", true},
		{"cancel from requested", model.ConsultationRequested, "cancel", false},
		{"cancel from scheduled", model.ConsultationScheduled, "cancel", false},
		{"cancel from completed", model.ConsultationCompleted, "cancel", true},
		{"cancel from cancelled", model.ConsultationCancelled, "cancel", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			consultations := &mockConsultationRepo{
				findByIDFn: func(ctx context.Context, id string) (*model.Consultation, error) {
					return &model.Consultation{ID: id, Status: tt.from}, nil
				},
			}
			svc := NewService(&mockViolationRepo{}, consultations)

			var err error
			switch tt.action {
			case "schedule":
				_, err = svc.Schedule(ctx, "c-1", "counselor-1", time.Now())
			case "complete":
				_, err = svc.Complete(ctx, "c-1", "記録")
			case "cancel":
				_, err = svc.Cancel(ctx, "c-1")
			}

			if tt.wantErr {
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidTransition {
					t.Fatalf("error = %v, want invalid transition", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestComplete_StoresNote(t *testing.T) {
	ctx := context.Background()

	var updated *model.Consultation
	consultations := &mockConsultationRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Consultation, error) {
			return &model.Consultation{ID: id, Status: model.ConsultationScheduled}, nil
		},
		updateFn: func(ctx context.Context, consultation *model.Consultation) error {
			updated = consultation
			return nil
		},
	}
	svc := NewService(&mockViolationRepo{}, consultations)

	_, err := svc.Complete(ctx, "c-1", "面談実施済み")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if updated.Note != "面談実施済み" {
		t.Errorf("note = %q, want 面談実施済み", updated.Note)
	}
}
