package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bkconnect/internal/middleware"
	"github.com/hitoshi/bkconnect/internal/model"
)

// CounselingServiceInterface はBK業務ハンドラーが必要とするサービスインターフェース。
type CounselingServiceInterface interface {
	RecordViolation(ctx context.Context, studentID, reporterID, category string, points int, note string) (*model.Violation, error)
	ListViolations(ctx context.Context, studentID string) ([]*model.Violation, error)
	TotalPoints(ctx context.Context, studentID string) (int, error)
	DeleteViolation(ctx context.Context, id string) error

	RequestConsultation(ctx context.Context, studentID, topic string) (*model.Consultation, error)
	ListConsultationsByStudent(ctx context.Context, studentID string) ([]*model.Consultation, error)
	Queue(ctx context.Context, status model.ConsultationStatus) ([]*model.Consultation, error)
	Schedule(ctx context.Context, id, counselorID string, at time.Time) (*model.Consultation, error)
	Complete(ctx context.Context, id, note string) (*model.Consultation, error)
	Cancel(ctx context.Context, id string) (*model.Consultation, error)
}

// CounselingHandler は違反記録・相談管理のHTTPハンドラー。
type CounselingHandler struct {
	service CounselingServiceInterface
}

// NewCounselingHandler はCounselingHandlerを生成する。
func NewCounselingHandler(service CounselingServiceInterface) *CounselingHandler {
	return &CounselingHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

type recordViolationRequest struct {
	StudentID string `json:"student_id"`
	Category  string `json:"category"`
	Points    int    `json:"points"`
	Note      string `json:"note"`
}

type violationResponse struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	ReporterID string    `json:"reporter_id"`
	Category   string    `json:"category"`
	Points     int       `json:"points"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}

type violationListResponse struct {
	Violations  []violationResponse `json:"violations"`
	TotalPoints int                 `json:"total_points"`
}

type requestConsultationRequest struct {
	Topic string `json:"topic"`
}

type scheduleConsultationRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

type completeConsultationRequest struct {
	Note string `json:"note"`
}

type consultationResponse struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"student_id"`
	CounselorID *string    `json:"counselor_id"`
	Topic       string     `json:"topic"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Note        string     `json:"note"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toViolationResponse(v *model.Violation) violationResponse {
	return violationResponse{
		ID:         v.ID,
		StudentID:  v.StudentID,
		ReporterID: v.ReporterID,
		Category:   v.Category,
		Points:     v.Points,
		Note:       v.Note,
		CreatedAt:  v.CreatedAt,
	}
}

func toConsultationResponse(c *model.Consultation) consultationResponse {
	return consultationResponse{
		ID:          c.ID,
		StudentID:   c.StudentID,
		CounselorID: c.CounselorID,
		Topic:       c.Topic,
		Status:      string(c.Status),
		ScheduledAt: c.ScheduledAt,
		Note:        c.Note,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toConsultationListResponse(list []*model.Consultation) []consultationResponse {
	results := make([]consultationResponse, len(list))
	for i, c := range list {
		results[i] = toConsultationResponse(c)
	}
	return results
}

// --- 違反記録 ---

// RecordViolation は違反記録を登録する。報告者はログイン中の教員。
// POST /api/violations
func (h *CounselingHandler) RecordViolation(w http.ResponseWriter, r *http.Request) {
	profile, err := middleware.ProfileFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	var req recordViolationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	violation, err := h.service.RecordViolation(r.Context(), req.StudentID, profile.ID, req.Category, req.Points, req.Note)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toViolationResponse(violation))
}

// ListViolations は生徒の違反記録一覧と合計ポイントを返す。
// 生徒は自身の記録のみ閲覧できる。
// GET /api/students/{id}/violations
func (h *CounselingHandler) ListViolations(w http.ResponseWriter, r *http.Request) {
	profile, err := middleware.ProfileFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	studentID := chi.URLParam(r, "id")
	if profile.Role == model.RoleStudent && profile.ID != studentID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenRoleError())
		return
	}

	violations, err := h.service.ListViolations(r.Context(), studentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	total, err := h.service.TotalPoints(r.Context(), studentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]violationResponse, len(violations))
	for i, v := range violations {
		results[i] = toViolationResponse(v)
	}

	writeJSON(w, http.StatusOK, violationListResponse{
		Violations:  results,
		TotalPoints: total,
	})
}

// DeleteViolation は違反記録を削除する。
// DELETE /api/violations/{id}
func (h *CounselingHandler) DeleteViolation(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteViolation(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- 相談 ---

// RequestConsultation は生徒が相談を申請する。
// POST /api/consultations
func (h *CounselingHandler) RequestConsultation(w http.ResponseWriter, r *http.Request) {
	profile, err := middleware.ProfileFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	var req requestConsultationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	consultation, err := h.service.RequestConsultation(r.Context(), profile.ID, req.Topic)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toConsultationResponse(consultation))
}

// ListMyConsultations はログイン中の生徒の相談一覧を返す。
// GET /api/consultations
func (h *CounselingHandler) ListMyConsultations(w http.ResponseWriter, r *http.Request) {
	profile, err := middleware.ProfileFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	list, err := h.service.ListConsultationsByStudent(r.Context(), profile.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toConsultationListResponse(list))
}

// Queue はBK教員向けに指定状態の相談一覧を返す。デフォルトはrequested。
// GET /api/counseling/queue?status=requested
func (h *CounselingHandler) Queue(w http.ResponseWriter, r *http.Request) {
	status := model.ConsultationStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = model.ConsultationRequested
	}

	list, err := h.service.Queue(r.Context(), status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toConsultationListResponse(list))
}

// Schedule はBK教員が相談日時を確定する。担当者はログイン中の教員。
// POST /api/consultations/{id}/schedule
func (h *CounselingHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	profile, err := middleware.ProfileFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	var req scheduleConsultationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	consultation, err := h.service.Schedule(r.Context(), chi.URLParam(r, "id"), profile.ID, req.ScheduledAt)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toConsultationResponse(consultation))
}

// Complete は相談を実施済みにする。
// POST /api/consultations/{id}/complete
func (h *CounselingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeConsultationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	consultation, err := h.service.Complete(r.Context(), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toConsultationResponse(consultation))
}

// Cancel は相談を取り消す。
// POST /api/consultations/{id}/cancel
func (h *CounselingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	consultation, err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toConsultationResponse(consultation))
}
