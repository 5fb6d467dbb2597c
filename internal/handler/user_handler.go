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

// UserServiceInterface はユーザー管理ハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context) ([]*model.Profile, error)
	SetActive(ctx context.Context, profileID string, active bool) error
	SetRole(ctx context.Context, profileID string, role model.Role) error
	Withdraw(ctx context.Context, identityID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service      UserServiceInterface
	cookieDomain string
	cookieSecure bool
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, cookieDomain string, cookieSecure bool) *UserHandler {
	return &UserHandler{
		service:      service,
		cookieDomain: cookieDomain,
		cookieSecure: cookieSecure,
	}
}

// profileResponse はプロファイル情報のAPIレスポンス。
type profileResponse struct {
	ID         string     `json:"id"`
	IdentityID string     `json:"identity_id"`
	Email      string     `json:"email"`
	Username   string     `json:"username"`
	FullName   string     `json:"full_name"`
	Role       string     `json:"role"`
	IsActive   bool       `json:"is_active"`
	LastLogin  *time.Time `json:"last_login"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toProfileResponse(profile *model.Profile) profileResponse {
	return profileResponse{
		ID:         profile.ID,
		IdentityID: profile.IdentityID,
		Email:      profile.Email,
		Username:   profile.Username,
		FullName:   profile.FullName,
		Role:       string(profile.Role),
		IsActive:   profile.IsActive,
		LastLogin:  profile.LastLogin,
		CreatedAt:  profile.CreatedAt,
	}
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// List は全ユーザーのプロファイル一覧を返す。
// GET /api/admin/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]profileResponse, len(profiles))
	for i, profile := range profiles {
		results[i] = toProfileResponse(profile)
	}

	writeJSON(w, http.StatusOK, results)
}

// SetActive はユーザーの有効・無効を切り替える。
// 無効化すると該当ユーザーの全セッションが破棄される。
// PUT /api/admin/users/{id}/active
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.SetActive(r.Context(), chi.URLParam(r, "id"), req.Active); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetRole はユーザーの役割を変更する。
// PUT /api/admin/users/{id}/role
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.SetRole(r.Context(), chi.URLParam(r, "id"), model.Role(req.Role)); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Withdraw はログイン中ユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	identityID, err := middleware.IdentityIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	if err := h.service.Withdraw(r.Context(), identityID); err != nil {
		handleServiceError(w, err)
		return
	}

	// 退会後のセッションCookieをクリア
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}
