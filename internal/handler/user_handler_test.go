package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/bkconnect/internal/middleware"
	"github.com/hitoshi/bkconnect/internal/model"
)

// --- モック定義 ---

type mockUserService struct {
	listFn      func(ctx context.Context) ([]*model.Profile, error)
	setActiveFn func(ctx context.Context, profileID string, active bool) error
	setRoleFn   func(ctx context.Context, profileID string, role model.Role) error
	withdrawFn  func(ctx context.Context, identityID string) error
}

var _ UserServiceInterface = (*mockUserService)(nil)

func (m *mockUserService) List(ctx context.Context) ([]*model.Profile, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserService) SetActive(ctx context.Context, profileID string, active bool) error {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, profileID, active)
	}
	return nil
}

func (m *mockUserService) SetRole(ctx context.Context, profileID string, role model.Role) error {
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, profileID, role)
	}
	return nil
}

func (m *mockUserService) Withdraw(ctx context.Context, identityID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, identityID)
	}
	return nil
}

func newTestUserHandler(svc *mockUserService) *UserHandler {
	return NewUserHandler(svc, "", false)
}

// --- テスト ---

func TestUserHandler_List_ReturnsProfiles(t *testing.T) {
	svc := &mockUserService{
		listFn: func(ctx context.Context) ([]*model.Profile, error) {
			return []*model.Profile{
				{ID: "p-1", Username: "admin", Role: model.RoleAdmin, IsActive: true},
				{ID: "p-2", Username: "seito", Role: model.RoleStudent, IsActive: true},
			}, nil
		},
	}
	h := newTestUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var out []profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[1].Role != "student" {
		t.Errorf("role = %q, want student", out[1].Role)
	}
}

func TestUserHandler_SetActive_Deactivates(t *testing.T) {
	var capturedID string
	var capturedActive bool
	svc := &mockUserService{
		setActiveFn: func(ctx context.Context, profileID string, active bool) error {
			capturedID = profileID
			capturedActive = active
			return nil
		},
	}
	h := newTestUserHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/p-1/active", strings.NewReader(`{"active":false}`))
	req = withChiURLParam(req, "id", "p-1")
	w := httptest.NewRecorder()

	h.SetActive(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if capturedID != "p-1" || capturedActive {
		t.Errorf("SetActive(%q, %v), want (p-1, false)", capturedID, capturedActive)
	}
}

func TestUserHandler_SetActive_ProfileNotFound_Returns404(t *testing.T) {
	svc := &mockUserService{
		setActiveFn: func(ctx context.Context, profileID string, active bool) error {
			return model.NewProfileNotFoundError()
		},
	}
	h := newTestUserHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/missing/active", strings.NewReader(`{"active":true}`))
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.SetActive(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestUserHandler_SetRole_PassesRole(t *testing.T) {
	var capturedRole model.Role
	svc := &mockUserService{
		setRoleFn: func(ctx context.Context, profileID string, role model.Role) error {
			capturedRole = role
			return nil
		},
	}
	h := newTestUserHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/p-1/role", strings.NewReader(`{"role":"homeroom_teacher"}`))
	req = withChiURLParam(req, "id", "p-1")
	w := httptest.NewRecorder()

	h.SetRole(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if capturedRole != model.RoleHomeroomTeacher {
		t.Errorf("role = %q, want homeroom_teacher", capturedRole)
	}
}

func TestUserHandler_SetRole_InvalidRole_Returns400(t *testing.T) {
	svc := &mockUserService{
		setRoleFn: func(ctx context.Context, profileID string, role model.Role) error {
			return model.NewValidationError("役割の指定が不正です")
		},
	}
	h := newTestUserHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/p-1/role", strings.NewReader(`{"role":"principal"}`))
	req = withChiURLParam(req, "id", "p-1")
	w := httptest.NewRecorder()

	h.SetRole(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestUserHandler_Withdraw_UsesIdentityFromContext(t *testing.T) {
	var capturedIdentityID string
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, identityID string) error {
			capturedIdentityID = identityID
			return nil
		},
	}
	h := newTestUserHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req = req.WithContext(middleware.ContextWithIdentity(req.Context(), "identity-123", "session-abc"))
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if capturedIdentityID != "identity-123" {
		t.Errorf("identityID = %q, want identity-123", capturedIdentityID)
	}

	// セッションCookieがクリアされること
	cookie := sessionCookieFrom(resp)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Errorf("session cookie should be cleared, got %+v", cookie)
	}
}

func TestUserHandler_Withdraw_NoIdentity_Returns401(t *testing.T) {
	h := newTestUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}
