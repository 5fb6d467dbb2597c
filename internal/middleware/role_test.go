package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/bkconnect/internal/model"
)

// --- モック定義 ---

type mockProfileSource struct {
	resolveFn func(ctx context.Context, identityID string) (*model.Profile, error)
}

var _ ProfileSource = (*mockProfileSource)(nil)

func (m *mockProfileSource) Resolve(ctx context.Context, identityID string) (*model.Profile, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, identityID)
	}
	return nil, nil
}

func activeProfile(role model.Role) *model.Profile {
	return &model.Profile{
		ID:         "profile-1",
		IdentityID: "identity-1",
		Username:   "taro",
		Role:       role,
		IsActive:   true,
	}
}

func authedRequest(t *testing.T, identityID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	ctx := ContextWithIdentity(req.Context(), identityID, "session-1")
	return req.WithContext(ctx)
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// --- ProfileMiddleware のテスト ---

func TestProfileMiddleware_ActiveProfile_InjectsProfile(t *testing.T) {
	source := &mockProfileSource{
		resolveFn: func(ctx context.Context, identityID string) (*model.Profile, error) {
			if identityID != "identity-1" {
				t.Errorf("identityID = %q, want %q", identityID, "identity-1")
			}
			return activeProfile(model.RoleStudent), nil
		},
	}
	mw := NewProfileMiddleware(source)

	var captured *model.Profile
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, err := ProfileFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		captured = profile
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(t, "identity-1"))

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if captured == nil || captured.Username != "taro" {
		t.Errorf("profile = %+v, want username taro", captured)
	}
}

func TestProfileMiddleware_NoIdentity_Returns401(t *testing.T) {
	mw := NewProfileMiddleware(&mockProfileSource{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestProfileMiddleware_ProfileNotFound_Returns404(t *testing.T) {
	source := &mockProfileSource{
		resolveFn: func(ctx context.Context, identityID string) (*model.Profile, error) {
			return nil, nil
		},
	}
	mw := NewProfileMiddleware(source)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(t, "identity-1"))

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeProfileNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeProfileNotFound)
	}
}

func TestProfileMiddleware_InactiveProfile_Returns403(t *testing.T) {
	source := &mockProfileSource{
		resolveFn: func(ctx context.Context, identityID string) (*model.Profile, error) {
			profile := activeProfile(model.RoleStudent)
			profile.IsActive = false
			return profile, nil
		},
	}
	mw := NewProfileMiddleware(source)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(t, "identity-1"))

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeProfileInactive {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeProfileInactive)
	}
}

func TestProfileMiddleware_ResolveError_Returns500(t *testing.T) {
	source := &mockProfileSource{
		resolveFn: func(ctx context.Context, identityID string) (*model.Profile, error) {
			return nil, fmt.Errorf("db connection failed")
		},
	}
	mw := NewProfileMiddleware(source)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(t, "identity-1"))

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}

// --- RequireRole のテスト ---

func TestRequireRole_AllowedRole_PassesThrough(t *testing.T) {
	mw := RequireRole(model.RoleAdmin, model.RoleCounselingTeacher)

	handlerCalled := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/test", nil)
	req = req.WithContext(ContextWithProfile(req.Context(), activeProfile(model.RoleCounselingTeacher)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !handlerCalled {
		t.Error("handler should be called for allowed role")
	}
	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRequireRole_DisallowedRole_Returns403(t *testing.T) {
	mw := RequireRole(model.RoleAdmin)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/test", nil)
	req = req.WithContext(ContextWithProfile(req.Context(), activeProfile(model.RoleStudent)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeForbiddenRole {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeForbiddenRole)
	}
}

func TestRequireRole_NoProfile_Returns401(t *testing.T) {
	mw := RequireRole(model.RoleAdmin)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}
