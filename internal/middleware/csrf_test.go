package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func csrfProtectedHandler(t *testing.T, called *bool) http.Handler {
	t.Helper()
	mw := NewCSRFMiddleware()
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFMiddleware_GetRequest_SkipsValidation(t *testing.T) {
	called := false
	handler := csrfProtectedHandler(t, &called)

	req := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called {
		t.Error("handler should be called for GET without token")
	}
	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestCSRFMiddleware_MatchingTokens_PassesThrough(t *testing.T) {
	called := false
	handler := csrfProtectedHandler(t, &called)

	req := httptest.NewRequest(http.MethodPost, "/api/news", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "token-abc"})
	req.Header.Set(CSRFHeaderName, "token-abc")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called {
		t.Error("handler should be called for matching tokens")
	}
}

func TestCSRFMiddleware_MissingCookie_Returns403(t *testing.T) {
	called := false
	handler := csrfProtectedHandler(t, &called)

	req := httptest.NewRequest(http.MethodPost, "/api/news", nil)
	req.Header.Set(CSRFHeaderName, "token-abc")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("handler should not be called without CSRF cookie")
	}
	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	body := decodeErrorBody(t, w)
	if body.Code != "CSRF_TOKEN_MISMATCH" {
		t.Errorf("code = %q, want CSRF_TOKEN_MISMATCH", body.Code)
	}
}

func TestCSRFMiddleware_MissingHeader_Returns403(t *testing.T) {
	called := false
	handler := csrfProtectedHandler(t, &called)

	req := httptest.NewRequest(http.MethodPost, "/api/news", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "token-abc"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("handler should not be called without CSRF header")
	}
	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestCSRFMiddleware_MismatchedTokens_Returns403(t *testing.T) {
	called := false
	handler := csrfProtectedHandler(t, &called)

	req := httptest.NewRequest(http.MethodPost, "/api/news", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "token-abc"})
	req.Header.Set(CSRFHeaderName, "token-xyz")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("handler should not be called for mismatched tokens")
	}
	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestCSRFTokenHandler_IssuesCookieAndBody(t *testing.T) {
	handler := NewCSRFTokenHandler(true)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == CSRFCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("csrf_token cookie not set")
	}
	if cookie.HttpOnly {
		t.Error("csrf_token cookie must be readable from JavaScript")
	}
	if !cookie.Secure {
		t.Error("csrf_token cookie should be Secure")
	}

	var body struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.CSRFToken != cookie.Value {
		t.Errorf("body token = %q, cookie token = %q, want equal", body.CSRFToken, cookie.Value)
	}
	if len(body.CSRFToken) != csrfTokenBytes*2 {
		t.Errorf("token length = %d, want %d", len(body.CSRFToken), csrfTokenBytes*2)
	}
}

func TestGenerateCSRFToken_Unique(t *testing.T) {
	a, err := GenerateCSRFToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := GenerateCSRFToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Error("tokens should be unique")
	}
}
