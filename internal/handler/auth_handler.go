// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/bkconnect/internal/auth"
	"github.com/hitoshi/bkconnect/internal/model"
)

const (
	sessionCookieName = "session_id"
	oauthStateCookie  = "oauth_state"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, email, password string, reg auth.Registration) (*model.Identity, error)
	OAuthLoginURL(state string) string
	HandleOAuthCallback(ctx context.Context, code string) (*model.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	Restore(ctx context.Context, sessionID string) (*model.Session, error)
}

// SessionLifecycle はクライアントから報告された操作イベントの転送先。
type SessionLifecycle interface {
	// Touch は対象イベントであれば無操作期限を延長し、延長したかを返す。
	Touch(ctx context.Context, sessionID string, kinds []string) bool
}

// ProfileResolverInterface はIdentityからプロファイルを解決するインターフェース。
type ProfileResolverInterface interface {
	Resolve(ctx context.Context, identityID string) (*model.Profile, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は認証・セッション関連のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	lifecycle SessionLifecycle
	resolver  ProfileResolverInterface
	config    AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, lifecycle SessionLifecycle, resolver ProfileResolverInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:   service,
		lifecycle: lifecycle,
		resolver:  resolver,
		config:    config,
	}
}

// signUpRequest はサインアップリクエストのボディ。
type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// signInRequest はログインリクエストのボディ。
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse はログイン成功時のレスポンス。
type sessionResponse struct {
	IdentityID   string    `json:"identity_id"`
	IdleDeadline time.Time `json:"idle_deadline"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SignUp はメールアドレスとパスワードでアカウントを登録する。
// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	identity, err := h.service.SignUp(r.Context(), req.Email, req.Password, auth.Registration{
		Username: req.Username,
		FullName: req.FullName,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":    identity.ID,
		"email": identity.Email,
	})
}

// SignIn はメールアドレスとパスワードでログインし、セッションCookieを設定する。
// POST /auth/login
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	session, err := h.service.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)

	writeJSON(w, http.StatusOK, sessionResponse{
		IdentityID:   session.IdentityID,
		IdleDeadline: session.IdleDeadline,
		ExpiresAt:    session.ExpiresAt,
	})
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.service.OAuthLoginURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	// 3. 認証処理
	session, err := h.service.HandleOAuthCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// 4. セッションCookieを設定（HTTP Only）
	h.setSessionCookie(w, session.ID)

	// 5. フロントエンドにリダイレクト
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// セッションCookieの取得
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		// セッションをDBから削除
		if signOutErr := h.service.SignOut(r.Context(), cookie.Value); signOutErr != nil {
			slog.Error("failed to sign out", slog.String("error", signOutErr.Error()))
			// サインアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)

	w.WriteHeader(http.StatusNoContent)
}

// Me はセッションを復元し、現在のログインユーザーのプロファイルを返す。
// ページ再読み込み時の復元確認に使用する。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	session, err := h.service.Restore(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to restore session", slog.String("error", err.Error()))
		writeInternalError(w)
		return
	}
	if session == nil {
		// 期限切れセッションのCookieは残さない
		h.clearSessionCookie(w)
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	profile, err := h.resolver.Resolve(r.Context(), session.IdentityID)
	if err != nil {
		slog.Error("failed to resolve profile",
			slog.String("identity_id", session.IdentityID),
			slog.String("error", err.Error()),
		)
		writeInternalError(w)
		return
	}
	if profile == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewProfileNotFoundError())
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// activityRequest はクライアントから報告される操作イベントのボディ。
type activityRequest struct {
	Kinds []string `json:"kinds"`
}

// Activity はクライアントが報告した操作イベントを無操作監視に転送する。
// 対象イベント（クリック・キー入力等）のみ無操作期限を延長する。
// POST /auth/activity
func (h *AuthHandler) Activity(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	extended := h.lifecycle.Touch(r.Context(), cookie.Value, req.Kinds)

	writeJSON(w, http.StatusOK, map[string]bool{"extended": extended})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeInternalError(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
