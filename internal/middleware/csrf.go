package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/hitoshi/bkconnect/internal/model"
)

// CSRFCookieName はCSRFトークンを保持するCookie名。
// JavaScriptから読み取ってリクエストヘッダーに設定するため、HttpOnlyにしない。
const CSRFCookieName = "csrf_token"

// CSRFHeaderName はCSRFトークンを送信するリクエストヘッダー名。
const CSRFHeaderName = "X-CSRF-Token"

const csrfTokenBytes = 32

// GenerateCSRFToken は暗号学的に安全なCSRFトークンを生成する。
func GenerateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("CSRFトークンの生成に失敗しました: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewCSRFMiddleware はdouble-submit cookie方式のCSRF検証ミドルウェアを返す。
// 状態を変更しないメソッド（GET, HEAD, OPTIONS）は検証をスキップする。
// Cookieとヘッダーのトークンは一定時間比較で照合する。
func NewCSRFMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(CSRFCookieName)
			if err != nil || cookie.Value == "" {
				writeCSRFError(w)
				return
			}

			header := r.Header.Get(CSRFHeaderName)
			if header == "" {
				writeCSRFError(w)
				return
			}

			if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
				writeCSRFError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewCSRFTokenHandler はCSRFトークンを発行するハンドラーを返す。
// トークンをCookieに設定し、レスポンスボディにも返す。
func NewCSRFTokenHandler(secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := GenerateCSRFToken()
		if err != nil {
			WriteInternalServerError(w)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     CSRFCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: false,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"csrf_token":%q}`, token)
	}
}

func writeCSRFError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
		Code:     "CSRF_TOKEN_MISMATCH",
		Message:  "CSRFトークンが一致しません。",
		Category: "auth",
		Action:   "ページを再読み込みして、再度お試しください。",
	})
}
