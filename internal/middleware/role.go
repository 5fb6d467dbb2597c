package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bkconnect/internal/model"
)

// ProfileSource はIdentityからプロファイルを解決するインターフェース。
// auth.ProfileResolverの部分集合として定義する。
type ProfileSource interface {
	Resolve(ctx context.Context, identityID string) (*model.Profile, error)
}

// NewProfileMiddleware は認証済みIdentityのプロファイルを解決し、
// リクエストコンテキストに注入するミドルウェアを返す。
// SessionMiddlewareの後に配置すること。
// プロファイル未作成は404、無効化済みは403を返す。
func NewProfileMiddleware(source ProfileSource) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identityID, err := IdentityIDFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			profile, err := source.Resolve(r.Context(), identityID)
			if err != nil {
				slog.Error("failed to resolve profile",
					slog.String("identity_id", identityID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if profile == nil {
				// トリガーによる作成が未完了の可能性がある。再試行を促す。
				WriteErrorResponse(w, http.StatusNotFound, model.NewProfileNotFoundError())
				return
			}
			if !profile.IsActive {
				WriteErrorResponse(w, http.StatusForbidden, model.NewProfileInactiveError())
				return
			}

			ctx := ContextWithProfile(r.Context(), profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole は指定された役割のいずれかを持つプロファイルのみ許可する
// ミドルウェアを返す。ProfileMiddlewareの後に配置すること。
func RequireRole(roles ...model.Role) func(next http.Handler) http.Handler {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, err := ProfileFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if _, ok := allowed[profile.Role]; !ok {
				slog.Warn("role check failed",
					slog.String("profile_id", profile.ID),
					slog.String("role", string(profile.Role)),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenRoleError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ProfileFromContext はリクエストコンテキストからプロファイルを取得する。
// ProfileMiddlewareを通過したリクエストでのみ有効。
func ProfileFromContext(ctx context.Context) (*model.Profile, error) {
	profile, ok := ctx.Value(profileContextKey).(*model.Profile)
	if !ok || profile == nil {
		return nil, fmt.Errorf("profile not found in context")
	}
	return profile, nil
}

// ContextWithProfile はコンテキストにプロファイルを注入する。
func ContextWithProfile(ctx context.Context, profile *model.Profile) context.Context {
	return context.WithValue(ctx, profileContextKey, profile)
}
