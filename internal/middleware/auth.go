// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/myflix/internal/auth"
	"github.com/hitoshi/myflix/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// userContextKey は認証済みユーザーを格納するためのキー。
	userContextKey = contextKey("user")
)

// TokenVerifier はBearerトークンの検証に必要なインターフェース。
// auth.TokenVerifierが満たす。
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) auth.TokenOutcome
}

// TokenMetrics はトークン検証結果の記録先。
type TokenMetrics interface {
	RecordTokenVerification(outcome string)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証するミドルウェアを返す。
// Valid以外の結果はすべて401 Unauthorizedとし、理由はクライアントに返さない。
// 検証に成功した場合はユーザーとユーザーIDをリクエストコンテキストに注入する。
func NewAuthMiddleware(verifier TokenVerifier, recorder TokenMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := auth.ExtractBearer(r.Header.Get("Authorization"))
			if !ok {
				recorder.RecordTokenVerification("missing")
				writeUnauthorized(w)
				return
			}

			outcome := verifier.Verify(r.Context(), raw)
			recorder.RecordTokenVerification(outcome.Status.String())

			if outcome.Status != auth.TokenValid {
				if outcome.Err != nil {
					slog.Error("token subject lookup failed",
						slog.String("error", outcome.Err.Error()),
					)
				}
				writeUnauthorized(w)
				return
			}

			ctx := ContextWithUser(r.Context(), outcome.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="myflix"`)
	WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUser はコンテキストにユーザーとそのIDを注入する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return ContextWithUserID(ctx, user.ID)
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	setLoggedUserID(ctx, userID)
	return context.WithValue(ctx, userIDContextKey, userID)
}
