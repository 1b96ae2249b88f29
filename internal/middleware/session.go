// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/roomsched/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// TokenResolver はベアラートークンからユーザーを解決するインターフェース。
// identity.Storeが実装する。
type TokenResolver interface {
	ResolveToken(token string) (*model.User, error)
}

// NewSessionGate はAuthorizationヘッダーのベアラートークンを検証するミドルウェアを返す。
// トークンが無い場合、または解決できない場合は401 UNAUTHENTICATEDを返す。
// 解決したユーザーをリクエストコンテキストに注入する。
func NewSessionGate(resolver TokenResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. ベアラートークンを取得
			token, ok := BearerToken(r)
			if !ok {
				writeUnauthenticated(w, model.NewUnauthenticatedError("トークンがありません"))
				return
			}

			// 2. トークンをユーザーに解決
			user, err := resolver.ResolveToken(token)
			if err != nil || user == nil {
				writeUnauthenticated(w, model.NewUnauthenticatedError("トークンが不正です"))
				return
			}

			// 3. 認証済みユーザーをコンテキストに注入
			markRequestUser(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// BearerToken はAuthorizationヘッダーから "Bearer <token>" 形式のトークンを取り出す。
// スキーム名の大文字小文字は区別しない。
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func writeUnauthenticated(w http.ResponseWriter, apiErr *model.APIError) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="roomsched"`)
	WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// セッションゲートを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(model.User)
	if !ok || user.ID == "" {
		return nil, fmt.Errorf("user not found in context")
	}
	return &user, nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	user, err := UserFromContext(ctx)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, *user)
}
