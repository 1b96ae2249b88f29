package handler

import (
	"context"
	"net/http"
)

// AuthServiceInterface はログインハンドラーが必要とするサービスインターフェース。
// identity.Storeが実装する。
type AuthServiceInterface interface {
	// Login は資格情報を確認し、成功した場合にベアラートークンを返す。
	Login(ctx context.Context, username, password string) (string, error)
}

// AuthHandler はログインと現在ユーザー取得のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// meResponse は現在のユーザー情報。パスワードは含めない。
type meResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Login はユーザー名とパスワードを検証してトークンを返す。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

// Me は認証済みユーザーの情報を返す。
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, meResponse{ID: user.ID, Username: user.Username})
}
