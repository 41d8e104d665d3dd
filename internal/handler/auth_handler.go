// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"

	"github.com/hitoshi/myflix/internal/auth"
	"github.com/hitoshi/myflix/internal/model"
)

// CredentialVerifier はログイン時の資格情報検証に必要なインターフェース。
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) auth.CredentialOutcome
}

// TokenIssuer はトークン発行に必要なインターフェース。
type TokenIssuer interface {
	Issue(user *model.User) (auth.Token, error)
}

// LoginMetrics はログイン結果の記録先。
type LoginMetrics interface {
	RecordLoginAttempt(outcome string)
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"Username"`
	Password string `json:"Password"`
}

// AuthHandler はログインのHTTPハンドラー。
type AuthHandler struct {
	credentials CredentialVerifier
	issuer      TokenIssuer
	metrics     LoginMetrics
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(credentials CredentialVerifier, issuer TokenIssuer, metrics LoginMetrics) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		issuer:      issuer,
		metrics:     metrics,
	}
}

// Login は資格情報を検証し、ユーザーとBearerトークンを返す。
// 失敗理由（ユーザー不在、パスワード不一致、ストア障害）はクライアントに区別させない。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseLoginRequest(w, r)
	if err != nil {
		h.metrics.RecordLoginAttempt("bad_request")
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	outcome := h.credentials.Verify(r.Context(), req.Username, req.Password)
	h.metrics.RecordLoginAttempt(outcome.Status.String())

	if outcome.Status != auth.CredentialSuccess {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewLoginFailedError())
		return
	}

	token, err := h.issuer.Issue(outcome.User)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("user logged in", slog.String("user_id", outcome.User.ID))

	writeJSON(w, http.StatusOK, loginResponse{
		User:  newUserResponse(outcome.User),
		Token: token.Raw,
	})
}

// parseLoginRequest はJSONまたはフォーム形式のボディからログイン情報を読み取る。
func (h *AuthHandler) parseLoginRequest(w http.ResponseWriter, r *http.Request) (loginRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
		if err := r.ParseForm(); err != nil {
			return loginRequest{}, err
		}
		return loginRequest{
			Username: r.PostForm.Get("Username"),
			Password: r.PostForm.Get("Password"),
		}, nil
	}

	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return loginRequest{}, err
	}
	return req, nil
}
