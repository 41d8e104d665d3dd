package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/myflix/internal/middleware"
	"github.com/hitoshi/myflix/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
// actorは認証済みユーザーで、更新系の操作は本人のみに許可される。
type UserServiceInterface interface {
	Register(ctx context.Context, in model.UserInput) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	Get(ctx context.Context, username string) (*model.User, error)
	Update(ctx context.Context, actor *model.User, username string, in model.UserInput) (*model.User, error)
	Delete(ctx context.Context, actor *model.User, username string) error
	AddFavorite(ctx context.Context, actor *model.User, username, movieID string) (*model.User, error)
	RemoveFavorite(ctx context.Context, actor *model.User, username, movieID string) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// Register は新規ユーザーを登録する。
// POST /users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	user, err := h.service.Register(r.Context(), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

// List は全ユーザーを返す。
// GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserListResponse(users))
}

// Get はユーザー名でユーザーを返す。
// GET /users/{username}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// Update はユーザー情報を更新する。
// PUT /users/{username}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req userRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	user, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "username"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// Delete はユーザーを削除する。
// DELETE /users/{username}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	username := chi.URLParam(r, "username")
	if err := h.service.Delete(r.Context(), actor, username); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(username + " was deleted."))
}

// AddFavorite はお気に入りに作品を追加する。
// POST /users/{username}/movies/{movieID}
func (h *UserHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	h.updateFavorites(w, r, h.service.AddFavorite)
}

// RemoveFavorite はお気に入りから作品を削除する。
// DELETE /users/{username}/movies/{movieID}
func (h *UserHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.updateFavorites(w, r, h.service.RemoveFavorite)
}

type favoriteOp func(ctx context.Context, actor *model.User, username, movieID string) (*model.User, error)

func (h *UserHandler) updateFavorites(w http.ResponseWriter, r *http.Request, op favoriteOp) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := op(r.Context(), actor, chi.URLParam(r, "username"), chi.URLParam(r, "movieID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}
