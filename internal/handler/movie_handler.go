package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/myflix/internal/model"
)

// CatalogServiceInterface は映画ハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	ListMovies(ctx context.Context) ([]*model.Movie, error)
	GetMovie(ctx context.Context, title string) (*model.Movie, error)
	GetGenre(ctx context.Context, name string) (*model.Genre, error)
	GetDirector(ctx context.Context, name string) (*model.Director, error)
}

// MovieHandler は映画カタログのHTTPハンドラー。
type MovieHandler struct {
	service CatalogServiceInterface
}

// NewMovieHandler はMovieHandlerを生成する。
func NewMovieHandler(service CatalogServiceInterface) *MovieHandler {
	return &MovieHandler{service: service}
}

// ListMovies は全作品を返す。
// GET /movies
func (h *MovieHandler) ListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.service.ListMovies(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]movieResponse, 0, len(movies))
	for _, m := range movies {
		out = append(out, newMovieResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetMovie はタイトルで作品を返す。
// GET /movies/{title}
func (h *MovieHandler) GetMovie(w http.ResponseWriter, r *http.Request) {
	movie, err := h.service.GetMovie(r.Context(), chi.URLParam(r, "title"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMovieResponse(movie))
}

// GetGenre はジャンル名でジャンル情報を返す。
// GET /genre/{genreName}
func (h *MovieHandler) GetGenre(w http.ResponseWriter, r *http.Request) {
	genre, err := h.service.GetGenre(r.Context(), chi.URLParam(r, "genreName"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGenreResponse(genre))
}

// GetDirector は監督名で監督情報を返す。
// GET /director/{directorName}
func (h *MovieHandler) GetDirector(w http.ResponseWriter, r *http.Request) {
	director, err := h.service.GetDirector(r.Context(), chi.URLParam(r, "directorName"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDirectorResponse(director))
}
