package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/myflix/internal/middleware"
	"github.com/hitoshi/myflix/internal/model"
)

func sampleMovie() *model.Movie {
	birth := time.Date(1944, 2, 22, 0, 0, 0, 0, time.UTC)
	return &model.Movie{
		ID:          "m1",
		Title:       "Silence of the Lambs",
		Description: "A young FBI cadet must receive the help of an incarcerated cannibal killer.",
		Genre:       model.Genre{Name: "Thriller", Description: "Suspense."},
		Director:    model.Director{Name: "Jonathan Demme", Bio: "American director.", Birth: &birth},
		Actors:      []string{"Jodie Foster", "Anthony Hopkins"},
		ImagePath:   "silenceofthelambs.png",
		Featured:    true,
	}
}

func TestMovieHandler_ListMovies_Returns200(t *testing.T) {
	svc := &mockCatalogService{
		listMoviesFn: func(_ context.Context) ([]*model.Movie, error) {
			return []*model.Movie{sampleMovie()}, nil
		},
	}
	h := NewMovieHandler(svc)

	w := httptest.NewRecorder()
	h.ListMovies(w, httptest.NewRequest(http.MethodGet, "/movies", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body) != 1 {
		t.Fatalf("len = %d, want 1", len(body))
	}
	for _, field := range []string{"_id", "Title", "Description", "Genre", "Director", "Actors", "ImagePath", "Featured"} {
		if _, ok := body[0][field]; !ok {
			t.Errorf("missing field %s", field)
		}
	}
	director := body[0]["Director"].(map[string]interface{})
	if director["Birth"] != "1944-02-22T00:00:00Z" {
		t.Errorf("Director.Birth = %v", director["Birth"])
	}
	if _, ok := director["Death"]; ok {
		t.Error("Director.Death should be omitted when unknown")
	}
}

func TestMovieHandler_ListMovies_EmptyIsArray(t *testing.T) {
	h := NewMovieHandler(&mockCatalogService{})

	w := httptest.NewRecorder()
	h.ListMovies(w, httptest.NewRequest(http.MethodGet, "/movies", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want %q", got, "[]\n")
	}
}

func TestMovieHandler_GetMovie(t *testing.T) {
	var gotTitle string
	svc := &mockCatalogService{
		getMovieFn: func(_ context.Context, title string) (*model.Movie, error) {
			gotTitle = title
			return sampleMovie(), nil
		},
	}
	h := NewMovieHandler(svc)

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/movies/x", nil),
		map[string]string{"title": "Silence of the Lambs"})
	w := httptest.NewRecorder()

	h.GetMovie(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotTitle != "Silence of the Lambs" {
		t.Errorf("title = %q", gotTitle)
	}
}

func TestMovieHandler_NotFound(t *testing.T) {
	h := NewMovieHandler(&mockCatalogService{})

	tests := []struct {
		name    string
		param   string
		value   string
		handler http.HandlerFunc
		code    string
	}{
		{"movie", "title", "Unknown", h.GetMovie, model.ErrCodeMovieNotFound},
		{"genre", "genreName", "Western", h.GetGenre, model.ErrCodeGenreNotFound},
		{"director", "directorName", "Nobody", h.GetDirector, model.ErrCodeDirectorNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil),
				map[string]string{tt.param: tt.value})
			w := httptest.NewRecorder()

			tt.handler(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
			}
			var body middleware.ErrorResponseBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Code, tt.code)
			}
		})
	}
}

func TestMovieHandler_GetGenreAndDirector(t *testing.T) {
	m := sampleMovie()
	svc := &mockCatalogService{
		getGenreFn: func(_ context.Context, _ string) (*model.Genre, error) {
			return &m.Genre, nil
		},
		getDirectorFn: func(_ context.Context, _ string) (*model.Director, error) {
			return &m.Director, nil
		},
	}
	h := NewMovieHandler(svc)

	w := httptest.NewRecorder()
	h.GetGenre(w, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"genreName": "Thriller"}))
	var genre map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &genre); err != nil {
		t.Fatalf("failed to decode genre: %v", err)
	}
	if genre["Name"] != "Thriller" || genre["Description"] != "Suspense." {
		t.Errorf("genre = %v", genre)
	}

	w = httptest.NewRecorder()
	h.GetDirector(w, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"directorName": "Jonathan Demme"}))
	var director map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &director); err != nil {
		t.Fatalf("failed to decode director: %v", err)
	}
	if director["Name"] != "Jonathan Demme" || director["Bio"] != "American director." {
		t.Errorf("director = %v", director)
	}
}

func TestMovieHandler_ServiceError_Returns500(t *testing.T) {
	svc := &mockCatalogService{
		listMoviesFn: func(_ context.Context) ([]*model.Movie, error) {
			return nil, errors.New("connection refused")
		},
	}
	h := NewMovieHandler(svc)

	w := httptest.NewRecorder()
	h.ListMovies(w, httptest.NewRequest(http.MethodGet, "/movies", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
