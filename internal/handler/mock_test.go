package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/myflix/internal/auth"
	"github.com/hitoshi/myflix/internal/middleware"
	"github.com/hitoshi/myflix/internal/model"
)

// --- 認証 ---

type mockCredentialVerifier struct {
	verifyFn func(ctx context.Context, username, password string) auth.CredentialOutcome
}

func (m *mockCredentialVerifier) Verify(ctx context.Context, username, password string) auth.CredentialOutcome {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, username, password)
	}
	return auth.CredentialOutcome{Status: auth.CredentialInvalid}
}

type mockTokenIssuer struct {
	issueFn func(user *model.User) (auth.Token, error)
}

func (m *mockTokenIssuer) Issue(user *model.User) (auth.Token, error) {
	if m.issueFn != nil {
		return m.issueFn(user)
	}
	return auth.Token{Raw: "token-for-" + user.Username, Subject: user.Username}, nil
}

type mockTokenVerifier struct {
	verifyFn func(ctx context.Context, raw string) auth.TokenOutcome
}

func (m *mockTokenVerifier) Verify(ctx context.Context, raw string) auth.TokenOutcome {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, raw)
	}
	return auth.TokenOutcome{Status: auth.TokenMalformed}
}

// loginRecorder はログイン結果のメトリクスを記録する。
type loginRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *loginRecorder) RecordLoginAttempt(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

// --- カタログ ---

type mockCatalogService struct {
	listMoviesFn  func(ctx context.Context) ([]*model.Movie, error)
	getMovieFn    func(ctx context.Context, title string) (*model.Movie, error)
	getGenreFn    func(ctx context.Context, name string) (*model.Genre, error)
	getDirectorFn func(ctx context.Context, name string) (*model.Director, error)
}

func (m *mockCatalogService) ListMovies(ctx context.Context) ([]*model.Movie, error) {
	if m.listMoviesFn != nil {
		return m.listMoviesFn(ctx)
	}
	return []*model.Movie{}, nil
}

func (m *mockCatalogService) GetMovie(ctx context.Context, title string) (*model.Movie, error) {
	if m.getMovieFn != nil {
		return m.getMovieFn(ctx, title)
	}
	return nil, model.NewMovieNotFoundError(title)
}

func (m *mockCatalogService) GetGenre(ctx context.Context, name string) (*model.Genre, error) {
	if m.getGenreFn != nil {
		return m.getGenreFn(ctx, name)
	}
	return nil, model.NewGenreNotFoundError(name)
}

func (m *mockCatalogService) GetDirector(ctx context.Context, name string) (*model.Director, error) {
	if m.getDirectorFn != nil {
		return m.getDirectorFn(ctx, name)
	}
	return nil, model.NewDirectorNotFoundError(name)
}

// --- ユーザー ---

type mockUserService struct {
	registerFn       func(ctx context.Context, in model.UserInput) (*model.User, error)
	listFn           func(ctx context.Context) ([]*model.User, error)
	getFn            func(ctx context.Context, username string) (*model.User, error)
	updateFn         func(ctx context.Context, actor *model.User, username string, in model.UserInput) (*model.User, error)
	deleteFn         func(ctx context.Context, actor *model.User, username string) error
	addFavoriteFn    func(ctx context.Context, actor *model.User, username, movieID string) (*model.User, error)
	removeFavoriteFn func(ctx context.Context, actor *model.User, username, movieID string) (*model.User, error)
}

func (m *mockUserService) Register(ctx context.Context, in model.UserInput) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return &model.User{ID: "user-1", Username: in.Username, Email: in.Email}, nil
}

func (m *mockUserService) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.User{}, nil
}

func (m *mockUserService) Get(ctx context.Context, username string) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, username)
	}
	return nil, model.NewUserNotFoundError(username)
}

func (m *mockUserService) Update(ctx context.Context, actor *model.User, username string, in model.UserInput) (*model.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actor, username, in)
	}
	return nil, nil
}

func (m *mockUserService) Delete(ctx context.Context, actor *model.User, username string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actor, username)
	}
	return nil
}

func (m *mockUserService) AddFavorite(ctx context.Context, actor *model.User, username, movieID string) (*model.User, error) {
	if m.addFavoriteFn != nil {
		return m.addFavoriteFn(ctx, actor, username, movieID)
	}
	return nil, nil
}

func (m *mockUserService) RemoveFavorite(ctx context.Context, actor *model.User, username, movieID string) (*model.User, error) {
	if m.removeFavoriteFn != nil {
		return m.removeFavoriteFn(ctx, actor, username, movieID)
	}
	return nil, nil
}

// --- ヘルスチェック ---

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Ping(_ context.Context) error {
	return m.err
}

// --- ヘルパー ---

// withActor はリクエストコンテキストに認証済みユーザーを注入する。
func withActor(r *http.Request, user *model.User) *http.Request {
	return r.WithContext(middleware.ContextWithUser(r.Context(), user))
}

// withURLParams はchiのURLパラメータをリクエストに設定する。
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
