package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/myflix/internal/metrics"
	"github.com/hitoshi/myflix/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	CORSAllowedOrigins []string
	TokenVerifier      middleware.TokenVerifier
	Metrics            metrics.MetricsCollector
	MetricsGatherer    prometheus.Gatherer

	// ヘルスチェック
	HealthChecker HealthChecker

	// 認証
	CredentialVerifier CredentialVerifier
	TokenIssuer        TokenIssuer

	// カタログ
	CatalogService CatalogServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Metrics → Logging → SecurityHeaders → CORS → (保護ルートのみ) Auth
//
// /、/health、/metrics、/login、POST /users は認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	authHandler := NewAuthHandler(deps.CredentialVerifier, deps.TokenIssuer, collector)
	movieHandler := NewMovieHandler(deps.CatalogService)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---
	r.Get("/", Welcome)
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}
	r.Post("/login", authHandler.Login)
	r.Post("/users", userHandler.Register)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, collector))

		r.Get("/movies", movieHandler.ListMovies)
		r.Get("/movies/{title}", movieHandler.GetMovie)
		r.Get("/genre/{genreName}", movieHandler.GetGenre)
		r.Get("/director/{directorName}", movieHandler.GetDirector)

		r.Get("/users", userHandler.List)
		r.Route("/users/{username}", func(r chi.Router) {
			r.Get("/", userHandler.Get)
			r.Put("/", userHandler.Update)
			r.Delete("/", userHandler.Delete)

			r.Post("/movies/{movieID}", userHandler.AddFavorite)
			r.Delete("/movies/{movieID}", userHandler.RemoveFavorite)
		})
	})

	return r
}
