package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/myflix/internal/auth"
	"github.com/hitoshi/myflix/internal/catalog"
	"github.com/hitoshi/myflix/internal/config"
	"github.com/hitoshi/myflix/internal/database"
	"github.com/hitoshi/myflix/internal/handler"
	"github.com/hitoshi/myflix/internal/logger"
	"github.com/hitoshi/myflix/internal/metrics"
	"github.com/hitoshi/myflix/internal/security"
	"github.com/hitoshi/myflix/internal/user"
	"github.com/hitoshi/myflix/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	level := logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定に従ってログレベルを変更
	level.Set(logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("store_driver", cfg.StoreDriver),
	)

	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg, rest)
	case CommandSeed:
		return runSeed(cfg, rest)
	default:
		return runServe(cfg)
	}
}

// newTokenConfig は設定からトークンの署名設定を組み立てる。
func newTokenConfig(cfg *config.Config) auth.TokenConfig {
	return auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.JWTTTL,
		Issuer: cfg.JWTIssuer,
	}
}

// runServe はAPIサーバーモードで起動する。
// ストアに接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. ストア接続とリポジトリの初期化
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// 2. メトリクスの初期化
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. 認証サブシステムの初期化
	hasher := auth.NewHasher(cfg.BcryptCost, cfg.BcryptMaxConcurrent)
	tokenCfg := newTokenConfig(cfg)

	// 4. ドメインサービスの初期化
	catalogService := catalog.NewService(st.movies, cfg.CatalogCacheSize, cfg.CatalogCacheTTL)
	userService := user.NewService(st.users, st.movies, hasher)

	reloader := &catalogReloader{
		importer: catalog.NewImporter(st.movies, security.NewTextSanitizer(), catalogService),
		cache:    catalogService,
		path:     cfg.CatalogSeedFile,
	}
	if cfg.CatalogSeedFile != "" {
		if err := reloader.reload(context.Background()); err != nil {
			return err
		}
	}

	// 5. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:             slog.Default(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TokenVerifier:      auth.NewTokenVerifier(tokenCfg, st.users),
		Metrics:            collector,
		MetricsGatherer:    reg,
		HealthChecker:      st.pinger,
		CredentialVerifier: auth.NewLocalVerifier(st.users, hasher),
		TokenIssuer:        auth.NewIssuer(tokenCfg),
		CatalogService:     catalogService,
		UserService:        userService,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// SIGHUPでカタログを再取り込みし、キャッシュを破棄する
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	reloadCtx, stopReload := context.WithCancel(context.Background())
	defer stopReload()
	go reloader.watch(reloadCtx, hup)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// ストアに接続し、お気に入り整理ジョブをCLEANUP_SCHEDULEに従って実行する。
// ジョブのメトリクスはWORKER_METRICS_PORTの/metricsで公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	job := cleanup.NewCleanupJob(st.users, collector, slog.Default())

	metricsServer := newWorkerMetricsServer(cfg.WorkerMetricsPort, reg)
	go func() {
		slog.Info("worker metrics server starting",
			slog.String("addr", metricsServer.Addr),
		)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server failed", slog.String("error", err.Error()))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.String("cleanup_schedule", cfg.CleanupSchedule),
	)

	jobErr := job.Start(ctx, cfg.CleanupSchedule)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("worker metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if jobErr != nil {
		return fmt.Errorf("cleanup scheduler failed: %w", jobErr)
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// newWorkerMetricsServer はワーカーのメトリクスを公開するHTTPサーバーを生成する。
func newWorkerMetricsServer(port string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler(gatherer))
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// runMigrate はスキーマの適用、巻き戻し、バージョン表示を行う。
// MongoDBではマイグレーションの代わりにインデックスを作成する。
func runMigrate(cfg *config.Config, args []string) error {
	action, err := ParseMigrateAction(args)
	if err != nil {
		return err
	}

	if cfg.StoreDriver == "mongo" {
		if action.Direction != "up" {
			return fmt.Errorf("migrate %s is not supported for mongo", action.Direction)
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		st.close()
		slog.Info("mongo indexes ensured")
		return nil
	}

	slog.Info("running database migrations",
		slog.String("action", action.Direction),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch action.Direction {
	case "down":
		if err := database.RollbackMigrations(cfg.DatabaseURL, action.Steps); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
	case "version":
		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		slog.Info("current migration version",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
		return nil
	default:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed はYAMLファイルから映画カタログを取り込む。
func runSeed(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: myflix seed <catalog.yaml>")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	importer := catalog.NewImporter(st.movies, security.NewTextSanitizer(), nil)
	n, err := importer.Import(context.Background(), f)
	if err != nil {
		return fmt.Errorf("catalog import failed: %w", err)
	}

	slog.Info("catalog seeded",
		slog.String("file", args[0]),
		slog.Int("movies", n),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLから認証情報とクエリを取り除き、
// スキーム、ホスト、パスのみを残す。解析できない場合は全体をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "***"
	}

	masked := u.Scheme + "://"
	if u.User != nil {
		masked += "***@"
	}
	return masked + u.Host + u.Path
}
