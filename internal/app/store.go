package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/myflix/internal/config"
	"github.com/hitoshi/myflix/internal/database"
	"github.com/hitoshi/myflix/internal/handler"
	"github.com/hitoshi/myflix/internal/repository"
)

// connectTimeout はストア接続時の疎通確認の上限時間。
const connectTimeout = 10 * time.Second

// store はSTORE_DRIVERで選択したストアのリポジトリ一式。
type store struct {
	users  repository.UserRepository
	movies repository.MovieRepository
	pinger handler.HealthChecker
	close  func()
}

// openStore は設定されたドライバーでストアに接続し、リポジトリを初期化する。
func openStore(cfg *config.Config) (*store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	switch cfg.StoreDriver {
	case "mongo":
		client, db, err := database.OpenMongo(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}

		slog.Info("database connection established",
			slog.String("driver", cfg.StoreDriver),
			slog.String("database", cfg.MongoDatabase),
		)

		users := db.Collection(database.MongoUsersCollection)
		movies := db.Collection(database.MongoMoviesCollection)
		return &store{
			users:  repository.NewMongoUserRepo(users, movies),
			movies: repository.NewMongoMovieRepo(movies),
			pinger: database.MongoPinger{Client: client},
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					slog.Error("failed to disconnect mongo", slog.String("error", err.Error()))
				}
			},
		}, nil

	default:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		slog.Info("database connection established",
			slog.String("driver", cfg.StoreDriver),
		)

		return &store{
			users:  repository.NewPostgresUserRepo(db),
			movies: repository.NewPostgresMovieRepo(db),
			pinger: database.PostgresPinger{DB: db},
			close:  func() { db.Close() },
		}, nil
	}
}
