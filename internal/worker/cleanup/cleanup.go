// Package cleanup はお気に入りの整理ジョブを提供する。
// カタログから消えた映画を指すお気に入りを定期的に削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// FavoritesPruner は参照先のないお気に入りを削除するインターフェース。
// repository.UserRepositoryが満たす。
type FavoritesPruner interface {
	PruneFavorites(ctx context.Context) (int64, error)
}

// PruneMetrics は削除件数の記録先。
type PruneMetrics interface {
	RecordFavoritesPruned(count int64)
}

// CleanupJob はお気に入り整理ジョブ。冪等で、削除対象がなくてもエラーにならない。
type CleanupJob struct {
	pruner  FavoritesPruner
	metrics PruneMetrics
	logger  *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(pruner FavoritesPruner, metrics PruneMetrics, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		pruner:  pruner,
		metrics: metrics,
		logger:  logger,
	}
}

// Run は参照先のないお気に入りを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.pruner.PruneFavorites(ctx)
	if err != nil {
		j.logger.Error("お気に入り整理ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("お気に入り整理の実行に失敗: %w", err)
	}

	j.metrics.RecordFavoritesPruned(deletedCount)

	duration := time.Since(start)
	j.logger.Info("お気に入り整理ジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回実行した後、cron式scheduleに従ってジョブを繰り返し実行する。
// 前回の実行が終わっていない場合はその回をスキップする。
// コンテキストがキャンセルされると実行中のジョブの完了を待って戻る。
func (j *CleanupJob) Start(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	if _, err := c.AddFunc(schedule, func() { _ = j.Run(ctx) }); err != nil {
		return fmt.Errorf("スケジュールの解析に失敗: %w", err)
	}

	j.logger.Info("お気に入り整理スケジューラを開始しました",
		slog.String("schedule", schedule),
	)

	// 起動直後に1回実行
	_ = j.Run(ctx)

	c.Start()
	<-ctx.Done()

	<-c.Stop().Done()
	j.logger.Info("お気に入り整理スケジューラを停止しました")
	return nil
}
