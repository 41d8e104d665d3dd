package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hitoshi/myflix/internal/catalog"
)

// catalogImporter はカタログYAMLの取り込み処理。
type catalogImporter interface {
	Import(ctx context.Context, r io.Reader) (int, error)
}

// catalogReloader はserveプロセス内でカタログを再取り込みする。
// pathが空の場合はキャッシュの破棄のみ行う。
// 別プロセスのseedコマンドで更新した場合は、SIGHUPを送るまで
// CATALOG_CACHE_TTLの間だけ古い参照結果が返りうる。
type catalogReloader struct {
	importer catalogImporter
	cache    catalog.CacheInvalidator
	path     string
}

// reload はpathのYAMLを取り込む。キャッシュの破棄はImporterが行う。
func (r *catalogReloader) reload(ctx context.Context) error {
	if r.path == "" {
		r.cache.Invalidate()
		slog.Info("catalog cache invalidated")
		return nil
	}

	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	n, err := r.importer.Import(ctx, f)
	if err != nil {
		return fmt.Errorf("catalog import failed: %w", err)
	}

	slog.Info("catalog reloaded",
		slog.String("file", r.path),
		slog.Int("movies", n),
	)
	return nil
}

// watch はsignalsを受け取るたびにreloadする。ctxが終了すると戻る。
func (r *catalogReloader) watch(ctx context.Context, signals <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			if err := r.reload(ctx); err != nil {
				slog.Error("catalog reload failed", slog.String("error", err.Error()))
			}
		}
	}
}
