package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/myflix/internal/model"
)

// HealthChecker はストアの疎通確認に必要なインターフェース。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// healthCheckTimeout はストアへの疎通確認の上限時間。
const healthCheckTimeout = 2 * time.Second

// Welcome はルートパスの案内文を返す。
// GET /
func Welcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Welcome to myflix!"))
}

// NewHealthHandler はストアへの疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := checker.Ping(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewServiceUnavailableError())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
