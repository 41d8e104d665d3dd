package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/myflix/internal/metrics"
)

func TestWorkerMetricsServer_ExposesPrunedCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	collector.RecordFavoritesPruned(3)

	srv := newWorkerMetricsServer("9091", reg)
	if srv.Addr != ":9091" {
		t.Errorf("Addr = %q, want :9091", srv.Addr)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "myflix_favorites_pruned_total 3") {
		t.Errorf("metrics output missing pruned counter:\n%s", body)
	}
}

func TestWorkerMetricsServer_OnlyServesMetrics(t *testing.T) {
	srv := newWorkerMetricsServer("9091", prometheus.NewRegistry())

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/movies", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
