// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、ハンドラー、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method string, statusCode int, duration time.Duration)
	RecordLoginAttempt(outcome string)
	RecordTokenVerification(outcome string)
	RecordFavoritesPruned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       prometheus.Histogram
	loginAttempts      *prometheus.CounterVec
	tokenVerifications *prometheus.CounterVec
	favoritesPruned    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "myflix_http_requests_total",
			Help: "メソッドとステータスコード別のHTTPリクエスト数",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "myflix_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "myflix_login_attempts_total",
			Help: "結果別のログイン試行数",
		}, []string{"outcome"}),
		tokenVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "myflix_token_verifications_total",
			Help: "結果別のトークン検証数",
		}, []string{"outcome"}),
		favoritesPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "myflix_favorites_pruned_total",
			Help: "クリーンアップで削除されたお気に入りの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.loginAttempts,
		c.tokenVerifications,
		c.favoritesPruned,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.Observe(duration.Seconds())
}

// RecordLoginAttempt はログイン試行の結果を記録する。
func (c *Collector) RecordLoginAttempt(outcome string) {
	c.loginAttempts.WithLabelValues(outcome).Inc()
}

// RecordTokenVerification はトークン検証の結果を記録する。
func (c *Collector) RecordTokenVerification(outcome string) {
	c.tokenVerifications.WithLabelValues(outcome).Inc()
}

// RecordFavoritesPruned は削除されたお気に入り件数を加算する。
func (c *Collector) RecordFavoritesPruned(count int64) {
	if count > 0 {
		c.favoritesPruned.Add(float64(count))
	}
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type NopCollector struct{}

func (NopCollector) RecordHTTPRequest(string, int, time.Duration) {}
func (NopCollector) RecordLoginAttempt(string)                    {}
func (NopCollector) RecordTokenVerification(string)               {}
func (NopCollector) RecordFavoritesPruned(int64)                  {}
