package middleware

import (
	"net/http"
	"time"
)

// RequestMetrics はHTTPリクエストの記録先。
type RequestMetrics interface {
	RecordHTTPRequest(method string, statusCode int, duration time.Duration)
}

// NewMetricsMiddleware はリクエスト件数と処理時間を記録するミドルウェアを返す。
func NewMetricsMiddleware(recorder RequestMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			recorder.RecordHTTPRequest(r.Method, rec.statusCode, time.Since(start))
		})
	}
}
