package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はハンドラーのpanicを回復し、統一フォーマットの500を返すミドルウェアを生成する。
// http.ErrAbortHandlerは接続の中断として再度panicさせる。
// 応答の書き込みが始まった後のpanicでは、ステータスを変更できないためログのみ出力する。
func NewRecoveryMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("response_started", sr.written),
					slog.String("stack", string(debug.Stack())),
				)
				if !sr.written {
					WriteInternalServerError(sr)
				}
			}()

			next.ServeHTTP(sr, r)
		})
	}
}
