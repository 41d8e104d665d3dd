package middleware

import "net/http"

// apiSecurityHeaders はJSON APIの全レスポンスに付与するヘッダー。
// ブラウザでの描画、埋め込み、キャッシュを抑止する。
var apiSecurityHeaders = [...][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cache-Control", "no-store"},
}

// NewSecurityHeadersMiddleware はapiSecurityHeadersを付与するミドルウェアを返す。
// ハンドラーが同じヘッダーを設定した場合はそちらが優先される。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range apiSecurityHeaders {
				h.Set(kv[0], kv[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}
