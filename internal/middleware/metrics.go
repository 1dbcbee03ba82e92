package middleware

import (
	"net/http"
	"time"
)

// HTTPRecorder はHTTPリクエストをメトリクスに記録するインターフェース。
type HTTPRecorder interface {
	RecordHTTPRequest(route string, statusCode int, duration time.Duration)
}

// NewMetricsMiddleware はルートパターン単位でステータスコードと処理時間を記録するミドルウェアを返す。
// chiのルーティング後にパターンを読むため、ルーターのUseで登録する。
func NewMetricsMiddleware(recorder HTTPRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			recorder.RecordHTTPRequest(routePattern(r), rec.statusCode, time.Since(start))
		})
	}
}
