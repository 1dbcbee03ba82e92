// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する。
// calendar.ImportRecorder、provider.ResolutionRecorder、middleware.HTTPRecorderを満たす。
type Collector struct {
	importRuns         *prometheus.CounterVec
	importDuration     prometheus.Histogram
	importEntries      *prometheus.CounterVec
	resolutions        *prometheus.CounterVec
	resolutionEvents   *prometheus.HistogramVec
	resolutionDuration prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	cleanupDeleted     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		importRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minyanim_import_runs_total",
			Help: "団体ごとのカレンダー取り込みの実行数",
		}, []string{"result"}),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "minyanim_import_duration_seconds",
			Help:    "団体ごとのカレンダー取り込みの所要時間（秒）",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		importEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minyanim_import_entries_total",
			Help: "取り込まれた項目数（new/updated/duplicate別）",
		}, []string{"kind"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minyanim_resolutions_total",
			Help: "提供元別の礼拝一覧の解決数",
		}, []string{"provider"}),
		resolutionEvents: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "minyanim_resolution_events",
			Help:    "1回の解決で返された礼拝数",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}, []string{"provider"}),
		resolutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "minyanim_resolution_duration_seconds",
			Help:    "礼拝一覧の解決の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minyanim_http_requests_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "minyanim_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		cleanupDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minyanim_cleanup_deleted_total",
			Help: "クリーンアップで削除された行数",
		}, []string{"table"}),
	}

	reg.MustRegister(
		c.importRuns,
		c.importDuration,
		c.importEntries,
		c.resolutions,
		c.resolutionEvents,
		c.resolutionDuration,
		c.httpRequests,
		c.httpDuration,
		c.cleanupDeleted,
	)

	return c
}

// RecordImport は1団体分の取り込み結果を記録する。
func (c *Collector) RecordImport(success bool, duration time.Duration, newEntries, updatedEntries, duplicates int) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.importRuns.WithLabelValues(result).Inc()
	c.importDuration.Observe(duration.Seconds())
	c.importEntries.WithLabelValues("new").Add(float64(newEntries))
	c.importEntries.WithLabelValues("updated").Add(float64(updatedEntries))
	c.importEntries.WithLabelValues("duplicate").Add(float64(duplicates))
}

// RecordResolution は選択された提供元と返された礼拝数を記録する。
func (c *Collector) RecordResolution(provider string, events int, duration time.Duration) {
	c.resolutions.WithLabelValues(provider).Inc()
	c.resolutionEvents.WithLabelValues(provider).Observe(float64(events))
	c.resolutionDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest はHTTPリクエストのステータスコードと処理時間を記録する。
// routeはchiのルートパターン（未一致の場合は空文字列）。
func (c *Collector) RecordHTTPRequest(route string, statusCode int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordCleanup はクリーンアップで削除された行数を記録する。
func (c *Collector) RecordCleanup(table string, deleted int64) {
	c.cleanupDeleted.WithLabelValues(table).Add(float64(deleted))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
