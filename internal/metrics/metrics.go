// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証サービスとエクスポートパイプラインから利用する。
type MetricsCollector interface {
	RecordLogin()
	RecordSyncFailure()
	RecordExportSuccess()
	RecordExportFailure(reason string)
	RecordUploadLatency(duration time.Duration)
	SetWatchSubscribers(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins           prometheus.Counter
	syncFailures     prometheus.Counter
	exportSuccess    prometheus.Counter
	exportFail       *prometheus.CounterVec
	uploadLatency    prometheus.Histogram
	watchSubscribers prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bullpen_logins_total",
			Help: "完了したログイン同期の合計数",
		}),
		syncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bullpen_profile_sync_fail_total",
			Help: "プロフィール同期失敗の合計数",
		}),
		exportSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bullpen_export_success_total",
			Help: "エクスポート成功の合計数",
		}),
		exportFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bullpen_export_fail_total",
			Help: "失敗分類別のエクスポート失敗数",
		}, []string{"reason"}),
		uploadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bullpen_upload_latency_seconds",
			Help:    "ドキュメントアップロードのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		watchSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bullpen_watch_subscribers",
			Help: "プロフィール更新のライブ購読者数",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.syncFailures,
		c.exportSuccess,
		c.exportFail,
		c.uploadLatency,
		c.watchSubscribers,
	)

	return c
}

// RecordLogin はログイン同期の完了を記録する。
func (c *Collector) RecordLogin() {
	c.logins.Inc()
}

// RecordSyncFailure はプロフィール同期失敗を記録する。
func (c *Collector) RecordSyncFailure() {
	c.syncFailures.Inc()
}

// RecordExportSuccess はエクスポート成功を記録する。
func (c *Collector) RecordExportSuccess() {
	c.exportSuccess.Inc()
}

// RecordExportFailure はエクスポート失敗を失敗分類付きで記録する。
func (c *Collector) RecordExportFailure(reason string) {
	c.exportFail.WithLabelValues(reason).Inc()
}

// RecordUploadLatency はアップロードのレイテンシを記録する。
func (c *Collector) RecordUploadLatency(duration time.Duration) {
	c.uploadLatency.Observe(duration.Seconds())
}

// SetWatchSubscribers はライブ購読者数のゲージを更新する。
func (c *Collector) SetWatchSubscribers(count int) {
	c.watchSubscribers.Set(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
