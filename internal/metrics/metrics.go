// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 配信結果ラベル
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// ファンアウト結果ラベル
const (
	FanoutQueued  = "queued"
	FanoutDropped = "dropped"
)

// MetricsCollector はメトリクス収集のインターフェース。
// スケジューラ、配信パイプライン、接続レジストリから利用する。
type MetricsCollector interface {
	RecordDelivery(kind, result string)
	RecordEmailFailure(kind string)
	RecordReminderFired(repeat string)
	RecordReminderTick(duration time.Duration)
	RecordMotivationBatch(sent int)
	SetConnections(n int)
	RecordFanout(result string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	deliveries      *prometheus.CounterVec
	emailFailures   *prometheus.CounterVec
	remindersFired  *prometheus.CounterVec
	reminderTick    prometheus.Histogram
	motivationBatch prometheus.Gauge
	connections     prometheus.Gauge
	fanout          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodmate_deliveries_total",
			Help: "種別・結果ごとの通知配信数",
		}, []string{"kind", "result"}),
		emailFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodmate_email_failures_total",
			Help: "種別ごとのメール送信失敗数",
		}, []string{"kind"}),
		remindersFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodmate_reminders_fired_total",
			Help: "繰り返し種別ごとの発火したリマインダー数",
		}, []string{"repeat"}),
		reminderTick: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "moodmate_reminder_tick_seconds",
			Help:    "リマインダースケジューラ1回分の処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		motivationBatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moodmate_motivation_batch_sent",
			Help: "直近のモチベーションバッチで配信した件数",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moodmate_ws_connections",
			Help: "現在のWebSocket接続数",
		}),
		fanout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodmate_fanout_events_total",
			Help: "接続ごとのイベント送出結果",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.deliveries,
		c.emailFailures,
		c.remindersFired,
		c.reminderTick,
		c.motivationBatch,
		c.connections,
		c.fanout,
	)

	return c
}

// RecordDelivery は配信結果を記録する。
func (c *Collector) RecordDelivery(kind, result string) {
	c.deliveries.WithLabelValues(kind, result).Inc()
}

// RecordEmailFailure はメール送信失敗を記録する。
func (c *Collector) RecordEmailFailure(kind string) {
	c.emailFailures.WithLabelValues(kind).Inc()
}

// RecordReminderFired はリマインダーの発火を記録する。
func (c *Collector) RecordReminderFired(repeat string) {
	c.remindersFired.WithLabelValues(repeat).Inc()
}

// RecordReminderTick はリマインダースケジューラの処理時間を記録する。
func (c *Collector) RecordReminderTick(duration time.Duration) {
	c.reminderTick.Observe(duration.Seconds())
}

// RecordMotivationBatch は直近バッチの配信件数を記録する。
func (c *Collector) RecordMotivationBatch(sent int) {
	c.motivationBatch.Set(float64(sent))
}

// SetConnections は現在の接続数を設定する。
func (c *Collector) SetConnections(n int) {
	c.connections.Set(float64(n))
}

// RecordFanout は接続ごとのイベント送出結果を記録する。
func (c *Collector) RecordFanout(result string) {
	c.fanout.WithLabelValues(result).Inc()
}

// SetupMetricsRoute はPrometheusメトリクスを公開するHTTPハンドラーを返す。
func SetupMetricsRoute(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type NopCollector struct{}

func (NopCollector) RecordDelivery(string, string) {}
func (NopCollector) RecordEmailFailure(string) {}
func (NopCollector) RecordReminderFired(string) {}
func (NopCollector) RecordReminderTick(time.Duration) {}
func (NopCollector) RecordMotivationBatch(int) {}
func (NopCollector) SetConnections(int) {}
func (NopCollector) RecordFanout(string) {}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
