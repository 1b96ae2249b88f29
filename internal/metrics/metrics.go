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
// 予約エンジン、ログイン処理、HTTPミドルウェア、イベント通知から利用する。
type MetricsCollector interface {
	RecordAppointmentCreated()
	RecordAppointmentCancelled()
	RecordAppointmentRejected(reason string)
	SetActiveAppointments(n int)
	RecordLoginAttempt(success bool)
	RecordHTTPRequest(method string, status int, duration time.Duration)
	RecordEventSinkFailure(sink string)
	RecordEventDropped()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	appointmentsCreated   prometheus.Counter
	appointmentsCancelled prometheus.Counter
	appointmentRejections *prometheus.CounterVec
	activeAppointments    prometheus.Gauge
	loginAttempts         *prometheus.CounterVec
	httpRequests          *prometheus.CounterVec
	httpDuration          *prometheus.HistogramVec
	eventSinkFailures     *prometheus.CounterVec
	eventsDropped         prometheus.Counter
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		appointmentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomsched_appointments_created_total",
			Help: "作成された予約の合計数",
		}),
		appointmentsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomsched_appointments_cancelled_total",
			Help: "取り消された予約の合計数",
		}),
		appointmentRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomsched_appointment_rejections_total",
			Help: "拒否された予約作成の理由別の合計数",
		}, []string{"reason"}),
		activeAppointments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roomsched_active_appointments",
			Help: "現在保持している予約数",
		}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomsched_login_attempts_total",
			Help: "結果別のログイン試行数",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomsched_http_requests_total",
			Help: "ステータスクラス別のHTTPリクエスト数",
		}, []string{"method", "status_class"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roomsched_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		eventSinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomsched_event_sink_failures_total",
			Help: "通知先別の予約イベント送信失敗数",
		}, []string{"sink"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomsched_events_dropped_total",
			Help: "送信キューが満杯または停止済みで破棄された予約イベント数",
		}),
	}

	reg.MustRegister(
		c.appointmentsCreated,
		c.appointmentsCancelled,
		c.appointmentRejections,
		c.activeAppointments,
		c.loginAttempts,
		c.httpRequests,
		c.httpDuration,
		c.eventSinkFailures,
		c.eventsDropped,
	)

	return c
}

// RecordAppointmentCreated は予約作成を記録する。
func (c *Collector) RecordAppointmentCreated() {
	c.appointmentsCreated.Inc()
}

// RecordAppointmentCancelled は予約取消を記録する。
func (c *Collector) RecordAppointmentCancelled() {
	c.appointmentsCancelled.Inc()
}

// RecordAppointmentRejected は予約作成の拒否を理由付きで記録する。
func (c *Collector) RecordAppointmentRejected(reason string) {
	c.appointmentRejections.WithLabelValues(reason).Inc()
}

// SetActiveAppointments は現在の予約数を設定する。
func (c *Collector) SetActiveAppointments(n int) {
	c.activeAppointments.Set(float64(n))
}

// RecordLoginAttempt はログイン試行の結果を記録する。
func (c *Collector) RecordLoginAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.loginAttempts.WithLabelValues(result).Inc()
}

// RecordHTTPRequest はHTTPリクエストのステータスと処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, statusClass(status)).Inc()
	c.httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordEventSinkFailure は予約イベントの送信失敗を記録する。
func (c *Collector) RecordEventSinkFailure(sink string) {
	c.eventSinkFailures.WithLabelValues(sink).Inc()
}

// RecordEventDropped は送信されずに破棄された予約イベントを記録する。
func (c *Collector) RecordEventDropped() {
	c.eventsDropped.Inc()
}

// statusClass は 404 → "4xx" のようにステータスコードをクラスに丸める。
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
