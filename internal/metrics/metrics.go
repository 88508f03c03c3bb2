// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやミドルウェアから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordLogin(role string, success bool)
	RecordRegistration(role string)
	RecordDonationCreated()
	RecordRequestCreated()
	RecordRequestCompleted()
	RecordConflict(operation string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
	logins            *prometheus.CounterVec
	registrations     *prometheus.CounterVec
	donationsCreated  prometheus.Counter
	requestsCreated   prometheus.Counter
	requestsCompleted prometheus.Counter
	conflicts         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodshare_http_requests_total",
			Help: "ルートとステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "foodshare_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodshare_logins_total",
			Help: "ロールと結果別のログイン試行数",
		}, []string{"role", "result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodshare_registrations_total",
			Help: "ロール別のユーザー登録数",
		}, []string{"role"}),
		donationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foodshare_donations_created_total",
			Help: "登録された寄付の合計数",
		}),
		requestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foodshare_requests_created_total",
			Help: "寄付へのリクエストの合計数",
		}),
		requestsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foodshare_requests_completed_total",
			Help: "受け取りが完了したリクエストの合計数",
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodshare_concurrent_update_failures_total",
			Help: "再試行しても競合が解消しなかった更新の数",
		}, []string{"operation"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.logins,
		c.registrations,
		c.donationsCreated,
		c.requestsCreated,
		c.requestsCompleted,
		c.conflicts,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordLogin はログイン試行を記録する。
func (c *Collector) RecordLogin(role string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(role, result).Inc()
}

// RecordRegistration はユーザー登録を記録する。
func (c *Collector) RecordRegistration(role string) {
	c.registrations.WithLabelValues(role).Inc()
}

// RecordDonationCreated は寄付の登録を記録する。
func (c *Collector) RecordDonationCreated() {
	c.donationsCreated.Inc()
}

// RecordRequestCreated は寄付へのリクエストを記録する。
func (c *Collector) RecordRequestCreated() {
	c.requestsCreated.Inc()
}

// RecordRequestCompleted はリクエストの完了を記録する。
func (c *Collector) RecordRequestCompleted() {
	c.requestsCompleted.Inc()
}

// RecordConflict は競合による更新失敗を記録する。
func (c *Collector) RecordConflict(operation string) {
	c.conflicts.WithLabelValues(operation).Inc()
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordHTTPRequest(string, string, int, time.Duration) {}
func (NopCollector) RecordLogin(string, bool)                            {}
func (NopCollector) RecordRegistration(string)                           {}
func (NopCollector) RecordDonationCreated()                              {}
func (NopCollector) RecordRequestCreated()                               {}
func (NopCollector) RecordRequestCompleted()                             {}
func (NopCollector) RecordConflict(string)                               {}

// statusWriter はステータスコードを記録するResponseWriter。
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// NewHTTPMiddleware はリクエストごとにルートパターン単位のメトリクスを記録するミドルウェアを返す。
// パスパラメータでラベルが増えないよう、chiのルートパターンをラベルに使う。
func NewHTTPMiddleware(c MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}

			next.ServeHTTP(sw, r)

			if sw.status == 0 {
				sw.status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			c.RecordHTTPRequest(r.Method, route, sw.status, time.Since(start))
		})
	}
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
