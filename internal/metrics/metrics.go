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
// 認証サービス、ライフサイクル、ミドルウェアから利用する。
type MetricsCollector interface {
	SignInSucceeded(method string)
	SignInFailed(kind string)
	SignedUp()
	SignUpRejected(kind string)
	SessionExpired()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordSessionsCleaned(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signInSuccess   *prometheus.CounterVec
	signInFail      *prometheus.CounterVec
	signUps         prometheus.Counter
	signUpRejected  *prometheus.CounterVec
	sessionExpired  prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	sessionsCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signInSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bkconnect_signin_success_total",
			Help: "サインイン成功の合計数（認証方法別）",
		}, []string{"method"}),
		signInFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bkconnect_signin_fail_total",
			Help: "サインイン失敗の合計数（分類別）",
		}, []string{"kind"}),
		signUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bkconnect_signup_total",
			Help: "サインアップ成功の合計数",
		}),
		signUpRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bkconnect_signup_rejected_total",
			Help: "サインアップ拒否の合計数（分類別）",
		}, []string{"kind"}),
		sessionExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bkconnect_session_expired_total",
			Help: "無操作タイムアウトによるセッション失効の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bkconnect_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bkconnect_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bkconnect_sessions_cleaned_total",
			Help: "クリーンアップワーカーが削除した期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.signInSuccess,
		c.signInFail,
		c.signUps,
		c.signUpRejected,
		c.sessionExpired,
		c.httpStatus,
		c.requestLatency,
		c.sessionsCleaned,
	)

	return c
}

// SignInSucceeded はサインイン成功を記録する。
func (c *Collector) SignInSucceeded(method string) {
	c.signInSuccess.WithLabelValues(method).Inc()
}

// SignInFailed はサインイン失敗を分類付きで記録する。
func (c *Collector) SignInFailed(kind string) {
	c.signInFail.WithLabelValues(kind).Inc()
}

// SignedUp はサインアップ成功を記録する。
func (c *Collector) SignedUp() {
	c.signUps.Inc()
}

// SignUpRejected はサインアップ拒否を分類付きで記録する。
func (c *Collector) SignUpRejected(kind string) {
	c.signUpRejected.WithLabelValues(kind).Inc()
}

// SessionExpired は無操作タイムアウトによる失効を記録する。
func (c *Collector) SessionExpired() {
	c.sessionExpired.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordSessionsCleaned はワーカーが削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int) {
	c.sessionsCleaned.Add(float64(count))
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
