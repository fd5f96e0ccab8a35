// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/coachlink/internal/routing"
)

// destinationFallback は既知の遷移先以外（呼び出し元指定のフォールバック）をまとめるラベル値。
const destinationFallback = "fallback"

// MetricsCollector はメトリクス収集のインターフェース。
// ルーター、サービス層、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordRouteDecision(trigger, destination string)
	RecordExchangeFailure()
	RecordProfileLookupFailure()
	RecordSessionCacheHit()
	RecordSessionCacheMiss()
	RecordHTTPRequest(route string, statusCode int, duration time.Duration)
	RecordDailyLog()
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	routeDecisions  *prometheus.CounterVec
	exchangeFail    prometheus.Counter
	profileFail     prometheus.Counter
	sessionCache    *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	dailyLogs       prometheus.Counter
	sessionsCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		routeDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coachlink_route_decisions_total",
			Help: "セッションルーターの遷移先決定数",
		}, []string{"trigger", "destination"}),
		exchangeFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coachlink_oauth_exchange_failures_total",
			Help: "OAuthコード交換失敗の合計数",
		}),
		profileFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coachlink_profile_lookup_failures_total",
			Help: "ルーティング中のプロフィール取得失敗の合計数",
		}),
		sessionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coachlink_session_cache_requests_total",
			Help: "セッションキャッシュの参照数（result=hit|miss）",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coachlink_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coachlink_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		dailyLogs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coachlink_daily_logs_recorded_total",
			Help: "記録された日次ログの合計数",
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coachlink_sessions_cleaned_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.routeDecisions,
		c.exchangeFail,
		c.profileFail,
		c.sessionCache,
		c.httpStatus,
		c.httpLatency,
		c.dailyLogs,
		c.sessionsCleaned,
	)

	return c
}

// RecordRouteDecision はルーターの遷移先決定を記録する。
// 既知の遷移先以外はラベルのカーディナリティを抑えるため"fallback"にまとめる。
func (c *Collector) RecordRouteDecision(trigger, destination string) {
	c.routeDecisions.WithLabelValues(trigger, destinationLabel(destination)).Inc()
}

// RecordExchangeFailure はOAuthコード交換失敗を記録する。
func (c *Collector) RecordExchangeFailure() {
	c.exchangeFail.Inc()
}

// RecordProfileLookupFailure はプロフィール取得失敗を記録する。
func (c *Collector) RecordProfileLookupFailure() {
	c.profileFail.Inc()
}

// RecordSessionCacheHit はセッションキャッシュのヒットを記録する。
func (c *Collector) RecordSessionCacheHit() {
	c.sessionCache.WithLabelValues("hit").Inc()
}

// RecordSessionCacheMiss はセッションキャッシュのミスを記録する。
func (c *Collector) RecordSessionCacheMiss() {
	c.sessionCache.WithLabelValues("miss").Inc()
}

// RecordHTTPRequest はHTTPレスポンスのステータスコードと処理時間を記録する。
// routeにはchiのルートパターンを渡す。
func (c *Collector) RecordHTTPRequest(route string, statusCode int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordDailyLog は日次ログの記録を記録する。
func (c *Collector) RecordDailyLog() {
	c.dailyLogs.Inc()
}

// RecordSessionsCleaned は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

func destinationLabel(destination string) string {
	switch routing.Destination(destination) {
	case routing.DestinationLogin,
		routing.DestinationOnboarding,
		routing.DestinationCoachDashboard,
		routing.DestinationClientDashboard:
		return destination
	default:
		return destinationFallback
	}
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

// compile-time interface checks
var (
	_ MetricsCollector         = (*Collector)(nil)
	_ routing.DecisionRecorder = (*Collector)(nil)
)
