// Package metrics Prometheus指标
//
// 指标类型速查：
//   - Counter：只增不减（下单次数、库存冲突次数），名称以_total结尾
//   - Gauge：可增可减的瞬时值（处理中的请求数、熔断器状态）
//   - Histogram：观测值分布（下单耗时），可用histogram_quantile查询P99
//
// 标签只用有限取值的维度（result、status、method），不要用user_id、order_no
//
// 使用：
//
//	metrics.InitMetrics()
//	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 下单结果标签取值
const (
	CheckoutSuccess           = "success"
	CheckoutEmptyCart         = "empty_cart"
	CheckoutBookUnavailable   = "book_unavailable"
	CheckoutInsufficientStock = "insufficient_stock"
	CheckoutTimeout           = "timeout"
	CheckoutError             = "error"
)

var (
	initOnce sync.Once

	// HTTP

	// HTTPRequestsTotal 标签：method、path（路由模板，不是原始URL）、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration 标签：method、path
	HTTPRequestDuration *prometheus.HistogramVec

	HTTPRequestsInProgress prometheus.Gauge

	// 下单

	// CheckoutsTotal 下单次数，标签：result（见Checkout*常量）
	CheckoutsTotal *prometheus.CounterVec

	// CheckoutDuration 下单耗时（整个事务，含等待事务）
	CheckoutDuration prometheus.Histogram

	CheckoutsInProgress prometheus.Gauge

	// StockReservationConflictsTotal 条件扣减失败次数（并发抢购时库存被别人扣走）
	// 标签：backend（mysql/redis）
	StockReservationConflictsTotal *prometheus.CounterVec

	// 订单状态

	// OrderTransitionsTotal 标签：from、to（状态码名称，如PENDING）
	OrderTransitionsTotal *prometheus.CounterVec

	// OrderCacheLookupsTotal 订单详情缓存，标签：result（hit/miss/error）
	OrderCacheLookupsTotal *prometheus.CounterVec

	// 熔断器

	// CircuitBreakerState 0=CLOSED, 1=OPEN, 2=HALF_OPEN，标签：name
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 标签：name、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// Saga

	// SagaCompensationsTotal 非事务库存后端的补偿次数，标签：result（success/failure）
	SagaCompensationsTotal *prometheus.CounterVec

	// 消息

	// MessagesPublishedTotal 标签：exchange、routing_key、result（success/failure）
	MessagesPublishedTotal *prometheus.CounterVec
)

// InitMetrics 注册所有指标到默认Registry，可重复调用
func InitMetrics() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_progress",
		Help: "正在处理的HTTP请求数",
	})

	CheckoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_total",
			Help: "下单次数（按结果）",
		},
		[]string{"result"},
	)

	// 下单事务的超时默认5s，桶覆盖到10s
	CheckoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "下单耗时（秒）",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	CheckoutsInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "checkouts_in_progress",
		Help: "正在处理的下单请求数",
	})

	StockReservationConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_reservation_conflicts_total",
			Help: "库存条件扣减失败次数",
		},
		[]string{"backend"},
	)

	OrderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "订单状态变更次数",
		},
		[]string{"from", "to"},
	)

	OrderCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_cache_lookups_total",
			Help: "订单详情缓存查询次数",
		},
		[]string{"result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	SagaCompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_compensations_total",
			Help: "Saga补偿执行次数",
		},
		[]string{"result"},
	)

	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"exchange", "routing_key", "result"},
	)
}

// IncCounterVec 递增CounterVec（带标签）
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	if counter == nil {
		return
	}
	counter.With(labels).Inc()
}

// SetGaugeVec 设置GaugeVec值（带标签）
func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	if gauge == nil {
		return
	}
	gauge.With(labels).Set(value)
}

// ObserveHistogram 记录Histogram观测值
func ObserveHistogram(histogram prometheus.Histogram, value float64) {
	if histogram == nil {
		return
	}
	histogram.Observe(value)
}

// ObserveHistogramVec 记录HistogramVec观测值（带标签）
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	if histogram == nil {
		return
	}
	histogram.With(labels).Observe(value)
}

// IncGauge 递增Gauge
func IncGauge(gauge prometheus.Gauge) {
	if gauge == nil {
		return
	}
	gauge.Inc()
}

// DecGauge 递减Gauge
func DecGauge(gauge prometheus.Gauge) {
	if gauge == nil {
		return
	}
	gauge.Dec()
}
