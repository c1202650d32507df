package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PaymentMetrics 支付服务指标
type PaymentMetrics struct {
	registry *prometheus.Registry

	// 下单相关指标
	OrderIssueTotal    *prometheus.CounterVec // 下单总数（按结果）
	OrderIssueRetries  prometheus.Counter     // 订单号冲突重试次数
	OrderIssueDuration prometheus.Histogram   // 下单耗时

	// 回调相关指标
	NotifyTotal    *prometheus.CounterVec   // 回调总数（按结果）
	NotifyDuration *prometheus.HistogramVec // 回调处理耗时（按结果）

	// 告警与订阅
	PaymentAlertTotal    *prometheus.CounterVec // 支付异常告警（按类型）
	SubscriptionExtended *prometheus.CounterVec // 订阅窗口写入（按周期、是否叠加）
}

// New 创建支付服务指标，注册到独立 Registry
func New() *PaymentMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &PaymentMetrics{
		registry: reg,
		OrderIssueTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paysub_order_issue_total",
				Help: "Total number of order issue attempts",
			},
			[]string{"result"},
		),
		OrderIssueRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "paysub_order_issue_retries_total",
				Help: "Total number of order number collisions retried",
			},
		),
		OrderIssueDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "paysub_order_issue_duration_seconds",
				Help:    "Duration of order issue operations",
				Buckets: prometheus.DefBuckets,
			},
		),
		NotifyTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paysub_notify_total",
				Help: "Total number of gateway notifications by outcome",
			},
			[]string{"outcome"},
		),
		NotifyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paysub_notify_duration_seconds",
				Help:    "Duration of gateway notification handling",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		PaymentAlertTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paysub_payment_alert_total",
				Help: "Total number of payment exception alerts",
			},
			[]string{"type"},
		),
		SubscriptionExtended: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paysub_subscription_window_total",
				Help: "Total number of subscription windows written",
			},
			[]string{"period", "stacked"},
		),
	}
}

// Handler 返回 /metrics 处理器
func (m *PaymentMetrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOrderIssue 记录下单结果
func (m *PaymentMetrics) ObserveOrderIssue(result string, seconds float64) {
	if m == nil {
		return
	}
	m.OrderIssueTotal.WithLabelValues(result).Inc()
	m.OrderIssueDuration.Observe(seconds)
}

// IncOrderIssueRetry 记录订单号冲突重试
func (m *PaymentMetrics) IncOrderIssueRetry() {
	if m == nil {
		return
	}
	m.OrderIssueRetries.Inc()
}

// ObserveNotify 记录回调处理结果
func (m *PaymentMetrics) ObserveNotify(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.NotifyTotal.WithLabelValues(outcome).Inc()
	m.NotifyDuration.WithLabelValues(outcome).Observe(seconds)
}

// IncPaymentAlert 记录支付异常告警
func (m *PaymentMetrics) IncPaymentAlert(alertType string) {
	if m == nil {
		return
	}
	m.PaymentAlertTotal.WithLabelValues(alertType).Inc()
}

// IncSubscriptionWindow 记录订阅窗口写入
func (m *PaymentMetrics) IncSubscriptionWindow(period string, stacked bool) {
	if m == nil {
		return
	}
	label := "false"
	if stacked {
		label = "true"
	}
	m.SubscriptionExtended.WithLabelValues(period, label).Inc()
}

var (
	defaultOnce    sync.Once
	defaultMetrics *PaymentMetrics
)

// Default 获取全局指标实例
func Default() *PaymentMetrics {
	defaultOnce.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}
