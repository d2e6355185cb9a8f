// Package metrics 提供 Prometheus 指标收集
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标收集器
type Metrics struct {
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
	cacheHitsTotal       *prometheus.CounterVec
	cacheMissesTotal     *prometheus.CounterVec
	validationsTotal     *prometheus.CounterVec
	redemptionsTotal     *prometheus.CounterVec
	tamperChecksTotal    *prometheus.CounterVec
	codesGenerated       *prometheus.CounterVec
	generationRetries    prometheus.Counter
	activeCodes          prometheus.Gauge
}

var defaultMetrics *Metrics

// Init 初始化指标收集器
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "secacademy"
	}

	m := &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		cacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),
		cacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),
		validationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "promo_validations_total",
				Help:      "Total number of promo code validations",
			},
			[]string{"kind", "outcome"},
		),
		redemptionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "promo_redemptions_total",
				Help:      "Total number of promo code redemptions",
			},
			[]string{"kind", "outcome"},
		),
		tamperChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "promo_tamper_checks_total",
				Help:      "Total number of server-side discount recomputation checks",
			},
			[]string{"outcome"},
		),
		codesGenerated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "promo_codes_generated_total",
				Help:      "Total number of promo codes generated",
			},
			[]string{"kind"},
		),
		generationRetries: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "promo_generation_retries_total",
				Help:      "Total number of collision retries during code generation",
			},
		),
		activeCodes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "promo_active_codes",
				Help:      "Number of currently active promo codes",
			},
		),
	}

	defaultMetrics = m
	return m
}

// GetMetrics 获取默认指标收集器
func GetMetrics() *Metrics {
	if defaultMetrics == nil {
		return Init("")
	}
	return defaultMetrics
}

// Middleware 返回 Gin 中间件
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 跳过 metrics 端点本身
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.httpRequestsInFlight.Inc()

		c.Next()

		m.httpRequestsInFlight.Dec()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler 返回 Prometheus HTTP 处理器
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordCacheHit 记录缓存命中
func (m *Metrics) RecordCacheHit(cache string) {
	m.cacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (m *Metrics) RecordCacheMiss(cache string) {
	m.cacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordValidation 记录优惠码校验结果
func (m *Metrics) RecordValidation(kind, outcome string) {
	m.validationsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordRedemption 记录优惠码核销结果
func (m *Metrics) RecordRedemption(kind, outcome string) {
	m.redemptionsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordTamperCheck 记录折扣复算检查结果
func (m *Metrics) RecordTamperCheck(outcome string) {
	m.tamperChecksTotal.WithLabelValues(outcome).Inc()
}

// RecordCodeGenerated 记录生成的优惠码
func (m *Metrics) RecordCodeGenerated(kind string) {
	m.codesGenerated.WithLabelValues(kind).Inc()
}

// RecordGenerationRetry 记录生成时的碰撞重试
func (m *Metrics) RecordGenerationRetry() {
	m.generationRetries.Inc()
}

// SetActiveCodes 设置活跃优惠码数量
func (m *Metrics) SetActiveCodes(count float64) {
	m.activeCodes.Set(count)
}

// RecordValidationGlobal 全局记录优惠码校验结果
func RecordValidationGlobal(kind, outcome string) {
	GetMetrics().RecordValidation(kind, outcome)
}

// RecordRedemptionGlobal 全局记录优惠码核销结果
func RecordRedemptionGlobal(kind, outcome string) {
	GetMetrics().RecordRedemption(kind, outcome)
}

// RecordTamperCheckGlobal 全局记录折扣复算检查结果
func RecordTamperCheckGlobal(outcome string) {
	GetMetrics().RecordTamperCheck(outcome)
}
