// Package metrics 提供 Prometheus 指标收集单元测试
package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestInit(t *testing.T) {
	t.Run("使用默认命名空间", func(t *testing.T) {
		m := Init("")
		require.NotNil(t, m)
		assert.NotNil(t, m.httpRequestsTotal)
		assert.NotNil(t, m.httpRequestDuration)
		assert.NotNil(t, m.httpRequestsInFlight)
		assert.NotNil(t, m.cacheHitsTotal)
		assert.NotNil(t, m.cacheMissesTotal)
		assert.NotNil(t, m.validationsTotal)
		assert.NotNil(t, m.redemptionsTotal)
		assert.NotNil(t, m.tamperChecksTotal)
		assert.NotNil(t, m.codesGenerated)
		assert.NotNil(t, m.generationRetries)
		assert.NotNil(t, m.activeCodes)
	})

	t.Run("使用自定义命名空间", func(t *testing.T) {
		m := Init("custom_namespace")
		require.NotNil(t, m)
	})
}

func TestGetMetrics(t *testing.T) {
	t.Run("获取已初始化的指标", func(t *testing.T) {
		Init("test")
		m := GetMetrics()
		require.NotNil(t, m)
	})
}

func TestMetrics_RecordCache(t *testing.T) {
	m := Init("test_cache")

	t.Run("记录缓存命中", func(t *testing.T) {
		m.RecordCacheHit("validate_cache")
	})

	t.Run("记录缓存未命中", func(t *testing.T) {
		m.RecordCacheMiss("validate_cache")
	})
}

func TestMetrics_RecordValidation(t *testing.T) {
	m := Init("test_validation")

	t.Run("记录有效校验", func(t *testing.T) {
		m.RecordValidation("referral", "valid")
	})

	t.Run("记录各类失败校验", func(t *testing.T) {
		m.RecordValidation("promo_price", "expired")
		m.RecordValidation("partner_referral", "usage_exceeded")
		m.RecordValidation("referral", "below_minimum")
	})
}

func TestMetrics_RecordRedemption(t *testing.T) {
	m := Init("test_redemption")

	t.Run("记录核销成功", func(t *testing.T) {
		m.RecordRedemption("partner_referral", "redeemed")
	})

	t.Run("记录核销失败", func(t *testing.T) {
		m.RecordRedemption("referral", "usage_exceeded")
		m.RecordRedemption("promo_price", "already_redeemed")
	})
}

func TestMetrics_RecordTamperCheck(t *testing.T) {
	m := Init("test_tamper")

	t.Run("记录复算通过", func(t *testing.T) {
		m.RecordTamperCheck("ok")
	})

	t.Run("记录复算不一致", func(t *testing.T) {
		m.RecordTamperCheck("mismatch")
	})
}

func TestMetrics_RecordGeneration(t *testing.T) {
	m := Init("test_generation")

	t.Run("记录生成的优惠码", func(t *testing.T) {
		m.RecordCodeGenerated("referral")
		m.RecordCodeGenerated("promo_price")
	})

	t.Run("记录碰撞重试", func(t *testing.T) {
		m.RecordGenerationRetry()
		m.RecordGenerationRetry()
	})
}

func TestMetrics_SetActiveCodes(t *testing.T) {
	m := Init("test_active")

	m.SetActiveCodes(100)
	m.SetActiveCodes(150)
}

func TestGlobalRecorders(t *testing.T) {
	Init("test_global")

	t.Run("全局记录校验", func(t *testing.T) {
		RecordValidationGlobal("referral", "valid")
	})

	t.Run("全局记录核销", func(t *testing.T) {
		RecordRedemptionGlobal("partner_referral", "redeemed")
	})

	t.Run("全局记录复算检查", func(t *testing.T) {
		RecordTamperCheckGlobal("ok")
	})
}

func TestMetrics_Middleware(t *testing.T) {
	m := Init("test_middleware")

	router := gin.New()
	router.Use(m.Middleware())

	router.GET("/api/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, "metrics")
	})

	t.Run("记录请求指标", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/test", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("跳过/metrics端点", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/metrics", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandler(t *testing.T) {
	Init("test_handler")

	router := gin.New()
	router.GET("/metrics", Handler())

	t.Run("返回Prometheus指标", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/metrics", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		// Prometheus 指标应该包含一些标准内容
		body := w.Body.String()
		assert.Contains(t, body, "go_") // Go 运行时指标
	})
}
