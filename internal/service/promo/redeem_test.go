package promo

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhixinsec/secacademy-backend/internal/models"
	"github.com/zhixinsec/secacademy-backend/pkg/sms"
)

func TestService_FinalizeRedemption_Success(t *testing.T) {
	svc, db := setupPromoService(t)
	code := createServiceTestCode(t, db)

	result, err := svc.FinalizeRedemption(context.Background(), code.Code, "ORD-001", 1000, 200, "student@example.com")
	require.NoError(t, err)

	assert.True(t, result.Redeemed)
	assert.InDelta(t, 200.0, result.DiscountAmount, 0.001)
	assert.InDelta(t, 800.0, result.FinalAmount, 0.001)
	assert.Zero(t, result.CommissionEarned)

	var reloaded models.PromoCode
	require.NoError(t, db.First(&reloaded, code.ID).Error)
	assert.Equal(t, 1, reloaded.CurrentUses)

	var usage models.PromoUsage
	require.NoError(t, db.Where("order_id = ?", "ORD-001").First(&usage).Error)
	assert.Equal(t, code.ID, usage.CodeID)
	assert.InDelta(t, 1000.0, usage.OriginalAmount, 0.001)
	assert.InDelta(t, 200.0, usage.DiscountApplied, 0.001)
	assert.InDelta(t, 800.0, usage.FinalAmount, 0.001)
}

func TestService_FinalizeRedemption_TamperDetected(t *testing.T) {
	svc, db := setupPromoService(t)
	code := createServiceTestCode(t, db)

	// 服务端重算为 200，客户端声称 350，超出容差
	result, err := svc.FinalizeRedemption(context.Background(), code.Code, "ORD-002", 1000, 350, "")
	require.NoError(t, err)

	assert.False(t, result.Redeemed)
	assert.Equal(t, ReasonTamperDetected, result.Reason)
	assert.Zero(t, result.DiscountAmount)
	assert.InDelta(t, 1000.0, result.FinalAmount, 0.001)

	// 篡改拒绝不消耗使用次数，也不写使用记录
	var reloaded models.PromoCode
	require.NoError(t, db.First(&reloaded, code.ID).Error)
	assert.Equal(t, 0, reloaded.CurrentUses)

	var count int64
	require.NoError(t, db.Model(&models.PromoUsage{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestService_FinalizeRedemption_WithinTolerance(t *testing.T) {
	svc, db := setupPromoService(t)
	code := createServiceTestCode(t, db)

	// 偏差 0.5 在默认容差 1.0 以内，按服务端计算值核销
	result, err := svc.FinalizeRedemption(context.Background(), code.Code, "ORD-003", 1000, 200.5, "")
	require.NoError(t, err)

	assert.True(t, result.Redeemed)
	assert.InDelta(t, 200.0, result.DiscountAmount, 0.001)
}

func TestService_FinalizeRedemption_PartnerCommission(t *testing.T) {
	mock := sms.NewMockSender()
	svc, db := setupPromoService(t, WithSMSSender(mock))
	svc.cfg.NotifyPartner = true
	phone := "13800138000"
	code := createServiceTestCode(t, db, asPartnerCode, func(c *models.PromoCode) {
		c.PartnerPhone = &phone
	})

	result, err := svc.FinalizeRedemption(context.Background(), code.Code, "ORD-004", 1000, 200, "student@example.com")
	require.NoError(t, err)

	assert.True(t, result.Redeemed)
	assert.InDelta(t, 200.0, result.DiscountAmount, 0.001)
	// 佣金按原始订单金额计算，与折扣无关
	assert.InDelta(t, 100.0, result.CommissionEarned, 0.001)

	var reloaded models.PromoCode
	require.NoError(t, db.First(&reloaded, code.ID).Error)
	assert.InDelta(t, 100.0, reloaded.TotalEarnings, 0.001)
	assert.InDelta(t, 100.0, reloaded.PendingPayout(), 0.001)

	msg := mock.GetLastMessage()
	require.NotNil(t, msg)
	assert.Equal(t, phone, msg.Phone)
}

func TestService_FinalizeRedemption_FixedCommissionExceedsOrder(t *testing.T) {
	svc, db := setupPromoService(t)
	commissionType := models.DiscountTypeFixed
	commissionValue := 50.0
	code := createServiceTestCode(t, db, asPartnerCode, func(c *models.PromoCode) {
		c.CommissionType = &commissionType
		c.CommissionValue = &commissionValue
		c.DiscountType = models.DiscountTypeFixed
		c.DiscountValue = 5
	})

	// 固定佣金不受订单金额上限约束
	result, err := svc.FinalizeRedemption(context.Background(), code.Code, "ORD-005", 30, 5, "")
	require.NoError(t, err)

	assert.True(t, result.Redeemed)
	assert.InDelta(t, 50.0, result.CommissionEarned, 0.001)
}

func TestService_FinalizeRedemption_DuplicateOrder(t *testing.T) {
	svc, db := setupPromoService(t)
	code := createServiceTestCode(t, db)

	first, err := svc.FinalizeRedemption(context.Background(), code.Code, "ORD-006", 1000, 200, "")
	require.NoError(t, err)
	require.True(t, first.Redeemed)

	second, err := svc.FinalizeRedemption(context.Background(), code.Code, "ORD-006", 1000, 200, "")
	require.NoError(t, err)

	assert.False(t, second.Redeemed)
	assert.Equal(t, ReasonAlreadyRedeemed, second.Reason)

	var reloaded models.PromoCode
	require.NoError(t, db.First(&reloaded, code.ID).Error)
	assert.Equal(t, 1, reloaded.CurrentUses)
}

func TestService_FinalizeRedemption_PartnerSingleUse(t *testing.T) {
	svc, db := setupPromoService(t)
	code := createServiceTestCode(t, db, asPartnerCode)

	email := "student@example.com"
	first, err := svc.FinalizeRedemption(context.Background(), code.Code, "ORD-007", 1000, 200, email)
	require.NoError(t, err)
	require.True(t, first.Redeemed)

	second, err := svc.FinalizeRedemption(context.Background(), code.Code, "ORD-008", 1000, 200, email)
	require.NoError(t, err)

	assert.False(t, second.Redeemed)
	assert.Equal(t, ReasonAlreadyRedeemed, second.Reason)
}

func TestService_FinalizeRedemption_UsageCapTerminal(t *testing.T) {
	svc, db := setupPromoService(t)
	maxUses := 1
	code := createServiceTestCode(t, db, func(c *models.PromoCode) {
		c.MaxUses = &maxUses
	})

	first, err := svc.FinalizeRedemption(context.Background(), code.Code, "ORD-009", 1000, 200, "")
	require.NoError(t, err)
	require.True(t, first.Redeemed)

	second, err := svc.FinalizeRedemption(context.Background(), code.Code, "ORD-010", 1000, 200, "")
	require.NoError(t, err)

	assert.False(t, second.Redeemed)
	assert.Equal(t, ReasonUsageExceeded, second.Reason)
}

func TestService_FinalizeRedemption_ConcurrentCap(t *testing.T) {
	svc, db := setupPromoService(t)
	maxUses := 5
	code := createServiceTestCode(t, db, func(c *models.PromoCode) {
		c.MaxUses = &maxUses
	})

	const workers = 20
	var wg sync.WaitGroup
	results := make([]*RedemptionResult, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.FinalizeRedemption(context.Background(), code.Code,
				fmt.Sprintf("ORD-C%03d", i), 1000, 200, "")
			if err == nil {
				results[i] = r
			}
		}(i)
	}
	wg.Wait()

	redeemed := 0
	for _, r := range results {
		if r != nil && r.Redeemed {
			redeemed++
		}
	}
	assert.Equal(t, maxUses, redeemed)

	var reloaded models.PromoCode
	require.NoError(t, db.First(&reloaded, code.ID).Error)
	assert.Equal(t, maxUses, reloaded.CurrentUses)

	var count int64
	require.NoError(t, db.Model(&models.PromoUsage{}).Count(&count).Error)
	assert.Equal(t, int64(maxUses), count)
}

func TestService_FinalizeRedemption_InvalidCodePaths(t *testing.T) {
	svc, db := setupPromoService(t)
	createServiceTestCode(t, db, func(c *models.PromoCode) {
		c.Code = "OFFLINE"
		c.IsActive = false
	})

	result, err := svc.FinalizeRedemption(context.Background(), "NOSUCHCODE", "ORD-011", 100, 0, "")
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, result.Reason)

	result, err = svc.FinalizeRedemption(context.Background(), "OFFLINE", "ORD-012", 100, 20, "")
	require.NoError(t, err)
	assert.Equal(t, ReasonInactive, result.Reason)
}
