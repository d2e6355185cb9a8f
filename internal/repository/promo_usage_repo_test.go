// Package repository 优惠码核销记录仓储单元测试
package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zhixinsec/secacademy-backend/internal/models"
)

func createTestUsage(t *testing.T, db *gorm.DB, codeID int64, opts ...func(*models.PromoUsage)) *models.PromoUsage {
	t.Helper()

	usage := &models.PromoUsage{
		CodeID:          codeID,
		OrderID:         "ORD-" + time.Now().Format("20060102150405.000000000"),
		OriginalAmount:  1000.0,
		DiscountApplied: 100.0,
		FinalAmount:     900.0,
	}

	for _, opt := range opts {
		opt(usage)
	}

	require.NoError(t, db.Create(usage).Error)
	return usage
}

func TestPromoUsageRepository_Create(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewPromoUsageRepository(db)
	ctx := context.Background()

	code := createTestPromoCode(t, db, func(c *models.PromoCode) { c.Code = "USG001" })

	email := "alice@example.com"
	usage := &models.PromoUsage{
		CodeID:           code.ID,
		OrderID:          "ORD-2026-0001",
		CustomerEmail:    &email,
		OriginalAmount:   3000.0,
		DiscountApplied:  500.0,
		FinalAmount:      2500.0,
		CommissionEarned: 150.0,
	}

	err := repo.Create(ctx, nil, usage)
	require.NoError(t, err)
	assert.NotZero(t, usage.ID)
	assert.False(t, usage.IsPaidOut)
}

func TestPromoUsageRepository_Create_DuplicateOrder(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewPromoUsageRepository(db)
	ctx := context.Background()

	code := createTestPromoCode(t, db, func(c *models.PromoCode) { c.Code = "USG002" })
	createTestUsage(t, db, code.ID, func(u *models.PromoUsage) { u.OrderID = "ORD-DUP-01" })

	// 同一订单不允许重复核销
	dup := &models.PromoUsage{
		CodeID:          code.ID,
		OrderID:         "ORD-DUP-01",
		OriginalAmount:  500.0,
		DiscountApplied: 50.0,
		FinalAmount:     450.0,
	}
	err := repo.Create(ctx, nil, dup)
	assert.Error(t, err)
}

func TestPromoUsageRepository_GetByOrderID(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewPromoUsageRepository(db)
	ctx := context.Background()

	code := createTestPromoCode(t, db, func(c *models.PromoCode) { c.Code = "USG003" })
	created := createTestUsage(t, db, code.ID, func(u *models.PromoUsage) { u.OrderID = "ORD-FIND-01" })

	t.Run("获取存在的记录", func(t *testing.T) {
		usage, err := repo.GetByOrderID(ctx, "ORD-FIND-01")
		require.NoError(t, err)
		assert.Equal(t, created.ID, usage.ID)
	})

	t.Run("获取不存在的记录", func(t *testing.T) {
		_, err := repo.GetByOrderID(ctx, "ORD-MISSING")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestPromoUsageRepository_ExistsByCodeAndEmail(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewPromoUsageRepository(db)
	ctx := context.Background()

	code := createTestPromoCode(t, db, func(c *models.PromoCode) {
		c.Code = "PR-USG04"
		c.Kind = models.PromoKindPartnerReferral
	})

	email := "alice@example.com"
	createTestUsage(t, db, code.ID, func(u *models.PromoUsage) {
		u.CustomerEmail = &email
	})

	exists, err := repo.ExistsByCodeAndEmail(ctx, code.ID, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByCodeAndEmail(ctx, code.ID, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPromoUsageRepository_ListByCode(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewPromoUsageRepository(db)
	ctx := context.Background()

	code := createTestPromoCode(t, db, func(c *models.PromoCode) { c.Code = "USG005" })
	other := createTestPromoCode(t, db, func(c *models.PromoCode) { c.Code = "USG006" })

	for i := 0; i < 3; i++ {
		createTestUsage(t, db, code.ID)
	}
	createTestUsage(t, db, other.ID)

	usages, total, err := repo.ListByCode(ctx, code.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, usages, 3)

	t.Run("分页", func(t *testing.T) {
		usages, total, err := repo.ListByCode(ctx, code.ID, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, usages, 2)
	})
}

func TestPromoUsageRepository_MarkPaidOut(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewPromoUsageRepository(db)
	ctx := context.Background()

	code := createTestPromoCode(t, db, func(c *models.PromoCode) {
		c.Code = "PR-USG07"
		c.Kind = models.PromoKindPartnerReferral
	})

	u1 := createTestUsage(t, db, code.ID, func(u *models.PromoUsage) { u.CommissionEarned = 50.0 })
	u2 := createTestUsage(t, db, code.ID, func(u *models.PromoUsage) { u.CommissionEarned = 30.0 })

	paidAt := time.Now()
	updated, err := repo.MarkPaidOut(ctx, nil, []int64{u1.ID, u2.ID}, paidAt)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	// 已结算的记录不会被重复标记
	updated, err = repo.MarkPaidOut(ctx, nil, []int64{u1.ID, u2.ID}, paidAt)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)

	var found models.PromoUsage
	db.First(&found, u1.ID)
	assert.True(t, found.IsPaidOut)
	require.NotNil(t, found.PaidOutAt)
}

func TestPromoUsageRepository_ListUnpaidByCode(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewPromoUsageRepository(db)
	ctx := context.Background()

	code := createTestPromoCode(t, db, func(c *models.PromoCode) {
		c.Code = "PR-USG08"
		c.Kind = models.PromoKindPartnerReferral
	})

	createTestUsage(t, db, code.ID, func(u *models.PromoUsage) { u.CommissionEarned = 50.0 })
	createTestUsage(t, db, code.ID, func(u *models.PromoUsage) {
		u.CommissionEarned = 30.0
		u.IsPaidOut = true
	})
	// 无佣金的记录不参与结算
	createTestUsage(t, db, code.ID, func(u *models.PromoUsage) { u.CommissionEarned = 0 })

	unpaid, err := repo.ListUnpaidByCode(ctx, nil, code.ID)
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, 50.0, unpaid[0].CommissionEarned)
}

func TestPromoUsageRepository_SumDiscountByCode(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewPromoUsageRepository(db)
	ctx := context.Background()

	code := createTestPromoCode(t, db, func(c *models.PromoCode) { c.Code = "USG009" })

	t.Run("无记录时为零", func(t *testing.T) {
		sum, err := repo.SumDiscountByCode(ctx, code.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, sum)
	})

	t.Run("累加全部让利", func(t *testing.T) {
		createTestUsage(t, db, code.ID, func(u *models.PromoUsage) { u.DiscountApplied = 100.0 })
		createTestUsage(t, db, code.ID, func(u *models.PromoUsage) { u.DiscountApplied = 250.5 })

		sum, err := repo.SumDiscountByCode(ctx, code.ID)
		require.NoError(t, err)
		assert.Equal(t, 350.5, sum)
	})
}
