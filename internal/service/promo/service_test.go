// Package promo 优惠码服务单元测试
package promo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zhixinsec/secacademy-backend/internal/common/config"
	"github.com/zhixinsec/secacademy-backend/internal/models"
	"github.com/zhixinsec/secacademy-backend/internal/repository"
)

func setupPromoService(t *testing.T, opts ...Option) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.PromoCode{},
		&models.PromoUsage{},
	))

	cfg := &config.PromoConfig{
		TamperTolerance:    1.0,
		CodeLength:         8,
		SuffixLength:       6,
		SingleMaxAttempts:  10,
		BulkMaxAttempts:    20,
		BulkGenerateLimit:  10,
		BulkOperationLimit: 100,
	}

	svc := NewService(db,
		repository.NewPromoCodeRepository(db),
		repository.NewPromoUsageRepository(db),
		cfg,
		opts...,
	)
	return svc, db
}

func createServiceTestCode(t *testing.T, db *gorm.DB, opts ...func(*models.PromoCode)) *models.PromoCode {
	t.Helper()

	from := time.Now().Add(-time.Hour)
	until := time.Now().Add(24 * time.Hour)
	code := &models.PromoCode{
		Code:           "WELCOME20",
		Kind:           models.PromoKindReferral,
		DiscountType:   models.DiscountTypePercentage,
		DiscountValue:  20,
		MinOrderAmount: 0,
		ValidFrom:      &from,
		ValidUntil:     &until,
		IsActive:       true,
	}

	for _, opt := range opts {
		opt(code)
	}

	require.NoError(t, db.Create(code).Error)
	return code
}

func asPartnerCode(code *models.PromoCode) {
	name := "安全实验室"
	email := "partner@example.com"
	commissionType := models.DiscountTypePercentage
	commissionValue := 10.0
	code.Code = "PR-LAB-X7K2M9"
	code.Kind = models.PromoKindPartnerReferral
	code.PartnerName = &name
	code.PartnerEmail = &email
	code.CommissionType = &commissionType
	code.CommissionValue = &commissionValue
}
