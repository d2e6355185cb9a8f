package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/zhixinsec/secacademy-backend/internal/models"
)

// PromoUsageRepository 优惠码核销记录仓储
type PromoUsageRepository struct {
	db *gorm.DB
}

// NewPromoUsageRepository 创建核销记录仓储
func NewPromoUsageRepository(db *gorm.DB) *PromoUsageRepository {
	return &PromoUsageRepository{db: db}
}

// Create 创建核销记录
func (r *PromoUsageRepository) Create(ctx context.Context, tx *gorm.DB, usage *models.PromoUsage) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Create(usage).Error
}

// GetByOrderID 根据订单号获取核销记录
func (r *PromoUsageRepository) GetByOrderID(ctx context.Context, orderID string) (*models.PromoUsage, error) {
	var usage models.PromoUsage
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&usage).Error
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// ExistsByCodeAndEmail 检查某客户是否已使用过该码
func (r *PromoUsageRepository) ExistsByCodeAndEmail(ctx context.Context, codeID int64, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PromoUsage{}).
		Where("code_id = ? AND customer_email = ?", codeID, email).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByCode 获取某优惠码的核销记录列表
func (r *PromoUsageRepository) ListByCode(ctx context.Context, codeID int64, offset, limit int) ([]*models.PromoUsage, int64, error) {
	var usages []*models.PromoUsage
	var total int64

	query := r.db.WithContext(ctx).Model(&models.PromoUsage{}).Where("code_id = ?", codeID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&usages).Error; err != nil {
		return nil, 0, err
	}

	return usages, total, nil
}

// ListUnpaidByCode 获取某合作伙伴码未结算的核销记录。
// 结算事务内读取须传入 tx，保证结算金额与标记的记录一致。
func (r *PromoUsageRepository) ListUnpaidByCode(ctx context.Context, tx *gorm.DB, codeID int64) ([]*models.PromoUsage, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var usages []*models.PromoUsage
	err := db.WithContext(ctx).
		Where("code_id = ? AND is_paid_out = ?", codeID, false).
		Where("commission_earned > 0").
		Order("created_at ASC").
		Find(&usages).Error
	return usages, err
}

// MarkPaidOut 批量标记核销记录为已结算，由外部结算流程调用
func (r *PromoUsageRepository) MarkPaidOut(ctx context.Context, tx *gorm.DB, ids []int64, paidAt time.Time) (int64, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	result := db.WithContext(ctx).Model(&models.PromoUsage{}).
		Where("id IN ? AND is_paid_out = ?", ids, false).
		Updates(map[string]interface{}{
			"is_paid_out": true,
			"paid_out_at": paidAt,
		})
	return result.RowsAffected, result.Error
}

// SumDiscountByCode 统计某优惠码累计让利金额
func (r *PromoUsageRepository) SumDiscountByCode(ctx context.Context, codeID int64) (float64, error) {
	var sum float64
	err := r.db.WithContext(ctx).Model(&models.PromoUsage{}).
		Where("code_id = ?", codeID).
		Select("COALESCE(SUM(discount_applied), 0)").
		Scan(&sum).Error
	return sum, err
}
