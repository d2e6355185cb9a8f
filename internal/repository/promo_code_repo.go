// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/zhixinsec/secacademy-backend/internal/models"
)

// PromoCodeRepository 优惠码仓储
type PromoCodeRepository struct {
	db *gorm.DB
}

// NewPromoCodeRepository 创建优惠码仓储
func NewPromoCodeRepository(db *gorm.DB) *PromoCodeRepository {
	return &PromoCodeRepository{db: db}
}

// DB 返回底层数据库句柄，供服务层组织事务
func (r *PromoCodeRepository) DB() *gorm.DB {
	return r.db
}

// Create 创建优惠码
func (r *PromoCodeRepository) Create(ctx context.Context, code *models.PromoCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

// GetByID 根据 ID 获取优惠码
func (r *PromoCodeRepository) GetByID(ctx context.Context, id int64) (*models.PromoCode, error) {
	var code models.PromoCode
	err := r.db.WithContext(ctx).First(&code, id).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// GetByCode 根据码串获取优惠码，码串须已归一化为大写
func (r *PromoCodeRepository) GetByCode(ctx context.Context, codeStr string) (*models.PromoCode, error) {
	var code models.PromoCode
	err := r.db.WithContext(ctx).Where("code = ?", codeStr).First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// ExistsByCode 检查码串是否已存在，唯一性域覆盖全部三种类型
func (r *PromoCodeRepository) ExistsByCode(ctx context.Context, codeStr string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("code = ?", codeStr).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateFields 更新指定字段
func (r *PromoCodeRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.PromoCode{}).Where("id = ?", id).Updates(fields).Error
}

// PromoCodeListParams 优惠码列表查询参数
type PromoCodeListParams struct {
	Offset    int
	Limit     int
	Kind      string
	IsActive  *bool
	Keyword   string
	ValidFrom *time.Time
	ValidTo   *time.Time
}

// List 获取优惠码列表
func (r *PromoCodeRepository) List(ctx context.Context, params PromoCodeListParams) ([]*models.PromoCode, int64, error) {
	var codes []*models.PromoCode
	var total int64

	query := r.db.WithContext(ctx).Model(&models.PromoCode{})

	// 过滤条件
	if params.Kind != "" {
		query = query.Where("kind = ?", params.Kind)
	}
	if params.IsActive != nil {
		query = query.Where("is_active = ?", *params.IsActive)
	}
	if params.Keyword != "" {
		query = query.Where("code LIKE ? OR partner_name LIKE ?", "%"+params.Keyword+"%", "%"+params.Keyword+"%")
	}
	if params.ValidFrom != nil {
		query = query.Where("valid_until IS NULL OR valid_until >= ?", *params.ValidFrom)
	}
	if params.ValidTo != nil {
		query = query.Where("valid_from IS NULL OR valid_from <= ?", *params.ValidTo)
	}

	// 统计总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 查询列表
	if err := query.Order("created_at DESC").Offset(params.Offset).Limit(params.Limit).Find(&codes).Error; err != nil {
		return nil, 0, err
	}

	return codes, total, nil
}

// BulkDelete 批量删除优惠码，返回实际删除数量
func (r *PromoCodeRepository) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.PromoCode{})
	return result.RowsAffected, result.Error
}

// BulkSetActive 批量启用/停用优惠码，返回实际更新数量
func (r *PromoCodeRepository) BulkSetActive(ctx context.Context, ids []int64, isActive bool) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id IN ?", ids).
		Update("is_active", isActive)
	return result.RowsAffected, result.Error
}

// RedeemOnce 以单条原子条件更新执行核销计数。
// 所有资格条件（启用、未超限、窗口内）都在 WHERE 中表达，
// 影响行数为 0 表示码在校验与核销之间已失效或用尽。
// 必须在事务内调用，tx 为 nil 时使用默认句柄。
func (r *PromoCodeRepository) RedeemOnce(ctx context.Context, tx *gorm.DB, id int64, now time.Time) (bool, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	result := db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id = ? AND is_active = ?", id, true).
		Where("max_uses IS NULL OR current_uses < max_uses").
		Where("valid_from IS NULL OR valid_from <= ?", now).
		Where("valid_until IS NULL OR valid_until >= ?", now).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AddEarnings 累加合作伙伴佣金
func (r *PromoCodeRepository) AddEarnings(ctx context.Context, tx *gorm.DB, id int64, amount float64) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id = ?", id).
		UpdateColumn("total_earnings", gorm.Expr("total_earnings + ?", amount)).Error
}

// AddPaidOut 累加已结算佣金，不允许超过累计收益
func (r *PromoCodeRepository) AddPaidOut(ctx context.Context, tx *gorm.DB, id int64, amount float64) error {
	db := tx
	if db == nil {
		db = r.db
	}
	result := db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id = ? AND total_paid_out + ? <= total_earnings", id, amount).
		UpdateColumn("total_paid_out", gorm.Expr("total_paid_out + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountActive 统计当前启用的优惠码数量
func (r *PromoCodeRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}

// DeactivateExpired 停用有效期已过的优惠码，返回停用数量
func (r *PromoCodeRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("is_active = ?", true).
		Where("valid_until IS NOT NULL AND valid_until < ?", now).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

// ListPartnersWithPendingPayout 获取存在待结算佣金的合作伙伴码
func (r *PromoCodeRepository) ListPartnersWithPendingPayout(ctx context.Context) ([]*models.PromoCode, error) {
	var codes []*models.PromoCode
	err := r.db.WithContext(ctx).
		Where("kind = ?", models.PromoKindPartnerReferral).
		Where("total_earnings > total_paid_out").
		Order("total_earnings - total_paid_out DESC").
		Find(&codes).Error
	return codes, err
}
