package models

import (
	"time"
)

// PromoCode 优惠码模型，三种类型共用一张表和一个唯一性域
type PromoCode struct {
	ID             int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Code           string   `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Kind           string   `gorm:"type:varchar(20);not null;index" json:"kind"`
	Description    *string  `gorm:"type:varchar(255)" json:"description,omitempty"`
	DiscountType   string   `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue  float64  `gorm:"type:decimal(10,2);not null" json:"discount_value"`
	MaxDiscount    *float64 `gorm:"type:decimal(10,2)" json:"max_discount,omitempty"`
	MinOrderAmount float64  `gorm:"type:decimal(10,2);not null;default:0" json:"min_order_amount"`
	MaxUses        *int     `json:"max_uses,omitempty"`
	CurrentUses    int      `gorm:"not null;default:0" json:"current_uses"`
	ValidFrom      *time.Time `json:"valid_from,omitempty"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`

	// 合作伙伴码专用字段
	PartnerName     *string  `gorm:"type:varchar(100)" json:"partner_name,omitempty"`
	PartnerEmail    *string  `gorm:"type:varchar(255)" json:"partner_email,omitempty"`
	PartnerPhone    *string  `gorm:"type:varchar(30)" json:"partner_phone,omitempty"`
	CommissionType  *string  `gorm:"type:varchar(20)" json:"commission_type,omitempty"`
	CommissionValue *float64 `gorm:"type:decimal(10,2)" json:"commission_value,omitempty"`
	TotalEarnings   float64  `gorm:"type:decimal(12,2);not null;default:0" json:"total_earnings"`
	TotalPaidOut    float64  `gorm:"type:decimal(12,2);not null;default:0" json:"total_paid_out"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Usages []PromoUsage `gorm:"foreignKey:CodeID" json:"usages,omitempty"`
}

// TableName 表名
func (PromoCode) TableName() string {
	return "promo_codes"
}

// PendingPayout 待结算佣金，始终由累计值推导，不单独持久化
func (c *PromoCode) PendingPayout() float64 {
	return c.TotalEarnings - c.TotalPaidOut
}

// IsPartner 是否为合作伙伴码
func (c *PromoCode) IsPartner() bool {
	return c.Kind == PromoKindPartnerReferral
}

// PromoKind 优惠码类型
const (
	PromoKindReferral        = "referral"         // 普通推荐码
	PromoKindPartnerReferral = "partner_referral" // 合作伙伴推荐码（含佣金）
	PromoKindPromoPrice      = "promo_price"      // 临时促销价码
)

// DiscountType 折扣类型
const (
	DiscountTypePercentage = "percentage" // 百分比折扣
	DiscountTypeFixed      = "fixed"      // 固定金额
)

// PromoUsage 优惠码核销记录，一次成功核销对应一行
type PromoUsage struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CodeID           int64      `gorm:"index;not null" json:"code_id"`
	OrderID          string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_id"`
	CustomerEmail    *string    `gorm:"type:varchar(255);index" json:"customer_email,omitempty"`
	OriginalAmount   float64    `gorm:"type:decimal(12,2);not null" json:"original_amount"`
	DiscountApplied  float64    `gorm:"type:decimal(12,2);not null" json:"discount_applied"`
	FinalAmount      float64    `gorm:"type:decimal(12,2);not null" json:"final_amount"`
	CommissionEarned float64    `gorm:"type:decimal(12,2);not null;default:0" json:"commission_earned"`
	IsPaidOut        bool       `gorm:"not null;default:false" json:"is_paid_out"`
	PaidOutAt        *time.Time `json:"paid_out_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`

	// 关联
	Code *PromoCode `gorm:"foreignKey:CodeID" json:"code,omitempty"`
}

// TableName 表名
func (PromoUsage) TableName() string {
	return "promo_usages"
}
