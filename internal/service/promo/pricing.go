// Package promo 提供优惠码核心业务：生成、校验、防篡改复算与核销
package promo

import (
	"github.com/zhixinsec/secacademy-backend/internal/models"
)

// applyRate 百分比/固定金额的统一计算。折扣与佣金共用这一个抽象，
// 两者都是对订单原始金额的独立计算。
func applyRate(rateType string, value, base float64) float64 {
	if rateType == models.DiscountTypePercentage {
		return base * value / 100
	}
	return value
}

// ComputeDiscount 计算折扣金额。百分比折扣可被 maxDiscount 封顶，
// 任何折扣最终都不超过订单金额本身。
func ComputeDiscount(discountType string, value float64, maxDiscount *float64, orderAmount float64) float64 {
	discount := applyRate(discountType, value, orderAmount)

	if discountType == models.DiscountTypePercentage && maxDiscount != nil && discount > *maxDiscount {
		discount = *maxDiscount
	}

	if discount > orderAmount {
		discount = orderAmount
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// ComputeCommission 计算合作伙伴佣金。佣金与用户折扣相互独立，
// 始终按订单原始金额计算，除非负数外没有上限钳制。
func ComputeCommission(commissionType string, value, orderAmount float64) float64 {
	commission := applyRate(commissionType, value, orderAmount)
	if commission < 0 {
		return 0
	}
	return commission
}
