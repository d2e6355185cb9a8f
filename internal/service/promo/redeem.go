package promo

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/zhixinsec/secacademy-backend/internal/common/crypto"
	apperrors "github.com/zhixinsec/secacademy-backend/internal/common/errors"
	"github.com/zhixinsec/secacademy-backend/internal/common/logger"
	"github.com/zhixinsec/secacademy-backend/internal/common/metrics"
	"github.com/zhixinsec/secacademy-backend/internal/common/utils"
	"github.com/zhixinsec/secacademy-backend/internal/models"
)

// RedemptionResult 核销结果
type RedemptionResult struct {
	Redeemed         bool    `json:"redeemed"`
	Reason           string  `json:"reason,omitempty"`
	Message          string  `json:"message,omitempty"`
	Code             string  `json:"code"`
	Kind             string  `json:"kind,omitempty"`
	OrderID          string  `json:"order_id"`
	DiscountAmount   float64 `json:"discount_amount"`
	FinalAmount      float64 `json:"final_amount"`
	CommissionEarned float64 `json:"commission_earned,omitempty"`
}

// AppError 将失败结果映射到业务错误码
func (r *RedemptionResult) AppError() *apperrors.AppError {
	v := ValidationResult{Reason: r.Reason}
	return v.AppError()
}

func redeemFailed(codeStr, kind, orderID, reason string) *RedemptionResult {
	r := &RedemptionResult{
		Redeemed: false,
		Reason:   reason,
		Code:     codeStr,
		Kind:     kind,
		OrderID:  orderID,
	}
	if appErr := r.AppError(); appErr != nil {
		r.Message = appErr.Message
	}
	return r
}

// FinalizeRedemption 核销优惠码。服务端重新计算折扣并与客户端声明值比对，
// 超出容差视为篡改，直接拒绝且不消耗次数。通过比对后在单个事务内以条件
// 更新扣减次数：条件不满足时零行受影响，返回次数已用尽，绝不读改写。
// 每个订单只核销一次，重复提交同一 orderID 返回已核销结果。
func (s *Service) FinalizeRedemption(ctx context.Context, codeStr, orderID string, orderAmount, claimedDiscount float64, customerEmail string) (*RedemptionResult, error) {
	normalized := utils.NormalizeCode(codeStr)
	now := time.Now()

	existing, err := s.usageRepo.GetByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}
	if existing != nil {
		r := redeemFailed(normalized, "", orderID, ReasonAlreadyRedeemed)
		r.Message = "该订单已核销过优惠码"
		return r, nil
	}

	code, err := s.codeRepo.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return redeemFailed(normalized, "", orderID, ReasonNotFound), nil
		}
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}

	check, err := s.evaluate(ctx, code, orderAmount, customerEmail, now)
	if err != nil {
		return nil, err
	}
	if !check.Valid {
		s.recordRedemption(code.Kind, check.Reason)
		return redeemFailed(normalized, code.Kind, orderID, check.Reason), nil
	}

	// 服务端重算折扣，客户端声明值仅用于比对
	discount := check.DiscountAmount
	if math.Abs(claimedDiscount-discount) > s.tamperTolerance() {
		metrics.GetMetrics().RecordTamperCheck("mismatch")
		s.recordRedemption(code.Kind, ReasonTamperDetected)
		s.log.Warn("优惠码折扣声明值与服务端计算不一致",
			logger.PromoCode(normalized),
			logger.OrderID(orderID),
			logger.Float64("claimed", claimedDiscount),
			logger.Float64("computed", discount),
		)
		r := redeemFailed(normalized, code.Kind, orderID, ReasonTamperDetected)
		r.DiscountAmount = 0
		r.FinalAmount = orderAmount
		return r, nil
	}
	metrics.GetMetrics().RecordTamperCheck("ok")

	commission := 0.0
	if code.IsPartner() && code.CommissionType != nil && code.CommissionValue != nil {
		commission = ComputeCommission(*code.CommissionType, *code.CommissionValue, orderAmount)
	}

	exhausted := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.codeRepo.RedeemOnce(ctx, tx, code.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			exhausted = true
			return nil
		}

		usage := &models.PromoUsage{
			CodeID:           code.ID,
			OrderID:          orderID,
			OriginalAmount:   orderAmount,
			DiscountApplied:  discount,
			FinalAmount:      orderAmount - discount,
			CommissionEarned: commission,
		}
		if customerEmail != "" {
			usage.CustomerEmail = &customerEmail
		}
		if err := s.usageRepo.Create(ctx, tx, usage); err != nil {
			return err
		}

		if commission > 0 {
			if err := s.codeRepo.AddEarnings(ctx, tx, code.ID, commission); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}
	if exhausted {
		s.recordRedemption(code.Kind, ReasonUsageExceeded)
		return redeemFailed(normalized, code.Kind, orderID, ReasonUsageExceeded), nil
	}

	s.invalidateCache(ctx, normalized)
	s.recordRedemption(code.Kind, "redeemed")
	s.log.Info("优惠码核销成功",
		logger.PromoCode(normalized),
		logger.OrderID(orderID),
		logger.Float64("discount", discount),
		logger.Float64("commission", commission),
	)

	if commission > 0 {
		s.notifyPartner(ctx, code, orderID, commission)
	}

	return &RedemptionResult{
		Redeemed:         true,
		Code:             normalized,
		Kind:             code.Kind,
		OrderID:          orderID,
		DiscountAmount:   discount,
		FinalAmount:      orderAmount - discount,
		CommissionEarned: commission,
	}, nil
}

func (s *Service) tamperTolerance() float64 {
	if s.cfg.TamperTolerance > 0 {
		return s.cfg.TamperTolerance
	}
	return 1.0
}

// notifyPartner 核销后短信通知合作伙伴，失败仅记录日志不影响核销结果
func (s *Service) notifyPartner(ctx context.Context, code *models.PromoCode, orderID string, commission float64) {
	if !s.cfg.NotifyPartner || s.smsSender == nil || code.PartnerPhone == nil || *code.PartnerPhone == "" {
		return
	}
	if err := s.smsSender.SendPartnerRedemption(ctx, *code.PartnerPhone, code.Code, orderID, commission); err != nil {
		s.log.Warn("合作伙伴核销短信发送失败",
			logger.PromoCode(code.Code),
			logger.String("phone", crypto.MaskPhone(*code.PartnerPhone)),
			logger.Err(err),
		)
	}
}

func (s *Service) recordRedemption(kind, outcome string) {
	if kind == "" {
		kind = "unknown"
	}
	metrics.GetMetrics().RecordRedemption(kind, outcome)
}
