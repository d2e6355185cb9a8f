package promo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/zhixinsec/secacademy-backend/internal/common/errors"
	"github.com/zhixinsec/secacademy-backend/internal/common/metrics"
	"github.com/zhixinsec/secacademy-backend/internal/common/utils"
	"github.com/zhixinsec/secacademy-backend/internal/models"
)

// 校验失败原因码。业务规则失败是预期结果而非异常，
// 以结构化结果返回给调用方。
const (
	ReasonNotFound        = "not_found"
	ReasonInactive        = "inactive"
	ReasonNotYetValid     = "not_yet_valid"
	ReasonExpired         = "expired"
	ReasonUsageExceeded   = "usage_exceeded"
	ReasonBelowMinimum    = "below_minimum_order"
	ReasonAlreadyRedeemed = "already_redeemed_by_customer"
	ReasonTamperDetected  = "tamper_detected"
)

// ValidationResult 验券结果
type ValidationResult struct {
	Valid          bool    `json:"valid"`
	Reason         string  `json:"reason,omitempty"`
	Message        string  `json:"message,omitempty"`
	Code           string  `json:"code"`
	Kind           string  `json:"kind,omitempty"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
	MinOrderAmount float64 `json:"min_order_amount,omitempty"`
}

// AppError 将失败结果映射到业务错误码，供 HTTP 层使用
func (r *ValidationResult) AppError() *apperrors.AppError {
	switch r.Reason {
	case ReasonNotFound:
		return apperrors.ErrPromoNotFound
	case ReasonInactive:
		return apperrors.ErrPromoInactive
	case ReasonNotYetValid:
		return apperrors.ErrPromoNotStarted
	case ReasonExpired:
		return apperrors.ErrPromoExpired
	case ReasonUsageExceeded:
		return apperrors.ErrPromoUsageExceeded
	case ReasonBelowMinimum:
		return apperrors.ErrPromoBelowMinimum
	case ReasonAlreadyRedeemed:
		return apperrors.ErrPromoAlreadyRedeemed
	case ReasonTamperDetected:
		return apperrors.ErrPromoTamperDetected
	default:
		return nil
	}
}

// failed 构造失败结果，消息沿用统一错误文案
func failed(codeStr, kind, reason string) *ValidationResult {
	r := &ValidationResult{
		Valid:  false,
		Reason: reason,
		Code:   codeStr,
		Kind:   kind,
	}
	if appErr := r.AppError(); appErr != nil {
		r.Message = appErr.Message
	}
	return r
}

// Validate 验券。只读，不改变任何计数；结果是建议性的，
// 码在 Validate 与 Finalize 之间仍可能失效。
// customerEmail 仅对合作伙伴码的一客一用规则生效，可为空。
func (s *Service) Validate(ctx context.Context, codeStr string, orderAmount float64, customerEmail string) (*ValidationResult, error) {
	normalized := utils.NormalizeCode(codeStr)

	if cached := s.cachedResult(ctx, normalized, orderAmount, customerEmail); cached != nil {
		s.recordValidation(cached)
		return cached, nil
	}

	result, err := s.validate(ctx, normalized, orderAmount, customerEmail, time.Now())
	if err != nil {
		return nil, err
	}

	s.cacheResult(ctx, normalized, orderAmount, customerEmail, result)
	s.recordValidation(result)
	return result, nil
}

// validate 查码后按固定顺序执行规则
func (s *Service) validate(ctx context.Context, normalized string, orderAmount float64, customerEmail string, now time.Time) (*ValidationResult, error) {
	code, err := s.codeRepo.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return failed(normalized, "", ReasonNotFound), nil
		}
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}

	return s.evaluate(ctx, code, orderAmount, customerEmail, now)
}

// evaluate 对已加载的码执行规则检查，命中第一条失败即返回
func (s *Service) evaluate(ctx context.Context, code *models.PromoCode, orderAmount float64, customerEmail string, now time.Time) (*ValidationResult, error) {
	normalized := code.Code

	if !code.IsActive {
		return failed(normalized, code.Kind, ReasonInactive), nil
	}

	if code.ValidFrom != nil && now.Before(*code.ValidFrom) {
		return failed(normalized, code.Kind, ReasonNotYetValid), nil
	}
	if code.ValidUntil != nil && now.After(*code.ValidUntil) {
		return failed(normalized, code.Kind, ReasonExpired), nil
	}

	if code.MaxUses != nil && code.CurrentUses >= *code.MaxUses {
		return failed(normalized, code.Kind, ReasonUsageExceeded), nil
	}

	if orderAmount < code.MinOrderAmount {
		r := failed(normalized, code.Kind, ReasonBelowMinimum)
		r.MinOrderAmount = code.MinOrderAmount
		r.Message = fmt.Sprintf("订单金额未达使用门槛（最低 %.2f）", code.MinOrderAmount)
		return r, nil
	}

	// 合作伙伴码每位客户只能使用一次
	if code.IsPartner() && customerEmail != "" {
		used, err := s.usageRepo.ExistsByCodeAndEmail(ctx, code.ID, customerEmail)
		if err != nil {
			return nil, apperrors.ErrStoreUnavailable.WithError(err)
		}
		if used {
			return failed(normalized, code.Kind, ReasonAlreadyRedeemed), nil
		}
	}

	discount := ComputeDiscount(code.DiscountType, code.DiscountValue, code.MaxDiscount, orderAmount)

	return &ValidationResult{
		Valid:          true,
		Code:           normalized,
		Kind:           code.Kind,
		DiscountAmount: discount,
		FinalAmount:    orderAmount - discount,
	}, nil
}

// recordValidation 上报校验指标
func (s *Service) recordValidation(result *ValidationResult) {
	kind := result.Kind
	if kind == "" {
		kind = "unknown"
	}
	outcome := "valid"
	if !result.Valid {
		outcome = result.Reason
	}
	metrics.GetMetrics().RecordValidation(kind, outcome)
}
