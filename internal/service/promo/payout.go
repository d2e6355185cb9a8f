package promo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zhixinsec/secacademy-backend/internal/common/audit"
	apperrors "github.com/zhixinsec/secacademy-backend/internal/common/errors"
	"github.com/zhixinsec/secacademy-backend/internal/common/logger"
	"github.com/zhixinsec/secacademy-backend/pkg/sms"
)

// PartnerPayoutItem 合作伙伴待结算项
type PartnerPayoutItem struct {
	CodeID        int64   `json:"code_id"`
	Code          string  `json:"code"`
	PartnerName   *string `json:"partner_name,omitempty"`
	PartnerEmail  *string `json:"partner_email,omitempty"`
	TotalEarnings float64 `json:"total_earnings"`
	TotalPaidOut  float64 `json:"total_paid_out"`
	PendingPayout float64 `json:"pending_payout"`
}

// ListPartnerPayouts 列出所有存在待结算佣金的合作伙伴码，
// 按待结算金额从高到低排序。待结算金额始终由累计值推导。
func (a *AdminService) ListPartnerPayouts(ctx context.Context) ([]*PartnerPayoutItem, error) {
	codes, err := a.svc.codeRepo.ListPartnersWithPendingPayout(ctx)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}

	items := make([]*PartnerPayoutItem, 0, len(codes))
	for _, c := range codes {
		items = append(items, &PartnerPayoutItem{
			CodeID:        c.ID,
			Code:          c.Code,
			PartnerName:   c.PartnerName,
			PartnerEmail:  c.PartnerEmail,
			TotalEarnings: c.TotalEarnings,
			TotalPaidOut:  c.TotalPaidOut,
			PendingPayout: c.PendingPayout(),
		})
	}
	return items, nil
}

// PayoutResult 结算结果
type PayoutResult struct {
	CodeID     int64   `json:"code_id"`
	Code       string  `json:"code"`
	Amount     float64 `json:"amount"`
	UsageCount int64   `json:"usage_count"`
}

// SettlePayout 结算某个合作伙伴码当前全部待结算佣金。
// 标记使用记录与累计已结算额在同一事务内更新，
// 已结算总额不会超过累计收益。实际打款由外部财务流程处理。
func (a *AdminService) SettlePayout(ctx context.Context, actor int64, codeID int64) (*PayoutResult, error) {
	code, err := a.svc.codeRepo.GetByID(ctx, codeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPromoNotFound
		}
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}
	if !code.IsPartner() {
		return nil, apperrors.ErrInvalidParams.WithMessage("仅合作伙伴码支持佣金结算")
	}

	var (
		amount float64
		marked int64
	)
	now := time.Now()
	err = a.svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unpaid, err := a.svc.usageRepo.ListUnpaidByCode(ctx, tx, codeID)
		if err != nil {
			return err
		}
		if len(unpaid) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(unpaid))
		for _, u := range unpaid {
			ids = append(ids, u.ID)
			amount += u.CommissionEarned
		}

		marked, err = a.svc.usageRepo.MarkPaidOut(ctx, tx, ids, now)
		if err != nil {
			return err
		}
		// 外部结算批次可能与本次结算并发执行。标记数不足说明
		// 部分记录已被别处结算，金额与标记数不再对应，整体回滚。
		if marked != int64(len(ids)) {
			return fmt.Errorf("佣金结算冲突：预期标记 %d 条，实际 %d 条", len(ids), marked)
		}
		return a.svc.codeRepo.AddPaidOut(ctx, tx, codeID, amount)
	})
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}

	result := &PayoutResult{
		CodeID:     codeID,
		Code:       code.Code,
		Amount:     amount,
		UsageCount: marked,
	}
	if amount == 0 {
		return result, nil
	}

	a.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     "promo.payout",
		Resource:   "promo_code",
		ResourceID: code.Code,
		After:      result,
	})
	a.svc.log.Info("合作伙伴佣金已结算",
		logger.AdminID(actor),
		logger.PromoCode(code.Code),
		logger.Float64("amount", amount),
	)
	a.notifyPayout(ctx, code.PartnerPhone, amount)

	return result, nil
}

// notifyPayout 结算后短信通知合作伙伴，失败仅记录日志
func (a *AdminService) notifyPayout(ctx context.Context, phone *string, amount float64) {
	if !a.svc.cfg.NotifyPartner || a.svc.smsSender == nil || phone == nil || *phone == "" {
		return
	}
	err := a.svc.smsSender.Send(ctx, *phone, sms.TemplatePayoutNotify, map[string]string{
		"amount": fmt.Sprintf("%.2f", amount),
	})
	if err != nil {
		a.svc.log.Warn("佣金结算短信发送失败", logger.Err(err))
	}
}
