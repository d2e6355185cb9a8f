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
	"github.com/zhixinsec/secacademy-backend/internal/common/metrics"
	"github.com/zhixinsec/secacademy-backend/internal/common/utils"
	"github.com/zhixinsec/secacademy-backend/internal/models"
	"github.com/zhixinsec/secacademy-backend/internal/repository"
)

// AdminService 优惠码后台管理服务
type AdminService struct {
	svc     *Service
	auditor audit.Recorder
}

// NewAdminService 创建后台管理服务，auditor 为 nil 时不产出审计事件
func NewAdminService(svc *Service, auditor audit.Recorder) *AdminService {
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &AdminService{svc: svc, auditor: auditor}
}

// CodeDefinition 优惠码定义字段，创建与批量生成共用
type CodeDefinition struct {
	Kind            string     `json:"kind" binding:"required"`
	Description     *string    `json:"description"`
	DiscountType    string     `json:"discount_type" binding:"required"`
	DiscountValue   float64    `json:"discount_value" binding:"required"`
	MaxDiscount     *float64   `json:"max_discount"`
	MinOrderAmount  float64    `json:"min_order_amount"`
	MaxUses         *int       `json:"max_uses"`
	ValidFrom       *time.Time `json:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until"`
	PartnerName     *string    `json:"partner_name"`
	PartnerEmail    *string    `json:"partner_email"`
	PartnerPhone    *string    `json:"partner_phone"`
	CommissionType  *string    `json:"commission_type"`
	CommissionValue *float64   `json:"commission_value"`
}

// CreateCodeRequest 创建优惠码请求。Code 为空时自动生成
type CreateCodeRequest struct {
	CodeDefinition
	Code     string `json:"code"`
	IsActive *bool  `json:"is_active"`
}

// BulkGenerateRequest 批量生成请求，生成的码共享同一套定义
type BulkGenerateRequest struct {
	CodeDefinition
	Count  int    `json:"count" binding:"required,min=1"`
	Prefix string `json:"prefix"`
}

func validKind(kind string) bool {
	switch kind {
	case models.PromoKindReferral, models.PromoKindPartnerReferral, models.PromoKindPromoPrice:
		return true
	}
	return false
}

func validRateType(t string) bool {
	return t == models.DiscountTypePercentage || t == models.DiscountTypeFixed
}

// validateDefinition 校验码定义的完整性与一致性
func validateDefinition(def *CodeDefinition) error {
	if !validKind(def.Kind) {
		return apperrors.ErrPromoInvalidDefinition.WithMessage(fmt.Sprintf("未知的优惠码类型：%s", def.Kind))
	}
	if !validRateType(def.DiscountType) {
		return apperrors.ErrPromoInvalidDefinition.WithMessage(fmt.Sprintf("未知的折扣类型：%s", def.DiscountType))
	}
	if def.DiscountValue <= 0 {
		return apperrors.ErrPromoInvalidDefinition.WithMessage("折扣值必须大于 0")
	}
	if def.DiscountType == models.DiscountTypePercentage && def.DiscountValue > 100 {
		return apperrors.ErrPromoInvalidDefinition.WithMessage("百分比折扣不能超过 100")
	}
	if def.MaxDiscount != nil {
		if def.DiscountType != models.DiscountTypePercentage {
			return apperrors.ErrPromoInvalidDefinition.WithMessage("折扣上限仅适用于百分比折扣")
		}
		if *def.MaxDiscount <= 0 {
			return apperrors.ErrPromoInvalidDefinition.WithMessage("折扣上限必须大于 0")
		}
	}
	if def.MinOrderAmount < 0 {
		return apperrors.ErrPromoInvalidDefinition.WithMessage("最低订单金额不能为负")
	}
	if def.MaxUses != nil && *def.MaxUses <= 0 {
		return apperrors.ErrPromoInvalidDefinition.WithMessage("使用次数上限必须大于 0")
	}
	if def.ValidFrom != nil && def.ValidUntil != nil && def.ValidUntil.Before(*def.ValidFrom) {
		return apperrors.ErrPromoInvalidDefinition.WithMessage("有效期结束时间早于开始时间")
	}

	if def.Kind == models.PromoKindPartnerReferral {
		if def.CommissionType == nil || def.CommissionValue == nil {
			return apperrors.ErrPromoInvalidDefinition.WithMessage("合作伙伴码必须配置佣金类型与佣金值")
		}
		if !validRateType(*def.CommissionType) {
			return apperrors.ErrPromoInvalidDefinition.WithMessage(fmt.Sprintf("未知的佣金类型：%s", *def.CommissionType))
		}
		if *def.CommissionValue <= 0 {
			return apperrors.ErrPromoInvalidDefinition.WithMessage("佣金值必须大于 0")
		}
		if *def.CommissionType == models.DiscountTypePercentage && *def.CommissionValue > 100 {
			return apperrors.ErrPromoInvalidDefinition.WithMessage("百分比佣金不能超过 100")
		}
	} else if def.CommissionType != nil || def.CommissionValue != nil {
		return apperrors.ErrPromoInvalidDefinition.WithMessage("仅合作伙伴码可配置佣金")
	}

	return nil
}

func (def *CodeDefinition) toModel() *models.PromoCode {
	return &models.PromoCode{
		Kind:            def.Kind,
		Description:     def.Description,
		DiscountType:    def.DiscountType,
		DiscountValue:   def.DiscountValue,
		MaxDiscount:     def.MaxDiscount,
		MinOrderAmount:  def.MinOrderAmount,
		MaxUses:         def.MaxUses,
		ValidFrom:       def.ValidFrom,
		ValidUntil:      def.ValidUntil,
		IsActive:        true,
		PartnerName:     def.PartnerName,
		PartnerEmail:    def.PartnerEmail,
		PartnerPhone:    def.PartnerPhone,
		CommissionType:  def.CommissionType,
		CommissionValue: def.CommissionValue,
	}
}

// CreateCode 创建优惠码。未指定码值时自动生成，带重试的唯一性保证
func (a *AdminService) CreateCode(ctx context.Context, actor int64, req *CreateCodeRequest) (*models.PromoCode, error) {
	if err := validateDefinition(&req.CodeDefinition); err != nil {
		return nil, err
	}

	code := req.CodeDefinition.toModel()
	if req.IsActive != nil {
		code.IsActive = *req.IsActive
	}

	if req.Code != "" {
		normalized := utils.NormalizeCode(req.Code)
		exists, err := a.svc.codeRepo.ExistsByCode(ctx, normalized)
		if err != nil {
			return nil, apperrors.ErrStoreUnavailable.WithError(err)
		}
		if exists {
			return nil, apperrors.ErrPromoDuplicateCode
		}
		code.Code = normalized
	} else {
		generated, err := a.svc.generator.Generate(ctx, a.svc.cfg.SingleMaxAttempts)
		if err != nil {
			return nil, err
		}
		code.Code = generated
	}

	// 并发创建同一码值时，预检查可能双双通过，
	// 最终由唯一索引兜底，统一映射为重复码错误
	if err := a.svc.codeRepo.Create(ctx, code); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrPromoDuplicateCode
		}
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}

	metrics.GetMetrics().RecordCodeGenerated(code.Kind)
	a.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     "promo.create",
		Resource:   "promo_code",
		ResourceID: code.Code,
		After:      code,
	})
	a.svc.log.Info("优惠码已创建",
		logger.AdminID(actor),
		logger.PromoCode(code.Code),
		logger.String("kind", code.Kind),
	)
	return code, nil
}

// BulkGenerateCodes 批量生成优惠码。整批在单个事务内写入，
// 任何一个码生成失败则整批回滚。
func (a *AdminService) BulkGenerateCodes(ctx context.Context, actor int64, req *BulkGenerateRequest) ([]*models.PromoCode, error) {
	if err := validateDefinition(&req.CodeDefinition); err != nil {
		return nil, err
	}
	limit := a.svc.cfg.BulkGenerateLimit
	if limit <= 0 {
		limit = 10
	}
	if req.Count < 1 || req.Count > limit {
		return nil, apperrors.ErrInvalidParams.WithMessage(fmt.Sprintf("生成数量须在 1 到 %d 之间", limit))
	}

	codes := make([]*models.PromoCode, 0, req.Count)
	err := a.svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := repository.NewPromoCodeRepository(tx)
		gen := NewGenerator(txRepo, a.svc.cfg.CodeLength, a.svc.cfg.SuffixLength)

		for i := 0; i < req.Count; i++ {
			// 仅合作伙伴码使用带前缀的分段格式
			var value string
			var err error
			if req.Kind == models.PromoKindPartnerReferral {
				value, err = gen.GenerateWithPrefix(ctx, req.Prefix, a.svc.cfg.BulkMaxAttempts)
			} else {
				value, err = gen.Generate(ctx, a.svc.cfg.BulkMaxAttempts)
			}
			if err != nil {
				return err
			}
			code := req.CodeDefinition.toModel()
			code.Code = value
			if err := txRepo.Create(ctx, code); err != nil {
				return err
			}
			codes = append(codes, code)
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}

	for range codes {
		metrics.GetMetrics().RecordCodeGenerated(req.Kind)
	}
	a.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     "promo.bulk_generate",
		Resource:   "promo_code",
		ResourceID: fmt.Sprintf("count=%d", len(codes)),
		After:      codeValues(codes),
	})
	a.svc.log.Info("批量生成优惠码完成",
		logger.AdminID(actor),
		logger.Int("count", len(codes)),
		logger.String("kind", req.Kind),
	)
	return codes, nil
}

func codeValues(codes []*models.PromoCode) []string {
	values := make([]string, 0, len(codes))
	for _, c := range codes {
		values = append(values, c.Code)
	}
	return values
}

// UpdateCodeRequest 更新优惠码请求，仅更新非 nil 字段
type UpdateCodeRequest struct {
	Description     *string    `json:"description"`
	DiscountType    *string    `json:"discount_type"`
	DiscountValue   *float64   `json:"discount_value"`
	MaxDiscount     *float64   `json:"max_discount"`
	MinOrderAmount  *float64   `json:"min_order_amount"`
	MaxUses         *int       `json:"max_uses"`
	ValidFrom       *time.Time `json:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until"`
	IsActive        *bool      `json:"is_active"`
	PartnerName     *string    `json:"partner_name"`
	PartnerEmail    *string    `json:"partner_email"`
	PartnerPhone    *string    `json:"partner_phone"`
	CommissionType  *string    `json:"commission_type"`
	CommissionValue *float64   `json:"commission_value"`
}

// UpdateCode 更新优惠码定义。码值与类型不可变更；
// 更新后的完整定义须重新通过一致性校验。
func (a *AdminService) UpdateCode(ctx context.Context, actor int64, id int64, req *UpdateCodeRequest) (*models.PromoCode, error) {
	code, err := a.svc.codeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPromoNotFound
		}
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}
	before := *code

	fields := map[string]interface{}{}
	if req.Description != nil {
		code.Description = req.Description
		fields["description"] = *req.Description
	}
	if req.DiscountType != nil {
		code.DiscountType = *req.DiscountType
		fields["discount_type"] = *req.DiscountType
	}
	if req.DiscountValue != nil {
		code.DiscountValue = *req.DiscountValue
		fields["discount_value"] = *req.DiscountValue
	}
	if req.MaxDiscount != nil {
		code.MaxDiscount = req.MaxDiscount
		fields["max_discount"] = *req.MaxDiscount
	}
	if req.MinOrderAmount != nil {
		code.MinOrderAmount = *req.MinOrderAmount
		fields["min_order_amount"] = *req.MinOrderAmount
	}
	if req.MaxUses != nil {
		code.MaxUses = req.MaxUses
		fields["max_uses"] = *req.MaxUses
	}
	if req.ValidFrom != nil {
		code.ValidFrom = req.ValidFrom
		fields["valid_from"] = *req.ValidFrom
	}
	if req.ValidUntil != nil {
		code.ValidUntil = req.ValidUntil
		fields["valid_until"] = *req.ValidUntil
	}
	if req.IsActive != nil {
		code.IsActive = *req.IsActive
		fields["is_active"] = *req.IsActive
	}
	if req.PartnerName != nil {
		code.PartnerName = req.PartnerName
		fields["partner_name"] = *req.PartnerName
	}
	if req.PartnerEmail != nil {
		code.PartnerEmail = req.PartnerEmail
		fields["partner_email"] = *req.PartnerEmail
	}
	if req.PartnerPhone != nil {
		code.PartnerPhone = req.PartnerPhone
		fields["partner_phone"] = *req.PartnerPhone
	}
	if req.CommissionType != nil {
		code.CommissionType = req.CommissionType
		fields["commission_type"] = *req.CommissionType
	}
	if req.CommissionValue != nil {
		code.CommissionValue = req.CommissionValue
		fields["commission_value"] = *req.CommissionValue
	}
	if len(fields) == 0 {
		return code, nil
	}

	def := &CodeDefinition{
		Kind:            code.Kind,
		Description:     code.Description,
		DiscountType:    code.DiscountType,
		DiscountValue:   code.DiscountValue,
		MaxDiscount:     code.MaxDiscount,
		MinOrderAmount:  code.MinOrderAmount,
		MaxUses:         code.MaxUses,
		ValidFrom:       code.ValidFrom,
		ValidUntil:      code.ValidUntil,
		PartnerName:     code.PartnerName,
		PartnerEmail:    code.PartnerEmail,
		PartnerPhone:    code.PartnerPhone,
		CommissionType:  code.CommissionType,
		CommissionValue: code.CommissionValue,
	}
	if err := validateDefinition(def); err != nil {
		return nil, err
	}

	if err := a.svc.codeRepo.UpdateFields(ctx, id, fields); err != nil {
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}

	a.svc.invalidateCache(ctx, code.Code)
	a.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     "promo.update",
		Resource:   "promo_code",
		ResourceID: code.Code,
		Before:     &before,
		After:      code,
	})
	return code, nil
}

// BulkDelete 批量删除优惠码，返回实际删除数量
func (a *AdminService) BulkDelete(ctx context.Context, actor int64, ids []int64) (int64, error) {
	if err := a.checkBulkLimit(ids); err != nil {
		return 0, err
	}

	values := a.collectCodeValues(ctx, ids)
	deleted, err := a.svc.codeRepo.BulkDelete(ctx, ids)
	if err != nil {
		return 0, apperrors.ErrStoreUnavailable.WithError(err)
	}

	for _, v := range values {
		a.svc.invalidateCache(ctx, v)
	}
	a.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     "promo.bulk_delete",
		Resource:   "promo_code",
		ResourceID: fmt.Sprintf("count=%d", deleted),
		Before:     values,
	})
	return deleted, nil
}

// BulkSetActive 批量启用或停用优惠码，返回实际更新数量
func (a *AdminService) BulkSetActive(ctx context.Context, actor int64, ids []int64, isActive bool) (int64, error) {
	if err := a.checkBulkLimit(ids); err != nil {
		return 0, err
	}

	updated, err := a.svc.codeRepo.BulkSetActive(ctx, ids, isActive)
	if err != nil {
		return 0, apperrors.ErrStoreUnavailable.WithError(err)
	}

	for _, v := range a.collectCodeValues(ctx, ids) {
		a.svc.invalidateCache(ctx, v)
	}
	action := "promo.bulk_deactivate"
	if isActive {
		action = "promo.bulk_activate"
	}
	a.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     action,
		Resource:   "promo_code",
		ResourceID: fmt.Sprintf("count=%d", updated),
	})
	return updated, nil
}

func (a *AdminService) checkBulkLimit(ids []int64) error {
	if len(ids) == 0 {
		return apperrors.ErrInvalidParams.WithMessage("未指定优惠码")
	}
	limit := a.svc.cfg.BulkOperationLimit
	if limit <= 0 {
		limit = 100
	}
	if len(ids) > limit {
		return apperrors.ErrInvalidParams.WithMessage(fmt.Sprintf("单次批量操作最多 %d 条", limit))
	}
	return nil
}

func (a *AdminService) collectCodeValues(ctx context.Context, ids []int64) []string {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		code, err := a.svc.codeRepo.GetByID(ctx, id)
		if err != nil {
			continue
		}
		values = append(values, code.Code)
	}
	return values
}

// ListCodesRequest 优惠码列表查询请求
type ListCodesRequest struct {
	Page     int
	PageSize int
	Kind     string
	IsActive *bool
	Keyword  string
}

// CodeListItem 优惠码列表项
type CodeListItem struct {
	ID             int64      `json:"id"`
	Code           string     `json:"code"`
	Kind           string     `json:"kind"`
	Description    *string    `json:"description,omitempty"`
	DiscountType   string     `json:"discount_type"`
	DiscountValue  float64    `json:"discount_value"`
	MaxDiscount    *float64   `json:"max_discount,omitempty"`
	MinOrderAmount float64    `json:"min_order_amount"`
	MaxUses        *int       `json:"max_uses,omitempty"`
	CurrentUses    int        `json:"current_uses"`
	ValidFrom      *time.Time `json:"valid_from,omitempty"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	IsActive       bool       `json:"is_active"`
	PartnerName    *string    `json:"partner_name,omitempty"`
	TotalEarnings  float64    `json:"total_earnings,omitempty"`
	PendingPayout  float64    `json:"pending_payout,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CodeListResponse 优惠码列表响应
type CodeListResponse struct {
	List  []*CodeListItem `json:"list"`
	Total int64           `json:"total"`
}

// ListCodes 分页查询优惠码
func (a *AdminService) ListCodes(ctx context.Context, req *ListCodesRequest) (*CodeListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	codes, total, err := a.svc.codeRepo.List(ctx, repository.PromoCodeListParams{
		Offset:   (req.Page - 1) * req.PageSize,
		Limit:    req.PageSize,
		Kind:     req.Kind,
		IsActive: req.IsActive,
		Keyword:  req.Keyword,
	})
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}

	list := make([]*CodeListItem, 0, len(codes))
	for _, c := range codes {
		list = append(list, toListItem(c))
	}
	return &CodeListResponse{List: list, Total: total}, nil
}

func toListItem(c *models.PromoCode) *CodeListItem {
	return &CodeListItem{
		ID:             c.ID,
		Code:           c.Code,
		Kind:           c.Kind,
		Description:    c.Description,
		DiscountType:   c.DiscountType,
		DiscountValue:  c.DiscountValue,
		MaxDiscount:    c.MaxDiscount,
		MinOrderAmount: c.MinOrderAmount,
		MaxUses:        c.MaxUses,
		CurrentUses:    c.CurrentUses,
		ValidFrom:      c.ValidFrom,
		ValidUntil:     c.ValidUntil,
		IsActive:       c.IsActive,
		PartnerName:    c.PartnerName,
		TotalEarnings:  c.TotalEarnings,
		PendingPayout:  c.PendingPayout(),
		CreatedAt:      c.CreatedAt,
	}
}

// GetCode 获取优惠码详情
func (a *AdminService) GetCode(ctx context.Context, id int64) (*models.PromoCode, error) {
	code, err := a.svc.codeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPromoNotFound
		}
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}
	return code, nil
}

// UsageListResponse 使用记录列表响应
type UsageListResponse struct {
	List  []*models.PromoUsage `json:"list"`
	Total int64                `json:"total"`
}

// ListUsages 分页查询优惠码使用记录
func (a *AdminService) ListUsages(ctx context.Context, codeID int64, page, pageSize int) (*UsageListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	usages, total, err := a.svc.usageRepo.ListByCode(ctx, codeID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}
	return &UsageListResponse{List: usages, Total: total}, nil
}
