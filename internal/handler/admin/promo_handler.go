// Package admin 提供后台管理的 HTTP Handler
package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/zhixinsec/secacademy-backend/internal/common/handler"
	"github.com/zhixinsec/secacademy-backend/internal/common/response"
	promoService "github.com/zhixinsec/secacademy-backend/internal/service/promo"
)

// PromoHandler 优惠码管理处理器
type PromoHandler struct {
	adminService *promoService.AdminService
}

// NewPromoHandler 创建优惠码管理处理器
func NewPromoHandler(adminSvc *promoService.AdminService) *PromoHandler {
	return &PromoHandler{adminService: adminSvc}
}

// CreateCode 创建优惠码
// @Summary 创建优惠码
// @Description 未指定码值时自动生成
// @Tags 管理-优惠码
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body promo.CreateCodeRequest true "创建请求"
// @Success 200 {object} response.Response{data=models.PromoCode}
// @Router /api/v1/admin/promo/codes [post]
func (h *PromoHandler) CreateCode(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	var req promoService.CreateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	code, err := h.adminService.CreateCode(c.Request.Context(), adminID, &req)
	handler.MustSucceed(c, err, code)
}

// BulkGenerate 批量生成优惠码
// @Summary 批量生成优惠码
// @Description 整批共享同一套定义，生成格式为 PR-<前缀>-<随机后缀>
// @Tags 管理-优惠码
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body promo.BulkGenerateRequest true "批量生成请求"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/promo/codes/bulk [post]
func (h *PromoHandler) BulkGenerate(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	var req promoService.BulkGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	codes, err := h.adminService.BulkGenerateCodes(c.Request.Context(), adminID, &req)
	if handler.HandleError(c, err) {
		return
	}

	values := make([]string, 0, len(codes))
	for _, code := range codes {
		values = append(values, code.Code)
	}
	response.Success(c, gin.H{
		"count": len(values),
		"codes": values,
	})
}

// ListCodes 分页查询优惠码
// @Summary 优惠码列表
// @Tags 管理-优惠码
// @Produce json
// @Security Bearer
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Param kind query string false "类型：referral/partner_referral/promo_price"
// @Param is_active query bool false "是否启用"
// @Param keyword query string false "码值或合作伙伴名称关键字"
// @Success 200 {object} response.Response{data=promo.CodeListResponse}
// @Router /api/v1/admin/promo/codes [get]
func (h *PromoHandler) ListCodes(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	p := handler.BindPagination(c)
	req := &promoService.ListCodesRequest{
		Page:     p.Page,
		PageSize: p.PageSize,
		Kind:     c.Query("kind"),
		Keyword:  c.Query("keyword"),
	}
	if v, ok := c.GetQuery("is_active"); ok {
		isActive := v == "true" || v == "1"
		req.IsActive = &isActive
	}

	result, err := h.adminService.ListCodes(c.Request.Context(), req)
	if handler.HandleError(c, err) {
		return
	}
	response.SuccessPage(c, result.List, result.Total, p.Page, p.PageSize)
}

// GetCode 获取优惠码详情
// @Summary 优惠码详情
// @Tags 管理-优惠码
// @Produce json
// @Security Bearer
// @Param id path int true "优惠码ID"
// @Success 200 {object} response.Response{data=models.PromoCode}
// @Router /api/v1/admin/promo/codes/{id} [get]
func (h *PromoHandler) GetCode(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	id, ok := handler.ParseID(c, "优惠码")
	if !ok {
		return
	}

	code, err := h.adminService.GetCode(c.Request.Context(), id)
	handler.MustSucceed(c, err, code)
}

// UpdateCode 更新优惠码
// @Summary 更新优惠码
// @Description 仅更新请求中携带的字段，码值与类型不可变更
// @Tags 管理-优惠码
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "优惠码ID"
// @Param request body promo.UpdateCodeRequest true "更新请求"
// @Success 200 {object} response.Response{data=models.PromoCode}
// @Router /api/v1/admin/promo/codes/{id} [put]
func (h *PromoHandler) UpdateCode(c *gin.Context) {
	adminID, id, ok := handler.RequireAdminAndParseID(c, "优惠码")
	if !ok {
		return
	}

	var req promoService.UpdateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	code, err := h.adminService.UpdateCode(c.Request.Context(), adminID, id, &req)
	handler.MustSucceed(c, err, code)
}

// BulkIDsRequest 批量操作请求
type BulkIDsRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1"`
}

// BulkDelete 批量删除优惠码
// @Summary 批量删除优惠码
// @Tags 管理-优惠码
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body BulkIDsRequest true "优惠码ID列表"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/promo/codes/bulk-delete [post]
func (h *PromoHandler) BulkDelete(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	var req BulkIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	deleted, err := h.adminService.BulkDelete(c.Request.Context(), adminID, req.IDs)
	if handler.HandleError(c, err) {
		return
	}
	response.Success(c, gin.H{"deleted": deleted})
}

// BulkSetActiveRequest 批量启停用请求
type BulkSetActiveRequest struct {
	IDs      []int64 `json:"ids" binding:"required,min=1"`
	IsActive *bool   `json:"is_active" binding:"required"`
}

// BulkSetActive 批量启用或停用优惠码
// @Summary 批量启用/停用优惠码
// @Tags 管理-优惠码
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body BulkSetActiveRequest true "批量启停用请求"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/promo/codes/bulk-active [post]
func (h *PromoHandler) BulkSetActive(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	var req BulkSetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	updated, err := h.adminService.BulkSetActive(c.Request.Context(), adminID, req.IDs, *req.IsActive)
	if handler.HandleError(c, err) {
		return
	}
	response.Success(c, gin.H{"updated": updated})
}

// ListUsages 查询优惠码使用记录
// @Summary 优惠码使用记录
// @Tags 管理-优惠码
// @Produce json
// @Security Bearer
// @Param id path int true "优惠码ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=promo.UsageListResponse}
// @Router /api/v1/admin/promo/codes/{id}/usages [get]
func (h *PromoHandler) ListUsages(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	id, ok := handler.ParseID(c, "优惠码")
	if !ok {
		return
	}

	p := handler.BindPagination(c)
	result, err := h.adminService.ListUsages(c.Request.Context(), id, p.Page, p.PageSize)
	if handler.HandleError(c, err) {
		return
	}
	response.SuccessPage(c, result.List, result.Total, p.Page, p.PageSize)
}

// ListPayouts 查询合作伙伴待结算佣金
// @Summary 合作伙伴待结算列表
// @Tags 管理-佣金结算
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=[]promo.PartnerPayoutItem}
// @Router /api/v1/admin/promo/payouts [get]
func (h *PromoHandler) ListPayouts(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	items, err := h.adminService.ListPartnerPayouts(c.Request.Context())
	handler.MustSucceed(c, err, items)
}

// SettlePayout 结算合作伙伴佣金
// @Summary 结算合作伙伴佣金
// @Description 结算该码当前全部待结算佣金，实际打款由财务流程处理
// @Tags 管理-佣金结算
// @Produce json
// @Security Bearer
// @Param id path int true "优惠码ID"
// @Success 200 {object} response.Response{data=promo.PayoutResult}
// @Router /api/v1/admin/promo/codes/{id}/settle [post]
func (h *PromoHandler) SettlePayout(c *gin.Context) {
	adminID, id, ok := handler.RequireAdminAndParseID(c, "优惠码")
	if !ok {
		return
	}

	result, err := h.adminService.SettlePayout(c.Request.Context(), adminID, id)
	handler.MustSucceed(c, err, result)
}
