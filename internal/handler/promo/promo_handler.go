// Package promo 提供优惠码相关的 HTTP Handler
package promo

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zhixinsec/secacademy-backend/internal/common/handler"
	"github.com/zhixinsec/secacademy-backend/internal/common/response"
	promoService "github.com/zhixinsec/secacademy-backend/internal/service/promo"
)

// Handler 优惠码处理器
type Handler struct {
	promoService *promoService.Service
}

// NewHandler 创建优惠码处理器
func NewHandler(svc *promoService.Service) *Handler {
	return &Handler{promoService: svc}
}

// ValidateRequest 验券请求
type ValidateRequest struct {
	Code          string  `json:"code" binding:"required"`
	OrderAmount   float64 `json:"order_amount" binding:"required,gt=0"`
	CustomerEmail string  `json:"customer_email" binding:"omitempty,email"`
}

// ValidateCode 校验优惠码
// @Summary 校验优惠码
// @Description 只读校验，返回可用性与折扣金额，不消耗使用次数
// @Tags 优惠码
// @Accept json
// @Produce json
// @Param request body ValidateRequest true "验券请求"
// @Success 200 {object} response.Response{data=promo.ValidationResult}
// @Router /api/v1/promo/validate [post]
func (h *Handler) ValidateCode(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	result, err := h.promoService.Validate(c.Request.Context(), req.Code, req.OrderAmount, req.CustomerEmail)
	handler.MustSucceed(c, err, result)
}

// RedeemRequest 核销请求
type RedeemRequest struct {
	Code           string  `json:"code" binding:"required"`
	OrderID        string  `json:"order_id" binding:"required,max=64"`
	OrderAmount    float64 `json:"order_amount" binding:"required,gt=0"`
	DiscountAmount float64 `json:"discount_amount"`
	CustomerEmail  string  `json:"customer_email" binding:"omitempty,email"`
}

// RedeemCode 核销优惠码
// @Summary 核销优惠码
// @Description 订单服务在结算时调用，折扣金额由服务端重新计算并比对
// @Tags 优惠码-内部
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body RedeemRequest true "核销请求"
// @Success 200 {object} response.Response{data=promo.RedemptionResult}
// @Router /api/v1/internal/promo/redeem [post]
func (h *Handler) RedeemCode(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	result, err := h.promoService.FinalizeRedemption(c.Request.Context(),
		req.Code, req.OrderID, req.OrderAmount, req.DiscountAmount, req.CustomerEmail)
	handler.MustSucceed(c, err, result)
}

// GetShareInfo 获取优惠码分享信息
// @Summary 获取优惠码分享信息
// @Description 返回分享链接与二维码 Data URL
// @Tags 优惠码
// @Produce json
// @Param code path string true "优惠码"
// @Success 200 {object} response.Response{data=promo.ShareInfo}
// @Router /api/v1/promo/{code}/share [get]
func (h *Handler) GetShareInfo(c *gin.Context) {
	codeStr := c.Param("code")
	if codeStr == "" {
		response.BadRequest(c, "缺少优惠码")
		return
	}

	info, err := h.promoService.ShareInfo(c.Request.Context(), codeStr)
	handler.MustSucceed(c, err, info)
}

// GetShareQRCode 获取优惠码分享二维码图片
// @Summary 获取优惠码分享二维码
// @Tags 优惠码
// @Produce png
// @Param code path string true "优惠码"
// @Param size query int false "图片尺寸（像素）" default(256)
// @Success 200 {file} binary
// @Router /api/v1/promo/{code}/qrcode [get]
func (h *Handler) GetShareQRCode(c *gin.Context) {
	codeStr := c.Param("code")
	if codeStr == "" {
		response.BadRequest(c, "缺少优惠码")
		return
	}

	size := 0
	if v, ok := c.GetQuery("size"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1024 {
			size = n
		}
	}

	png, err := h.promoService.ShareQRCodePNG(c.Request.Context(), codeStr, size)
	if handler.HandleError(c, err) {
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
