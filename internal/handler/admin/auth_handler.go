package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zhixinsec/secacademy-backend/internal/common/handler"
	"github.com/zhixinsec/secacademy-backend/internal/common/response"
	"github.com/zhixinsec/secacademy-backend/internal/repository"
	authService "github.com/zhixinsec/secacademy-backend/internal/service/auth"
)

// AuthHandler 管理员认证处理器
type AuthHandler struct {
	authService *authService.AuthService
}

// NewAuthHandler 创建管理员认证处理器
func NewAuthHandler(authSvc *authService.AuthService) *AuthHandler {
	return &AuthHandler{authService: authSvc}
}

// Login 管理员登录
// @Summary 管理员登录
// @Tags 管理-认证
// @Accept json
// @Produce json
// @Param request body auth.LoginRequest true "登录请求"
// @Success 200 {object} response.Response{data=auth.LoginResponse}
// @Router /api/v1/admin/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req authService.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	handler.MustSucceed(c, err, resp)
}

// RefreshTokenRequest 刷新令牌请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken 刷新令牌
// @Summary 刷新访问令牌
// @Tags 管理-认证
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "刷新请求"
// @Success 200 {object} response.Response{data=jwt.TokenPair}
// @Router /api/v1/admin/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	pair, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	handler.MustSucceed(c, err, pair)
}

// GetProfile 获取当前管理员信息
// @Summary 获取当前管理员信息
// @Tags 管理-认证
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=auth.AdminInfo}
// @Router /api/v1/admin/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	info, err := h.authService.GetProfile(c.Request.Context(), adminID)
	handler.MustSucceed(c, err, info)
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword 修改当前管理员密码
// @Summary 修改密码
// @Tags 管理-认证
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body ChangePasswordRequest true "修改密码请求"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), adminID, req.OldPassword, req.NewPassword)
	handler.MustSucceed(c, err, nil)
}

// ListOperationLogs 查询操作日志
// @Summary 查询后台操作日志
// @Tags 管理-认证
// @Produce json
// @Security Bearer
// @Param admin_id query int false "操作者 ID"
// @Param action query string false "操作名称，如 promo.create"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/admin/logs [get]
func (h *AuthHandler) ListOperationLogs(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	p := handler.BindPagination(c)
	params := repository.OperationLogListParams{
		Action: c.Query("action"),
		Offset: p.GetOffset(),
		Limit:  p.GetLimit(),
	}
	if raw := c.Query("admin_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "admin_id 参数错误")
			return
		}
		params.AdminID = &id
	}

	logs, total, err := h.authService.ListOperationLogs(c.Request.Context(), params)
	handler.MustSucceedPage(c, err, logs, total, p.Page, p.PageSize)
}
