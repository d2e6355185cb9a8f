// Package auth 提供后台管理员认证服务
package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zhixinsec/secacademy-backend/internal/common/crypto"
	apperrors "github.com/zhixinsec/secacademy-backend/internal/common/errors"
	"github.com/zhixinsec/secacademy-backend/internal/common/jwt"
	"github.com/zhixinsec/secacademy-backend/internal/common/logger"
	"github.com/zhixinsec/secacademy-backend/internal/models"
	"github.com/zhixinsec/secacademy-backend/internal/repository"
)

// AuthService 管理员认证服务
type AuthService struct {
	adminRepo  *repository.AdminRepository
	opLogRepo  *repository.OperationLogRepository
	jwtManager *jwt.Manager
	log        *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(adminRepo *repository.AdminRepository, opLogRepo *repository.OperationLogRepository, jwtManager *jwt.Manager) *AuthService {
	return &AuthService{
		adminRepo:  adminRepo,
		opLogRepo:  opLogRepo,
		jwtManager: jwtManager,
		log:        logger.Named("auth"),
	}
}

// LoginRequest 管理员登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Admin     *AdminInfo     `json:"admin"`
	TokenPair *jwt.TokenPair `json:"token"`
}

// AdminInfo 管理员信息
type AdminInfo struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Name        string     `json:"name"`
	Email       *string    `json:"email,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Login 管理员登录
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 不区分用户不存在与密码错误
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}

	if !admin.CheckPassword(req.Password) {
		s.log.Warn("管理员登录失败",
			zap.String("username", req.Username),
		)
		return nil, apperrors.ErrInvalidCredentials
	}

	if !admin.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	tokenPair, err := s.jwtManager.GenerateTokenPair(admin.ID, jwt.UserTypeAdmin, "")
	if err != nil {
		return nil, apperrors.ErrInternalError.WithError(err)
	}

	if err := s.adminRepo.UpdateLastLogin(ctx, admin.ID, time.Now()); err != nil {
		s.log.Warn("更新最近登录时间失败",
			logger.AdminID(admin.ID),
			logger.Err(err),
		)
	}

	s.log.Info("管理员登录成功", logger.AdminID(admin.ID))

	return &LoginResponse{
		Admin:     toAdminInfo(admin),
		TokenPair: tokenPair,
	}, nil
}

// RefreshToken 刷新令牌
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	pair, err := s.jwtManager.RefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.ErrTokenInvalid.WithError(err)
	}
	return pair, nil
}

// ChangePassword 修改当前管理员密码
func (s *AuthService) ChangePassword(ctx context.Context, adminID int64, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.ErrInvalidParams.WithMessage("新密码长度不能少于 8 位")
	}

	admin, err := s.adminRepo.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return apperrors.ErrStoreUnavailable.WithError(err)
	}

	if !admin.CheckPassword(oldPassword) {
		return apperrors.ErrInvalidCredentials.WithMessage("原密码错误")
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return apperrors.ErrInternalError.WithError(err)
	}
	if err := s.adminRepo.UpdatePassword(ctx, adminID, hash); err != nil {
		return apperrors.ErrStoreUnavailable.WithError(err)
	}

	s.log.Info("管理员密码已修改", logger.AdminID(adminID))
	return nil
}

// GetProfile 获取当前管理员信息
func (s *AuthService) GetProfile(ctx context.Context, adminID int64) (*AdminInfo, error) {
	admin, err := s.adminRepo.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}
	return toAdminInfo(admin), nil
}

// EnsureSeedAdmin 首次部署时创建初始管理员账号。
// 未配置初始密码时随机生成并打印到日志，要求首次登录后修改。
func (s *AuthService) EnsureSeedAdmin(ctx context.Context, username, password string) error {
	count, err := s.adminRepo.Count(ctx)
	if err != nil {
		return apperrors.ErrStoreUnavailable.WithError(err)
	}
	if count > 0 {
		return nil
	}

	if username == "" {
		username = "admin"
	}
	if password == "" {
		password, err = crypto.GenerateRandomString(16)
		if err != nil {
			return apperrors.ErrInternalError.WithError(err)
		}
		s.log.Warn("未配置初始管理员密码，已随机生成",
			zap.String("username", username),
			zap.String("password", password),
		)
	}

	admin := &models.Admin{
		Username: username,
		Name:     "系统管理员",
		IsActive: true,
	}
	if err := admin.SetPassword(password); err != nil {
		return apperrors.ErrInternalError.WithError(err)
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return apperrors.ErrStoreUnavailable.WithError(err)
	}

	s.log.Info("初始管理员账号已创建", zap.String("username", username))
	return nil
}

// ListOperationLogs 分页查询后台操作日志
func (s *AuthService) ListOperationLogs(ctx context.Context, params repository.OperationLogListParams) ([]*models.OperationLog, int64, error) {
	logs, total, err := s.opLogRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperrors.ErrStoreUnavailable.WithError(err)
	}
	return logs, total, nil
}

func toAdminInfo(admin *models.Admin) *AdminInfo {
	return &AdminInfo{
		ID:          admin.ID,
		Username:    admin.Username,
		Name:        admin.Name,
		Email:       admin.Email,
		LastLoginAt: admin.LastLoginAt,
	}
}
