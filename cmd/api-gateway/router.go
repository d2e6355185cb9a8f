// Package main 是应用程序入口
package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zhixinsec/secacademy-backend/internal/common/audit"
	"github.com/zhixinsec/secacademy-backend/internal/common/config"
	"github.com/zhixinsec/secacademy-backend/internal/common/jwt"
	"github.com/zhixinsec/secacademy-backend/internal/common/metrics"
	adminHandler "github.com/zhixinsec/secacademy-backend/internal/handler/admin"
	promoHandler "github.com/zhixinsec/secacademy-backend/internal/handler/promo"
	"github.com/zhixinsec/secacademy-backend/internal/middleware"
	"github.com/zhixinsec/secacademy-backend/internal/repository"
	authService "github.com/zhixinsec/secacademy-backend/internal/service/auth"
	promoService "github.com/zhixinsec/secacademy-backend/internal/service/promo"
	"github.com/zhixinsec/secacademy-backend/pkg/sms"
)

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
) {
	// 创建 JWT 管理器
	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:            cfg.JWT.Secret,
		AccessExpireTime:  cfg.JWT.AccessTokenDuration(),
		RefreshExpireTime: cfg.JWT.RefreshTokenDuration(),
		Issuer:            cfg.JWT.Issuer,
	})

	// 初始化仓储
	codeRepo := repository.NewPromoCodeRepository(db)
	usageRepo := repository.NewPromoUsageRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	opLogRepo := repository.NewOperationLogRepository(db)

	// 初始化短信发送器
	smsSender := newSMSSender(cfg, logger)

	// 初始化服务
	promoSvc := promoService.NewService(db, codeRepo, usageRepo, &cfg.Promo,
		promoService.WithRedis(redisClient),
		promoService.WithSMSSender(smsSender),
		promoService.WithBaseURL(cfg.Server.BaseURL),
	)
	adminSvc := promoService.NewAdminService(promoSvc, audit.NewDBRecorder(db, logger))
	authSvc := authService.NewAuthService(adminRepo, opLogRepo, jwtManager)

	// 初始部署时创建管理员账号
	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := authSvc.EnsureSeedAdmin(seedCtx, cfg.Admin.SeedUsername, cfg.Admin.SeedPassword); err != nil {
		logger.Warn("初始管理员账号创建失败", zap.Error(err))
	}

	// 初始化处理器
	promoH := promoHandler.NewHandler(promoSvc)
	adminPromoH := adminHandler.NewPromoHandler(adminSvc)
	adminAuthH := adminHandler.NewAuthHandler(authSvc)

	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(corsConfig(cfg)))
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.AccessLog(logger))
	r.Use(metrics.GetMetrics().Middleware())
	if cfg.Tracing.Enabled {
		r.Use(middleware.Tracing(&middleware.TracingConfig{
			ServiceName: cfg.Tracing.ServiceName,
			SkipPaths:   []string{"/health", "/ping", "/ready", "/metrics"},
		}))
	}

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(db, redisClient))

	// 监控指标
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metrics.Handler())
	}

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 路由组
	v1 := r.Group("/api/v1")
	{
		// 公开接口（无需认证）
		public := v1.Group("/promo")
		{
			validate := public.Group("")
			if cfg.RateLimit.Enabled {
				validate.Use(middleware.RateLimit(&middleware.RateLimitConfig{
					RedisClient: redisClient,
					KeyPrefix:   "ratelimit:validate",
					Limit:       cfg.RateLimit.Limit,
					Window:      cfg.RateLimit.WindowDuration(),
				}))
			}
			validate.POST("/validate", promoH.ValidateCode)

			public.GET("/:code/share", promoH.GetShareInfo)
			public.GET("/:code/qrcode", promoH.GetShareQRCode)
		}

		// 内部服务接口（订单服务核销回调）
		internal := v1.Group("/internal")
		internal.Use(middleware.ServiceAuth(jwtManager))
		{
			internal.POST("/promo/redeem", promoH.RedeemCode)
		}

		// 管理后台接口
		admin := v1.Group("/admin")
		{
			admin.POST("/login", adminAuthH.Login)
			admin.POST("/refresh", adminAuthH.RefreshToken)

			adminAuth := admin.Group("")
			adminAuth.Use(middleware.AdminAuth(jwtManager))
			{
				adminAuth.GET("/profile", adminAuthH.GetProfile)
				adminAuth.PUT("/password", adminAuthH.ChangePassword)
				adminAuth.GET("/logs", adminAuthH.ListOperationLogs)

				promo := adminAuth.Group("/promo")
				{
					promo.POST("/codes", adminPromoH.CreateCode)
					promo.GET("/codes", adminPromoH.ListCodes)
					promo.POST("/codes/bulk", adminPromoH.BulkGenerate)
					promo.POST("/codes/bulk-delete", adminPromoH.BulkDelete)
					promo.POST("/codes/bulk-active", adminPromoH.BulkSetActive)
					promo.GET("/codes/:id", adminPromoH.GetCode)
					promo.PUT("/codes/:id", adminPromoH.UpdateCode)
					promo.GET("/codes/:id/usages", adminPromoH.ListUsages)
					promo.POST("/codes/:id/settle", adminPromoH.SettlePayout)
					promo.GET("/payouts", adminPromoH.ListPayouts)
				}
			}
		}
	}

	// 404 处理
	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    404,
			"message": "接口不存在",
		})
	})
}

// newSMSSender 根据配置选择短信通道
func newSMSSender(cfg *config.Config, logger *zap.Logger) sms.Sender {
	if cfg.SMS.Provider == "aliyun" {
		sender, err := sms.NewAliyunSender(&sms.AliyunConfig{
			AccessKeyID:     cfg.SMS.AccessKeyID,
			AccessKeySecret: cfg.SMS.AccessKeySecret,
			SignName:        cfg.SMS.SignName,
		})
		if err != nil {
			logger.Warn("阿里云短信初始化失败，回退到 Mock 通道", zap.Error(err))
			return sms.NewMockSender()
		}
		return sender
	}
	return sms.NewMockSender()
}

// corsConfig 从应用配置构建 CORS 中间件配置
func corsConfig(cfg *config.Config) *middleware.CORSConfig {
	if len(cfg.CORS.AllowedOrigins) == 0 {
		return nil
	}
	return &middleware.CORSConfig{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}
}
