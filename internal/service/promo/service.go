package promo

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zhixinsec/secacademy-backend/internal/common/config"
	"github.com/zhixinsec/secacademy-backend/internal/common/logger"
	"github.com/zhixinsec/secacademy-backend/internal/repository"
	"github.com/zhixinsec/secacademy-backend/pkg/sms"
)

// Service 优惠码校验与核销服务
type Service struct {
	db        *gorm.DB
	codeRepo  *repository.PromoCodeRepository
	usageRepo *repository.PromoUsageRepository
	generator *Generator
	cfg       *config.PromoConfig
	redis     *redis.Client
	smsSender sms.Sender
	baseURL   string
	log       *zap.Logger
}

// Option 服务可选依赖
type Option func(*Service)

// WithRedis 启用 Redis 验券结果缓存
func WithRedis(client *redis.Client) Option {
	return func(s *Service) {
		s.redis = client
	}
}

// WithSMSSender 启用合作伙伴核销短信通知
func WithSMSSender(sender sms.Sender) Option {
	return func(s *Service) {
		s.smsSender = sender
	}
}

// WithLogger 指定日志器
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// NewService 创建优惠码服务
func NewService(db *gorm.DB, codeRepo *repository.PromoCodeRepository, usageRepo *repository.PromoUsageRepository, cfg *config.PromoConfig, opts ...Option) *Service {
	if cfg == nil {
		cfg = &config.PromoConfig{
			TamperTolerance:   1.0,
			CodeLength:        8,
			SuffixLength:      6,
			SingleMaxAttempts: 10,
			BulkMaxAttempts:   20,
		}
	}
	s := &Service{
		db:        db,
		codeRepo:  codeRepo,
		usageRepo: usageRepo,
		generator: NewGenerator(codeRepo, cfg.CodeLength, cfg.SuffixLength),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.GetLogger()
	}
	return s
}

// Generator 返回服务使用的码生成器
func (s *Service) Generator() *Generator {
	return s.generator
}
