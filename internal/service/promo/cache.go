package promo

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhixinsec/secacademy-backend/internal/common/metrics"
)

// 验券结果缓存。缓存只是降载手段：命中与否不影响正确性，
// Redis 故障时直接回源数据库。
const validateCacheKeyPrefix = "promo:validate:"

// validateCacheKey 缓存键包含码、金额与客户身份，三者任一不同即视为不同请求
func validateCacheKey(code string, orderAmount float64, customerEmail string) string {
	return fmt.Sprintf("%s%s:%.2f:%s", validateCacheKeyPrefix, code, orderAmount, customerEmail)
}

// cachedResult 读取缓存的验券结果，未启用缓存或未命中时返回 nil
func (s *Service) cachedResult(ctx context.Context, code string, orderAmount float64, customerEmail string) *ValidationResult {
	if s.redis == nil || s.cfg.ValidateCacheExpire <= 0 {
		return nil
	}

	data, err := s.redis.Get(ctx, validateCacheKey(code, orderAmount, customerEmail)).Bytes()
	if err != nil {
		metrics.GetMetrics().RecordCacheMiss("validate")
		return nil
	}

	var result ValidationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	metrics.GetMetrics().RecordCacheHit("validate")
	return &result
}

// cacheResult 写入验券结果缓存，写入失败只记日志
func (s *Service) cacheResult(ctx context.Context, code string, orderAmount float64, customerEmail string, result *ValidationResult) {
	if s.redis == nil || s.cfg.ValidateCacheExpire <= 0 {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}

	key := validateCacheKey(code, orderAmount, customerEmail)
	if err := s.redis.Set(ctx, key, data, s.cfg.ValidateCacheDuration()).Err(); err != nil {
		s.log.Warn("写入验券缓存失败", zap.String("key", key), zap.Error(err))
	}
}

// invalidateCache 删除某个码的全部缓存结果，码定义变更或核销后调用
func (s *Service) invalidateCache(ctx context.Context, code string) {
	if s.redis == nil {
		return
	}

	pattern := validateCacheKeyPrefix + code + ":*"
	iter := s.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.redis.Del(ctx, iter.Val()).Err(); err != nil {
			s.log.Warn("删除验券缓存失败", zap.String("key", iter.Val()), zap.Error(err))
			return
		}
	}
	if err := iter.Err(); err != nil {
		s.log.Warn("扫描验券缓存失败", zap.String("pattern", pattern), zap.Error(err))
	}
}
