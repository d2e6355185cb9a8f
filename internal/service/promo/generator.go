package promo

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/zhixinsec/secacademy-backend/internal/common/errors"
	"github.com/zhixinsec/secacademy-backend/internal/common/metrics"
	"github.com/zhixinsec/secacademy-backend/internal/common/utils"
	"github.com/zhixinsec/secacademy-backend/internal/repository"
)

// 合作伙伴批量码的固定前导段
const partnerCodeTag = "PR"

// Generator 优惠码生成器。唯一性检查针对全部三种类型共享的码域，
// 碰撞时重新生成候选码，重试次数有界。
type Generator struct {
	codeRepo     *repository.PromoCodeRepository
	codeLength   int
	suffixLength int
}

// NewGenerator 创建优惠码生成器
func NewGenerator(codeRepo *repository.PromoCodeRepository, codeLength, suffixLength int) *Generator {
	if codeLength <= 0 {
		codeLength = 8
	}
	if suffixLength <= 0 {
		suffixLength = 6
	}
	return &Generator{
		codeRepo:     codeRepo,
		codeLength:   codeLength,
		suffixLength: suffixLength,
	}
}

// Generate 生成一个无前缀的唯一优惠码
func (g *Generator) Generate(ctx context.Context, maxAttempts int) (string, error) {
	return g.generate(ctx, maxAttempts, func() string {
		return utils.RandomCode(g.codeLength)
	})
}

// GenerateWithPrefix 生成合作伙伴批量码，格式为 PR-<中段>-<随机后缀>。
// 中段取调用方指定的前缀，未指定时用两位随机字母。
func (g *Generator) GenerateWithPrefix(ctx context.Context, prefix string, maxAttempts int) (string, error) {
	middle := strings.ToUpper(strings.TrimSpace(prefix))
	return g.generate(ctx, maxAttempts, func() string {
		m := middle
		if m == "" {
			m = utils.RandomLetters(2)
		}
		return fmt.Sprintf("%s-%s-%s", partnerCodeTag, m, utils.RandomCode(g.suffixLength))
	})
}

// generate 有界重试循环。只有候选码的生成会被重试，
// 存储层错误直接向上传播。
func (g *Generator) generate(ctx context.Context, maxAttempts int, next func() string) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := next()

		exists, err := g.codeRepo.ExistsByCode(ctx, candidate)
		if err != nil {
			return "", apperrors.ErrStoreUnavailable.WithError(err)
		}
		if !exists {
			return candidate, nil
		}
		metrics.GetMetrics().RecordGenerationRetry()
	}

	return "", apperrors.ErrPromoGenerationExhausted
}
