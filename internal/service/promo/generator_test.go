package promo

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zhixinsec/secacademy-backend/internal/common/errors"
	"github.com/zhixinsec/secacademy-backend/internal/common/utils"
	"github.com/zhixinsec/secacademy-backend/internal/models"
	"github.com/zhixinsec/secacademy-backend/internal/repository"
)

func TestGenerator_Generate(t *testing.T) {
	svc, _ := setupPromoService(t)
	gen := svc.Generator()

	code, err := gen.Generate(context.Background(), 10)
	require.NoError(t, err)

	assert.Len(t, code, 8)
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestGenerator_GenerateWithPrefix(t *testing.T) {
	svc, _ := setupPromoService(t)
	gen := svc.Generator()

	code, err := gen.GenerateWithPrefix(context.Background(), "lab", 10)
	require.NoError(t, err)

	parts := strings.Split(code, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "PR", parts[0])
	assert.Equal(t, "LAB", parts[1])
	assert.Len(t, parts[2], 6)
}

func TestGenerator_GenerateWithPrefix_RandomMiddle(t *testing.T) {
	svc, _ := setupPromoService(t)
	gen := svc.Generator()

	// 未指定前缀时中段为随机字母
	code, err := gen.GenerateWithPrefix(context.Background(), "", 10)
	require.NoError(t, err)

	parts := strings.Split(code, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "PR", parts[0])
	assert.Len(t, parts[1], 2)
}

func TestGenerator_Exhaustion(t *testing.T) {
	_, db := setupPromoService(t)

	// 单字符码域配合已占用的全部候选值，触发重试耗尽
	gen := NewGenerator(repository.NewPromoCodeRepository(db), 1, 1)
	for _, ch := range utils.CodeCharset {
		createServiceTestCode(t, db, func(c *models.PromoCode) {
			c.Code = string(ch)
		})
	}

	_, err := gen.Generate(context.Background(), 10)
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrPromoGenerationExhausted.Code, appErr.Code)
}

func TestGenerator_SkipsExistingCodes(t *testing.T) {
	_, db := setupPromoService(t)

	existing := make(map[string]bool)
	gen := NewGenerator(repository.NewPromoCodeRepository(db), 8, 6)
	for i := 0; i < 50; i++ {
		code, err := gen.Generate(context.Background(), 10)
		require.NoError(t, err)
		require.False(t, existing[code])
		existing[code] = true

		createServiceTestCode(t, db, func(c *models.PromoCode) {
			c.Code = code
			c.Kind = models.PromoKindPromoPrice
		})
	}
}
