package promo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/zhixinsec/secacademy-backend/internal/common/errors"
	"github.com/zhixinsec/secacademy-backend/internal/common/qrcode"
	"github.com/zhixinsec/secacademy-backend/internal/common/utils"
)

const defaultShareBaseURL = "https://www.secacademy.cn"

// WithBaseURL 指定分享链接的站点地址
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// ShareInfo 优惠码分享信息
type ShareInfo struct {
	Code          string `json:"code"`
	Kind          string `json:"kind"`
	URL           string `json:"url"`
	QRCodeDataURL string `json:"qr_code"`
}

// ShareLink 构造优惠码的落地页链接
func (s *Service) ShareLink(codeStr string) string {
	base := s.baseURL
	if base == "" {
		base = defaultShareBaseURL
	}
	return fmt.Sprintf("%s/r/%s", base, codeStr)
}

// ShareInfo 生成优惠码的分享链接与二维码。
// 仅启用中的码可分享，码不存在或已停用时返回业务错误。
func (s *Service) ShareInfo(ctx context.Context, codeStr string) (*ShareInfo, error) {
	normalized := utils.NormalizeCode(codeStr)

	code, err := s.codeRepo.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPromoNotFound
		}
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}
	if !code.IsActive {
		return nil, apperrors.ErrPromoInactive
	}

	url := s.ShareLink(code.Code)
	dataURL, err := qrcode.NewGenerator().GenerateDataURL(url)
	if err != nil {
		return nil, apperrors.ErrInternalError.WithError(err)
	}

	return &ShareInfo{
		Code:          code.Code,
		Kind:          code.Kind,
		URL:           url,
		QRCodeDataURL: dataURL,
	}, nil
}

// ShareQRCodePNG 生成分享二维码的 PNG 字节流，供图片端点直接输出
func (s *Service) ShareQRCodePNG(ctx context.Context, codeStr string, size int) ([]byte, error) {
	normalized := utils.NormalizeCode(codeStr)

	code, err := s.codeRepo.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPromoNotFound
		}
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}
	if !code.IsActive {
		return nil, apperrors.ErrPromoInactive
	}

	opts := []qrcode.Option{}
	if size > 0 {
		opts = append(opts, qrcode.WithSize(size))
	}
	png, err := qrcode.NewGenerator(opts...).GeneratePNG(s.ShareLink(code.Code))
	if err != nil {
		return nil, apperrors.ErrInternalError.WithError(err)
	}
	return png, nil
}
