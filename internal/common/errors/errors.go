// Package errors 定义业务错误码和错误处理
package errors

import (
	"fmt"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown          = New(1000, "未知错误")
	ErrInvalidParams    = New(1001, "参数错误")
	ErrNotFound         = New(1002, "资源不存在")
	ErrAlreadyExists    = New(1003, "资源已存在")
	ErrDatabaseError    = New(1004, "数据库错误")
	ErrCacheError       = New(1005, "缓存错误")
	ErrInternalError    = New(1006, "内部错误")
	ErrExternalService  = New(1007, "外部服务错误")
	ErrRateLimitExceed  = New(1008, "请求过于频繁")
	ErrOperationFailed  = New(1009, "操作失败")
	ErrStoreUnavailable = New(1010, "存储服务暂不可用")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized       = New(2000, "未登录")
	ErrTokenExpired       = New(2001, "登录已过期")
	ErrTokenInvalid       = New(2002, "无效的令牌")
	ErrPermissionDenied   = New(2003, "权限不足")
	ErrAccountDisabled    = New(2004, "账号已禁用")
	ErrInvalidCredentials = New(2005, "用户名或密码错误")
)

// 优惠码错误码 (3000-3999)
var (
	ErrPromoNotFound            = New(3000, "优惠码不存在")
	ErrPromoInactive            = New(3001, "优惠码未启用")
	ErrPromoNotStarted          = New(3002, "优惠码尚未生效")
	ErrPromoExpired             = New(3003, "优惠码已过期")
	ErrPromoUsageExceeded       = New(3004, "优惠码已达使用上限")
	ErrPromoBelowMinimum        = New(3005, "订单金额未达使用门槛")
	ErrPromoAlreadyRedeemed     = New(3006, "该客户已使用过此优惠码")
	ErrPromoInvalidDefinition   = New(3007, "优惠码配置无效")
	ErrPromoDuplicateCode       = New(3008, "优惠码已存在")
	ErrPromoTamperDetected      = New(3009, "折扣金额校验失败")
	ErrPromoGenerationExhausted = New(3010, "优惠码生成重试次数已耗尽")
)

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrUnknown.WithError(err)
}
