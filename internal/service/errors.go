package service

import "errors"

// 调用方身份与参数
var (
	ErrAuthRequired         = errors.New("authentication required")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidProduct       = errors.New("invalid product")
)

// 资源不存在（含越权访问，统一按不存在处理）
var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
)

// 运维侧配置错误，不向终端用户暴露细节
var (
	ErrConfigInvalid             = errors.New("payment configuration invalid")
	ErrSubscriptionPeriodInvalid = errors.New("subscription period invalid")
)

// 回调硬拒绝
var (
	ErrNotifyInvalid     = errors.New("notify invalid")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrMerchantMismatch  = errors.New("merchant mismatch")
	ErrAmountMismatch    = errors.New("amount mismatch")
)

// 存储失败（可重试）
var ErrPersistence = errors.New("persistence failure")

// 验证码
var (
	ErrCaptchaRequired = errors.New("captcha required")
	ErrCaptchaInvalid  = errors.New("captcha invalid")
)

// IsNotifyRejection 是否为回调硬拒绝（不应答 success，由网关重试或告警）
func IsNotifyRejection(err error) bool {
	return errors.Is(err, ErrNotifyInvalid) ||
		errors.Is(err, ErrSignatureMismatch) ||
		errors.Is(err, ErrMerchantMismatch) ||
		errors.Is(err, ErrAmountMismatch) ||
		errors.Is(err, ErrOrderNotFound)
}
