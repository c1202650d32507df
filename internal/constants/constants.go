package constants

// 订单状态常量
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

// 支付方式常量（易支付 type 参数）
const (
	PaymentMethodAlipay = "alipay"
	PaymentMethodWxpay  = "wxpay"
)

// 订阅周期常量
const (
	SubscriptionPeriodMonthly = "monthly"
	SubscriptionPeriodYearly  = "yearly"
)

// 易支付协议常量
const (
	EpaySignTypeMD5        = "MD5"
	EpayTradeStatusSuccess = "TRADE_SUCCESS"
	EpayCallbackSuccess    = "success"
	EpayCallbackFail       = "fail"
	EpaySubmitPath         = "submit.php"
)

// 回调处理结果（审计日志）
const (
	NotifyOutcomePaid        = "paid"
	NotifyOutcomeAlreadyPaid = "already_paid"
	NotifyOutcomeLostRace    = "lost_race"
	NotifyOutcomeIgnored     = "ignored"
	NotifyOutcomeNotPending  = "not_pending"
	NotifyOutcomeRejected    = "rejected"
	NotifyOutcomeFailed      = "failed"
)

// 支付异常告警类型
const (
	PaymentAlertSignatureInvalid = "signature_invalid"
	PaymentAlertAmountMismatch   = "amount_mismatch"
	PaymentAlertOrderNotFound    = "order_not_found"
	PaymentAlertMerchantMismatch = "merchant_mismatch"
)

// 异步任务常量
const (
	QueueDefault               = "default"
	QueueCritical              = "critical"
	TaskOrderPaid              = "order:paid"
	TaskPaymentExceptionAlert  = "payment:exception_alert"
	SubscriptionCacheKeyPrefix = "subscription:active"
)

// 角色常量
const (
	RoleSupport = "support"
	RoleAuditor = "auditor"
)
