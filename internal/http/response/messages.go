package response

import "fmt"

// 面向终端用户的提示文案，内部细节只记录日志
var messages = map[string]string{
	"error.bad_request":               "invalid request",
	"error.unauthorized":              "authentication required",
	"error.forbidden":                 "permission denied",
	"error.jwt_secret_missing":        "authentication is not configured",
	"error.auth_header_missing":       "missing authorization header",
	"error.auth_header_invalid":       "invalid authorization header",
	"error.token_invalid":             "invalid or expired token",
	"error.user_id_invalid":           "invalid user id",
	"error.user_id_type_invalid":      "invalid user id type",
	"error.payment_method_invalid":    "unsupported payment method",
	"error.product_invalid":           "invalid product",
	"error.product_not_found":         "product not found",
	"error.order_not_found":           "order not found",
	"error.order_create_failed":       "failed to create order, please retry",
	"error.order_fetch_failed":        "failed to load order, please retry",
	"error.payment_unavailable":       "payment is temporarily unavailable",
	"error.subscription_fetch_failed": "failed to load subscription, please retry",
	"error.notification_fetch_failed": "failed to load notifications",
	"error.authz_fetch_failed":        "failed to load permissions",
	"error.captcha_required":          "captcha required",
	"error.captcha_invalid":           "captcha invalid",
	"error.captcha_generate_failed":   "failed to generate captcha",
	"error.rate_limit_unavailable":    "rate limit service unavailable",
	"error.rate_limited":              "too many requests, retry after %d seconds",
}

// Message 按 key 获取提示文案，未登记的 key 原样返回
func Message(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}

// Messagef 按 key 获取带参数的提示文案
func Messagef(key string, args ...interface{}) string {
	return fmt.Sprintf(Message(key), args...)
}
