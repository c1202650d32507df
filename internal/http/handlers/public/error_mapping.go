package public

import (
	"errors"

	"github.com/paysub/internal/http/response"
	"github.com/paysub/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var userOrderCommonErrorRules = []mappedHandlerError{
	{target: service.ErrAuthRequired, code: response.CodeUnauthorized, key: "error.unauthorized"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrConfigInvalid, code: response.CodeInternal, key: "error.payment_unavailable"},
}

var orderIssueExtraErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidPaymentMethod, code: response.CodeBadRequest, key: "error.payment_method_invalid"},
	{target: service.ErrInvalidProduct, code: response.CodeBadRequest, key: "error.product_invalid"},
	{target: service.ErrProductNotFound, code: response.CodeNotFound, key: "error.product_not_found"},
	{target: service.ErrCaptchaRequired, code: response.CodeBadRequest, key: "error.captcha_required"},
	{target: service.ErrCaptchaInvalid, code: response.CodeBadRequest, key: "error.captcha_invalid"},
}

func respondOrderIssueError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(userOrderCommonErrorRules, orderIssueExtraErrorRules), response.CodeInternal, "error.order_create_failed")
}

func respondOrderReadError(c *gin.Context, err error) {
	respondWithMappedError(c, err, userOrderCommonErrorRules, response.CodeInternal, "error.order_fetch_failed")
}
