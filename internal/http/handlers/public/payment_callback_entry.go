package public

import (
	"net/http"
	"strings"

	"github.com/paysub/internal/constants"
	"github.com/paysub/internal/service"

	"github.com/gin-gonic/gin"
)

// EpayNotify 易支付异步通知入口（GET 与 POST 均可能出现）
func (h *Handler) EpayNotify(c *gin.Context) {
	requestLog(c).Infow("payment_callback_received",
		"method", c.Request.Method,
		"client_ip", c.ClientIP(),
		"content_type", strings.TrimSpace(c.GetHeader("Content-Type")),
	)

	form, err := parseCallbackForm(c)
	if err != nil {
		requestLog(c).Warnw("payment_callback_form_parse_failed", "error", err)
		c.String(http.StatusBadRequest, constants.EpayCallbackFail)
		return
	}
	if h == nil || h.Container == nil || h.PaymentService == nil {
		requestLog(c).Errorw("payment_callback_service_unavailable")
		c.String(http.StatusInternalServerError, constants.EpayCallbackFail)
		return
	}

	result, err := h.PaymentService.HandleNotify(c.Request.Context(), service.NotifyInput{
		Form:     form,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		c.String(callbackFailureStatus(err), constants.EpayCallbackFail)
		return
	}

	requestLog(c).Infow("payment_callback_acknowledged",
		"order_no", getFirstValue(form, "out_trade_no"),
		"outcome", result.Outcome,
	)
	c.String(http.StatusOK, constants.EpayCallbackSuccess)
}

// callbackFailureStatus 硬拒绝返回 400，存储与配置失败返回 500 以便网关重试
func callbackFailureStatus(err error) int {
	if service.IsNotifyRejection(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func parseCallbackForm(c *gin.Context) (map[string][]string, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	if len(c.Request.PostForm) > 0 {
		return c.Request.PostForm, nil
	}
	return c.Request.Form, nil
}

func getFirstValue(form map[string][]string, key string) string {
	if values, ok := form[key]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}
