package admin

import (
	"strconv"
	"strings"

	"github.com/paysub/internal/http/response"
	"github.com/paysub/internal/models"

	"github.com/gin-gonic/gin"
)

const defaultNotificationLimit = 50

// OpsOrderNotifications 订单回调审计返回
type OpsOrderNotifications struct {
	OrderNo       string                       `json:"order_no"`
	Notifications []models.PaymentNotification `json:"notifications"`
}

// OpsGetOrder 运维查看订单详情
func (h *Handler) OpsGetOrder(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	order, err := h.OrderService.GetOrderForOps(c.Request.Context(), orderNo)
	if err != nil {
		respondOpsReadError(c, err, "error.order_fetch_failed")
		return
	}
	response.Success(c, order)
}

// OpsListOrderNotifications 运维查看订单的回调审计记录
func (h *Handler) OpsListOrderNotifications(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	limit := defaultNotificationLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		limit = parsed
	}

	rows, err := h.PaymentService.ListNotifications(c.Request.Context(), orderNo, limit)
	if err != nil {
		respondOpsReadError(c, err, "error.notification_fetch_failed")
		return
	}
	requestLog(c).Debugw("ops_order_notifications_listed", "order_no", orderNo, "count", len(rows))
	response.Success(c, OpsOrderNotifications{OrderNo: orderNo, Notifications: rows})
}
