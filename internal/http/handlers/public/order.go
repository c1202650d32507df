package public

import (
	"strings"

	handlershared "github.com/paysub/internal/http/handlers/shared"
	"github.com/paysub/internal/http/response"
	"github.com/paysub/internal/models"
	"github.com/paysub/internal/repository"
	"github.com/paysub/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	ProductID     string `json:"product_id" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
	handlershared.CaptchaPayloadRequest
}

// PayURLResponse 支付跳转响应
type PayURLResponse struct {
	Order  *models.Order `json:"order"`
	PayURL string        `json:"pay_url"`
}

// CreateOrder 创建待支付订单并返回跳转地址
func (h *Handler) CreateOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if h.CaptchaService != nil {
		if err := h.CaptchaService.Verify(service.CaptchaSceneOrderIssue, req.ToServicePayload()); err != nil {
			respondOrderIssueError(c, err)
			return
		}
	}

	result, err := h.OrderService.IssueOrder(c.Request.Context(), service.IssueOrderInput{
		UserID:        uid,
		ProductID:     req.ProductID,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		respondOrderIssueError(c, err)
		return
	}

	response.Success(c, PayURLResponse{Order: result.Order, PayURL: result.PayURL})
}

// RegeneratePayURL 为待支付订单重新生成跳转地址
func (h *Handler) RegeneratePayURL(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	result, err := h.OrderService.RegeneratePayURL(c.Request.Context(), uid, c.Param("order_no"))
	if err != nil {
		respondOrderReadError(c, err)
		return
	}

	response.Success(c, PayURLResponse{Order: result.Order, PayURL: result.PayURL})
}

// ListOrders 我的订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, pageSize := handlershared.ParsePagination(c)
	orders, total, err := h.OrderService.ListUserOrders(c.Request.Context(), repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondOrderReadError(c, err)
		return
	}

	response.SuccessWithPage(c, orders, handlershared.BuildPagination(page, pageSize, total))
}

// GetOrderByOrderNo 按订单号获取我的订单
func (h *Handler) GetOrderByOrderNo(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	order, err := h.OrderService.GetUserOrder(c.Request.Context(), uid, c.Param("order_no"))
	if err != nil {
		respondOrderReadError(c, err)
		return
	}

	response.Success(c, order)
}

// GetMySubscription 当前有效订阅
func (h *Handler) GetMySubscription(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	subscription, err := h.SubscriptionService.GetActive(c.Request.Context(), uid)
	if err != nil {
		respondWithMappedError(c, err, userOrderCommonErrorRules, response.CodeInternal, "error.subscription_fetch_failed")
		return
	}

	response.Success(c, subscription)
}
