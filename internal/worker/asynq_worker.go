package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/paysub/internal/logger"
	"github.com/paysub/internal/provider"
	"github.com/paysub/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderPaid, c.handleOrderPaid)
	mux.HandleFunc(queue.TaskPaymentExceptionAlert, c.handlePaymentExceptionAlert)
}

// handleOrderPaid 订单支付成功后失效订阅缓存
func (c *Consumer) handleOrderPaid(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_paid_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderPaidPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_paid_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.OrderNo) == "" || payload.UserID == 0 {
		logger.Debugw("worker_order_paid_skip_invalid_payload", "order_no", payload.OrderNo, "user_id", payload.UserID)
		return nil
	}
	if !payload.IsSubscription {
		logger.Infow("worker_order_paid_one_time", "order_no", payload.OrderNo, "user_id", payload.UserID)
		return nil
	}
	if c.Container == nil || c.SubscriptionService == nil {
		logger.Warnw("worker_order_paid_skip_subscription_service_nil", "order_no", payload.OrderNo)
		return nil
	}
	if err := c.SubscriptionService.Invalidate(ctx, payload.UserID); err != nil {
		logger.Warnw("worker_order_paid_invalidate_cache_failed",
			"order_no", payload.OrderNo,
			"user_id", payload.UserID,
			"error", err,
		)
		return err
	}
	logger.Infow("worker_order_paid_cache_invalidated", "order_no", payload.OrderNo, "user_id", payload.UserID)
	return nil
}

// handlePaymentExceptionAlert 输出支付异常告警
func (c *Consumer) handlePaymentExceptionAlert(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payment_alert_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PaymentExceptionAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_alert_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.AlertType) == "" {
		logger.Debugw("worker_payment_alert_skip_invalid_payload")
		return nil
	}
	logger.Errorw("payment_exception_alert",
		"alert_type", payload.AlertType,
		"order_no", payload.OrderNo,
		"trade_no", payload.TradeNo,
		"client_ip", payload.ClientIP,
		"message", payload.Message,
	)
	return nil
}
