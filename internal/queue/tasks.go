package queue

import (
	"encoding/json"

	"github.com/paysub/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderPaid 订单支付成功任务
	TaskOrderPaid = constants.TaskOrderPaid
	// TaskPaymentExceptionAlert 支付异常告警任务
	TaskPaymentExceptionAlert = constants.TaskPaymentExceptionAlert
)

// OrderPaidPayload 订单支付成功任务载荷
type OrderPaidPayload struct {
	OrderNo        string `json:"order_no"`
	UserID         uint   `json:"user_id"`
	IsSubscription bool   `json:"is_subscription"`
}

// PaymentExceptionAlertPayload 支付异常告警载荷
type PaymentExceptionAlertPayload struct {
	AlertType string `json:"alert_type"`
	OrderNo   string `json:"order_no"`
	TradeNo   string `json:"trade_no"`
	ClientIP  string `json:"client_ip"`
	Message   string `json:"message"`
}

// NewOrderPaidTask 创建订单支付成功任务
func NewOrderPaidTask(payload OrderPaidPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPaid, body), nil
}

// NewPaymentExceptionAlertTask 创建支付异常告警任务
func NewPaymentExceptionAlertTask(payload PaymentExceptionAlertPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentExceptionAlert, body), nil
}
