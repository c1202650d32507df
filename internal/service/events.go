package service

import (
	"github.com/paysub/internal/queue"
)

// PaymentEventPublisher 支付事件投递（由 queue.Client 实现）
type PaymentEventPublisher interface {
	EnqueueOrderPaid(payload queue.OrderPaidPayload) error
	EnqueuePaymentExceptionAlert(payload queue.PaymentExceptionAlertPayload) error
}

type noopPublisher struct{}

func (noopPublisher) EnqueueOrderPaid(queue.OrderPaidPayload) error { return nil }

func (noopPublisher) EnqueuePaymentExceptionAlert(queue.PaymentExceptionAlertPayload) error {
	return nil
}
