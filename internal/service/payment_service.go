package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/paysub/internal/constants"
	"github.com/paysub/internal/logger"
	"github.com/paysub/internal/metrics"
	"github.com/paysub/internal/models"
	"github.com/paysub/internal/payment/epay"
	"github.com/paysub/internal/queue"
	"github.com/paysub/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	notifyPayloadValueLimit = 256
	notifyReasonLimit       = 255
)

// DefaultAmountTolerance 回调金额与订单金额允许的绝对误差
var DefaultAmountTolerance = decimal.RequireFromString("0.001")

// PaymentService 回调对账服务
type PaymentService struct {
	orderRepo        repository.OrderRepository
	notificationRepo repository.NotificationRepository
	epayCfg          epay.Config
	tolerance        decimal.Decimal
	publisher        PaymentEventPublisher
	subscriptions    SubscriptionCacheInvalidator
	metrics          *metrics.PaymentMetrics
	now              func() time.Time
}

// NewPaymentService 创建回调对账服务
func NewPaymentService(orderRepo repository.OrderRepository, notificationRepo repository.NotificationRepository, epayCfg epay.Config, publisher PaymentEventPublisher, m *metrics.PaymentMetrics) *PaymentService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &PaymentService{
		orderRepo:        orderRepo,
		notificationRepo: notificationRepo,
		epayCfg:          epayCfg,
		tolerance:        DefaultAmountTolerance,
		publisher:        publisher,
		subscriptions:    NewSubscriptionService(orderRepo),
		metrics:          m,
		now:              time.Now,
	}
}

// WithSubscriptionCache 替换订阅缓存失效实现
func (s *PaymentService) WithSubscriptionCache(inv SubscriptionCacheInvalidator) *PaymentService {
	if inv != nil {
		s.subscriptions = inv
	}
	return s
}

// WithClock 替换时钟
func (s *PaymentService) WithClock(now func() time.Time) *PaymentService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithAmountTolerance 设置金额误差，非正数保持默认
func (s *PaymentService) WithAmountTolerance(raw string) *PaymentService {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err == nil && d.IsPositive() {
		s.tolerance = d
	}
	return s
}

// NotifyInput 网关异步通知输入
type NotifyInput struct {
	Form     map[string][]string
	ClientIP string
}

// NotifyResult 回调处理结果（均应答 success）
type NotifyResult struct {
	Outcome string
	Order   *models.Order
}

// HandleNotify 处理网关异步通知
// 返回 error 时不得应答 success：IsNotifyRejection 为硬拒绝，ErrPersistence 为可重试失败
func (s *PaymentService) HandleNotify(ctx context.Context, input NotifyInput) (*NotifyResult, error) {
	startedAt := time.Now()
	params, notify, parseErr := epay.ParseNotify(input.Form)
	log := paymentLogger(
		"notify_order_no", notify.OrderNo,
		"notify_trade_no", notify.TradeNo,
		"notify_trade_status", notify.TradeStatus,
		"notify_money", notify.Money,
		"client_ip", input.ClientIP,
	)
	log.Infow("epay_notify_received")

	var result *NotifyResult
	var err error
	if parseErr != nil {
		log.Warnw("epay_notify_invalid", "error", parseErr)
		err = fmt.Errorf("%w: %v", ErrNotifyInvalid, parseErr)
	} else {
		result, err = s.reconcile(ctx, params, notify, input.ClientIP, log)
	}

	outcome := notifyOutcome(result, err)
	s.metrics.ObserveNotify(outcome, time.Since(startedAt).Seconds())
	s.recordNotification(ctx, params, notify, input.ClientIP, outcome, err, log)
	return result, err
}

func (s *PaymentService) reconcile(ctx context.Context, params map[string]string, notify *epay.Notify, clientIP string, log *zap.SugaredLogger) (*NotifyResult, error) {
	if err := epay.Verify(params, s.epayCfg.MerchantKey); err != nil {
		log.Warnw("epay_notify_signature_invalid",
			"error", err,
			"received_sign", notify.Sign,
			"expected_sign", epay.Sign(params, s.epayCfg.MerchantKey),
			"sign_content", epay.BuildSignContent(params),
		)
		s.alert(constants.PaymentAlertSignatureInvalid, notify, clientIP, err.Error(), log)
		return nil, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	if notify.MerchantID != "" && notify.MerchantID != s.epayCfg.MerchantID {
		log.Warnw("epay_notify_merchant_mismatch",
			"stored_merchant_id", s.epayCfg.MerchantID,
			"notify_merchant_id", notify.MerchantID,
		)
		s.alert(constants.PaymentAlertMerchantMismatch, notify, clientIP, "merchant id mismatch", log)
		return nil, ErrMerchantMismatch
	}

	if !notify.IsSuccess() {
		log.Infow("epay_notify_non_success_ignored")
		return &NotifyResult{Outcome: constants.NotifyOutcomeIgnored}, nil
	}
	// 成功通知必须携带网关流水号
	if strings.TrimSpace(notify.TradeNo) == "" {
		log.Warnw("epay_notify_trade_no_missing")
		return nil, fmt.Errorf("%w: trade_no is required", ErrNotifyInvalid)
	}

	order, err := s.orderRepo.GetByOrderNo(ctx, notify.OrderNo)
	if err != nil {
		log.Errorw("epay_notify_order_fetch_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if order == nil {
		log.Warnw("epay_notify_order_not_found")
		s.alert(constants.PaymentAlertOrderNotFound, notify, clientIP, "order not found", log)
		return nil, ErrOrderNotFound
	}

	// 幂等：已支付订单直接应答，不重算订阅窗口
	if order.IsPaid() {
		log.Infow("epay_notify_idempotent_paid", "order_id", order.ID)
		return &NotifyResult{Outcome: constants.NotifyOutcomeAlreadyPaid, Order: order}, nil
	}
	if order.Status != constants.OrderStatusPending {
		log.Warnw("epay_notify_order_not_pending", "order_id", order.ID, "current_status", order.Status)
		return &NotifyResult{Outcome: constants.NotifyOutcomeNotPending, Order: order}, nil
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(notify.Money))
	if err != nil || !order.Money.WithinTolerance(amount, s.tolerance) {
		log.Warnw("epay_notify_amount_mismatch",
			"order_id", order.ID,
			"stored_amount", order.Money.String(),
			"notify_amount", notify.Money,
		)
		s.alert(constants.PaymentAlertAmountMismatch, notify, clientIP,
			fmt.Sprintf("stored=%s notify=%s", order.Money.String(), notify.Money), log)
		return nil, ErrAmountMismatch
	}

	return s.applyPaid(ctx, order, notify, log)
}

// applyPaid 计算订阅窗口并执行条件更新，订阅查询与写入位于同一事务
func (s *PaymentService) applyPaid(ctx context.Context, order *models.Order, notify *epay.Notify, log *zap.SugaredLogger) (*NotifyResult, error) {
	now := s.now().UTC()
	var window *SubscriptionWindow
	var rows int64

	err := s.orderRepo.Transaction(ctx, func(repo repository.OrderRepository) error {
		transition := repository.PaidTransition{
			TradeNo: notify.TradeNo,
			PaidAt:  now,
		}
		if order.IsSubscription {
			latest, err := repo.GetLatestActiveSubscription(ctx, order.UserID, now)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPersistence, err)
			}
			var latestEnd *time.Time
			if latest != nil {
				latestEnd = latest.SubscriptionEndDate
			}
			computed, err := ComputeSubscriptionWindow(order.Period(), latestEnd, now)
			if err != nil {
				return err
			}
			window = &computed
			transition.StartDate = &computed.Start
			transition.EndDate = &computed.End
		}

		affected, err := repo.MarkPaid(ctx, order.OrderNo, transition)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		rows = affected
		return nil
	})
	if err != nil {
		log.Errorw("epay_notify_apply_failed", "order_id", order.ID, "error", err)
		if errors.Is(err, ErrSubscriptionPeriodInvalid) {
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
		if !errors.Is(err, ErrPersistence) {
			err = fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return nil, err
	}

	if rows == 0 {
		log.Infow("epay_notify_lost_race", "order_id", order.ID)
		return &NotifyResult{Outcome: constants.NotifyOutcomeLostRace, Order: order}, nil
	}

	order.Status = constants.OrderStatusPaid
	tradeNo := notify.TradeNo
	order.GatewayTradeNo = &tradeNo
	order.PaidAt = &now
	order.UpdatedAt = now
	fields := []interface{}{"order_id", order.ID}
	if window != nil {
		order.SubscriptionStartDate = &window.Start
		order.SubscriptionEndDate = &window.End
		s.metrics.IncSubscriptionWindow(order.Period(), window.Stacked)
		fields = append(fields,
			"subscription_start", window.Start,
			"subscription_end", window.End,
			"stacked", window.Stacked,
		)
	}
	log.Infow("epay_notify_order_paid", fields...)

	if order.IsSubscription {
		if err := s.subscriptions.Invalidate(ctx, order.UserID); err != nil {
			log.Warnw("epay_notify_invalidate_subscription_cache_failed", "user_id", order.UserID, "error", err)
		}
	}

	if err := s.publisher.EnqueueOrderPaid(queue.OrderPaidPayload{
		OrderNo:        order.OrderNo,
		UserID:         order.UserID,
		IsSubscription: order.IsSubscription,
	}); err != nil {
		log.Warnw("epay_notify_enqueue_order_paid_failed", "error", err)
	}
	return &NotifyResult{Outcome: constants.NotifyOutcomePaid, Order: order}, nil
}

func (s *PaymentService) alert(alertType string, notify *epay.Notify, clientIP, message string, log *zap.SugaredLogger) {
	s.metrics.IncPaymentAlert(alertType)
	payload := queue.PaymentExceptionAlertPayload{
		AlertType: alertType,
		OrderNo:   notify.OrderNo,
		TradeNo:   notify.TradeNo,
		ClientIP:  clientIP,
		Message:   message,
	}
	if err := s.publisher.EnqueuePaymentExceptionAlert(payload); err != nil {
		log.Warnw("epay_notify_enqueue_alert_failed", "alert_type", alertType, "error", err)
	}
}

// recordNotification 写入回调审计，失败不影响应答
func (s *PaymentService) recordNotification(ctx context.Context, params map[string]string, notify *epay.Notify, clientIP, outcome string, cause error, log *zap.SugaredLogger) {
	if s.notificationRepo == nil {
		return
	}
	reason := ""
	if cause != nil {
		reason = truncate(cause.Error(), notifyReasonLimit)
	}
	row := &models.PaymentNotification{
		OrderNo:     notify.OrderNo,
		TradeNo:     notify.TradeNo,
		TradeStatus: notify.TradeStatus,
		Money:       notify.Money,
		Outcome:     outcome,
		Reason:      reason,
		ClientIP:    clientIP,
		Payload:     payloadForAudit(params),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.notificationRepo.Create(ctx, row); err != nil {
		log.Warnw("epay_notify_audit_write_failed", "error", err)
	}
}

// ListNotifications 运维查看订单的回调审计记录
func (s *PaymentService) ListNotifications(ctx context.Context, orderNo string, limit int) ([]models.PaymentNotification, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, ErrOrderNotFound
	}
	rows, err := s.notificationRepo.ListByOrderNo(ctx, orderNo, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return rows, nil
}

func notifyOutcome(result *NotifyResult, err error) string {
	if err != nil {
		if IsNotifyRejection(err) {
			return constants.NotifyOutcomeRejected
		}
		return constants.NotifyOutcomeFailed
	}
	if result == nil {
		return constants.NotifyOutcomeFailed
	}
	return result.Outcome
}

func payloadForAudit(params map[string]string) models.JSON {
	if len(params) == 0 {
		return nil
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	payload := make(models.JSON, len(keys))
	for _, k := range keys {
		payload[k] = truncate(params[k], notifyPayloadValueLimit)
	}
	return payload
}

// truncate 按字节截断，不拆分 UTF-8 字符
func truncate(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}
