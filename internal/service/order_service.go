package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paysub/internal/catalog"
	"github.com/paysub/internal/constants"
	"github.com/paysub/internal/logger"
	"github.com/paysub/internal/metrics"
	"github.com/paysub/internal/models"
	"github.com/paysub/internal/payment/epay"
	"github.com/paysub/internal/repository"

	"go.uber.org/zap"
)

const defaultMaxCreateAttempts = 5

// OrderOptions 下单参数
type OrderOptions struct {
	NumberSuffixDigits int
	MaxCreateAttempts  int
}

// OrderService 订单服务：创建待支付订单与重新生成支付链接
type OrderService struct {
	orderRepo   repository.OrderRepository
	catalog     catalog.Catalog
	epayCfg     epay.Config
	maxAttempts int
	newOrderNo  OrderNoGenerator
	now         func() time.Time
	metrics     *metrics.PaymentMetrics
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, productCatalog catalog.Catalog, epayCfg epay.Config, opts OrderOptions, m *metrics.PaymentMetrics) *OrderService {
	maxAttempts := opts.MaxCreateAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxCreateAttempts
	}
	return &OrderService{
		orderRepo:   orderRepo,
		catalog:     productCatalog,
		epayCfg:     epayCfg,
		maxAttempts: maxAttempts,
		newOrderNo:  NewTimestampOrderNoGenerator(opts.NumberSuffixDigits),
		now:         time.Now,
		metrics:     m,
	}
}

// WithOrderNoGenerator 替换订单号生成器
func (s *OrderService) WithOrderNoGenerator(gen OrderNoGenerator) *OrderService {
	if gen != nil {
		s.newOrderNo = gen
	}
	return s
}

// WithClock 替换时钟
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	if now != nil {
		s.now = now
	}
	return s
}

// IssueOrderInput 下单输入
type IssueOrderInput struct {
	UserID        uint
	ProductID     string
	PaymentMethod string
}

// PayURLResult 支付链接结果
type PayURLResult struct {
	Order  *models.Order
	PayURL string
}

// IssueOrder 创建待支付订单并返回签名跳转地址
func (s *OrderService) IssueOrder(ctx context.Context, input IssueOrderInput) (*PayURLResult, error) {
	startedAt := time.Now()
	result, err := s.issueOrder(ctx, input)
	s.metrics.ObserveOrderIssue(issueResultLabel(err), time.Since(startedAt).Seconds())
	return result, err
}

func (s *OrderService) issueOrder(ctx context.Context, input IssueOrderInput) (*PayURLResult, error) {
	if input.UserID == 0 {
		return nil, ErrAuthRequired
	}
	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	if !epay.IsSupportedPaymentMethod(method) {
		return nil, ErrInvalidPaymentMethod
	}
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	product, ok := s.catalog.Get(productID)
	if !ok {
		return nil, ErrProductNotFound
	}

	log := orderLogger("user_id", input.UserID, "product_id", product.ID, "payment_method", method)
	if err := s.epayCfg.Validate(); err != nil {
		log.Errorw("order_issue_config_invalid", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	order, err := s.createPendingOrder(ctx, input.UserID, product, method, log)
	if err != nil {
		return nil, err
	}

	payURL, err := s.buildPayURL(order)
	if err != nil {
		log.Errorw("order_issue_build_url_failed", "order_no", order.OrderNo, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	log.Infow("order_issued", "order_no", order.OrderNo, "money", order.Money.String())
	return &PayURLResult{Order: order, PayURL: payURL}, nil
}

// createPendingOrder 插入待支付订单，订单号冲突时换号重试
func (s *OrderService) createPendingOrder(ctx context.Context, userID uint, product *catalog.Product, method string, log *zap.SugaredLogger) (*models.Order, error) {
	var period *string
	if product.IsSubscription {
		p := product.SubscriptionPeriod
		period = &p
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		now := s.now()
		order := &models.Order{
			UserID:             userID,
			ProductID:          product.ID,
			Name:               product.Name,
			Money:              product.Price,
			OrderNo:            s.newOrderNo(now),
			PaymentMethod:      method,
			Status:             constants.OrderStatusPending,
			IsSubscription:     product.IsSubscription,
			SubscriptionPeriod: period,
			CreatedAt:          now.UTC(),
			UpdatedAt:          now.UTC(),
		}
		err := s.orderRepo.Create(ctx, order)
		if err == nil {
			return order, nil
		}
		if errors.Is(err, repository.ErrDuplicateOrderNo) {
			s.metrics.IncOrderIssueRetry()
			log.Warnw("order_issue_duplicate_retry", "order_no", order.OrderNo, "attempt", attempt)
			continue
		}
		log.Errorw("order_issue_create_failed", "order_no", order.OrderNo, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	log.Errorw("order_issue_attempts_exhausted", "attempts", s.maxAttempts)
	return nil, fmt.Errorf("%w: order no attempts exhausted", ErrPersistence)
}

// RegeneratePayURL 为用户自己的待支付订单重新生成跳转地址
// 已支付、非本人或不存在的订单统一返回 ErrOrderNotFound
func (s *OrderService) RegeneratePayURL(ctx context.Context, userID uint, orderNo string) (*PayURLResult, error) {
	if userID == 0 {
		return nil, ErrAuthRequired
	}
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, ErrOrderNotFound
	}
	log := orderLogger("user_id", userID, "order_no", orderNo)

	order, err := s.orderRepo.GetPendingByOrderNoAndUser(ctx, orderNo, userID)
	if err != nil {
		log.Errorw("order_regenerate_fetch_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	payURL, err := s.buildPayURL(order)
	if err != nil {
		log.Errorw("order_regenerate_config_invalid", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	log.Infow("order_pay_url_regenerated")
	return &PayURLResult{Order: order, PayURL: payURL}, nil
}

// GetUserOrder 获取用户自己的订单
func (s *OrderService) GetUserOrder(ctx context.Context, userID uint, orderNo string) (*models.Order, error) {
	if userID == 0 {
		return nil, ErrAuthRequired
	}
	order, err := s.orderRepo.GetByOrderNoAndUser(ctx, orderNo, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListUserOrders 用户订单列表
func (s *OrderService) ListUserOrders(ctx context.Context, filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.UserID == 0 {
		return nil, 0, ErrAuthRequired
	}
	orders, total, err := s.orderRepo.ListByUser(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return orders, total, nil
}

// GetOrderForOps 运维按订单号查看任意订单
func (s *OrderService) GetOrderForOps(ctx context.Context, orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// buildPayURL 仅使用订单已存储字段构造签名参数
func (s *OrderService) buildPayURL(order *models.Order) (string, error) {
	return epay.BuildSubmitURL(&s.epayCfg, epay.PayParams{
		MerchantID: s.epayCfg.MerchantID,
		Type:       order.PaymentMethod,
		OrderNo:    order.OrderNo,
		NotifyURL:  s.epayCfg.NotifyURL(),
		ReturnURL:  s.epayCfg.ReturnURL(),
		Name:       order.Name,
		Money:      order.Money.String(),
	})
}

func issueResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPersistence):
		return "persistence_failed"
	case errors.Is(err, ErrConfigInvalid):
		return "config_invalid"
	default:
		return "rejected"
	}
}

func orderLogger(kv ...interface{}) *zap.SugaredLogger {
	return logger.SW(kv...)
}
