package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/paysub/internal/constants"
	"github.com/paysub/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error)
	GetByOrderNoAndUser(ctx context.Context, orderNo string, userID uint) (*models.Order, error)
	GetPendingByOrderNoAndUser(ctx context.Context, orderNo string, userID uint) (*models.Order, error)
	GetLatestActiveSubscription(ctx context.Context, userID uint, now time.Time) (*models.Order, error)
	ListByUser(ctx context.Context, filter OrderListFilter) ([]models.Order, int64, error)
	MarkPaid(ctx context.Context, orderNo string, transition PaidTransition) (int64, error)
	Transaction(ctx context.Context, fn func(repo OrderRepository) error) error
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Transaction 在同一事务内执行 fn
func (r *GormOrderRepository) Transaction(ctx context.Context, fn func(repo OrderRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// Create 插入订单，订单号冲突返回 ErrDuplicateOrderNo
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if isDuplicateKeyError(r.db, err) {
			return ErrDuplicateOrderNo
		}
		return err
	}
	return nil
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("order_no = ?", strings.TrimSpace(orderNo)))
}

// GetByOrderNoAndUser 获取用户自己的订单
func (r *GormOrderRepository) GetByOrderNoAndUser(ctx context.Context, orderNo string, userID uint) (*models.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("order_no = ? AND user_id = ?", strings.TrimSpace(orderNo), userID))
}

// GetPendingByOrderNoAndUser 获取用户自己的待支付订单
func (r *GormOrderRepository) GetPendingByOrderNoAndUser(ctx context.Context, orderNo string, userID uint) (*models.Order, error) {
	return r.first(r.db.WithContext(ctx).Where(
		"order_no = ? AND user_id = ? AND status = ?",
		strings.TrimSpace(orderNo), userID, constants.OrderStatusPending,
	))
}

// GetLatestActiveSubscription 获取用户结束时间晚于 now 的最新已支付订阅
func (r *GormOrderRepository) GetLatestActiveSubscription(ctx context.Context, userID uint, now time.Time) (*models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND is_subscription = ?", userID, constants.OrderStatusPaid, true).
		Where("subscription_end_date IS NOT NULL AND subscription_end_date > ?", now).
		Order("subscription_end_date desc")
	return r.first(query)
}

// ListByUser 用户订单列表
func (r *GormOrderRepository) ListByUser(ctx context.Context, filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", filter.UserID)
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var orders []models.Order
	if err := query.Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// MarkPaid 条件更新：仅当订单仍为 pending 时置为 paid，返回受影响行数
func (r *GormOrderRepository) MarkPaid(ctx context.Context, orderNo string, transition PaidTransition) (int64, error) {
	updates := map[string]interface{}{
		"status":           constants.OrderStatusPaid,
		"gateway_trade_no": transition.TradeNo,
		"paid_at":          transition.PaidAt,
		"updated_at":       transition.PaidAt,
	}
	if transition.StartDate != nil && transition.EndDate != nil {
		updates["subscription_start_date"] = *transition.StartDate
		updates["subscription_end_date"] = *transition.EndDate
	}
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_no = ? AND status = ?", orderNo, constants.OrderStatusPending).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *GormOrderRepository) first(query *gorm.DB) (*models.Order, error) {
	var order models.Order
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}
