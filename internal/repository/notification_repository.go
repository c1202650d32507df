package repository

import (
	"context"
	"strings"

	"github.com/paysub/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository 回调审计数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.PaymentNotification) error
	ListByOrderNo(ctx context.Context, orderNo string, limit int) ([]models.PaymentNotification, error)
}

// GormNotificationRepository GORM 实现
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建回调审计仓库
func NewNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create 写入审计记录
func (r *GormNotificationRepository) Create(ctx context.Context, notification *models.PaymentNotification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// ListByOrderNo 按订单号倒序列出审计记录
func (r *GormNotificationRepository) ListByOrderNo(ctx context.Context, orderNo string, limit int) ([]models.PaymentNotification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []models.PaymentNotification
	err := r.db.WithContext(ctx).
		Where("order_no = ?", strings.TrimSpace(orderNo)).
		Order("id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
