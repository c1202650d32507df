package models

import (
	"time"

	"github.com/paysub/internal/constants"
)

// Order 订单表
type Order struct {
	ID                    uint       `gorm:"primarykey" json:"id"`                                                                   // 主键
	UserID                uint       `gorm:"not null;index:idx_orders_user_subscription,priority:1" json:"user_id"`                   // 用户ID
	ProductID             string     `gorm:"type:varchar(64);not null" json:"product_id"`                                             // 商品ID
	Name                  string     `gorm:"type:varchar(255);not null" json:"name"`                                                  // 商品名称
	Money                 Money      `gorm:"type:decimal(20,2);not null" json:"money"`                                                // 订单金额
	OrderNo               string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_no"`                                   // 订单号
	GatewayTradeNo        *string    `gorm:"type:varchar(64)" json:"gateway_trade_no,omitempty"`                                      // 网关交易号
	PaymentMethod         string     `gorm:"type:varchar(16);not null" json:"payment_method"`                                         // 支付方式
	Status                string     `gorm:"type:varchar(16);not null;index:idx_orders_user_subscription,priority:2" json:"status"`   // 订单状态
	IsSubscription        bool       `gorm:"not null;default:false;index:idx_orders_user_subscription,priority:3" json:"is_subscription"` // 是否订阅
	SubscriptionPeriod    *string    `gorm:"type:varchar(16)" json:"subscription_period,omitempty"`                                   // 订阅周期
	SubscriptionStartDate *time.Time `json:"subscription_start_date,omitempty"`                                                       // 订阅开始时间
	SubscriptionEndDate   *time.Time `gorm:"index:idx_orders_user_subscription,priority:4" json:"subscription_end_date,omitempty"`    // 订阅结束时间
	PaidAt                *time.Time `gorm:"index" json:"paid_at,omitempty"`                                                          // 支付时间
	CreatedAt             time.Time  `gorm:"index" json:"created_at"`                                                                 // 创建时间
	UpdatedAt             time.Time  `gorm:"index" json:"updated_at"`                                                                 // 更新时间
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// IsPaid 是否已支付
func (o *Order) IsPaid() bool {
	return o != nil && o.Status == constants.OrderStatusPaid
}

// Period 返回订阅周期，非订阅订单为空串
func (o *Order) Period() string {
	if o == nil || !o.IsSubscription || o.SubscriptionPeriod == nil {
		return ""
	}
	return *o.SubscriptionPeriod
}
