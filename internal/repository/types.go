package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrDuplicateOrderNo 订单号唯一约束冲突
var ErrDuplicateOrderNo = errors.New("duplicate order no")

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Status   string
}

// PaidTransition 订单置为已支付时写入的字段
type PaidTransition struct {
	TradeNo   string
	PaidAt    time.Time
	StartDate *time.Time
	EndDate   *time.Time
}

// applyPagination 应用分页参数，统一处理非法页码与偏移量。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
