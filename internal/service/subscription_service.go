package service

import (
	"context"
	"fmt"
	"time"

	"github.com/paysub/internal/cache"
	"github.com/paysub/internal/logger"
	"github.com/paysub/internal/repository"
)

// ActiveSubscription 用户当前有效订阅
type ActiveSubscription struct {
	Active    bool       `json:"active"`
	OrderNo   string     `json:"order_no,omitempty"`
	Period    string     `json:"period,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// SubscriptionCacheInvalidator 订阅缓存失效（由 SubscriptionService 实现）
type SubscriptionCacheInvalidator interface {
	Invalidate(ctx context.Context, userID uint) error
}

// SubscriptionService 订阅状态查询
type SubscriptionService struct {
	orderRepo repository.OrderRepository
	now       func() time.Time
}

// NewSubscriptionService 创建订阅状态服务
func NewSubscriptionService(orderRepo repository.OrderRepository) *SubscriptionService {
	return &SubscriptionService{orderRepo: orderRepo, now: time.Now}
}

// WithClock 替换时钟
func (s *SubscriptionService) WithClock(now func() time.Time) *SubscriptionService {
	if now != nil {
		s.now = now
	}
	return s
}

// GetActive 查询用户结束时间最晚的有效订阅，优先读缓存
func (s *SubscriptionService) GetActive(ctx context.Context, userID uint) (*ActiveSubscription, error) {
	if userID == 0 {
		return nil, ErrAuthRequired
	}
	now := s.now().UTC()

	if state, hit, err := cache.GetSubscriptionState(ctx, userID); err != nil {
		logger.Warnw("subscription_cache_read_failed", "user_id", userID, "error", err)
	} else if hit && (!state.Active || state.EndUnix > now.Unix()) {
		return fromSubscriptionState(state), nil
	}

	order, err := s.orderRepo.GetLatestActiveSubscription(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	state := &cache.SubscriptionState{UserID: userID}
	if order != nil && order.SubscriptionStartDate != nil && order.SubscriptionEndDate != nil {
		state.Active = true
		state.OrderNo = order.OrderNo
		state.Period = order.Period()
		state.StartUnix = order.SubscriptionStartDate.Unix()
		state.EndUnix = order.SubscriptionEndDate.Unix()
	}
	if err := cache.SetSubscriptionState(ctx, state); err != nil {
		logger.Warnw("subscription_cache_write_failed", "user_id", userID, "error", err)
	}
	return fromSubscriptionState(state), nil
}

// Invalidate 删除用户订阅缓存
func (s *SubscriptionService) Invalidate(ctx context.Context, userID uint) error {
	if userID == 0 {
		return nil
	}
	return cache.DelSubscriptionState(ctx, userID)
}

func fromSubscriptionState(state *cache.SubscriptionState) *ActiveSubscription {
	if state == nil || !state.Active {
		return &ActiveSubscription{Active: false}
	}
	start := time.Unix(state.StartUnix, 0).UTC()
	end := time.Unix(state.EndUnix, 0).UTC()
	return &ActiveSubscription{
		Active:    true,
		OrderNo:   state.OrderNo,
		Period:    state.Period,
		StartDate: &start,
		EndDate:   &end,
	}
}
