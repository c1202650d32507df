package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/paysub/internal/constants"
)

const subscriptionStateCacheTTL = 60 * time.Second

// SubscriptionState 用户当前订阅窗口快照
// Active 为 false 时表示已确认无有效订阅
type SubscriptionState struct {
	UserID    uint   `json:"user_id"`
	Active    bool   `json:"active"`
	OrderNo   string `json:"order_no,omitempty"`
	Period    string `json:"period,omitempty"`
	StartUnix int64  `json:"start_unix,omitempty"`
	EndUnix   int64  `json:"end_unix,omitempty"`
}

// SubscriptionStateKey 订阅快照缓存键
func SubscriptionStateKey(userID uint) string {
	return fmt.Sprintf("%s:%d", constants.SubscriptionCacheKeyPrefix, userID)
}

// GetSubscriptionState 读取订阅快照
func GetSubscriptionState(ctx context.Context, userID uint) (*SubscriptionState, bool, error) {
	var state SubscriptionState
	hit, err := GetJSON(ctx, SubscriptionStateKey(userID), &state)
	if err != nil || !hit {
		return nil, false, err
	}
	return &state, true, nil
}

// SetSubscriptionState 写入订阅快照
func SetSubscriptionState(ctx context.Context, state *SubscriptionState) error {
	if state == nil || state.UserID == 0 {
		return nil
	}
	return SetJSON(ctx, SubscriptionStateKey(state.UserID), state, subscriptionStateCacheTTL)
}

// DelSubscriptionState 删除订阅快照
func DelSubscriptionState(ctx context.Context, userID uint) error {
	return Del(ctx, SubscriptionStateKey(userID))
}
