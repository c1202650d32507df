package service

import (
	"fmt"
	"time"

	"github.com/paysub/internal/constants"
)

// SubscriptionWindow 订阅有效区间 [Start, End)
type SubscriptionWindow struct {
	Start   time.Time
	End     time.Time
	Stacked bool // 是否接续在未过期窗口之后
}

// ComputeSubscriptionWindow 计算新订阅窗口
// latestEnd 为用户最新未过期窗口的结束时间，严格晚于 now 时新窗口从该时间开始，否则从 now 开始
func ComputeSubscriptionWindow(period string, latestEnd *time.Time, now time.Time) (SubscriptionWindow, error) {
	start := now
	stacked := false
	if latestEnd != nil && latestEnd.After(now) {
		start = *latestEnd
		stacked = true
	}

	var end time.Time
	switch period {
	case constants.SubscriptionPeriodMonthly:
		end = start.AddDate(0, 1, 0)
	case constants.SubscriptionPeriodYearly:
		end = start.AddDate(1, 0, 0)
	default:
		return SubscriptionWindow{}, fmt.Errorf("%w: %q", ErrSubscriptionPeriodInvalid, period)
	}
	return SubscriptionWindow{Start: start, End: end, Stacked: stacked}, nil
}
