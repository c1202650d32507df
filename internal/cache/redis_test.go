package cache

import (
	"context"
	"testing"

	"github.com/paysub/internal/config"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init redis failed: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("cache should be disabled")
	}
	ctx := context.Background()
	if err := SetSubscriptionState(ctx, &SubscriptionState{UserID: 1, Active: true}); err != nil {
		t.Fatalf("disabled set should be noop: %v", err)
	}
	state, hit, err := GetSubscriptionState(ctx, 1)
	if err != nil || hit || state != nil {
		t.Fatalf("disabled get should miss: %v %v %+v", err, hit, state)
	}
	if err := DelSubscriptionState(ctx, 1); err != nil {
		t.Fatalf("disabled del should be noop: %v", err)
	}
}

func TestBuildKey(t *testing.T) {
	prev := redisPrefix
	redisPrefix = "ps"
	t.Cleanup(func() { redisPrefix = prev })

	if got := buildKey(SubscriptionStateKey(7)); got != "ps:subscription:active:7" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := buildKey("  "); got != "ps" {
		t.Fatalf("unexpected empty key: %s", got)
	}
}
