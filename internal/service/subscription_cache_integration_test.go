//go:build integration
// +build integration

package service

import (
	"context"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/paysub/internal/cache"
	"github.com/paysub/internal/config"
	"github.com/paysub/internal/constants"
)

// setupRedisIntegrationCache 初始化 Redis 集成测试缓存。
func setupRedisIntegrationCache(t *testing.T) {
	t.Helper()

	addr := strings.TrimSpace(os.Getenv("TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("skip redis integration test: TEST_REDIS_ADDR is empty")
	}
	host, rawPort, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("parse TEST_REDIS_ADDR failed: %v", err)
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		t.Fatalf("parse redis port failed: %v", err)
	}
	if err := cache.InitRedis(&config.RedisConfig{Enabled: true, Host: host, Port: port, Prefix: "ps_test"}); err != nil {
		t.Fatalf("init redis failed: %v", err)
	}
	if err := cache.Client().Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping redis failed: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Close()
		_ = cache.InitRedis(&config.RedisConfig{Enabled: false})
	})
}

func TestRedisSubscriptionStateRefreshedAfterPayment(t *testing.T) {
	setupRedisIntegrationCache(t)
	f := newPaymentFixture(t)
	ctx := context.Background()
	const userID uint = 4201
	_ = cache.DelSubscriptionState(ctx, userID)
	t.Cleanup(func() { _ = cache.DelSubscriptionState(context.Background(), userID) })

	subscriptions := NewSubscriptionService(f.orderRepo).WithClock(fixedClock(notifyNow))
	f.svc.WithSubscriptionCache(subscriptions)

	before, err := subscriptions.GetActive(ctx, userID)
	if err != nil {
		t.Fatalf("get active failed: %v", err)
	}
	if before.Active {
		t.Fatalf("expected no active subscription before payment")
	}
	if _, hit, err := cache.GetSubscriptionState(ctx, userID); err != nil || !hit {
		t.Fatalf("inactive state should be cached: hit=%v err=%v", hit, err)
	}

	// 队列未启用时由回调直接失效缓存
	f.seedPending(t, "20250401120000031", userID, "9.90", "monthly")
	form := signedNotifyForm("20250401120000031", "9.90", constants.EpayTradeStatusSuccess)
	if _, err := f.svc.HandleNotify(ctx, NotifyInput{Form: form}); err != nil {
		t.Fatalf("handle notify failed: %v", err)
	}

	after, err := subscriptions.GetActive(ctx, userID)
	if err != nil {
		t.Fatalf("get active failed: %v", err)
	}
	if !after.Active || after.OrderNo != "20250401120000031" {
		t.Fatalf("expected fresh active subscription, got %+v", after)
	}
}
