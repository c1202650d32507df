package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/paysub/internal/catalog"
	"github.com/paysub/internal/models"
	"github.com/paysub/internal/payment/epay"
	"github.com/paysub/internal/queue"
	"github.com/paysub/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testMerchantKey = "secret-key"

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func testEpayConfig() epay.Config {
	return epay.Config{
		GatewayURL:  "https://pay.example.com",
		MerchantID:  "1001",
		MerchantKey: testMerchantKey,
		BaseURL:     "https://shop.example.com",
		NotifyPath:  "/api/v1/payments/notify",
		ReturnPath:  "/payment/result",
		SignType:    "MD5",
	}
}

func testCatalog(t *testing.T) *catalog.StaticCatalog {
	t.Helper()
	c, err := catalog.NewStaticCatalog([]catalog.ProductDefinition{
		{ID: "pro_monthly", Name: "Pro Monthly", Price: "9.90", IsSubscription: true, SubscriptionPeriod: "monthly"},
		{ID: "pro_yearly", Name: "Pro Yearly", Price: "99.00", IsSubscription: true, SubscriptionPeriod: "yearly"},
		{ID: "credits_100", Name: "100 Credits", Price: "5.00"},
	})
	if err != nil {
		t.Fatalf("build catalog failed: %v", err)
	}
	return c
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

// recordingPublisher 记录投递的支付事件
type recordingPublisher struct {
	mu     sync.Mutex
	paid   []queue.OrderPaidPayload
	alerts []queue.PaymentExceptionAlertPayload
}

func (p *recordingPublisher) EnqueueOrderPaid(payload queue.OrderPaidPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paid = append(p.paid, payload)
	return nil
}

func (p *recordingPublisher) EnqueuePaymentExceptionAlert(payload queue.PaymentExceptionAlertPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, payload)
	return nil
}

func (p *recordingPublisher) paidCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.paid)
}

func (p *recordingPublisher) alertTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.alerts))
	for _, a := range p.alerts {
		types = append(types, a.AlertType)
	}
	return types
}

func newTestRepos(db *gorm.DB) (*repository.GormOrderRepository, *repository.GormNotificationRepository) {
	return repository.NewOrderRepository(db), repository.NewNotificationRepository(db)
}

// recordingInvalidator 记录被失效的订阅缓存用户
type recordingInvalidator struct {
	mu    sync.Mutex
	users []uint
}

func (r *recordingInvalidator) Invalidate(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
	return nil
}

func (r *recordingInvalidator) invalidated() []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint(nil), r.users...)
}

func signForm(params map[string]string) map[string][]string {
	params["sign"] = epay.Sign(params, testMerchantKey)
	params["sign_type"] = "MD5"
	form := make(map[string][]string, len(params))
	for k, v := range params {
		form[k] = []string{v}
	}
	return form
}
