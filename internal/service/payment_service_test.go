package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paysub/internal/constants"
	"github.com/paysub/internal/models"
	"github.com/paysub/internal/payment/epay"
	"github.com/paysub/internal/repository"

	"gorm.io/gorm"
)

var notifyNow = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

type paymentFixture struct {
	db        *gorm.DB
	orderRepo *repository.GormOrderRepository
	notifRepo *repository.GormNotificationRepository
	publisher *recordingPublisher
	svc       *PaymentService
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	db := setupServiceTestDB(t)
	orderRepo, notifRepo := newTestRepos(db)
	publisher := &recordingPublisher{}
	svc := NewPaymentService(orderRepo, notifRepo, testEpayConfig(), publisher, nil).
		WithClock(fixedClock(notifyNow))
	return &paymentFixture{db: db, orderRepo: orderRepo, notifRepo: notifRepo, publisher: publisher, svc: svc}
}

func (f *paymentFixture) seedPending(t *testing.T, orderNo string, userID uint, money string, period string) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:        userID,
		ProductID:     "pro_" + period,
		Name:          "Pro",
		Money:         testCatalogPrice(t, money),
		OrderNo:       orderNo,
		PaymentMethod: constants.PaymentMethodAlipay,
		Status:        constants.OrderStatusPending,
	}
	if period != "" {
		p := period
		order.IsSubscription = true
		order.SubscriptionPeriod = &p
	}
	if err := f.orderRepo.Create(context.Background(), order); err != nil {
		t.Fatalf("seed order failed: %v", err)
	}
	return order
}

func (f *paymentFixture) reload(t *testing.T, orderNo string) *models.Order {
	t.Helper()
	order, err := f.orderRepo.GetByOrderNo(context.Background(), orderNo)
	if err != nil || order == nil {
		t.Fatalf("reload order failed: %v", err)
	}
	return order
}

func signedNotifyForm(orderNo, money, status string) map[string][]string {
	params := map[string]string{
		"pid":          "1001",
		"trade_no":     "T" + orderNo,
		"out_trade_no": orderNo,
		"type":         "alipay",
		"name":         "Pro",
		"money":        money,
		"trade_status": status,
	}
	params["sign"] = epay.Sign(params, testMerchantKey)
	params["sign_type"] = "MD5"
	form := make(map[string][]string, len(params))
	for k, v := range params {
		form[k] = []string{v}
	}
	return form
}

func TestHandleNotifyMarksPaidAndIsIdempotent(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	f.seedPending(t, "20250401120000001", 1, "9.90", "monthly")
	form := signedNotifyForm("20250401120000001", "9.90", constants.EpayTradeStatusSuccess)

	result, err := f.svc.HandleNotify(ctx, NotifyInput{Form: form, ClientIP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("handle notify failed: %v", err)
	}
	if result.Outcome != constants.NotifyOutcomePaid {
		t.Fatalf("expected paid outcome, got %s", result.Outcome)
	}

	order := f.reload(t, "20250401120000001")
	if order.Status != constants.OrderStatusPaid || order.PaidAt == nil {
		t.Fatalf("order not marked paid: %+v", order)
	}
	if order.GatewayTradeNo == nil || *order.GatewayTradeNo != "T20250401120000001" {
		t.Fatalf("unexpected trade no: %v", order.GatewayTradeNo)
	}
	wantEnd := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	if !order.SubscriptionStartDate.Equal(notifyNow) || !order.SubscriptionEndDate.Equal(wantEnd) {
		t.Fatalf("unexpected window %v - %v", order.SubscriptionStartDate, order.SubscriptionEndDate)
	}
	firstEnd := *order.SubscriptionEndDate

	replay, err := f.svc.WithClock(fixedClock(notifyNow.Add(time.Hour))).HandleNotify(ctx, NotifyInput{Form: form})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if replay.Outcome != constants.NotifyOutcomeAlreadyPaid {
		t.Fatalf("expected already_paid, got %s", replay.Outcome)
	}
	order = f.reload(t, "20250401120000001")
	if !order.SubscriptionEndDate.Equal(firstEnd) {
		t.Fatalf("replay must not move window, got %v", order.SubscriptionEndDate)
	}
	if f.publisher.paidCount() != 1 {
		t.Fatalf("expected 1 order paid event, got %d", f.publisher.paidCount())
	}

	rows, err := f.notifRepo.ListByOrderNo(ctx, "20250401120000001", 10)
	if err != nil {
		t.Fatalf("list notifications failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(rows))
	}
}

func TestHandleNotifyConcurrentDeliveriesTransitionOnce(t *testing.T) {
	f := newPaymentFixture(t)
	f.seedPending(t, "20250401120000002", 2, "9.90", "monthly")
	form := signedNotifyForm("20250401120000002", "9.90", constants.EpayTradeStatusSuccess)

	const workers = 8
	var wg sync.WaitGroup
	outcomes := make(chan string, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.svc.HandleNotify(context.Background(), NotifyInput{Form: form})
			if err != nil {
				errs <- err
				return
			}
			outcomes <- result.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent notify failed: %v", err)
	}
	paid := 0
	for outcome := range outcomes {
		switch outcome {
		case constants.NotifyOutcomePaid:
			paid++
		case constants.NotifyOutcomeAlreadyPaid, constants.NotifyOutcomeLostRace:
		default:
			t.Fatalf("unexpected outcome %s", outcome)
		}
	}
	if paid != 1 {
		t.Fatalf("expected exactly one transition, got %d", paid)
	}
	if f.publisher.paidCount() != 1 {
		t.Fatalf("expected 1 order paid event, got %d", f.publisher.paidCount())
	}
}

func TestHandleNotifyAmountTolerance(t *testing.T) {
	cases := []struct {
		name   string
		money  string
		wantOK bool
	}{
		{name: "exact", money: "9.90", wantOK: true},
		{name: "within", money: "9.901", wantOK: true},
		{name: "below_within", money: "9.899", wantOK: true},
		{name: "beyond", money: "9.9011", wantOK: false},
		{name: "far", money: "1.00", wantOK: false},
		{name: "garbage", money: "abc", wantOK: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newPaymentFixture(t)
			f.seedPending(t, "20250401120000003", 3, "9.90", "")
			_, err := f.svc.HandleNotify(context.Background(), NotifyInput{
				Form: signedNotifyForm("20250401120000003", tc.money, constants.EpayTradeStatusSuccess),
			})
			order := f.reload(t, "20250401120000003")
			if tc.wantOK {
				if err != nil || order.Status != constants.OrderStatusPaid {
					t.Fatalf("expected paid, err=%v status=%s", err, order.Status)
				}
				return
			}
			if !errors.Is(err, ErrAmountMismatch) {
				t.Fatalf("expected ErrAmountMismatch, got %v", err)
			}
			if order.Status != constants.OrderStatusPending {
				t.Fatalf("order must stay pending, got %s", order.Status)
			}
			if types := f.publisher.alertTypes(); len(types) != 1 || types[0] != constants.PaymentAlertAmountMismatch {
				t.Fatalf("unexpected alerts %v", types)
			}
		})
	}
}

func TestHandleNotifyStacksSubscription(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	start := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	active := f.seedPending(t, "20250315000000001", 4, "9.90", "monthly")
	trade := "T-active"
	if _, err := f.orderRepo.MarkPaid(ctx, active.OrderNo, repository.PaidTransition{
		TradeNo: trade, PaidAt: start, StartDate: &start, EndDate: &end,
	}); err != nil {
		t.Fatalf("seed active subscription failed: %v", err)
	}

	f.seedPending(t, "20250401120000004", 4, "9.90", "monthly")
	result, err := f.svc.HandleNotify(ctx, NotifyInput{
		Form: signedNotifyForm("20250401120000004", "9.90", constants.EpayTradeStatusSuccess),
	})
	if err != nil || result.Outcome != constants.NotifyOutcomePaid {
		t.Fatalf("notify failed: %v %+v", err, result)
	}
	order := f.reload(t, "20250401120000004")
	if !order.SubscriptionStartDate.Equal(end) {
		t.Fatalf("expected stacked start %v, got %v", end, order.SubscriptionStartDate)
	}
	wantEnd := time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC)
	if !order.SubscriptionEndDate.Equal(wantEnd) {
		t.Fatalf("expected end %v, got %v", wantEnd, order.SubscriptionEndDate)
	}
}

func TestHandleNotifyFreshYearly(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	// 已过期窗口不参与叠加
	oldStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	oldEnd := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	expired := f.seedPending(t, "20240101000000001", 5, "99.00", "yearly")
	if _, err := f.orderRepo.MarkPaid(ctx, expired.OrderNo, repository.PaidTransition{
		TradeNo: "T-old", PaidAt: oldStart, StartDate: &oldStart, EndDate: &oldEnd,
	}); err != nil {
		t.Fatalf("seed expired subscription failed: %v", err)
	}

	f.seedPending(t, "20250401120000005", 5, "99.00", "yearly")
	if _, err := f.svc.HandleNotify(ctx, NotifyInput{
		Form: signedNotifyForm("20250401120000005", "99.00", constants.EpayTradeStatusSuccess),
	}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	order := f.reload(t, "20250401120000005")
	if !order.SubscriptionStartDate.Equal(notifyNow) {
		t.Fatalf("expected fresh start at now, got %v", order.SubscriptionStartDate)
	}
	if !order.SubscriptionEndDate.Equal(notifyNow.AddDate(1, 0, 0)) {
		t.Fatalf("unexpected yearly end %v", order.SubscriptionEndDate)
	}
}

func TestHandleNotifyOneTimeProductHasNoWindow(t *testing.T) {
	f := newPaymentFixture(t)
	f.seedPending(t, "20250401120000006", 6, "5.00", "")
	if _, err := f.svc.HandleNotify(context.Background(), NotifyInput{
		Form: signedNotifyForm("20250401120000006", "5.00", constants.EpayTradeStatusSuccess),
	}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	order := f.reload(t, "20250401120000006")
	if order.Status != constants.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", order.Status)
	}
	if order.SubscriptionStartDate != nil || order.SubscriptionEndDate != nil {
		t.Fatalf("one-time order must not carry a window")
	}
}

func TestHandleNotifyIgnoresNonSuccessStatus(t *testing.T) {
	f := newPaymentFixture(t)
	f.seedPending(t, "20250401120000007", 7, "9.90", "monthly")
	result, err := f.svc.HandleNotify(context.Background(), NotifyInput{
		Form: signedNotifyForm("20250401120000007", "9.90", "WAIT_BUYER_PAY"),
	})
	if err != nil {
		t.Fatalf("expected acknowledgement, got %v", err)
	}
	if result.Outcome != constants.NotifyOutcomeIgnored {
		t.Fatalf("expected ignored, got %s", result.Outcome)
	}
	if f.reload(t, "20250401120000007").Status != constants.OrderStatusPending {
		t.Fatalf("order must stay pending")
	}
}

func TestHandleNotifyRejections(t *testing.T) {
	t.Run("bad_signature", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.seedPending(t, "20250401120000008", 8, "9.90", "monthly")
		form := signedNotifyForm("20250401120000008", "9.90", constants.EpayTradeStatusSuccess)
		form["sign"] = []string{"00000000000000000000000000000000"}
		_, err := f.svc.HandleNotify(context.Background(), NotifyInput{Form: form})
		if !errors.Is(err, ErrSignatureMismatch) {
			t.Fatalf("expected ErrSignatureMismatch, got %v", err)
		}
		if types := f.publisher.alertTypes(); len(types) != 1 || types[0] != constants.PaymentAlertSignatureInvalid {
			t.Fatalf("unexpected alerts %v", types)
		}
		if f.reload(t, "20250401120000008").Status != constants.OrderStatusPending {
			t.Fatalf("order must stay pending")
		}
	})

	t.Run("tampered_money", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.seedPending(t, "20250401120000009", 9, "9.90", "monthly")
		form := signedNotifyForm("20250401120000009", "0.01", constants.EpayTradeStatusSuccess)
		form["money"] = []string{"9.90"}
		if _, err := f.svc.HandleNotify(context.Background(), NotifyInput{Form: form}); !errors.Is(err, ErrSignatureMismatch) {
			t.Fatalf("expected ErrSignatureMismatch, got %v", err)
		}
	})

	t.Run("merchant_mismatch", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.seedPending(t, "20250401120000010", 10, "9.90", "monthly")
		params := map[string]string{
			"pid": "2002", "trade_no": "T1", "out_trade_no": "20250401120000010",
			"money": "9.90", "trade_status": constants.EpayTradeStatusSuccess,
		}
		params["sign"] = epay.Sign(params, testMerchantKey)
		form := map[string][]string{}
		for k, v := range params {
			form[k] = []string{v}
		}
		if _, err := f.svc.HandleNotify(context.Background(), NotifyInput{Form: form}); !errors.Is(err, ErrMerchantMismatch) {
			t.Fatalf("expected ErrMerchantMismatch, got %v", err)
		}
	})

	t.Run("unknown_order", func(t *testing.T) {
		f := newPaymentFixture(t)
		_, err := f.svc.HandleNotify(context.Background(), NotifyInput{
			Form: signedNotifyForm("20250401129999999", "9.90", constants.EpayTradeStatusSuccess),
		})
		if !errors.Is(err, ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
		if types := f.publisher.alertTypes(); len(types) != 1 || types[0] != constants.PaymentAlertOrderNotFound {
			t.Fatalf("unexpected alerts %v", types)
		}
	})

	t.Run("missing_fields", func(t *testing.T) {
		f := newPaymentFixture(t)
		_, err := f.svc.HandleNotify(context.Background(), NotifyInput{Form: map[string][]string{"money": {"9.90"}}})
		if !errors.Is(err, ErrNotifyInvalid) {
			t.Fatalf("expected ErrNotifyInvalid, got %v", err)
		}
		if !IsNotifyRejection(err) {
			t.Fatalf("expected rejection classification")
		}
	})
}

func TestHandleNotifyFailedOrderNotTransitioned(t *testing.T) {
	f := newPaymentFixture(t)
	f.seedPending(t, "20250401120000011", 11, "9.90", "")
	if err := f.db.Model(&models.Order{}).Where("order_no = ?", "20250401120000011").
		Update("status", constants.OrderStatusFailed).Error; err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	result, err := f.svc.HandleNotify(context.Background(), NotifyInput{
		Form: signedNotifyForm("20250401120000011", "9.90", constants.EpayTradeStatusSuccess),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != constants.NotifyOutcomeNotPending {
		t.Fatalf("expected not_pending, got %s", result.Outcome)
	}
	if f.reload(t, "20250401120000011").Status != constants.OrderStatusFailed {
		t.Fatalf("failed order must not change")
	}
}

func TestComputeSubscriptionWindow(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	future := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	past := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		period    string
		latestEnd *time.Time
		wantStart time.Time
		wantEnd   time.Time
		stacked   bool
	}{
		{name: "monthly_fresh", period: "monthly", wantStart: now, wantEnd: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)},
		{name: "yearly_fresh", period: "yearly", wantStart: now, wantEnd: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)},
		{name: "monthly_stacked", period: "monthly", latestEnd: &future, wantStart: future, wantEnd: time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC), stacked: true},
		{name: "expired_not_stacked", period: "monthly", latestEnd: &past, wantStart: now, wantEnd: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)},
		{name: "equal_now_not_stacked", period: "yearly", latestEnd: &now, wantStart: now, wantEnd: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := ComputeSubscriptionWindow(tc.period, tc.latestEnd, now)
			if err != nil {
				t.Fatalf("compute failed: %v", err)
			}
			if !w.Start.Equal(tc.wantStart) || !w.End.Equal(tc.wantEnd) || w.Stacked != tc.stacked {
				t.Fatalf("unexpected window %+v", w)
			}
		})
	}

	if _, err := ComputeSubscriptionWindow("weekly", nil, now); !errors.Is(err, ErrSubscriptionPeriodInvalid) {
		t.Fatalf("expected ErrSubscriptionPeriodInvalid, got %v", err)
	}
}

func TestHandleNotifyInvalidatesSubscriptionCache(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	invalidator := &recordingInvalidator{}
	f.svc.WithSubscriptionCache(invalidator)

	f.seedPending(t, "20250401120000011", 12, "9.90", "monthly")
	f.seedPending(t, "20250401120000012", 13, "5.00", "")
	form := signedNotifyForm("20250401120000011", "9.90", constants.EpayTradeStatusSuccess)

	if _, err := f.svc.HandleNotify(ctx, NotifyInput{Form: form}); err != nil {
		t.Fatalf("handle notify failed: %v", err)
	}
	if got := invalidator.invalidated(); len(got) != 1 || got[0] != 12 {
		t.Fatalf("expected cache invalidated for user 12, got %v", got)
	}

	if _, err := f.svc.HandleNotify(ctx, NotifyInput{Form: form}); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	oneTime := signedNotifyForm("20250401120000012", "5.00", constants.EpayTradeStatusSuccess)
	if _, err := f.svc.HandleNotify(ctx, NotifyInput{Form: oneTime}); err != nil {
		t.Fatalf("one-time notify failed: %v", err)
	}
	if got := invalidator.invalidated(); len(got) != 1 {
		t.Fatalf("replay and one-time orders must not invalidate, got %v", got)
	}
}

func TestHandleNotifyRejectsSuccessWithoutTradeNo(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	f.seedPending(t, "20250401120000021", 1, "9.90", "monthly")
	form := signForm(map[string]string{
		"pid":          "1001",
		"out_trade_no": "20250401120000021",
		"type":         "alipay",
		"name":         "Pro",
		"money":        "9.90",
		"trade_status": constants.EpayTradeStatusSuccess,
	})

	_, err := f.svc.HandleNotify(ctx, NotifyInput{Form: form})
	if !errors.Is(err, ErrNotifyInvalid) || !IsNotifyRejection(err) {
		t.Fatalf("expected ErrNotifyInvalid rejection, got %v", err)
	}
	order := f.reload(t, "20250401120000021")
	if order.Status != constants.OrderStatusPending || order.GatewayTradeNo != nil {
		t.Fatalf("order must stay pending without trade no: %+v", order)
	}
	if f.publisher.paidCount() != 0 {
		t.Fatalf("no paid event expected, got %d", f.publisher.paidCount())
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	cases := []struct {
		value string
		limit int
		want  string
	}{
		{value: "abc", limit: 5, want: "abc"},
		{value: "abcdef", limit: 3, want: "abc"},
		{value: "订单支付", limit: 4, want: "订"},
		{value: "订单支付", limit: 6, want: "订单"},
		{value: "a订单", limit: 2, want: "a"},
		{value: "订单", limit: 0, want: "订单"},
	}
	for _, tc := range cases {
		if got := truncate(tc.value, tc.limit); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.value, tc.limit, got, tc.want)
		}
	}
}
