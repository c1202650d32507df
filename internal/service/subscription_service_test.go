package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paysub/internal/config"
	"github.com/paysub/internal/repository"
)

func TestSubscriptionServiceGetActive(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	svc := NewSubscriptionService(f.orderRepo).WithClock(fixedClock(notifyNow))

	got, err := svc.GetActive(ctx, 12)
	if err != nil {
		t.Fatalf("get active failed: %v", err)
	}
	if got.Active {
		t.Fatalf("expected no active subscription")
	}

	start := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	order := f.seedPending(t, "20250320000000001", 12, "9.90", "monthly")
	if _, err := f.orderRepo.MarkPaid(ctx, order.OrderNo, repository.PaidTransition{
		TradeNo: "T1", PaidAt: start, StartDate: &start, EndDate: &end,
	}); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	got, err = svc.GetActive(ctx, 12)
	if err != nil {
		t.Fatalf("get active failed: %v", err)
	}
	if !got.Active || got.OrderNo != order.OrderNo || got.Period != "monthly" {
		t.Fatalf("unexpected subscription %+v", got)
	}
	if !got.EndDate.Equal(end) {
		t.Fatalf("unexpected end %v", got.EndDate)
	}

	if _, err := svc.GetActive(ctx, 0); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if err := svc.Invalidate(ctx, 12); err != nil {
		t.Fatalf("invalidate with cache disabled should be noop: %v", err)
	}
}

func TestCaptchaServiceVerify(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Scenes: config.CaptchaSceneConfig{OrderIssue: true}})
	if !svc.IsSceneEnabled(CaptchaSceneOrderIssue) {
		t.Fatalf("order_issue scene should be enabled")
	}

	challenge, err := svc.GenerateImageChallenge()
	if err != nil {
		t.Fatalf("generate challenge failed: %v", err)
	}
	if challenge.CaptchaID == "" || challenge.ImageBase64 == "" {
		t.Fatalf("empty challenge %+v", challenge)
	}
	answer := svc.store().Get(challenge.CaptchaID, false)

	if err := svc.Verify(CaptchaSceneOrderIssue, CaptchaVerifyPayload{}); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("expected ErrCaptchaRequired, got %v", err)
	}
	if err := svc.Verify(CaptchaSceneOrderIssue, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: answer}); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if err := svc.Verify(CaptchaSceneOrderIssue, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: answer}); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("answer must be single use, got %v", err)
	}

	disabled := NewCaptchaService(config.CaptchaConfig{})
	if err := disabled.Verify(CaptchaSceneOrderIssue, CaptchaVerifyPayload{}); err != nil {
		t.Fatalf("disabled scene should pass, got %v", err)
	}
}
