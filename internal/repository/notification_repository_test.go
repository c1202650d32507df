package repository

import (
	"context"
	"testing"

	"github.com/paysub/internal/constants"
	"github.com/paysub/internal/models"
)

func TestNotificationRepositoryListByOrderNo(t *testing.T) {
	_, db := setupOrderRepositoryTest(t, true)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	rows := []models.PaymentNotification{
		{OrderNo: "N-1", Outcome: constants.NotifyOutcomeRejected, Payload: models.JSON{"money": "1.00"}},
		{OrderNo: "N-1", Outcome: constants.NotifyOutcomePaid, Payload: models.JSON{"money": "9.90"}},
		{OrderNo: "N-2", Outcome: constants.NotifyOutcomeIgnored},
	}
	for i := range rows {
		if err := repo.Create(ctx, &rows[i]); err != nil {
			t.Fatalf("create notification failed: %v", err)
		}
	}

	list, err := repo.ListByOrderNo(ctx, "N-1", 0)
	if err != nil {
		t.Fatalf("list notifications failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(list))
	}
	if list[0].Outcome != constants.NotifyOutcomePaid {
		t.Fatalf("expected newest first, got %s", list[0].Outcome)
	}
	if list[0].Payload["money"] != "9.90" {
		t.Fatalf("payload should round trip: %+v", list[0].Payload)
	}
}
