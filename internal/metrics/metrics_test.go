package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPaymentMetricsCounters(t *testing.T) {
	m := New()
	m.ObserveNotify("paid", 0.01)
	m.ObserveNotify("paid", 0.02)
	m.ObserveNotify("rejected", 0.01)
	m.IncPaymentAlert("signature_invalid")
	m.IncOrderIssueRetry()
	m.IncSubscriptionWindow("monthly", true)

	if got := testutil.ToFloat64(m.NotifyTotal.WithLabelValues("paid")); got != 2 {
		t.Fatalf("unexpected paid count: %v", got)
	}
	if got := testutil.ToFloat64(m.OrderIssueRetries); got != 1 {
		t.Fatalf("unexpected retry count: %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `paysub_payment_alert_total{type="signature_invalid"} 1`) {
		t.Fatalf("metrics output missing alert counter: %s", string(body))
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *PaymentMetrics
	m.ObserveNotify("paid", 0)
	m.ObserveOrderIssue("ok", 0)
	m.IncOrderIssueRetry()
	m.IncPaymentAlert("x")
	m.IncSubscriptionWindow("yearly", false)
	if m.Handler() == nil {
		t.Fatalf("nil metrics should still return a handler")
	}
}
