package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorders(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET /{year}/{month}/{$}", "GET", 200, 20*time.Millisecond)
	m.ObserveHTTP("", "GET", 404, time.Millisecond)
	m.BillChanged("created")
	m.BillChanged("created")
	m.ViewCacheLookup(true)
	m.ViewCacheLookup(false)
	m.EventPublished(nil)
	m.EventPublished(errors.New("broker down"))
	m.MirrorOp("upsert", nil)
	m.RateLimited()
	m.SuspiciousRequest()

	if got := testutil.ToFloat64(m.billChanges.WithLabelValues("created")); got != 2 {
		t.Errorf("bill changes = %v", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("unmatched", "GET", "404")); got != 1 {
		t.Errorf("unmatched requests = %v", got)
	}
	if got := testutil.ToFloat64(m.eventsPublish.WithLabelValues("error")); got != 1 {
		t.Errorf("failed publishes = %v", got)
	}
	if got := testutil.ToFloat64(m.rateLimited); got != 1 {
		t.Errorf("rate limited = %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("x", "GET", 200, time.Second)
	m.BillChanged("deleted")
	m.ViewCacheLookup(true)
	m.EventPublished(nil)
	m.MirrorOp("resync", nil)
	m.RateLimited()
	m.SuspiciousRequest()
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.BillChanged("updated")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `budget_bill_changes_total{action="updated"} 1`) {
		t.Errorf("metric missing from exposition:\n%s", body)
	}
}
