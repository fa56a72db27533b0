package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/devcollab/edgegate"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type fakeSource struct {
	snapshot edgegate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() edgegate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func gather(t *testing.T, c prometheus.Collector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestCollectorCountersAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: edgegate.MetricsSnapshot{
			Counters: map[edgegate.MetricID]uint64{
				edgegate.MetricRedirectLogin: 7,
			},
			Histograms: map[edgegate.MetricID][]uint64{
				edgegate.MetricDecisionLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	fams := gather(t, c)

	if got := fams["edgegate_redirect_login_total"].GetMetric()[0].GetCounter().GetValue(); got != 7 {
		t.Fatalf("redirect login = %v", got)
	}
	if got := fams["edgegate_decision_allow_total"].GetMetric()[0].GetCounter().GetValue(); got != 0 {
		t.Fatalf("allow = %v", got)
	}
	if got := fams["edgegate_audit_dropped_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("audit dropped = %v", got)
	}

	h := fams["edgegate_decision_latency_seconds"].GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 36 {
		t.Fatalf("sample count = %d", h.GetSampleCount())
	}
	b := h.GetBucket()
	if len(b) != 7 || b[0].GetUpperBound() != 0.000001 || b[0].GetCumulativeCount() != 1 {
		t.Fatalf("unexpected buckets %v", b)
	}
	if b[6].GetCumulativeCount() != 28 {
		t.Fatalf("1ms bucket = %d, want 28", b[6].GetCumulativeCount())
	}
}

func TestCollectorOmitsDisabledHistogram(t *testing.T) {
	fams := gather(t, NewCollectorFromSource(fakeSource{
		snapshot: edgegate.MetricsSnapshot{
			Counters:   map[edgegate.MetricID]uint64{},
			Histograms: map[edgegate.MetricID][]uint64{},
		},
	}))
	if _, ok := fams["edgegate_decision_latency_seconds"]; ok {
		t.Fatal("histogram should be absent when latency is disabled")
	}
	if _, ok := fams["edgegate_redirect_home_total"]; !ok {
		t.Fatal("counters are always exposed")
	}
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	engine, err := edgegate.New().Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()
	engine.Evaluate(context.Background(), "/home", edgegate.CredentialPair{})

	h, err := Handler(engine)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "edgegate_redirect_login_total 1") {
		t.Fatalf("missing counter:\n%s", rec.Body.String())
	}
}
