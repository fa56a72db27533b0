package internaldefs

import (
	"strconv"
	"strings"
	"testing"

	"github.com/devcollab/edgegate"
)

func TestDefsCoverEveryCounter(t *testing.T) {
	seen := map[edgegate.MetricID]bool{}
	names := map[string]bool{}
	for _, d := range CounterDefs {
		if seen[d.ID] || names[d.Name] {
			t.Fatalf("duplicate def %+v", d)
		}
		if !strings.HasPrefix(d.Name, "edgegate_") || !strings.HasSuffix(d.Name, "_total") {
			t.Fatalf("bad counter name %q", d.Name)
		}
		seen[d.ID] = true
		names[d.Name] = true
	}
	if seen[edgegate.MetricDecisionLatency] {
		t.Fatal("latency is a histogram, not a counter")
	}
	if len(CounterDefs) != int(edgegate.MetricDecisionLatency) {
		t.Fatalf("counter defs = %d, want %d", len(CounterDefs), edgegate.MetricDecisionLatency)
	}
}

func TestBoundsMatchEngine(t *testing.T) {
	bounds := UpperBoundsSeconds()
	if len(bounds) != len(HistogramBounds)-1 {
		t.Fatal("bucket tables disagree")
	}
	for i, b := range bounds {
		le, err := strconv.ParseFloat(HistogramBounds[i], 64)
		if err != nil || le != b {
			t.Fatalf("bound %d: label %q, engine %v", i, HistogramBounds[i], b)
		}
	}
	if bounds[0] != 0.000001 || bounds[len(bounds)-1] != 0.001 {
		t.Fatalf("unexpected bounds %v", bounds)
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 0, 3}))
	want := [8]uint64{1, 3, 3, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}
