package edgegate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one decision counter.
type MetricID uint16

const (
	// MetricDecisionAllow counts pass-through verdicts.
	MetricDecisionAllow MetricID = iota
	// MetricDecisionBypass counts auth hand-off paths passed through untouched.
	MetricDecisionBypass
	// MetricRedirectLogin counts redirects to the login page.
	MetricRedirectLogin
	// MetricRedirectHome counts redirects to home.
	MetricRedirectHome
	// MetricRedirectAdminLogin counts redirects to the admin login page.
	MetricRedirectAdminLogin
	// MetricRedirectAdminDashboard counts redirects to the admin dashboard.
	MetricRedirectAdminDashboard
	// MetricAdminDemoted counts authenticated admin-namespace requests
	// without an admin role claim.
	MetricAdminDemoted
	// MetricClaimsUndecodable counts authenticated requests whose credential
	// could not be decoded.
	MetricClaimsUndecodable
	// MetricDecisionLatency is the Evaluate latency histogram.
	MetricDecisionLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free decision counters. A nil or disabled Metrics
// ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds counters from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the latency histogram. Only MetricDecisionLatency
// carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricDecisionLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Disabled metrics produce empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricDecisionLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricDecisionLatency].buckets[i])
		}
		s.Histograms[MetricDecisionLatency] = buckets
	}

	return s
}

// HistogramBounds are the inclusive upper bounds of the latency buckets.
// The last bucket is unbounded. Decisions are pure, so the scale is
// microseconds.
var HistogramBounds = [histBucketCount - 1]time.Duration{
	1 * time.Microsecond,
	5 * time.Microsecond,
	10 * time.Microsecond,
	25 * time.Microsecond,
	50 * time.Microsecond,
	100 * time.Microsecond,
	1 * time.Millisecond,
}

func bucketIndex(d time.Duration) int {
	for i, bound := range HistogramBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}

func redirectMetric(target string, t TargetConfig) (MetricID, bool) {
	switch target {
	case t.Login:
		return MetricRedirectLogin, true
	case t.Home:
		return MetricRedirectHome, true
	case t.AdminLogin:
		return MetricRedirectAdminLogin, true
	case t.AdminDashboard:
		return MetricRedirectAdminDashboard, true
	default:
		return 0, false
	}
}
