package internaldefs

import (
	"github.com/devcollab/edgegate"
)

// CounterDef names one engine counter for every exporter.
type CounterDef struct {
	ID   edgegate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for every exporter.
type HistogramDef struct {
	ID   edgegate.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: edgegate.MetricDecisionAllow, Name: "edgegate_decision_allow_total", Help: "Requests allowed through the gate."},
	{ID: edgegate.MetricDecisionBypass, Name: "edgegate_decision_bypass_total", Help: "Auth hand-off requests passed through untouched."},
	{ID: edgegate.MetricRedirectLogin, Name: "edgegate_redirect_login_total", Help: "Redirects to the login page."},
	{ID: edgegate.MetricRedirectHome, Name: "edgegate_redirect_home_total", Help: "Redirects to home."},
	{ID: edgegate.MetricRedirectAdminLogin, Name: "edgegate_redirect_admin_login_total", Help: "Redirects to the admin login page."},
	{ID: edgegate.MetricRedirectAdminDashboard, Name: "edgegate_redirect_admin_dashboard_total", Help: "Redirects to the admin dashboard."},
	{ID: edgegate.MetricAdminDemoted, Name: "edgegate_admin_demoted_total", Help: "Authenticated admin-namespace requests without an admin role claim."},
	{ID: edgegate.MetricClaimsUndecodable, Name: "edgegate_claims_undecodable_total", Help: "Authenticated requests whose credential could not be decoded."},
}

var HistogramDefs = []HistogramDef{
	{ID: edgegate.MetricDecisionLatency, Name: "edgegate_decision_latency_seconds", Help: "Decision latency histogram."},
}

// HistogramBounds mirrors edgegate.HistogramBounds in seconds, plus +Inf,
// spelled the way "le" labels carry them.
var HistogramBounds = []string{
	"0.000001",
	"0.000005",
	"0.00001",
	"0.000025",
	"0.00005",
	"0.0001",
	"0.001",
	"+Inf",
}

// UpperBoundsSeconds returns the finite bucket bounds in seconds.
func UpperBoundsSeconds() []float64 {
	out := make([]float64, len(edgegate.HistogramBounds))
	for i, b := range edgegate.HistogramBounds {
		out[i] = b.Seconds()
	}
	return out
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
