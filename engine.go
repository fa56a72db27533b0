package edgegate

import (
	"context"
	"time"

	"github.com/devcollab/edgegate/claims"
	"github.com/devcollab/edgegate/route"
	"github.com/google/uuid"
)

// Engine is the route authorization decision engine. It is immutable after
// [Builder.Build] and safe for concurrent use.
type Engine struct {
	config  Config
	routes  *route.Classifier
	audit   *auditDispatcher
	metrics *Metrics
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the decision counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Routes exposes the engine's classifier.
func (e *Engine) Routes() *route.Classifier {
	return e.routes
}

// Decide maps a path, the credential state, and the unverified claims to a
// verdict. It is pure: no I/O, no metrics, no audit. The zero
// [claims.Unverified] means no claims could be decoded.
//
// Precedence, first match wins:
//
//  1. bypass paths are allowed unconditionally
//  2. admin namespace: admin login has its own table, other admin pages
//     require an admin role claim
//  3. an authenticated visitor on an auth form goes home
//  4. an authenticated visitor on the landing page goes home
//  5. an unauthenticated visitor on a non-public page goes to login
//  6. everything else is allowed
func (e *Engine) Decide(path string, creds CredentialPair, c claims.Unverified) Verdict {
	class := e.routes.Classify(path)
	if class.Bypass {
		return Allow()
	}

	authenticated := creds.Authenticated()
	admin := authenticated && c.HasRole(e.config.Roles.Admin)
	t := e.config.Targets

	if class.AdminNamespace {
		if e.routes.IsAdminLogin(path) {
			switch {
			case !authenticated:
				return Allow()
			case admin:
				return RedirectTo(t.AdminDashboard)
			default:
				return RedirectTo(t.Home)
			}
		}
		switch {
		case !authenticated:
			return RedirectTo(t.AdminLogin)
		case !admin:
			return RedirectTo(t.Home)
		default:
			return Allow()
		}
	}

	if authenticated && e.routes.IsAuthForm(path) {
		return RedirectTo(t.Home)
	}
	if authenticated && e.routes.IsLanding(path) {
		return RedirectTo(t.Home)
	}
	if !authenticated && !class.Public {
		return RedirectTo(t.Login)
	}
	return Allow()
}

// Evaluate decodes the preferred credential, decides, and records metrics
// and an audit event. Decoding failures demote the visitor to "no role".
func (e *Engine) Evaluate(ctx context.Context, path string, creds CredentialPair) Decision {
	start := time.Now()

	authenticated := creds.Authenticated()
	var (
		c       claims.Unverified
		decoded bool
	)
	if authenticated {
		c, decoded = claims.Decode(creds.Preferred())
	}

	verdict := e.Decide(path, creds, c)
	_, roleKnown := c.Role()
	d := Decision{
		Verdict:       verdict,
		Path:          route.Normalize(path),
		Class:         e.routes.Classify(path),
		Authenticated: authenticated,
		RoleKnown:     roleKnown,
		Admin:         authenticated && c.HasRole(e.config.Roles.Admin),
	}

	e.record(d, authenticated && !decoded)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricDecisionLatency, time.Since(start))
	}
	e.emitAudit(ctx, d)

	return d
}

func (e *Engine) record(d Decision, undecodable bool) {
	if !e.metrics.Enabled() {
		return
	}
	if undecodable {
		e.metrics.Inc(MetricClaimsUndecodable)
	}
	if d.Class.AdminNamespace && d.Authenticated && !d.Admin && !d.Class.Bypass {
		e.metrics.Inc(MetricAdminDemoted)
	}
	if d.Verdict.Allowed() {
		e.metrics.Inc(MetricDecisionAllow)
		if d.Class.Bypass {
			e.metrics.Inc(MetricDecisionBypass)
		}
		return
	}
	if id, ok := redirectMetric(d.Verdict.Target, e.config.Targets); ok {
		e.metrics.Inc(id)
	}
}

func (e *Engine) emitAudit(ctx context.Context, d Decision) {
	if e.audit == nil {
		return
	}
	e.audit.Emit(ctx, AuditEvent{
		Timestamp:     time.Now().UTC(),
		EventID:       uuid.NewString(),
		EventType:     auditEventDecision,
		RequestID:     RequestIDFromContext(ctx),
		Path:          d.Path,
		Verdict:       d.Verdict.Kind.String(),
		Target:        d.Verdict.Target,
		Authenticated: d.Authenticated,
		RoleKnown:     d.RoleKnown,
		Admin:         d.Admin,
	})
}
