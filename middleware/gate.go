package middleware

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/devcollab/edgegate"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/devcollab/edgegate/middleware"
	spanName   = "edgegate.gate"

	// RequestIDHeader is read for an inbound request id and echoed on
	// redirects.
	RequestIDHeader = "X-Request-Id"
)

// Option configures [Gate].
type Option func(*gateOptions)

type gateOptions struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	status    int
	exclude   *regexp.Regexp
	requestID func(*http.Request) string
}

// WithLogger sets the decision logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *gateOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer sets the tracer for the gate span. Defaults to the global
// provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *gateOptions) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithRedirectStatus overrides Dispatcher.RedirectStatus from the engine config.
func WithRedirectStatus(status int) Option {
	return func(o *gateOptions) {
		if status >= 300 && status < 400 {
			o.status = status
		}
	}
}

// WithExclude overrides Dispatcher.ExcludePattern. A nil pattern gates every
// request.
func WithExclude(re *regexp.Regexp) Option {
	return func(o *gateOptions) {
		o.exclude = re
	}
}

// WithRequestID sets how the request id is resolved, for routers that assign
// their own. Empty results fall back to the header, then a fresh UUID.
func WithRequestID(fn func(*http.Request) string) Option {
	return func(o *gateOptions) {
		o.requestID = fn
	}
}

// Gate returns middleware that allows or redirects each page request based
// on the engine verdict. Allowed requests carry the [edgegate.Decision] in
// their context.
//
// A nil engine fails closed with 503.
func Gate(engine *edgegate.Engine, opts ...Option) func(http.Handler) http.Handler {
	o := gateOptions{
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
		status: http.StatusTemporaryRedirect,
	}
	var cookies edgegate.CookieConfig
	if engine != nil {
		cfg := engine.Config()
		cookies = cfg.Cookies
		o.status = cfg.Dispatcher.RedirectStatus
		if cfg.Dispatcher.ExcludePattern != "" {
			// Validate already compiled it once.
			o.exclude = regexp.MustCompile(cfg.Dispatcher.ExcludePattern)
		}
	}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "gate unavailable", http.StatusServiceUnavailable)
				return
			}
			if o.exclude != nil && o.exclude.MatchString(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			reqID := o.resolveRequestID(r)
			ctx, span := o.tracer.Start(r.Context(), spanName,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attribute.String("edgegate.path", r.URL.Path)),
			)
			defer span.End()
			ctx = edgegate.WithRequestID(ctx, reqID)

			creds := edgegate.CredentialsFromRequest(r, cookies)
			d := engine.Evaluate(ctx, r.URL.Path, creds)

			span.SetAttributes(
				attribute.String("edgegate.verdict", d.Verdict.Kind.String()),
				attribute.String("edgegate.target", d.Verdict.Target),
				attribute.Bool("edgegate.authenticated", d.Authenticated),
			)
			o.logger.LogAttrs(ctx, slog.LevelDebug, "gate decision",
				slog.String("request_id", reqID),
				slog.String("path", d.Path),
				slog.String("verdict", d.Verdict.Kind.String()),
				slog.String("target", d.Verdict.Target),
				slog.Bool("authenticated", d.Authenticated),
				slog.Bool("role_known", d.RoleKnown),
			)

			if !d.Verdict.Allowed() {
				w.Header().Set(RequestIDHeader, reqID)
				w.Header().Set("Cache-Control", "no-store")
				http.Redirect(w, r, d.Verdict.Target, o.status)
				return
			}

			next.ServeHTTP(w, r.WithContext(edgegate.WithDecision(ctx, d)))
		})
	}
}

func (o *gateOptions) resolveRequestID(r *http.Request) string {
	if o.requestID != nil {
		if id := o.requestID(r); id != "" {
			return id
		}
	}
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}
