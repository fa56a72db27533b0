package reguard

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/devcollab/edgegate/profile"
)

// State is the re-guard render state.
type State uint8

const (
	// Checking renders a neutral loading state.
	Checking State = iota
	// Authorized renders the wrapped page.
	Authorized
	// Unauthorized renders the access-denied view.
	Unauthorized
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// StateQuery is the query parameter that asks [Guard.Handler] for the state
// as JSON instead of the page.
const StateQuery = "reguard"

// Fetcher performs the profile lookup. [*profile.Client] implements it.
type Fetcher interface {
	Fetch(ctx context.Context, cookies []*http.Cookie) (profile.Profile, error)
}

// Guard checks one required role against the profile endpoint.
type Guard struct {
	fetcher Fetcher
	role    string
	home    string
	logger  *slog.Logger
}

// Option configures a [Guard].
type Option func(*Guard)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithHome sets the return-home link on the denial view. Defaults to "/home".
func WithHome(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.home = path
		}
	}
}

// New returns a guard requiring role.
func New(fetcher Fetcher, role string, opts ...Option) *Guard {
	g := &Guard{
		fetcher: fetcher,
		role:    role,
		home:    "/home",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check performs exactly one lookup with r's cookies and returns Authorized
// only for a 2xx profile whose role equals the required role.
func (g *Guard) Check(ctx context.Context, r *http.Request) State {
	if g == nil || g.fetcher == nil || g.role == "" || r == nil {
		return Unauthorized
	}

	p, err := g.fetcher.Fetch(ctx, r.Cookies())
	if err != nil {
		g.logger.LogAttrs(ctx, slog.LevelDebug, "reguard lookup failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		return Unauthorized
	}
	if p.Role != g.role {
		g.logger.LogAttrs(ctx, slog.LevelDebug, "reguard role mismatch",
			slog.String("path", r.URL.Path),
			slog.Bool("role_present", p.Role != ""),
		)
		return Unauthorized
	}
	return Authorized
}

// Watcher is one mounted check. See [Guard.Mount].
type Watcher struct {
	mu        sync.Mutex
	state     State
	unmounted bool
	cancel    context.CancelFunc
	done      chan struct{}
	onChange  func(State)
}

// Mount starts an asynchronous check. onChange, when set, is called with
// Checking before Mount returns and then at most once with the final state.
// After Unmount no further calls happen and a late result is discarded.
// onChange must not call Unmount.
func (g *Guard) Mount(ctx context.Context, r *http.Request, onChange func(State)) *Watcher {
	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		state:    Checking,
		cancel:   cancel,
		done:     make(chan struct{}),
		onChange: onChange,
	}
	if onChange != nil {
		onChange(Checking)
	}

	go func() {
		defer close(w.done)
		defer cancel()
		w.settle(g.Check(ctx, r))
	}()
	return w
}

func (w *Watcher) settle(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unmounted {
		return
	}
	w.state = s
	if w.onChange != nil {
		w.onChange(s)
	}
}

// State returns the current state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Done is closed once the lookup has returned, whether or not its result
// was kept.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Unmount discards any result not yet delivered and cancels the lookup.
func (w *Watcher) Unmount() {
	w.mu.Lock()
	w.unmounted = true
	w.mu.Unlock()
	w.cancel()
}

var deniedPage = template.Must(template.New("denied").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Access denied</title></head>
<body>
<main role="alert">
<h1>Access denied</h1>
<p>You do not have permission to view this page.</p>
<p><a href="{{.Home}}">Return home</a></p>
</main>
</body>
</html>
`))

// Handler renders children when the check passes and the access-denied view
// (403) otherwise.
//
// Requests with "?reguard=state" get {"state":"authorized|unauthorized"}.
// Requests accepting text/event-stream get the full sequence as server-sent
// events: checking first, then the final state.
func (g *Guard) Handler(children http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		switch {
		case acceptsEventStream(r):
			g.serveEvents(w, r)
			return
		case r.URL.Query().Get(StateQuery) == "state":
			writeState(w, g.Check(r.Context(), r))
			return
		}

		if g.Check(r.Context(), r) == Authorized {
			children.ServeHTTP(w, r)
			return
		}
		g.renderDenied(w)
	})
}

func (g *Guard) serveEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)

	send := func(s State) {
		b, _ := json.Marshal(stateBody{State: s})
		fmt.Fprintf(w, "data: %s\n\n", b)
		if flusher != nil {
			flusher.Flush()
		}
	}

	send(Checking)
	send(g.Check(r.Context(), r))
}

func (g *Guard) renderDenied(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	if err := deniedPage.Execute(w, struct{ Home string }{Home: g.home}); err != nil {
		g.logger.Error("reguard denied page render failed", slog.String("error", err.Error()))
	}
}

type stateBody struct {
	State State `json:"state"`
}

func writeState(w http.ResponseWriter, s State) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stateBody{State: s})
}

func acceptsEventStream(r *http.Request) bool {
	for _, v := range r.Header.Values("Accept") {
		if strings.Contains(v, "text/event-stream") {
			return true
		}
	}
	return false
}
