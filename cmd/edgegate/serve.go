package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/devcollab/edgegate"
	"github.com/devcollab/edgegate/internal/logging"
	"github.com/devcollab/edgegate/internal/rate"
	"github.com/devcollab/edgegate/internal/settings"
	otelexp "github.com/devcollab/edgegate/metrics/export/otel"
	promexp "github.com/devcollab/edgegate/metrics/export/prometheus"
	"github.com/devcollab/edgegate/middleware"
	"github.com/devcollab/edgegate/profile"
	"github.com/devcollab/edgegate/reguard"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

const instrumentationName = "github.com/devcollab/edgegate"

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gate in front of the frontend",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(s.Logging.Level, s.Logging.Format, os.Stderr)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			var rdb redis.UniversalClient
			if s.Redis.Addr != "" {
				rdb = redis.NewClient(&redis.Options{
					Addr:     s.Redis.Addr,
					Password: s.Redis.Password,
					DB:       s.Redis.DB,
				})
				defer rdb.Close()
			}

			srv, err := newServer(s, logger, rdb)
			if err != nil {
				return err
			}
			defer srv.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the YAML settings file")

	return cmd
}

type server struct {
	settings settings.Settings
	logger   *slog.Logger
	engine   *edgegate.Engine
	profiles *profile.Client
	cache    *profile.Cache
	limiter  *rate.Limiter
	guard    *reguard.Guard
	proxy    http.Handler
	metrics  http.Handler
	otel     *otelexp.Exporter
}

// newServer wires the gate. rdb may be nil, which disables the profile cache
// and lookup limiting.
func newServer(s settings.Settings, logger *slog.Logger, rdb redis.UniversalClient) (*server, error) {
	upstream, err := url.Parse(s.Upstream.URL)
	if err != nil {
		return nil, fmt.Errorf("upstream url: %w", err)
	}

	builder := edgegate.New().WithConfig(s.Gate)
	if s.Gate.Audit.Enabled {
		builder = builder.WithAuditSink(edgegate.NewSlogSink(logger.With(slog.String("component", "audit"))))
	}
	engine, err := builder.Build()
	if err != nil {
		return nil, err
	}

	metricsHandler, err := promexp.Handler(engine)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("prometheus: %w", err)
	}
	exporter, err := otelexp.NewExporter(otel.Meter(instrumentationName), engine)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("otel metrics: %w", err)
	}

	profiles := profile.NewClient(s.Profile.Endpoint, profile.WithHTTPClient(&http.Client{Timeout: s.Profile.Timeout}))

	srv := &server{
		settings: s,
		logger:   logger,
		engine:   engine,
		profiles: profiles,
		guard: reguard.New(profiles, s.Gate.Roles.Admin,
			reguard.WithLogger(logger),
			reguard.WithHome(s.Gate.Targets.Home),
		),
		proxy:   newProxy(upstream, logger),
		metrics: metricsHandler,
		otel:    exporter,
	}
	if rdb != nil {
		srv.cache = profile.NewCache(rdb, s.Redis.Prefix, s.Profile.CacheTTL)
		srv.limiter = rate.New(rdb, rate.Config{
			MaxAttempts: s.Profile.MaxLookupsPerMinute,
			Window:      time.Minute,
		})
	}
	return srv, nil
}

func newProxy(upstream *url.URL, logger *slog.Logger) http.Handler {
	p := httputil.NewSingleHostReverseProxy(upstream)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.LogAttrs(r.Context(), slog.LevelWarn, "upstream unavailable",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	return p
}

// Close stops the audit dispatcher and unregisters metric callbacks.
func (s *server) Close() {
	_ = s.otel.Close()
	s.engine.Close()
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})
	r.Handle(s.settings.Server.MetricsPath, s.metrics)

	r.Route("/api/session", func(r chi.Router) {
		r.Get("/profile", s.handleProfile)
		r.Post("/logout", s.handleLogout)
	})

	gate := middleware.Gate(s.engine,
		middleware.WithLogger(s.logger),
		middleware.WithRequestID(func(r *http.Request) string {
			return chimw.GetReqID(r.Context())
		}),
	)
	r.With(gate).Handle("/*", s.pages())

	return r
}

// pages serves what the gate allowed: re-guarded prefixes get a live role
// check, everything else goes straight upstream. The admin login page is
// never re-guarded.
func (s *server) pages() http.Handler {
	guarded := s.guard.Handler(s.proxy)
	routes := s.engine.Routes()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !routes.IsAdminLogin(r.URL.Path) && s.reguarded(r.URL.Path) {
			guarded.ServeHTTP(w, r)
			return
		}
		s.proxy.ServeHTTP(w, r)
	})
}

func (s *server) reguarded(path string) bool {
	for _, prefix := range s.settings.Profile.ReguardPrefixes {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func (s *server) handleProfile(w http.ResponseWriter, r *http.Request) {
	creds := edgegate.CredentialsFromRequest(r, s.settings.Gate.Cookies)
	if !creds.Authenticated() {
		writeJSONError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	session := profile.SessionKey(creds.Preferred())

	fetch := func(ctx context.Context) (profile.Profile, error) {
		// A Redis outage does not block lookups; only a spent budget does.
		if err := s.limiter.Allow(ctx, session); errors.Is(err, rate.ErrRateLimited) {
			return profile.Profile{}, err
		}
		return s.profiles.Fetch(ctx, r.Cookies())
	}

	var (
		p   profile.Profile
		hit bool
		err error
	)
	if s.cache != nil {
		p, hit, err = s.cache.Lookup(r.Context(), session, fetch)
	} else {
		p, err = fetch(r.Context())
	}
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, rate.ErrRateLimited):
			status = http.StatusTooManyRequests
		case errors.Is(err, profile.ErrRejected):
			status = http.StatusUnauthorized
		}
		s.logger.LogAttrs(r.Context(), slog.LevelDebug, "profile lookup failed",
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		writeJSONError(w, status, "profile unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if hit {
		w.Header().Set("X-Profile-Cache", "hit")
	} else {
		w.Header().Set("X-Profile-Cache", "miss")
	}
	if len(p.Raw) > 0 {
		_, _ = w.Write(p.Raw)
		return
	}
	_ = json.NewEncoder(w).Encode(p)
}

// handleLogout drops the cached profile for both credentials and forwards
// the request to the backend, whose response (cookie clearing included) is
// passed through unchanged.
func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	creds := edgegate.CredentialsFromRequest(r, s.settings.Gate.Cookies)
	if s.cache != nil {
		for _, c := range []string{creds.Access, creds.Refresh} {
			if c == "" {
				continue
			}
			if err := s.cache.Invalidate(r.Context(), profile.SessionKey(c)); err != nil {
				s.logger.LogAttrs(r.Context(), slog.LevelWarn, "profile cache invalidate failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if s.settings.Profile.LogoutEndpoint == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.settings.Profile.LogoutEndpoint, r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, "logout unavailable")
		return
	}
	req.Header.Set("Content-Type", r.Header.Get("Content-Type"))
	for _, ck := range r.Cookies() {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}

	resp, err := (&http.Client{Timeout: s.settings.Profile.Timeout}).Do(req)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, "logout unavailable")
		return
	}
	defer resp.Body.Close()

	for _, key := range []string{"Content-Type", "Set-Cookie"} {
		for _, v := range resp.Header.Values(key) {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:         s.settings.Server.Addr,
		Handler:      s.routes(),
		ReadTimeout:  s.settings.Server.ReadTimeout,
		WriteTimeout: s.settings.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("edgegate listening",
			slog.String("addr", s.settings.Server.Addr),
			slog.String("upstream", s.settings.Upstream.URL),
		)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.settings.Server.ShutdownTimeout)
	defer cancel()
	s.logger.Info("edgegate shutting down")
	return httpSrv.Shutdown(shutdownCtx)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
