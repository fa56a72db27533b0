// Package settings loads the edge server configuration from YAML with
// EDGEGATE_* environment overrides.
package settings

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/devcollab/edgegate"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "EDGEGATE_"

// ErrInvalid wraps every validation failure from [Settings.Validate].
var ErrInvalid = errors.New("invalid settings")

// Settings is the full edge server configuration.
type Settings struct {
	Server   ServerSettings   `yaml:"server"`
	Upstream UpstreamSettings `yaml:"upstream"`
	Profile  ProfileSettings  `yaml:"profile"`
	Redis    RedisSettings    `yaml:"redis"`
	Logging  LoggingSettings  `yaml:"logging"`
	Gate     edgegate.Config  `yaml:"gate"`
}

type ServerSettings struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MetricsPath     string        `yaml:"metrics_path"`
}

// UpstreamSettings points at the frontend the gate fronts.
type UpstreamSettings struct {
	URL string `yaml:"url"`
}

// ProfileSettings configures the backend profile lookup, its cache, and the
// prefixes that get a live re-guard.
type ProfileSettings struct {
	Endpoint        string        `yaml:"endpoint"`
	LogoutEndpoint  string        `yaml:"logout_endpoint"`
	Timeout         time.Duration `yaml:"timeout"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	ReguardPrefixes []string      `yaml:"reguard_prefixes"`
	// MaxLookupsPerMinute caps live lookups per session. Zero disables it.
	MaxLookupsPerMinute int `yaml:"max_lookups_per_minute"`
}

// RedisSettings configures the profile cache. An empty Addr disables
// caching.
type RedisSettings struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns settings for a local deployment.
func Default() Settings {
	return Settings{
		Server: ServerSettings{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MetricsPath:     "/metrics",
		},
		Upstream: UpstreamSettings{
			URL: "http://localhost:3000",
		},
		Profile: ProfileSettings{
			Endpoint:        "http://localhost:5000/api/users/profile",
			LogoutEndpoint:  "http://localhost:5000/api/auth/logout",
			Timeout:         5 * time.Second,
			CacheTTL:        5 * time.Minute,
			ReguardPrefixes: []string{"/admin"},
		},
		Redis: RedisSettings{
			Prefix: "egp",
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "json",
		},
		Gate: edgegate.DefaultConfig(),
	}
}

// Load reads path over [Default] and applies environment overrides. An
// empty path loads defaults plus environment only.
func Load(path string) (Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read settings: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse settings: %w", err)
		}
	}
	if err := s.applyEnv(os.LookupEnv); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks server-level fields and the gate configuration.
func (s *Settings) Validate() error {
	if s.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalid)
	}
	for name, raw := range map[string]string{
		"upstream.url":     s.Upstream.URL,
		"profile.endpoint": s.Profile.Endpoint,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s must be an absolute URL, got %q", ErrInvalid, name, raw)
		}
	}
	if !strings.HasPrefix(s.Server.MetricsPath, "/") {
		return fmt.Errorf("%w: server.metrics_path must start with /", ErrInvalid)
	}
	if err := s.Gate.Validate(); err != nil {
		return fmt.Errorf("%w: gate: %w", ErrInvalid, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (s *Settings) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, key, err)
			}
			*dst = d
		}
		return nil
	}
	num := func(key string, dst *int) error {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, key, err)
			}
			*dst = n
		}
		return nil
	}
	flag := func(key string, dst *bool) error {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, key, err)
			}
			*dst = b
		}
		return nil
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			var out []string
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			*dst = out
		}
	}

	str("ADDR", &s.Server.Addr)
	str("UPSTREAM_URL", &s.Upstream.URL)
	str("PROFILE_ENDPOINT", &s.Profile.Endpoint)
	str("LOGOUT_ENDPOINT", &s.Profile.LogoutEndpoint)
	list("REGUARD_PREFIXES", &s.Profile.ReguardPrefixes)
	str("REDIS_ADDR", &s.Redis.Addr)
	str("REDIS_PASSWORD", &s.Redis.Password)
	str("LOG_LEVEL", &s.Logging.Level)
	str("LOG_FORMAT", &s.Logging.Format)
	str("ADMIN_ROLE", &s.Gate.Roles.Admin)
	str("ACCESS_COOKIE", &s.Gate.Cookies.AccessName)
	str("REFRESH_COOKIE", &s.Gate.Cookies.RefreshName)

	for _, err := range []error{
		dur("PROFILE_TIMEOUT", &s.Profile.Timeout),
		dur("PROFILE_CACHE_TTL", &s.Profile.CacheTTL),
		dur("SHUTDOWN_TIMEOUT", &s.Server.ShutdownTimeout),
		num("REDIS_DB", &s.Redis.DB),
		num("PROFILE_MAX_LOOKUPS", &s.Profile.MaxLookupsPerMinute),
		flag("AUDIT_ENABLED", &s.Gate.Audit.Enabled),
		flag("LATENCY_HISTOGRAMS", &s.Gate.Metrics.EnableLatencyHistograms),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}
