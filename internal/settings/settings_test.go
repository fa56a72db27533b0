package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devcollab/edgegate"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edgegate.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Server.Addr != ":8080" || s.Gate.Targets.Home != "/home" {
		t.Fatalf("unexpected defaults %+v", s)
	}
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
  shutdown_timeout: 3s
upstream:
  url: http://frontend:3000
profile:
  endpoint: http://api:5000/api/users/profile
  cache_ttl: 90s
  reguard_prefixes: ["/admin", "/billing"]
redis:
  addr: redis:6379
gate:
  roles:
    admin: owner
  targets:
    home: /workspace
  dispatcher:
    redirect_status: 303
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Server.Addr != ":9090" || s.Server.ShutdownTimeout != 3*time.Second {
		t.Fatalf("server = %+v", s.Server)
	}
	if s.Profile.CacheTTL != 90*time.Second || len(s.Profile.ReguardPrefixes) != 2 {
		t.Fatalf("profile = %+v", s.Profile)
	}
	if s.Gate.Roles.Admin != "owner" || s.Gate.Targets.Home != "/workspace" || s.Gate.Dispatcher.RedirectStatus != 303 {
		t.Fatalf("gate = %+v", s.Gate)
	}
	// Untouched nested fields keep their defaults.
	if s.Gate.Targets.Login != "/login" || s.Gate.Cookies.AccessName != "accessToken" {
		t.Fatalf("defaults lost: %+v", s.Gate)
	}
	if s.Server.MetricsPath != "/metrics" {
		t.Fatalf("metrics path = %q", s.Server.MetricsPath)
	}
}

func TestLoadRejectsInvalidGate(t *testing.T) {
	path := writeFile(t, `
gate:
  targets:
    home: /login
`)
	_, err := Load(path)
	if !errors.Is(err, ErrInvalid) || !errors.Is(err, edgegate.ErrInvalidConfig) {
		t.Fatalf("expected wrapped ErrInvalidConfig, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load(writeFile(t, "server: [")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Load(writeFile(t, "upstream:\n  url: not-a-url\n")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"EDGEGATE_ADDR":              ":7000",
		"EDGEGATE_REDIS_ADDR":        "127.0.0.1:6379",
		"EDGEGATE_REDIS_DB":          "2",
		"EDGEGATE_PROFILE_CACHE_TTL": "1m",
		"EDGEGATE_REGUARD_PREFIXES":  "/admin, /ops ,",
		"EDGEGATE_AUDIT_ENABLED":     "true",
		"EDGEGATE_ADMIN_ROLE":        "superuser",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	s := Default()
	if err := s.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if s.Server.Addr != ":7000" || s.Redis.Addr != "127.0.0.1:6379" || s.Redis.DB != 2 {
		t.Fatalf("unexpected %+v", s)
	}
	if s.Profile.CacheTTL != time.Minute {
		t.Fatalf("cache ttl = %v", s.Profile.CacheTTL)
	}
	if len(s.Profile.ReguardPrefixes) != 2 || s.Profile.ReguardPrefixes[1] != "/ops" {
		t.Fatalf("prefixes = %v", s.Profile.ReguardPrefixes)
	}
	if !s.Gate.Audit.Enabled || s.Gate.Roles.Admin != "superuser" {
		t.Fatalf("gate = %+v", s.Gate)
	}
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		"EDGEGATE_REDIS_DB":           "two",
		"EDGEGATE_PROFILE_TIMEOUT":    "soon",
		"EDGEGATE_LATENCY_HISTOGRAMS": "maybe",
	} {
		s := Default()
		err := s.applyEnv(func(k string) (string, bool) {
			if k == key {
				return value, true
			}
			return "", false
		})
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s=%s: expected ErrInvalid, got %v", key, value, err)
		}
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("EDGEGATE_LOG_LEVEL", "debug")
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Logging.Level != "debug" {
		t.Fatalf("level = %q", s.Logging.Level)
	}
}
