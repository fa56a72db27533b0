package edgegate

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/devcollab/edgegate/route"
)

// Config groups every static input of the authorization gate.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Routes     route.Config     `yaml:"routes"`
	Targets    TargetConfig     `yaml:"targets"`
	Cookies    CookieConfig     `yaml:"cookies"`
	Roles      RoleConfig       `yaml:"roles"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Audit      AuditConfig      `yaml:"audit"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

/*
====================================
REDIRECT TARGETS
====================================
*/

// TargetConfig names the only paths a verdict may redirect to.
type TargetConfig struct {
	Home           string `yaml:"home"`
	Login          string `yaml:"login"`
	AdminDashboard string `yaml:"admin_dashboard"`
	AdminLogin     string `yaml:"admin_login"`
}

// CookieConfig names the cookies holding the credential pair.
type CookieConfig struct {
	AccessName  string `yaml:"access_name"`
	RefreshName string `yaml:"refresh_name"`
}

// RoleConfig names the privileged role.
type RoleConfig struct {
	Admin string `yaml:"admin"`
}

/*
====================================
DISPATCHER CONFIG
====================================
*/

// DispatcherConfig controls which requests the edge dispatcher intercepts
// and how it redirects.
type DispatcherConfig struct {
	// ExcludePattern matches request paths the dispatcher never evaluates
	// (static assets, API routes, framework internals).
	ExcludePattern string `yaml:"exclude_pattern"`
	// RedirectStatus is the HTTP status used for redirect verdicts.
	RedirectStatus int `yaml:"redirect_status"`
}

// DefaultExcludePattern skips API routes, framework internals, and any path
// ending in a file extension.
const DefaultExcludePattern = `^/(api|_next|static)(/|$)|^/favicon\.ico$|\.[A-Za-z0-9]+$`

// AuditConfig controls the asynchronous decision audit pipeline.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig toggles in-process decision counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Routes: route.DefaultConfig(),
		Targets: TargetConfig{
			Home:           "/home",
			Login:          "/login",
			AdminDashboard: "/admin/dashboard",
			AdminLogin:     "/admin/login",
		},
		Cookies: CookieConfig{
			AccessName:  "accessToken",
			RefreshName: "refreshToken",
		},
		Roles: RoleConfig{
			Admin: "admin",
		},
		Dispatcher: DispatcherConfig{
			ExcludePattern: DefaultExcludePattern,
			RedirectStatus: http.StatusTemporaryRedirect,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the DevCollab routing table with metrics on and
// audit off.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Routes.BypassPrefixes = cloneStrings(cfg.Routes.BypassPrefixes)
	out.Routes.BypassSubstrings = cloneStrings(cfg.Routes.BypassSubstrings)
	out.Routes.PublicPaths = cloneStrings(cfg.Routes.PublicPaths)
	out.Routes.AuthFormPaths = cloneStrings(cfg.Routes.AuthFormPaths)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Validate rejects configurations that are incomplete or that would let a
// redirect target redirect again.
//
// Every returned error wraps [ErrInvalidConfig].
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Cookies.AccessName) == "" || strings.TrimSpace(c.Cookies.RefreshName) == "" {
		return invalid("cookie names must be set")
	}
	if c.Cookies.AccessName == c.Cookies.RefreshName {
		return invalid("access and refresh cookie names must differ")
	}
	if strings.TrimSpace(c.Roles.Admin) == "" {
		return invalid("admin role must be set")
	}

	for name, p := range map[string]string{
		"home":            c.Targets.Home,
		"login":           c.Targets.Login,
		"admin dashboard": c.Targets.AdminDashboard,
		"admin login":     c.Targets.AdminLogin,
	} {
		if !strings.HasPrefix(p, "/") {
			return invalid("%s target %q must be an absolute path", name, p)
		}
	}

	routes := route.New(c.Routes)
	home := routes.Classify(c.Targets.Home)
	switch {
	case home.Bypass, home.Public, home.AdminNamespace:
		return invalid("home target %q must be a protected, non-admin path", c.Targets.Home)
	case routes.IsAuthForm(c.Targets.Home), routes.IsLanding(c.Targets.Home):
		return invalid("home target %q must not be an auth form or the landing page", c.Targets.Home)
	}

	login := routes.Classify(c.Targets.Login)
	if login.Bypass || !login.Public || login.AdminNamespace {
		return invalid("login target %q must be a public, non-admin path", c.Targets.Login)
	}

	if route.Normalize(c.Targets.AdminLogin) != route.Normalize(c.Routes.AdminLoginPath) {
		return invalid("admin login target %q must equal the admin login route %q", c.Targets.AdminLogin, c.Routes.AdminLoginPath)
	}
	adminLogin := routes.Classify(c.Targets.AdminLogin)
	if adminLogin.Bypass || !adminLogin.AdminNamespace {
		return invalid("admin login target %q must sit under admin prefix %q", c.Targets.AdminLogin, c.Routes.AdminPrefix)
	}

	dash := routes.Classify(c.Targets.AdminDashboard)
	if dash.Bypass || !dash.AdminNamespace || routes.IsAdminLogin(c.Targets.AdminDashboard) {
		return invalid("admin dashboard target %q must be an admin page other than admin login", c.Targets.AdminDashboard)
	}

	if c.Dispatcher.ExcludePattern != "" {
		if _, err := regexp.Compile(c.Dispatcher.ExcludePattern); err != nil {
			return invalid("dispatcher exclude pattern: %v", err)
		}
	}
	switch c.Dispatcher.RedirectStatus {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		return invalid("redirect status %d is not a redirect", c.Dispatcher.RedirectStatus)
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalid("audit BufferSize must be > 0")
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
