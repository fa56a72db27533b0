package route

import "strings"

// Config is the static route table. All paths are compared after [Normalize].
type Config struct {
	// BypassPrefixes are auth-API prefixes that always pass through.
	BypassPrefixes []string `yaml:"bypass_prefixes"`
	// CallbackPath is the OAuth redirect landing path.
	CallbackPath string `yaml:"callback_path"`
	// BypassSubstrings mark any path containing them as an auth hand-off.
	BypassSubstrings []string `yaml:"bypass_substrings"`
	// PublicPaths is the exact-match allow-list.
	PublicPaths []string `yaml:"public_paths"`
	// AuthFormPaths are pages that make no sense once logged in.
	AuthFormPaths []string `yaml:"auth_form_paths"`
	// LandingPath is the marketing landing page.
	LandingPath string `yaml:"landing_path"`
	// AdminPrefix roots the admin namespace.
	AdminPrefix string `yaml:"admin_prefix"`
	// AdminLoginPath is the admin sign-in form.
	AdminLoginPath string `yaml:"admin_login_path"`
}

// DefaultConfig returns the DevCollab route table.
func DefaultConfig() Config {
	return Config{
		BypassPrefixes:   []string{"/api/auth"},
		CallbackPath:     "/callback",
		BypassSubstrings: []string{"callback"},
		PublicPaths: []string{
			"/",
			"/login",
			"/register",
			"/register-otp",
			"/demo",
			"/forgot-otp",
			"/reset-password",
			"/forgot-password",
			"/admin/login",
		},
		AuthFormPaths: []string{
			"/login",
			"/register",
			"/register-otp",
			"/forgot-otp",
			"/reset-password",
			"/forgot-password",
		},
		LandingPath:    "/",
		AdminPrefix:    "/admin",
		AdminLoginPath: "/admin/login",
	}
}

// Class is the read-only classification of one path.
type Class struct {
	Bypass         bool
	Public         bool
	AdminNamespace bool
}

// Classifier matches paths against a fixed [Config]. It is immutable and safe
// for concurrent use.
type Classifier struct {
	bypassPrefixes   []string
	callbackPath     string
	bypassSubstrings []string
	public           map[string]struct{}
	authForms        map[string]struct{}
	landing          string
	adminPrefix      string
	adminLogin       string
}

// New builds a Classifier. Configured paths are normalized once here.
func New(cfg Config) *Classifier {
	c := &Classifier{
		callbackPath: normalizeOptional(cfg.CallbackPath),
		public:       toSet(cfg.PublicPaths),
		authForms:    toSet(cfg.AuthFormPaths),
		landing:      normalizeOptional(cfg.LandingPath),
		adminPrefix:  normalizeOptional(cfg.AdminPrefix),
		adminLogin:   normalizeOptional(cfg.AdminLoginPath),
	}
	for _, p := range cfg.BypassPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			c.bypassPrefixes = append(c.bypassPrefixes, p)
		}
	}
	for _, s := range cfg.BypassSubstrings {
		if s = strings.TrimSpace(s); s != "" {
			c.bypassSubstrings = append(c.bypassSubstrings, s)
		}
	}
	return c
}

// Classify answers the bypass, public, and admin questions for path.
func (c *Classifier) Classify(path string) Class {
	p := Normalize(path)
	return Class{
		Bypass:         c.isBypass(path, p),
		Public:         c.IsPublic(p),
		AdminNamespace: c.IsAdminNamespace(p),
	}
}

// isBypass checks the substring rule against the raw path so that query
// strings carrying OAuth state are also covered.
func (c *Classifier) isBypass(raw, p string) bool {
	for _, prefix := range c.bypassPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	if c.callbackPath != "" && p == c.callbackPath {
		return true
	}
	for _, s := range c.bypassSubstrings {
		if strings.Contains(raw, s) {
			return true
		}
	}
	return false
}

// IsPublic reports exact allow-list membership.
func (c *Classifier) IsPublic(path string) bool {
	_, ok := c.public[Normalize(path)]
	return ok
}

// IsAuthForm reports whether path is a login/signup style form.
func (c *Classifier) IsAuthForm(path string) bool {
	_, ok := c.authForms[Normalize(path)]
	return ok
}

// IsLanding reports whether path is the landing page.
func (c *Classifier) IsLanding(path string) bool {
	return c.landing != "" && Normalize(path) == c.landing
}

// IsAdminLogin reports whether path is exactly the admin sign-in form.
func (c *Classifier) IsAdminLogin(path string) bool {
	return c.adminLogin != "" && Normalize(path) == c.adminLogin
}

// IsAdminNamespace reports whether path sits under the admin prefix.
// "/administrator" is not under "/admin".
func (c *Classifier) IsAdminNamespace(path string) bool {
	if c.adminPrefix == "" || c.adminPrefix == "/" {
		return false
	}
	p := Normalize(path)
	return p == c.adminPrefix || strings.HasPrefix(p, c.adminPrefix+"/")
}

// Normalize strips query and fragment, trims trailing slashes, and maps the
// empty path to "/".
func Normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

// normalizeOptional keeps an unset path unset instead of mapping it to "/".
func normalizeOptional(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return Normalize(path)
}

func toSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		set[Normalize(p)] = struct{}{}
	}
	return set
}
