package route

import "testing"

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"":                  "/",
		"/":                 "/",
		"//":                "/",
		"/login/":           "/login",
		"/login///":         "/login",
		"login":             "/login",
		"/callback?code=a":  "/callback",
		"/home#section":     "/home",
		"/admin/users/?x=1": "/admin/users",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClassify(t *testing.T) {
	c := New(DefaultConfig())

	tests := []struct {
		path string
		want Class
	}{
		{path: "/", want: Class{Public: true}},
		{path: "/login", want: Class{Public: true}},
		{path: "/login/", want: Class{Public: true}},
		{path: "/register-otp", want: Class{Public: true}},
		{path: "/demo", want: Class{Public: true}},
		{path: "/home", want: Class{}},
		{path: "/projects/42", want: Class{}},
		{path: "/login/extra", want: Class{}},
		{path: "/api/auth/google", want: Class{Bypass: true}},
		{path: "/callback", want: Class{Bypass: true}},
		{path: "/callback?code=abc", want: Class{Bypass: true}},
		{path: "/oauth/github/callback", want: Class{Bypass: true}},
		{path: "/admin", want: Class{AdminNamespace: true}},
		{path: "/admin/login", want: Class{Public: true, AdminNamespace: true}},
		{path: "/admin/projectManagement", want: Class{AdminNamespace: true}},
		{path: "/administrator", want: Class{}},
		{path: "/admin/callback", want: Class{Bypass: true, AdminNamespace: true}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := c.Classify(tt.path); got != tt.want {
				t.Fatalf("Classify(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestAuthFormLandingAdminLogin(t *testing.T) {
	c := New(DefaultConfig())

	for _, p := range []string{"/login", "/register", "/register-otp", "/forgot-otp", "/reset-password", "/forgot-password/"} {
		if !c.IsAuthForm(p) {
			t.Errorf("IsAuthForm(%q) = false", p)
		}
	}
	for _, p := range []string{"/", "/demo", "/admin/login", "/home"} {
		if c.IsAuthForm(p) {
			t.Errorf("IsAuthForm(%q) = true", p)
		}
	}
	if !c.IsLanding("/") || !c.IsLanding("") || c.IsLanding("/home") {
		t.Error("IsLanding mismatch")
	}
	if !c.IsAdminLogin("/admin/login/") || c.IsAdminLogin("/admin/login/x") {
		t.Error("IsAdminLogin mismatch")
	}
}

func TestEmptyConfigClassifiesNothing(t *testing.T) {
	c := New(Config{})
	for _, p := range []string{"/", "/callback", "/admin/x"} {
		if got := c.Classify(p); got != (Class{}) {
			t.Errorf("Classify(%q) = %+v with empty config", p, got)
		}
	}
	if c.IsLanding("/") || c.IsAdminLogin("/") {
		t.Error("unset landing/admin-login must not match root")
	}
}
