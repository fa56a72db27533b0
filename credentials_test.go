package edgegate

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCredentialsFromRequest(t *testing.T) {
	cfg := DefaultConfig().Cookies

	tests := []struct {
		name    string
		cookies []*http.Cookie
		want    CredentialPair
		auth    bool
	}{
		{name: "none", want: CredentialPair{}, auth: false},
		{
			name:    "access only",
			cookies: []*http.Cookie{{Name: "accessToken", Value: "a.b.c"}},
			want:    CredentialPair{Access: "a.b.c"},
			auth:    true,
		},
		{
			name:    "refresh only",
			cookies: []*http.Cookie{{Name: "refreshToken", Value: "r.s.t"}},
			want:    CredentialPair{Refresh: "r.s.t"},
			auth:    true,
		},
		{
			name:    "blank values are absent",
			cookies: []*http.Cookie{{Name: "accessToken", Value: " "}, {Name: "refreshToken", Value: ""}},
			want:    CredentialPair{},
			auth:    false,
		},
		{
			name:    "unrelated cookies ignored",
			cookies: []*http.Cookie{{Name: "theme", Value: "dark"}},
			want:    CredentialPair{},
			auth:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/home", nil)
			for _, c := range tt.cookies {
				r.AddCookie(c)
			}
			got := CredentialsFromRequest(r, cfg)
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if got.Authenticated() != tt.auth {
				t.Fatalf("Authenticated() = %v, want %v", got.Authenticated(), tt.auth)
			}
		})
	}
}

func TestPreferredCredential(t *testing.T) {
	if got := (CredentialPair{Access: "a", Refresh: "r"}).Preferred(); got != "a" {
		t.Fatalf("Preferred() = %q, want access", got)
	}
	if got := (CredentialPair{Refresh: "r"}).Preferred(); got != "r" {
		t.Fatalf("Preferred() = %q, want refresh", got)
	}
	if got := (CredentialPair{}).Preferred(); got != "" {
		t.Fatalf("Preferred() = %q, want empty", got)
	}
}

func TestCredentialsFromNilRequest(t *testing.T) {
	if got := CredentialsFromRequest(nil, DefaultConfig().Cookies); got.Authenticated() {
		t.Fatal("nil request must be unauthenticated")
	}
}
