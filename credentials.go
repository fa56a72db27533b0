package edgegate

import (
	"net/http"
	"strings"
)

// CredentialsFromRequest reads the access and refresh cookies named by cfg.
// It only looks values up; nothing is decoded or validated. Whitespace-only
// values count as absent.
func CredentialsFromRequest(r *http.Request, cfg CookieConfig) CredentialPair {
	if r == nil {
		return CredentialPair{}
	}
	return CredentialPair{
		Access:  cookieValue(r, cfg.AccessName),
		Refresh: cookieValue(r, cfg.RefreshName),
	}
}

func cookieValue(r *http.Request, name string) string {
	if name == "" {
		return ""
	}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}
