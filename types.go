package edgegate

import (
	"encoding/json"

	"github.com/devcollab/edgegate/route"
)

// CredentialPair is the credential state of one request, rebuilt from
// cookies on every navigation and never persisted.
type CredentialPair struct {
	Access  string
	Refresh string
}

// Authenticated reports whether at least one credential is present.
func (c CredentialPair) Authenticated() bool {
	return c.Access != "" || c.Refresh != ""
}

// Preferred returns the credential to decode claims from: access when
// present, otherwise refresh.
func (c CredentialPair) Preferred() string {
	if c.Access != "" {
		return c.Access
	}
	return c.Refresh
}

// VerdictKind tags a [Verdict].
type VerdictKind uint8

const (
	// VerdictAllow renders the requested path.
	VerdictAllow VerdictKind = iota
	// VerdictRedirect sends the visitor to Verdict.Target.
	VerdictRedirect
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictAllow:
		return "allow"
	case VerdictRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Verdict is the engine's only output: allow, or redirect to exactly one
// target. The zero value is Allow.
type Verdict struct {
	Kind   VerdictKind
	Target string
}

// Allow returns the pass-through verdict.
func Allow() Verdict {
	return Verdict{Kind: VerdictAllow}
}

// RedirectTo returns a redirect verdict for target.
func RedirectTo(target string) Verdict {
	return Verdict{Kind: VerdictRedirect, Target: target}
}

// Allowed reports whether the verdict is a pass-through.
func (v Verdict) Allowed() bool {
	return v.Kind == VerdictAllow
}

func (v Verdict) String() string {
	if v.Kind == VerdictRedirect {
		return "redirect:" + v.Target
	}
	return v.Kind.String()
}

// MarshalJSON renders {"verdict":"allow"} or {"verdict":"redirect","target":"/x"}.
func (v Verdict) MarshalJSON() ([]byte, error) {
	out := struct {
		Verdict string `json:"verdict"`
		Target  string `json:"target,omitempty"`
	}{Verdict: v.Kind.String(), Target: v.Target}
	return json.Marshal(out)
}

// Decision is the result of [Engine.Evaluate]. It never carries credential
// values, only facts derived from them.
type Decision struct {
	Verdict       Verdict
	Path          string
	Class         route.Class
	Authenticated bool
	// RoleKnown is true when a role claim could be decoded. The role itself
	// is unverified.
	RoleKnown bool
	Admin     bool
}
