package claims

import (
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// RoleClaim is the payload field carrying the user's role.
const RoleClaim = "role"

// segmentParser is only used for its base64url segment decoding; it never
// parses or validates a full token.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Unverified holds claims decoded from a credential payload with zero
// cryptographic verification. It is a routing hint only and must never gate
// access to data.
type Unverified struct {
	role string
	raw  jwt.MapClaims
}

// Role returns the role claim and whether it was present as a string.
func (u Unverified) Role() (string, bool) {
	if u.role == "" {
		return "", false
	}
	return u.role, true
}

// HasRole reports whether the role claim equals role exactly.
func (u Unverified) HasRole(role string) bool {
	r, ok := u.Role()
	return ok && r == role
}

// Get returns a single payload field.
func (u Unverified) Get(key string) (any, bool) {
	if u.raw == nil {
		return nil, false
	}
	v, ok := u.raw[key]
	return v, ok
}

// Raw returns a shallow copy of every decoded field.
func (u Unverified) Raw() map[string]any {
	out := make(map[string]any, len(u.raw))
	for k, v := range u.raw {
		out[k] = v
	}
	return out
}

// Decode reads the payload of a three-segment credential. It returns false
// when the credential does not have exactly three dot-separated segments, when
// the middle segment is not base64url, or when it does not hold a JSON object.
func Decode(credential string) (Unverified, bool) {
	parts := strings.Split(credential, ".")
	if len(parts) != 3 {
		return Unverified{}, false
	}

	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil || len(payload) == 0 {
		return Unverified{}, false
	}

	var raw jwt.MapClaims
	if err := json.Unmarshal(payload, &raw); err != nil || raw == nil {
		return Unverified{}, false
	}

	// A role that is not a JSON string is treated as absent.
	role, _ := raw[RoleClaim].(string)

	return Unverified{role: role, raw: raw}, true
}
