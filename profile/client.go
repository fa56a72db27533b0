package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrUnavailable wraps transport failures reaching the profile endpoint.
	ErrUnavailable = errors.New("profile endpoint unavailable")
	// ErrRejected is returned for any non-2xx response.
	ErrRejected = errors.New("profile request rejected")
	// ErrMalformed is returned when the body is not a JSON profile.
	ErrMalformed = errors.New("profile response malformed")
)

const maxProfileBody = 1 << 20

// Profile is the subset of the backend user profile the edge cares about.
// Raw keeps the full body for handlers that pass it through.
type Profile struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`

	Raw json.RawMessage `json:"-"`
}

// Client fetches profiles from one backend endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// NewClient returns a client for the absolute profile URL endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the profile URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch issues one GET with cookies forwarded. Any non-2xx status wraps
// [ErrRejected]. No retries.
func (c *Client) Fetch(ctx context.Context, cookies []*http.Cookie) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	for _, ck := range cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBody))
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Profile{}, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	return Parse(body)
}

// Parse decodes a profile body. Some backends wrap the user under "data" or
// "user"; both are accepted when the top level has no role.
func Parse(body []byte) (Profile, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil || top == nil {
		return Profile{}, ErrMalformed
	}

	src := body
	if _, ok := top["role"]; !ok {
		for _, key := range []string{"data", "user"} {
			if inner, ok := top[key]; ok {
				src = inner
				break
			}
		}
	}

	var p Profile
	if err := json.Unmarshal(src, &p); err != nil {
		return Profile{}, ErrMalformed
	}
	p.Raw = append(json.RawMessage(nil), body...)
	return p, nil
}
