package edgegate

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func tokenWithRole(t testing.TB, role string) string {
	t.Helper()
	c := jwt.MapClaims{"sub": "user-1"}
	if role != "" {
		c["role"] = role
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func buildTestEngine(t testing.TB, cfg Config) *Engine {
	t.Helper()
	e, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}
