package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	ts := NewTokenService("test-secret", time.Hour)
	tok, err := ts.GenerateToken("user-42")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	got, err := ts.ParseToken(tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if got != "user-42" {
		t.Fatalf("subject = %q", got)
	}
}

func TestParseTokenRejects(t *testing.T) {
	ts := NewTokenService("test-secret", time.Hour)
	other := NewTokenService("other-secret", time.Hour)
	expired := NewTokenService("test-secret", -time.Minute)

	wrongKey, _ := other.GenerateToken("user-1")
	stale, _ := expired.GenerateToken("user-1")

	for name, tok := range map[string]string{
		"garbage":   "not-a-token",
		"wrong key": wrongKey,
		"expired":   stale,
		"empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ts.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}

	if _, err := ts.GenerateToken(""); err == nil {
		t.Fatalf("expected error for empty user id")
	}
}

func TestMiddleware(t *testing.T) {
	ts := NewTokenService("test-secret", time.Hour)
	tok, _ := ts.GenerateToken("user-7")

	var seen string
	h := Middleware(ts, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		status int
		user   string
	}{
		{"anonymous", "", http.StatusNoContent, ""},
		{"valid bearer", "Bearer " + tok, http.StatusNoContent, "user-7"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if seen != tc.user {
				t.Fatalf("user = %q, want %q", seen, tc.user)
			}
		})
	}
}
