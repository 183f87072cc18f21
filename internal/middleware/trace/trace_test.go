package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	m := NewMiddleware()
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header = %q, want %q", rr.Header().Get(HeaderRequestID), seen)
	}
	if m.GetMetrics().TotalRequests != 1 {
		t.Fatalf("metrics = %+v", m.GetMetrics())
	}
}

func TestMiddlewareReusesValidIncomingID(t *testing.T) {
	tests := []struct {
		incoming string
		reuse    bool
	}{
		{"abc-123", true},
		{"has spaces", false},
		{strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		var seen string
		h := NewMiddleware().Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestID(r)
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, tt.incoming)
		h.ServeHTTP(httptest.NewRecorder(), req)

		if (seen == tt.incoming) != tt.reuse {
			t.Errorf("incoming %q: got id %q, reuse = %v", tt.incoming, seen, tt.reuse)
		}
	}
}
