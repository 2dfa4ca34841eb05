package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evcraddock/nb/internal/visit"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("sandbox-secret")
	raw, err := IssueToken(secret, "owner-7", visit.Owner, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := ParseToken(secret, raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "owner-7" {
		t.Errorf("subject = %q", claims.Subject)
	}
	if claims.Role != visit.Owner {
		t.Errorf("role = %q", claims.Role)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	raw, err := IssueToken([]byte("a"), "x", visit.Tenant, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseToken([]byte("b"), raw); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseTokenExpired(t *testing.T) {
	secret := []byte("s")
	raw, err := IssueToken(secret, "x", visit.Tenant, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseToken(secret, raw); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestExpiresAtOpaque(t *testing.T) {
	if _, ok := ExpiresAt("not-a-jwt"); ok {
		t.Error("expected ok=false for opaque token")
	}
}

func TestRequireBearer(t *testing.T) {
	secret := []byte("s")
	raw, err := IssueToken(secret, "tenant-1", visit.Tenant, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var gotSubject string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := ClaimsFromContext(r); c != nil {
			gotSubject = c.Subject
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireBearer(secret, inner)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"invalid", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + raw, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/visits/user", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	if gotSubject != "tenant-1" {
		t.Errorf("subject = %q, want tenant-1", gotSubject)
	}
}

func TestRequireBearerRateLimit(t *testing.T) {
	handler := RequireBearer([]byte("s"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last int
	for i := 0; i < rateLimitMaxFail+2; i++ {
		r := httptest.NewRequest("GET", "/visits/user", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		r.Header.Set("Authorization", "Bearer bad")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", last)
	}
}

func TestRequireBearerRateLimitAcrossConnections(t *testing.T) {
	ts := httptest.NewServer(RequireBearer([]byte("s"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	defer ts.Close()

	// Each request dials a new connection, so the peer port changes every time.
	hc := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}

	var last int
	for i := 0; i < rateLimitMaxFail+2; i++ {
		req, err := http.NewRequest("GET", ts.URL+"/visits/user", nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Authorization", "Bearer bad")
		resp, err := hc.Do(req)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", last)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"10.0.0.1:1234", "10.0.0.1"},
		{"[::1]:5678", "::1"},
		{"10.0.0.1", "10.0.0.1"},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = tt.remote
		if got := clientIP(r); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}
