package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jobrunner/meridian/internal/config"
)

func TestOriginHost(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{"https://example.com", "example.com"},
		{"https://example.com:8080", "example.com"},
		{"https://example.com:443/path", "example.com"},
		{"https://deep.sub.example.com", "deep.sub.example.com"},
		{"http://localhost:3000", "localhost"},
		{"http://192.168.1.1:8080", "192.168.1.1"},
		{"example.com", "example.com"},
		{"example.com:9000/x", "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			if got := originHost(tt.origin); got != tt.want {
				t.Errorf("originHost(%q) = %q; want %q", tt.origin, got, tt.want)
			}
		})
	}
}

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		origin   string
		want     bool
	}{
		{"exact match", []string{"https://example.com"}, "https://example.com", true},
		{"exact match with port", []string{"https://example.com:8080"}, "https://example.com:8080", true},
		{"different scheme", []string{"https://example.com"}, "http://example.com", false},
		{"different port", []string{"https://example.com:8080"}, "https://example.com:9090", false},
		{"one of several", []string{"https://a.com", "https://b.com"}, "https://b.com", true},
		{"wildcard subdomain", []string{"*.example.com"}, "https://app.example.com", true},
		{"wildcard deep subdomain", []string{"*.example.com"}, "https://deep.sub.example.com", true},
		{"wildcard skips root domain", []string{"*.example.com"}, "https://example.com", false},
		{"wildcard skips lookalike", []string{"*.example.com"}, "https://notexample.com", false},
		{"wildcard localhost", []string{"*.localhost"}, "http://sub.localhost:3000", true},
		{"mixed patterns", []string{"https://exact.com", "*.wild.com"}, "https://x.wild.com", true},
		{"empty origin", []string{"https://example.com"}, "", false},
		{"empty pattern", []string{""}, "https://example.com", false},
		{"nil patterns", nil, "https://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newOriginPolicy(tt.patterns).allows(tt.origin); got != tt.want {
				t.Errorf("allows(%q) with %v = %v; want %v", tt.origin, tt.patterns, got, tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
		wantNext   bool
	}{
		{"allowed GET", "https://example.com", http.MethodGet, "https://example.com", http.StatusOK, true},
		{"allowed POST", "https://app.meridian.dev", http.MethodPost, "https://app.meridian.dev", http.StatusOK, true},
		{"preflight", "https://example.com", http.MethodOptions, "https://example.com", http.StatusNoContent, false},
		{"foreign origin", "https://evil.com", http.MethodGet, "", http.StatusOK, true},
		{"no origin", "", http.MethodGet, "", http.StatusOK, true},
	}

	s := &Server{
		config: config.ServerConfig{
			CORS: config.CORSConfig{AllowedOrigins: []string{"https://example.com", "*.meridian.dev"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/api/v1/transform", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if nextCalled != tt.wantNext {
				t.Errorf("expected next called = %v, got %v", tt.wantNext, nextCalled)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("expected Access-Control-Allow-Origin %q, got %q", tt.wantOrigin, got)
			}
			if tt.wantOrigin == "" {
				return
			}
			if got := rr.Header().Get("Access-Control-Allow-Methods"); got != corsAllowedMethods {
				t.Errorf("expected methods %q, got %q", corsAllowedMethods, got)
			}
			if got := rr.Header().Get("Vary"); got != "Origin" {
				t.Errorf("expected Vary Origin, got %q", got)
			}
		})
	}
}

func TestCORSConfigEnabled(t *testing.T) {
	if (&config.CORSConfig{}).Enabled() {
		t.Error("expected CORS disabled without origins")
	}
	if !(&config.CORSConfig{AllowedOrigins: []string{"*.example.com"}}).Enabled() {
		t.Error("expected CORS enabled with an origin")
	}
}
