package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// corsAllowedMethods lists the methods the API answers cross-origin.
const corsAllowedMethods = "GET, POST, OPTIONS"

// originPolicy holds the allowed origins: exact origins such as
// "https://example.com" and host wildcards such as "*.example.com".
type originPolicy struct {
	exact    map[string]struct{}
	suffixes []string // ".example.com" for "*.example.com"
}

func newOriginPolicy(patterns []string) originPolicy {
	p := originPolicy{exact: make(map[string]struct{}, len(patterns))}
	for _, pattern := range patterns {
		if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
			p.suffixes = append(p.suffixes, suffix)
			continue
		}
		if pattern != "" {
			p.exact[pattern] = struct{}{}
		}
	}
	return p
}

// allows reports whether origin matches the policy. A wildcard matches
// subdomains only, never the bare domain.
func (p originPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if _, ok := p.exact[origin]; ok {
		return true
	}
	host := originHost(origin)
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
			return true
		}
	}
	return false
}

// originHost returns the host of an origin without scheme, port or path.
func originHost(origin string) string {
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		return u.Hostname()
	}
	host, _, _ := strings.Cut(origin, "/")
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// corsMiddleware handles CORS headers based on configuration.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	policy := newOriginPolicy(s.config.CORS.AllowedOrigins)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); policy.allows(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
			h.Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
			h.Set("Access-Control-Max-Age", "86400")
			h.Set("Vary", "Origin")
		}

		// Preflight requests end here.
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
