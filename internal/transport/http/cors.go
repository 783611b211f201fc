package http

import (
	"net/http"
	"strings"
)

var (
	corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}, ", ")
	corsHeaders = strings.Join([]string{"Content-Type", requestIDHeader}, ", ")
)

// corsPolicy is the parsed CORS_ORIGINS allow-list.
type corsPolicy struct {
	any     bool
	origins map[string]struct{}
}

func newCORSPolicy(origins []string) corsPolicy {
	p := corsPolicy{origins: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		switch origin = strings.TrimSpace(origin); origin {
		case "":
		case "*":
			p.any = true
		default:
			p.origins[origin] = struct{}{}
		}
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	if p.any {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// grant writes the allow headers for origin. Browsers may read the request id
// so kiosk logs can be matched with server logs.
func (p corsPolicy) grant(h http.Header, origin string) {
	if p.any {
		h.Set("Access-Control-Allow-Origin", "*")
	} else {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
	}
	h.Set("Access-Control-Expose-Headers", requestIDHeader)
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

// CORS answers preflights for allowed origins and rejects the rest with 403.
// Simple requests from unknown origins reach next without allow headers.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	policy := newCORSPolicy(allowedOrigins)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case origin == "":
			next.ServeHTTP(w, r)
		case !policy.allows(origin):
			if isPreflight(r) {
				writeError(w, http.StatusForbidden, codeForbidden, "origin not allowed")
				return
			}
			next.ServeHTTP(w, r)
		case isPreflight(r):
			policy.grant(w.Header(), origin)
			w.Header().Set("Access-Control-Allow-Methods", corsMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
			w.WriteHeader(http.StatusNoContent)
		default:
			policy.grant(w.Header(), origin)
			next.ServeHTTP(w, r)
		}
	})
}
