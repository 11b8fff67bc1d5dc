package auth

import (
	"context"
	"net"
	"net/http"
	"strings"

	"baatcheet/pkg/logger"
	"baatcheet/pkg/utils"
)

// SecConfig drives authentication, CORS and rate limiting for the REST
// surface.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	BackendKeys    map[string]struct{}
}

type ctxUserKey struct{}

// UserIDFromContext returns the authenticated user id or empty string.
func UserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxUserKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

type ctxRoleKey struct{}

// IsBackend reports whether the request carried a backend API key.
func IsBackend(ctx context.Context) bool {
	v, _ := ctx.Value(ctxRoleKey{}).(bool)
	return v
}

// TokenFromRequest pulls the session token from the Authorization bearer
// header, the token cookie, or the token query parameter, in that order.
// The fallbacks exist for websocket clients that cannot set headers.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie("token"); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

// Middleware authenticates requests, answers CORS preflight, and rate
// limits per caller. Health endpoints pass through unauthenticated for
// probes; everything else needs a valid session token or a backend API key.
func Middleware(cfg SecConfig, verifier *Verifier) func(http.Handler) http.Handler {
	limiters := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogRequest(r)

			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-API-Key")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			// unauthenticated probes and docs
			if r.Method == http.MethodGet {
				p := r.URL.Path
				if p == "/healthz" || p == "/readyz" || p == "/metrics" ||
					strings.HasPrefix(p, "/docs/") || p == "/openapi.yaml" {
					next.ServeHTTP(w, r)
					return
				}
			}

			// backend API key grants the provisioning role
			if key := apiKey(r); key != "" {
				if _, ok := cfg.BackendKeys[key]; ok {
					if !limiters.Allow(key) {
						utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
						return
					}
					ctx := context.WithValue(r.Context(), ctxRoleKey{}, true)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			token := TokenFromRequest(r)
			if token == "" {
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
				logger.Warn("request_unauthorized", "path", r.URL.Path, "remote", clientIP(r))
				return
			}
			uid, err := verifier.Verify(token)
			if err != nil {
				utils.JSONError(w, http.StatusUnauthorized, "invalid token")
				logger.Warn("request_bad_token", "path", r.URL.Path, "remote", clientIP(r))
				return
			}

			if !limiters.Allow(uid) {
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				logger.Warn("rate_limited", "user", uid, "path", r.URL.Path)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserKey{}, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func apiKey(r *http.Request) string {
	return r.Header.Get("X-API-Key")
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return false
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
