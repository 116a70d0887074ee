// Package auth gates the prediction endpoints behind a shared bearer token.
// The routes that stay public (probes, metrics, read-only catalog surfaces)
// are not decided here: the API server supplies them alongside its route
// table, so the exempt set can never drift from the routes actually served.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Config holds the token and the public surface of the API.
type Config struct {
	Enabled bool
	Token   string

	// PublicPaths and PublicPrefixes are served without a token even when
	// auth is enabled. The server that owns the route table fills these.
	PublicPaths    []string
	PublicPrefixes []string
}

// Middleware enforces bearer-token auth on every route not listed as public.
// Token comparison is constant-time.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = true
	}

	isPublic := func(path string) bool {
		if public[path] {
			return true
		}
		for _, prefix := range cfg.PublicPrefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")

			// token == header means no Bearer scheme was present.
			if header == "" || token == header || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
