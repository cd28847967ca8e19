package middlewarex

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"godash/internal/config"

	"github.com/rs/zerolog"
)

// AdminAuth guards admin routes with the configured admin token, sent as a bearer
// token or in X-Admin-Token. With no token configured every request is refused.
func AdminAuth(cfg config.Cfg) func(http.Handler) http.Handler {
	want := []byte(cfg.Sec.AdminToken)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Admin-Token")
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				got = strings.TrimPrefix(auth, "Bearer ")
			}
			if len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				zerolog.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("admin auth rejected")
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"title": "Unauthorized", "status": http.StatusUnauthorized})
}
