package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"gatewayd/pkg/types"
)

// Realm is advertised in WWW-Authenticate challenges.
const Realm = "gatewayd"

// Middleware enforces HTTP Basic authentication. Denied requests never reach
// next.
func (g *Gate) Middleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || g.Check(user, pass) != nil {
				ev := log.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr)
				if rid := middleware.GetReqID(r.Context()); rid != "" {
					ev = ev.Str("request_id", rid)
				}
				ev.Bool("credentials_present", ok).Msg("unauthorized request")
				Deny(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deny writes the 401 challenge with a JSON error body.
func Deny(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`", charset="UTF-8"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{
		Error:    "authentication required",
		Code:     http.StatusUnauthorized,
		Category: types.CategoryAuth,
	})
}
