package api

import (
	"net/http"
	"strings"

	"github.com/b0bbywan/go-odio-players/config"
	"github.com/b0bbywan/go-odio-players/logger"
)

// The API only reads with GET and acts with POST.
var corsAllowMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")

// corsMiddleware lets the configured origins drive the players from a
// browser. "*" opens the API to any origin. Preflights are answered here and
// never reach the routes.
func corsMiddleware(cfg *config.CORSConfig) func(http.Handler) http.Handler {
	anyOrigin := false
	allowed := make(map[string]bool, len(cfg.Origins))
	for _, origin := range cfg.Origins {
		if origin == "*" {
			anyOrigin = true
		}
		allowed[origin] = true
	}
	logger.Info("[api] CORS enabled, origins: %v", cfg.Origins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			switch origin := r.Header.Get("Origin"); {
			case origin == "":
			case anyOrigin:
				h.Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
