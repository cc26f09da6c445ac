package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/rs/cors"

	"github.com/davidbz/governor/internal/config"
)

// routeMethods are the methods the API mounts routes on. They are always
// allowed so admin updates work under a narrower configured list.
//
//nolint:gochecknoglobals // read-only
var routeMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut}

// CORS creates a middleware that handles Cross-Origin Resource Sharing (CORS)
// using the github.com/rs/cors library. Browsers may send a request id and can
// read back the request and trace ids.
func CORS(cfg *config.CORSConfig) Middleware {
	if cfg == nil {
		// Return no-op middleware if config is nil.
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   union(cfg.AllowedMethods, routeMethods...),
		AllowedHeaders:   union(cfg.AllowedHeaders, headerRequestID),
		ExposedHeaders:   []string{headerRequestID, headerTraceID},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})

	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}

// union appends the extra values missing from base, ignoring case.
func union(base []string, extra ...string) []string {
	out := slices.Clone(base)
	for _, v := range extra {
		if !slices.ContainsFunc(out, func(have string) bool { return strings.EqualFold(have, v) }) {
			out = append(out, v)
		}
	}
	return out
}
