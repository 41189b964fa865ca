package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/transport"
)

// RateLimitByIP limits each client address to requests per window. Rejections
// go through the shared error renderer.
func RateLimitByIP(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			transport.RenderError(w, r, internal.NewTooManyRequestsError("Too many requests, try again later"))
		}),
	)
}
