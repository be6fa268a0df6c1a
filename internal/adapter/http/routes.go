package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/askdesk/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. limiter
// guards session resolution, where invite tokens could otherwise be guessed;
// it may be nil.
func MountRoutes(r chi.Router, h *Handlers, limiter *middleware.RateLimiter) {
	r.Get("/health", h.Health)
	if h.Hub != nil {
		r.Get("/ws", h.Hub.HandleWS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		r.Route("/ask/{keyOrToken}", func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Handler)
			}
			r.With(timeout(h)).Get("/context", h.GetContext)
			r.With(timeout(h)).Post("/messages", h.PostMessage)
			// Long-lived: no request timeout.
			r.Get("/stream", h.StreamContext)
			r.Get("/voice", h.Voice)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(timeout(h))
			r.Post("/ask/{keyOrToken}/test", h.AdminTest)
			r.Post("/catalog/{kind}/{id}/invalidate", h.InvalidateCatalog)
		})
	})
}

func timeout(h *Handlers) func(http.Handler) http.Handler {
	if h.RequestTimeout <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return chimw.Timeout(h.RequestTimeout)
}
