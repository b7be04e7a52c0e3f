package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"colornamer/internal/hub"
	"colornamer/internal/ws"
)

func SetupRoutes(h *hub.Hub, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))

	r.Post("/games", CreateGame(h))
	r.Get("/healthz", Healthz)
	r.Get("/status", Status(h, time.Now()))
	r.Get("/ws", ws.Handler(h, logger))
	return r
}

// RequestLogger logs each request with its status and latency.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)
			logger.Info("request",
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.Status()),
				zap.Duration("latency", time.Since(start)),
			)
		})
	}
}
