// Package server wires HTTP handlers into a chi router for the GoChat
// application.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Tyrowin/gochat/internal/logger"
	"github.com/Tyrowin/gochat/internal/metrics"
)

// SetupRoutes returns the HTTP handler for health checks, the WebSocket
// gateway, the test page and, when m is non-nil, Prometheus metrics.
func SetupRoutes(srv *Server, m *metrics.Chat) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", HealthHandler)
	r.Get("/healthz", HealthHandler)
	r.HandleFunc("/ws", srv.HandleWebSocket)
	r.Get("/test", TestPageHandler)

	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debug("HTTP request completed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote_addr", r.RemoteAddr,
		)
	})
}
