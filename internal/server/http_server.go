// Package server constructs and starts the GoChat HTTP service.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Tyrowin/gochat/internal/logger"
)

// CreateServer creates an HTTP server for addr with timeouts suited to the
// health and metrics endpoints. Upgraded WebSocket connections are not
// subject to them.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartServer listens and serves until the server is shut down. A graceful
// shutdown is not reported as an error.
func StartServer(server *http.Server) error {
	logger.Info("HTTP server listening", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownServer gracefully shuts down the HTTP server, waiting at most timeout
// for in-flight requests.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	logger.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("HTTP server shutdown error", "error", err)
		return err
	}

	logger.Info("HTTP server shutdown completed")
	return nil
}
