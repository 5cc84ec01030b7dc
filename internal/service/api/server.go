package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// APIService serves the storefront and admin HTTP API
type APIService struct {
	logger *slog.Logger
	server *http.Server
}

// New creates the API service listening on port
func New(port string, handler http.Handler, logger *slog.Logger) *APIService {
	return &APIService{
		logger: logger,
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			// extraction may take EXTRACT_TIMEOUT plus rendering
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start begins serving the API. It returns nil after a graceful Stop.
func (s *APIService) Start() error {
	s.logger.Info("Starting API server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the API server
func (s *APIService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// Addr reports the configured listen address
func (s *APIService) Addr() string {
	return s.server.Addr
}
