// Package stub serves a stand-in for the patient-management service's
// health, upload and relocation endpoints, for local smoke tests.
package stub

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jandubois/clinicprobe/internal/clinic"
	"github.com/jandubois/clinicprobe/internal/config"
)

// Server is the stub service.
type Server struct {
	config    *config.StubConfig
	server    *http.Server
	unhealthy atomic.Bool
	uploads   atomic.Int64
}

// NewServer creates a new stub server.
func NewServer(cfg *config.StubConfig) *Server {
	s := &Server{config: cfg}
	s.unhealthy.Store(cfg.Unhealthy)
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// SetUnhealthy toggles the health endpoint between 200 and 503.
func (s *Server) SetUnhealthy(v bool) {
	s.unhealthy.Store(v)
}

// Uploads returns the number of upload requests received.
func (s *Server) Uploads() int64 {
	return s.uploads.Load()
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("stub server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down stub server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler returns the routed handler, for embedding in tests.
func (s *Server) Handler() http.Handler {
	endpoints := s.config.Endpoints
	defaults := clinic.DefaultEndpoints()
	if endpoints.Health == "" {
		endpoints.Health = defaults.Health
	}
	if endpoints.Upload == "" {
		endpoints.Upload = defaults.Upload
	}
	if endpoints.Relocate == "" {
		endpoints.Relocate = defaults.Relocate
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+endpoints.Health, s.handleHealth)
	mux.HandleFunc("POST "+endpoints.Upload, s.handleUpload)
	mux.HandleFunc("POST "+endpoints.Relocate, s.handleRelocate)
	return logRequests(mux)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("stub request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
