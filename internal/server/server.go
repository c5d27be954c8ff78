// Package server provides the HTTP surface of the service.
//
// Endpoints:
//
//	GET /                  hello-world greeting naming the service and its owner
//	GET /healthz           liveness
//	GET /iterations        every recorded probe iteration
//	GET /iterations/{id}   a single iteration
//	GET /metrics           prometheus exposition
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomasbasham/bucket-probe/internal/probe"
)

const shutdownTimeout = 5 * time.Second

// Options configures the greeting.
type Options struct {
	ServiceName string
	Owner       string
}

// Server holds the dependencies shared across HTTP handlers.
type Server struct {
	opts     Options
	recorder probe.Recorder
	router   chi.Router
}

// New creates a Server. The iteration endpoints are only mounted when recorder
// is non-nil, and /metrics only when gatherer is non-nil.
func New(opts Options, recorder probe.Recorder, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		opts:     opts,
		recorder: recorder,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHello)
	r.Get("/healthz", s.handleHealth)

	if recorder != nil {
		r.Get("/iterations", s.handleListIterations)
		r.Get("/iterations/{id}", s.handleGetIteration)
	}
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.router = r
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Hello World! My name is %s and my owner is %s", s.opts.ServiceName, s.opts.Owner)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListIterations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.recorder.List())
}

func (s *Server) handleGetIteration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "iteration id is required")
		return
	}

	it, err := s.recorder.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("iteration %q not found", id))
		return
	}

	writeJSON(w, http.StatusOK, it)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
