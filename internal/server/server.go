// Package server exposes stored runs, Prometheus metrics and a live
// websocket stream of run progress over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/experiment"
	"ln-relay-lab/internal/observability"
	"ln-relay-lab/internal/storage"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// RunExecutor executes one simulation run.
type RunExecutor interface {
	Run(ctx context.Context, cfg domain.NetworkConfig, opts experiment.Options) (*experiment.Result, error)
}

// Options contains the dependencies of a Server. Only Runs is required.
type Options struct {
	Addr            string
	Runs            storage.RunStore
	Series          storage.SeriesStore    // optional, enables /runs/{id}/series
	Cells           storage.SweepCellStore // optional, enables /sweeps/{id}
	Executor        RunExecutor            // optional, enables POST /runs
	Hub             *Hub                   // optional, enables /ws
	Metrics         http.Handler           // defaults to the global registry
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Server is the HTTP front of the simulator.
type Server struct {
	opts    Options
	logger  *slog.Logger
	started time.Time

	// background runs
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// New creates a server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.Handler()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:    opts,
		logger:  opts.Logger,
		started: time.Now(),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Handler builds the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", s.opts.Metrics)
	mux.HandleFunc("GET /status", s.handleStatus)

	mux.Handle("GET /runs", handleListRuns(s.opts.Runs, s.logger))
	mux.Handle("GET /runs/{id}", handleGetRun(s.opts.Runs, s.logger))

	if s.opts.Series != nil {
		mux.Handle("GET /runs/{id}/series", handleGetSeries(s.opts.Runs, s.opts.Series, s.logger))
	}
	if s.opts.Cells != nil {
		mux.Handle("GET /sweeps/{id}", handleGetSweep(s.opts.Cells, s.logger))
	}
	if s.opts.Executor != nil {
		mux.HandleFunc("POST /runs", s.handleStartRun)
	}
	if s.opts.Hub != nil {
		mux.Handle("GET /ws", s.opts.Hub)
	}

	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.stopRuns()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if s.opts.Hub != nil {
		s.opts.Hub.Close()
	}
	err := srv.Shutdown(shutdownCtx)
	s.stopRuns()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// stopRuns cancels background runs and waits for them.
func (s *Server) stopRuns() {
	s.cancel()
	s.wg.Wait()
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	RunActive   bool   `json:"run_active"`
	Subscribers int    `json:"subscribers"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:    "running",
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		RunActive: s.running.Load(),
	}
	if s.opts.Hub != nil {
		resp.Subscribers = s.opts.Hub.Subscribers()
	}
	writeJSON(w, resp, http.StatusOK)
}
