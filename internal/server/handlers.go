package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/experiment"
	"ln-relay-lab/internal/idhash"
	"ln-relay-lab/internal/sampling"
	"ln-relay-lab/internal/storage"
)

const (
	maxRequestBodySize = 1 << 16
	defaultListLimit   = 100
	maxListLimit       = 1000
	maxTransactions    = 1_000_000
)

// handleListRuns returns a handler that lists runs.
// GET /runs?limit={n}&config_id={id}&sweep_id={id}
func handleListRuns(store storage.RunStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit, err := parseLimit(q.Get("limit"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		var runs []*domain.RunSummary
		switch {
		case q.Get("config_id") != "":
			runs, err = store.GetByConfigID(r.Context(), q.Get("config_id"))
		case q.Get("sweep_id") != "":
			runs, err = store.GetBySweepID(r.Context(), q.Get("sweep_id"))
		default:
			runs, err = store.List(r.Context(), limit)
		}
		if err != nil {
			logger.Error("failed to list runs", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if len(runs) > limit {
			runs = runs[:limit]
		}

		views := make([]RunView, len(runs))
		for i, run := range runs {
			views[i] = newRunView(*run)
		}
		writeJSON(w, map[string]any{"runs": views, "count": len(views)}, http.StatusOK)
	})
}

// handleGetRun returns a handler that retrieves one run.
// GET /runs/{id}
func handleGetRun(store storage.RunStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		run, err := store.GetByID(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, "run not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("failed to get run", "run_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, newRunView(*run), http.StatusOK)
	})
}

// handleGetSeries returns a handler that retrieves a run's time series.
// GET /runs/{id}/series?from={index}&to={index}
func handleGetSeries(runs storage.RunStore, series storage.SeriesStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		q := r.URL.Query()

		run, err := runs.GetByID(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, "run not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("failed to get run", "run_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		from, err := parseIndex(q.Get("from"), 0)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		to, err := parseIndex(q.Get("to"), run.TransactionsCount)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if to < from {
			writeError(w, "to must not be less than from", http.StatusBadRequest)
			return
		}

		points, err := series.GetByIndexRange(r.Context(), id, from, to)
		if err != nil {
			logger.Error("failed to get series", "run_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		views := make([]PointView, len(points))
		for i, p := range points {
			views[i] = newPointView(*p)
		}
		writeJSON(w, map[string]any{"run_id": id, "points": views}, http.StatusOK)
	})
}

// handleGetSweep returns a handler that retrieves the cells of a sweep.
// GET /sweeps/{id}
func handleGetSweep(store storage.SweepCellStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		cells, err := store.GetBySweepID(r.Context(), id)
		if err != nil {
			logger.Error("failed to get sweep", "sweep_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if len(cells) == 0 {
			writeError(w, "sweep not found", http.StatusNotFound)
			return
		}

		views := make([]CellView, len(cells))
		for i, c := range cells {
			views[i] = newCellView(c)
		}
		writeJSON(w, map[string]any{"sweep_id": id, "cells": views}, http.StatusOK)
	})
}

// StartRunRequest is the body of POST /runs.
type StartRunRequest struct {
	Preset       string  `json:"preset"`
	Transactions int     `json:"transactions"`
	Seed         uint64  `json:"seed"`
	ValueMin     float64 `json:"value_min"`
	ValueMax     float64 `json:"value_max"`
}

// StartRunResponse is returned when a run is accepted.
type StartRunResponse struct {
	RunID    string `json:"run_id"`
	ConfigID string `json:"config_id"`
	Status   string `json:"status"`
}

// handleStartRun launches one run in the background. Progress is streamed
// on /ws and the result is persisted by the executor.
// POST /runs
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cfg, ok := domain.PresetByName(req.Preset)
	if !ok {
		writeError(w, fmt.Sprintf("unknown preset %q", req.Preset), http.StatusBadRequest)
		return
	}
	if req.Transactions < 1 || req.Transactions > maxTransactions {
		writeError(w, fmt.Sprintf("transactions must be in [1, %d]", maxTransactions), http.StatusBadRequest)
		return
	}
	if req.ValueMin == 0 && req.ValueMax == 0 {
		req.ValueMin, req.ValueMax = 1, 10
	}
	values := sampling.Config{Kind: sampling.KindUniform, Min: req.ValueMin, Max: req.ValueMax}
	if err := (sampling.UniformSampler{Min: values.Min, Max: values.Max}).Validate(); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !s.running.CompareAndSwap(false, true) {
		writeError(w, "a run is already in progress", http.StatusConflict)
		return
	}

	opts := experiment.Options{
		TransactionsCount: req.Transactions,
		Seed:              req.Seed,
		Values:            values,
	}
	resp := StartRunResponse{
		RunID:    idhash.ComputeRunID(cfg, opts.Seed, opts.TransactionsCount, values.String(), "", 0),
		ConfigID: idhash.ConfigID(cfg),
		Status:   "accepted",
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		if _, err := s.opts.Executor.Run(s.baseCtx, cfg, opts); err != nil {
			s.logger.Error("background run failed", "run_id", resp.RunID, "error", err)
		}
	}()

	s.logger.Info("run accepted", "run_id", resp.RunID, "preset", req.Preset, "transactions", req.Transactions)
	writeJSON(w, resp, http.StatusAccepted)
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxListLimit {
		return 0, fmt.Errorf("limit must be an integer in [1, %d]", maxListLimit)
	}
	return n, nil
}

func parseIndex(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return n, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}
