package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"moviesweep/jobs"
	"moviesweep/models"
	"moviesweep/repository"

	"github.com/gorilla/mux"
)

// router builds the HTTP API
func (app *App) router() *mux.Router {
	r := mux.NewRouter()

	// Health check endpoint
	r.HandleFunc("/health", healthHandler).Methods("GET")

	if app.metrics != nil {
		r.Handle("/metrics", app.metrics.Handler()).Methods("GET")
	}

	// API routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Sweep history
	api.HandleFunc("/runs", app.listRunsHandler).Methods("GET")
	api.HandleFunc("/runs/{id}", app.getRunHandler).Methods("GET")
	api.HandleFunc("/runs/{id}/events", app.getRunEventsHandler).Methods("GET")

	// Movies scheduled for deletion soon
	api.HandleFunc("/expiring", app.expiringHandler).Methods("GET")

	// Manual sweeps
	api.HandleFunc("/sweeps", app.triggerSweepHandler).Methods("POST")

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func (app *App) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := app.runRepo.List(limit)
	if err != nil {
		slog.Error("error listing sweep runs", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, runs)
}

func (app *App) getRunHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := app.runRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Sweep run not found", http.StatusNotFound)
			return
		}
		slog.Error("error getting sweep run", "run_id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// getRunEventsHandler returns a run together with its audit events and a
// tally of them by type
func (app *App) getRunEventsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := app.runRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Sweep run not found", http.StatusNotFound)
			return
		}
		slog.Error("error getting sweep run", "run_id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	events, err := app.eventRepo.GetByRunID(id)
	if err != nil {
		slog.Error("failed to get sweep events", "run_id", id, "error", err)
		events = []models.SweepEvent{} // Empty slice on error
	}

	counts, err := app.eventRepo.CountByType(id)
	if err != nil {
		slog.Error("failed to count sweep events", "run_id", id, "error", err)
		counts = map[models.SweepEventType]int{}
	}

	writeJSON(w, http.StatusOK, &models.RunDetailsResponse{Run: run, Events: events, Counts: counts})
}

func (app *App) expiringHandler(w http.ResponseWriter, _ *http.Request) {
	events, err := app.eventRepo.ExpiringSoon()
	if err != nil {
		slog.Error("error getting expiring movies", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// triggerSweepHandler starts a sweep in the background. Sweeps triggered over
// the API are dry runs unless dry_run=false is passed.
func (app *App) triggerSweepHandler(w http.ResponseWriter, r *http.Request) {
	if app.jobManager == nil {
		http.Error(w, "Scheduler not running", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()

	var tier models.LibraryTier
	if raw := query.Get("tier"); raw != "" {
		parsed, err := models.ParseLibraryTier(raw)
		if err != nil {
			http.Error(w, "Invalid tier", http.StatusBadRequest)
			return
		}
		if _, ok := app.config().RadarrFor(parsed); !ok {
			http.Error(w, "Tier not configured", http.StatusBadRequest)
			return
		}
		tier = parsed
	}

	dryRun := true
	if raw := query.Get("dry_run"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "Invalid dry_run", http.StatusBadRequest)
			return
		}
		dryRun = parsed
	}

	if err := app.jobManager.TriggerSweep(tier, dryRun); err != nil {
		if errors.Is(err, jobs.ErrSweepInProgress) {
			http.Error(w, "A sweep is already in progress", http.StatusConflict)
			return
		}
		slog.Error("failed to trigger sweep", "error", err)
		http.Error(w, "Failed to trigger sweep", http.StatusInternalServerError)
		return
	}

	tierName := "all"
	if tier != "" {
		tierName = string(tier)
	}
	slog.Info("sweep triggered over api", "tier", tierName, "dry_run", dryRun)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "Sweep started",
		"tier":    tierName,
		"dry_run": dryRun,
	})
}
