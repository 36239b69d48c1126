// Package server exposes the run archive over a small read-only JSON API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dealsignal/harness/internal/pricing"
	"github.com/dealsignal/harness/internal/store"
	"github.com/dealsignal/harness/internal/version"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// HealthHandler reports liveness and build info.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"version": version.Version,
		})
	}
}

// RunsHandler lists archived runs, newest first. ?limit= caps the page.
func RunsHandler(archive *store.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		runs, err := archive.ListRuns(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	}
}

// RunHandler returns one run in its durable report form.
func RunHandler(archive *store.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rc, err := archive.GetRun(id)
		if errors.Is(err, store.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rc.Report())
	}
}

// RunSummaryHandler renders one run's human-readable cost table.
func RunSummaryHandler(archive *store.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rc, err := archive.GetRun(id)
		if errors.Is(err, store.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(rc.Summary() + "\n"))
	}
}

// PricingHandler returns the active price table.
func PricingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"models": pricing.Table()})
	}
}

// StatsHandler aggregates cost and token totals across the archive.
func StatsHandler(archive *store.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := archive.Stats()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
