package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jandubois/clusterwatch/internal/db"
	"github.com/jandubois/clusterwatch/internal/report"
)

const defaultReportLimit = 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if latest := s.rounds.Latest(); latest != nil {
		resp["last_round"] = latest.Timestamp
		resp["overall_severity"] = latest.Overall
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	latest := s.rounds.Latest()
	if latest == nil && s.history != nil {
		journaled, err := s.history.LatestReport(r.Context())
		switch {
		case errors.Is(err, db.ErrNoReports):
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		default:
			latest = journaled
		}
	}
	if latest == nil {
		http.Error(w, "no round has completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (s *Server) handleRecentReports(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "report journal is disabled", http.StatusNotFound)
		return
	}

	limit := defaultReportLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	reports, err := s.history.RecentReports(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []*report.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleListProbes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rounds.Specs())
}

// handleRunRound detaches the round from the request so a client that hangs
// up does not cut the round short; the executor's round timeout bounds it.
func (s *Server) handleRunRound(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.rounds.TryRunRound(context.WithoutCancel(r.Context()))
	if !ok {
		http.Error(w, "a round is already running", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
