// Package web serves the status API: health, reports and metrics.
package web

import (
	"context"
	"net/http"

	"github.com/jandubois/clusterwatch/internal/probe"
	"github.com/jandubois/clusterwatch/internal/report"
)

// Rounds gives access to the round loop. *watcher.Watcher satisfies it.
type Rounds interface {
	Latest() *report.Report
	TryRunRound(ctx context.Context) (*report.Report, bool)
	Specs() []probe.Spec
}

// History reads past reports. *db.Store satisfies it. LatestReport returns
// db.ErrNoReports when nothing has been journaled.
type History interface {
	LatestReport(ctx context.Context) (*report.Report, error)
	RecentReports(ctx context.Context, limit int) ([]*report.Report, error)
}

// Options configures a Server. History and Metrics are optional.
type Options struct {
	Rounds    Rounds
	History   History
	Metrics   http.Handler
	AuthToken string
	Version   string
}

// Server is the status API.
type Server struct {
	rounds    Rounds
	history   History
	metrics   http.Handler
	authToken string
	version   string
}

// NewServer creates a new status server.
func NewServer(opts Options) *Server {
	return &Server{
		rounds:    opts.Rounds,
		history:   opts.History,
		metrics:   opts.Metrics,
		authToken: opts.AuthToken,
		version:   opts.Version,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health and metrics stay open for load balancers and scrapers.
	mux.HandleFunc("GET /api/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	mux.Handle("GET /api/report", s.requireAuth(http.HandlerFunc(s.handleLatestReport)))
	mux.Handle("GET /api/reports", s.requireAuth(http.HandlerFunc(s.handleRecentReports)))
	mux.Handle("GET /api/probes", s.requireAuth(http.HandlerFunc(s.handleListProbes)))
	mux.Handle("POST /api/run", s.requireAuth(http.HandlerFunc(s.handleRunRound)))

	return logRequests(mux)
}
