package watcher

import (
	"context"

	"github.com/jandubois/clusterwatch/internal/report"
)

// ReportWriter persists finished reports. *db.Store satisfies it.
type ReportWriter interface {
	SaveReport(ctx context.Context, r *report.Report) error
}

// RoundRecorder observes finished rounds and alert dispatches.
// *observe.Metrics satisfies it.
type RoundRecorder interface {
	RecordRound(ctx context.Context, r *report.Report)
	RecordAlert(ctx context.Context, a *report.Alert, err error)
}

// RoundTracer wraps a round in a span. The returned func ends it.
// *observe.Tracer satisfies it.
type RoundTracer interface {
	StartRound(ctx context.Context, hostname string) (context.Context, func(*report.Report))
}
