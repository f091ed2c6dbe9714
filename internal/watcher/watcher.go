// Package watcher runs probe rounds, evaluates them and hands the results on.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jandubois/clusterwatch/internal/evaluator"
	"github.com/jandubois/clusterwatch/internal/probe"
	"github.com/jandubois/clusterwatch/internal/report"
)

const Version = "1.0.0"

// Options wires a Watcher. Only Executor is required.
type Options struct {
	Hostname string
	Specs    []probe.Spec
	Executor *Executor
	Sink     report.Sink
	Journal  ReportWriter
	Recorder RoundRecorder
	Tracer   RoundTracer
	Interval time.Duration
	Overrun  OverrunPolicy

	// ListenAddr and API enable the status server in Run.
	ListenAddr string
	API        http.Handler
}

// Watcher owns the round lifecycle: execute, evaluate, aggregate, persist, alert.
type Watcher struct {
	opts Options

	// round serialises rounds so scheduled and on-demand runs never overlap.
	round sync.Mutex

	mu     sync.RWMutex
	latest *report.Report
}

// New creates a new Watcher instance.
func New(opts Options) *Watcher {
	return &Watcher{opts: opts}
}

// SetAPI sets the status server started by Run.
func (w *Watcher) SetAPI(addr string, handler http.Handler) {
	w.opts.ListenAddr = addr
	w.opts.API = handler
}

// Specs returns the configured probe specs.
func (w *Watcher) Specs() []probe.Spec { return w.opts.Specs }

// Latest returns the most recent report, or nil before the first round.
func (w *Watcher) Latest() *report.Report {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest
}

// RunRound runs one complete round and always returns a report. It blocks
// while another round is in progress.
func (w *Watcher) RunRound(ctx context.Context) *report.Report {
	w.round.Lock()
	defer w.round.Unlock()
	return w.runRound(ctx)
}

// TryRunRound runs a round unless one is already in progress.
func (w *Watcher) TryRunRound(ctx context.Context) (*report.Report, bool) {
	if !w.round.TryLock() {
		return nil, false
	}
	defer w.round.Unlock()
	return w.runRound(ctx), true
}

func (w *Watcher) runRound(ctx context.Context) (rep *report.Report) {
	startedAt := time.Now()
	if w.opts.Tracer != nil {
		var end func(*report.Report)
		ctx, end = w.opts.Tracer.StartRound(ctx, w.opts.Hostname)
		defer func() { end(rep) }()
	}

	tasks := w.opts.Executor.Plan(ctx, w.opts.Specs)
	results := w.opts.Executor.Run(ctx, tasks)

	findings := make([]probe.Finding, len(results))
	for i, result := range results {
		findings[i] = evaluator.Evaluate(result, tasks[i].Spec)
	}

	rep = report.Aggregate(findings, startedAt, w.opts.Hostname)
	slog.Info("round complete",
		"round", rep.ID,
		"overall", rep.Overall,
		"findings", len(rep.Findings),
		"warning", rep.Summary.Warning,
		"critical", rep.Summary.Critical,
		"unknown", rep.Summary.Unknown,
		"duration_ms", rep.Duration.Milliseconds(),
	)

	// A cancelled caller leaves every pending slot as a timeout; that report
	// describes the shutdown, not the cluster.
	if err := ctx.Err(); err != nil {
		slog.Warn("round interrupted, report not recorded", "round", rep.ID, "error", err)
		return rep
	}

	w.mu.Lock()
	w.latest = rep
	w.mu.Unlock()

	if w.opts.Recorder != nil {
		w.opts.Recorder.RecordRound(ctx, rep)
	}
	if w.opts.Journal != nil {
		if err := w.opts.Journal.SaveReport(ctx, rep); err != nil {
			slog.Error("failed to save report", "round", rep.ID, "error", err)
		}
	}

	if alert := report.NewAlert(rep); alert != nil {
		err := report.Dispatch(ctx, w.opts.Sink, alert)
		if w.opts.Recorder != nil && w.opts.Sink != nil {
			w.opts.Recorder.RecordAlert(ctx, alert, err)
		}
	}
	return rep
}

// RunContinuous runs rounds every interval until ctx is cancelled, passing
// each report to consume (which may be nil). It returns nil on cancellation.
func (w *Watcher) RunContinuous(ctx context.Context, interval time.Duration, consume func(*report.Report)) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	s := NewScheduler(interval, w.opts.Overrun, func(ctx context.Context) {
		rep := w.RunRound(ctx)
		if consume != nil {
			consume(rep)
		}
	})
	s.Run(ctx)
	return nil
}

// Run starts the round loop and, if configured, the status server. It
// returns when ctx is cancelled or the server fails.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("watcher starting",
		"version", Version,
		"hostname", w.opts.Hostname,
		"probes", len(w.opts.Specs),
		"interval", w.opts.Interval,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.RunContinuous(ctx, w.opts.Interval, nil)
	})

	if w.opts.API != nil && w.opts.ListenAddr != "" {
		server := &http.Server{
			Addr:              w.opts.ListenAddr,
			Handler:           w.opts.API,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			slog.Info("status API listening", "addr", w.opts.ListenAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status API: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	slog.Info("watcher stopped")
	return err
}
