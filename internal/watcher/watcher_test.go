package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jandubois/clusterwatch/internal/probe"
	"github.com/jandubois/clusterwatch/internal/probes"
	"github.com/jandubois/clusterwatch/internal/report"
)

type recordingSink struct {
	mu     sync.Mutex
	alerts []*report.Alert
	err    error
}

func (s *recordingSink) Send(ctx context.Context, a *report.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return s.err
}

type memJournal struct {
	mu      sync.Mutex
	reports []*report.Report
}

func (j *memJournal) SaveReport(ctx context.Context, r *report.Report) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.reports = append(j.reports, r)
	return nil
}

func serviceSpecs(names ...string) []probe.Spec {
	var specs []probe.Spec
	for _, n := range names {
		specs = append(specs, probe.Spec{
			ID:     n,
			Domain: probe.DomainService,
			Kind:   "active",
			Target: n,
			Thresholds: probe.Thresholds{
				Expected:         "true",
				MismatchSeverity: probe.SeverityCritical,
			},
		})
	}
	return specs
}

func services(down ...string) probes.ProberFunc {
	return func(ctx context.Context, spec probe.Spec) probe.Outcome {
		for _, d := range down {
			if spec.Target == d {
				return probe.Success(probe.Bool(false))
			}
		}
		return probe.Success(probe.Bool(true))
	}
}

func TestHealthyRoundSendsNoAlert(t *testing.T) {
	sink := &recordingSink{}
	journal := &memJournal{}
	w := New(Options{
		Hostname: "node1",
		Specs:    serviceSpecs("kamailio", "rtpengine", "freeradius", "mariadb", "keepalived", "docker"),
		Executor: NewExecutor(services(), ExecutorOptions{}),
		Sink:     sink,
		Journal:  journal,
	})

	rep := w.RunRound(context.Background())
	if rep.Overall != probe.SeverityOK {
		t.Errorf("expected ok, got %s", rep.Overall)
	}
	if len(rep.Findings) != 6 {
		t.Errorf("expected 6 findings, got %d", len(rep.Findings))
	}
	if len(sink.alerts) != 0 {
		t.Errorf("expected sink not to be invoked, got %d alerts", len(sink.alerts))
	}
	if len(journal.reports) != 1 || w.Latest() != rep {
		t.Error("expected report to be journaled and kept as latest")
	}
}

func TestFailingRoundAlerts(t *testing.T) {
	sink := &recordingSink{err: errors.New("mail relay down")}
	w := New(Options{
		Hostname: "node1",
		Specs:    serviceSpecs("kamailio", "rtpengine"),
		Executor: NewExecutor(services("kamailio"), ExecutorOptions{}),
		Sink:     sink,
	})

	rep := w.RunRound(context.Background())
	if rep.Overall != probe.SeverityCritical {
		t.Errorf("expected critical, got %s", rep.Overall)
	}
	if len(sink.alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(sink.alerts))
	}
	if got := sink.alerts[0].Findings; len(got) != 1 || got[0].ProbeID != "kamailio" {
		t.Errorf("unexpected alert findings %+v", got)
	}
	if len(rep.Findings) != 2 {
		t.Error("sink failure must not affect the report")
	}
}

func TestAllProbesFailingIsUnknown(t *testing.T) {
	prober := probes.ProberFunc(func(ctx context.Context, spec probe.Spec) probe.Outcome {
		return probe.Unreachable(errors.New("dbus unavailable"))
	})
	w := New(Options{
		Hostname: "node1",
		Specs:    serviceSpecs("kamailio", "rtpengine"),
		Executor: NewExecutor(prober, ExecutorOptions{}),
	})

	rep := w.RunRound(context.Background())
	if rep.Overall != probe.SeverityUnknown || rep.Summary.Unknown != 2 {
		t.Errorf("expected all unknown, got %s %+v", rep.Overall, rep.Summary)
	}
}

func TestEmptyRoundIsUnknown(t *testing.T) {
	w := New(Options{Hostname: "node1", Executor: NewExecutor(services(), ExecutorOptions{})})
	if rep := w.RunRound(context.Background()); rep.Overall != probe.SeverityUnknown {
		t.Errorf("expected unknown for an empty round, got %s", rep.Overall)
	}
}

func TestTryRunRoundBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	prober := probes.ProberFunc(func(ctx context.Context, spec probe.Spec) probe.Outcome {
		once.Do(func() { close(started) })
		<-release
		return probe.Success(probe.Bool(true))
	})
	w := New(Options{
		Specs:    serviceSpecs("kamailio"),
		Executor: NewExecutor(prober, ExecutorOptions{DefaultTimeout: 5 * time.Second}),
	})

	go w.RunRound(context.Background())
	<-started
	if _, ok := w.TryRunRound(context.Background()); ok {
		t.Error("expected TryRunRound to refuse while a round is running")
	}
	close(release)
}

func TestRunContinuous(t *testing.T) {
	w := New(Options{
		Hostname: "node1",
		Specs:    serviceSpecs("kamailio"),
		Executor: NewExecutor(services(), ExecutorOptions{}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	var got []*report.Report
	err := w.RunContinuous(ctx, 20*time.Millisecond, func(r *report.Report) {
		got = append(got, r)
		if len(got) == 3 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 reports, got %d", len(got))
	}
	if err := w.RunContinuous(context.Background(), 0, nil); err == nil {
		t.Error("expected error for zero interval")
	}
}

type recordingTracer struct {
	started int
	ended   *report.Report
}

func (r *recordingTracer) StartRound(ctx context.Context, hostname string) (context.Context, func(*report.Report)) {
	r.started++
	return ctx, func(rep *report.Report) { r.ended = rep }
}

func TestRoundIsTraced(t *testing.T) {
	tracer := &recordingTracer{}
	w := New(Options{
		Hostname: "node1",
		Specs:    serviceSpecs("kamailio"),
		Executor: NewExecutor(services(), ExecutorOptions{}),
		Tracer:   tracer,
	})

	rep := w.RunRound(context.Background())
	if tracer.started != 1 {
		t.Errorf("expected one round span, got %d", tracer.started)
	}
	if tracer.ended != rep {
		t.Error("expected the span to end with the round's report")
	}
}

func TestInterruptedRoundIsNotRecorded(t *testing.T) {
	sink := &recordingSink{}
	journal := &memJournal{}
	w := New(Options{
		Hostname: "node1",
		Specs:    serviceSpecs("kamailio", "rtpengine"),
		Executor: NewExecutor(sleepy(), ExecutorOptions{}),
		Sink:     sink,
		Journal:  journal,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := w.RunRound(ctx)

	if rep == nil || len(rep.Findings) != 2 {
		t.Fatalf("expected a report with 2 findings, got %+v", rep)
	}
	if w.Latest() != nil {
		t.Error("expected an interrupted round not to become the latest report")
	}
	if len(journal.reports) != 0 || len(sink.alerts) != 0 {
		t.Errorf("expected nothing journaled or sent, got %d reports %d alerts", len(journal.reports), len(sink.alerts))
	}
}
