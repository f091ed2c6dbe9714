package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jandubois/clusterwatch/internal/probe"
	"github.com/jandubois/clusterwatch/internal/probes/resource"
)

// DefaultProbeTimeout applies to specs without their own timeout.
const DefaultProbeTimeout = 5 * time.Second

// Prober executes a single spec. *probes.Registry satisfies it.
type Prober interface {
	Execute(ctx context.Context, spec probe.Spec) probe.Outcome
}

// Task is one concrete probe execution within a round.
type Task struct {
	Spec probe.Spec

	// preset short-circuits execution, e.g. when disk expansion failed.
	preset *probe.Outcome
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// Mounts expands wildcard disk specs. Nil leaves them unexpanded.
	Mounts resource.MountLister
	// RoundTimeout bounds a whole round. Zero means no bound beyond the
	// individual probe timeouts.
	RoundTimeout time.Duration
	// DefaultTimeout applies to specs with Timeout == 0.
	DefaultTimeout time.Duration
	// MaxConcurrent limits simultaneously running probes. Zero is unlimited.
	MaxConcurrent int
}

// Executor runs a round of probes concurrently.
type Executor struct {
	prober         Prober
	mounts         resource.MountLister
	roundTimeout   time.Duration
	defaultTimeout time.Duration
	sem            *semaphore.Weighted
}

// NewExecutor creates a new Executor.
func NewExecutor(prober Prober, opts ExecutorOptions) *Executor {
	e := &Executor{
		prober:         prober,
		mounts:         opts.Mounts,
		roundTimeout:   opts.RoundTimeout,
		defaultTimeout: opts.DefaultTimeout,
	}
	if e.defaultTimeout <= 0 {
		e.defaultTimeout = DefaultProbeTimeout
	}
	if opts.MaxConcurrent > 0 {
		e.sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return e
}

// Plan expands specs into the round's tasks. Wildcard disk specs become one
// task per mounted filesystem; if mounts cannot be listed the spec stays a
// single task that reports the listing error.
func (e *Executor) Plan(ctx context.Context, specs []probe.Spec) []Task {
	tasks := make([]Task, 0, len(specs))
	for _, spec := range specs {
		if e.mounts == nil || !resource.NeedsExpansion(spec) {
			tasks = append(tasks, Task{Spec: spec})
			continue
		}
		expanded, err := resource.ExpandMounts(ctx, e.mounts, spec)
		if err != nil {
			slog.Warn("disk expansion failed", "probe", spec.ID, "error", err)
			out := probe.Unreachable(err)
			tasks = append(tasks, Task{Spec: spec, preset: &out})
			continue
		}
		for _, s := range expanded {
			tasks = append(tasks, Task{Spec: s})
		}
	}
	return tasks
}

// RunRound plans and runs specs, returning one result per planned task.
func (e *Executor) RunRound(ctx context.Context, specs []probe.Spec) []probe.Result {
	return e.Run(ctx, e.Plan(ctx, specs))
}

// Run executes every task concurrently and returns results in task order.
// It returns once each task has finished or timed out; a timed-out probe
// keeps running in the background and its late outcome is discarded.
func (e *Executor) Run(ctx context.Context, tasks []Task) []probe.Result {
	if e.roundTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.roundTimeout)
		defer cancel()
	}

	results := make([]probe.Result, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.runTask(ctx, task)
		}()
	}
	wg.Wait()
	return results
}

func (e *Executor) runTask(ctx context.Context, task Task) probe.Result {
	spec := task.Spec
	result := probe.Result{
		ProbeID:   spec.ID,
		Domain:    spec.Domain,
		Kind:      spec.Kind,
		Target:    spec.Target,
		StartedAt: time.Now(),
	}
	if task.preset != nil {
		result.Outcome = *task.preset
		return result
	}

	if e.sem != nil {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			result.Outcome = probe.Timeout()
			result.Latency = time.Since(result.StartedAt)
			return result
		}
		defer e.sem.Release(1)
		result.StartedAt = time.Now()
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	result.Outcome = e.execute(ctx, spec, timeout)
	result.Latency = time.Since(result.StartedAt)

	slog.Debug("probe executed",
		"probe", spec.ID,
		"domain", spec.Domain,
		"outcome", result.Outcome.Kind,
		"duration_ms", result.Latency.Milliseconds(),
	)
	return result
}

// execute runs the prober under its own deadline and stops waiting when the
// deadline passes, whether or not the prober honours ctx.
func (e *Executor) execute(ctx context.Context, spec probe.Spec, timeout time.Duration) probe.Outcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan probe.Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("probe panicked", "probe", spec.ID, "panic", r)
				done <- probe.Unreachable(fmt.Errorf("probe panicked: %v", r))
			}
		}()
		done <- e.prober.Execute(ctx, spec)
	}()

	select {
	case out := <-done:
		if ctx.Err() != nil && out.Kind != probe.OutcomeSuccess {
			return probe.Timeout()
		}
		return out
	case <-ctx.Done():
		return probe.Timeout()
	}
}
