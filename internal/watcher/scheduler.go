package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OverrunPolicy decides what happens when a round outlasts the interval.
type OverrunPolicy string

const (
	// OverrunSkip drops the ticks that passed during the round and waits
	// for the next one on the original cadence.
	OverrunSkip OverrunPolicy = "skip"
	// OverrunBackToBack starts the next round as soon as the late one ends.
	OverrunBackToBack OverrunPolicy = "back_to_back"
)

// ParseOverrunPolicy validates a policy name. Empty means OverrunSkip.
func ParseOverrunPolicy(s string) (OverrunPolicy, error) {
	switch OverrunPolicy(s) {
	case "", OverrunSkip:
		return OverrunSkip, nil
	case OverrunBackToBack:
		return OverrunBackToBack, nil
	default:
		return "", fmt.Errorf("unknown overrun policy %q", s)
	}
}

// Scheduler repeats a round at a fixed interval. Rounds never overlap:
// the next one starts only after the previous one returned.
type Scheduler struct {
	interval time.Duration
	policy   OverrunPolicy
	round    func(ctx context.Context)
}

// NewScheduler creates a scheduler that calls round every interval.
func NewScheduler(interval time.Duration, policy OverrunPolicy, round func(ctx context.Context)) *Scheduler {
	if policy == "" {
		policy = OverrunSkip
	}
	return &Scheduler{interval: interval, policy: policy, round: round}
}

// Run executes the first round immediately, then keeps the cadence until
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		start := time.Now()
		s.round(ctx)
		if ctx.Err() != nil {
			return
		}
		timer.Reset(s.nextDelay(time.Since(start)))
	}
}

// nextDelay returns the wait after a round that took elapsed.
func (s *Scheduler) nextDelay(elapsed time.Duration) time.Duration {
	if elapsed < s.interval {
		return s.interval - elapsed
	}
	if s.policy == OverrunBackToBack {
		slog.Warn("round overran interval, starting next round immediately",
			"elapsed", elapsed, "interval", s.interval)
		return 0
	}

	skipped := int(elapsed / s.interval)
	slog.Warn("round overran interval, skipping ticks",
		"elapsed", elapsed, "interval", s.interval, "skipped", skipped)
	return time.Duration(skipped+1)*s.interval - elapsed
}
