package watcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestNextDelay(t *testing.T) {
	tests := []struct {
		policy  OverrunPolicy
		elapsed time.Duration
		want    time.Duration
	}{
		{OverrunSkip, 10 * time.Second, 50 * time.Second},
		{OverrunSkip, 70 * time.Second, 50 * time.Second},
		{OverrunSkip, 125 * time.Second, 55 * time.Second},
		{OverrunBackToBack, 10 * time.Second, 50 * time.Second},
		{OverrunBackToBack, 70 * time.Second, 0},
	}
	for _, tt := range tests {
		s := NewScheduler(time.Minute, tt.policy, nil)
		if got := s.nextDelay(tt.elapsed); got != tt.want {
			t.Errorf("%s after %v: expected %v, got %v", tt.policy, tt.elapsed, tt.want, got)
		}
	}
}

func TestSchedulerNoOverlap(t *testing.T) {
	var active, overlaps, rounds atomic.Int32
	round := func(ctx context.Context) {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		rounds.Add(1)
		time.Sleep(30 * time.Millisecond)
		active.Add(-1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	NewScheduler(10*time.Millisecond, OverrunBackToBack, round).Run(ctx)

	if overlaps.Load() != 0 {
		t.Errorf("expected no overlapping rounds, saw %d", overlaps.Load())
	}
	if n := rounds.Load(); n < 3 {
		t.Errorf("expected back-to-back rounds, got %d", n)
	}
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	var rounds atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewScheduler(time.Hour, OverrunSkip, func(ctx context.Context) { rounds.Add(1) }).Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	if rounds.Load() != 1 {
		t.Errorf("expected the first round to run immediately, got %d rounds", rounds.Load())
	}
}

func TestParseOverrunPolicy(t *testing.T) {
	if p, err := ParseOverrunPolicy(""); err != nil || p != OverrunSkip {
		t.Errorf("expected default skip, got %q %v", p, err)
	}
	if p, err := ParseOverrunPolicy("back_to_back"); err != nil || p != OverrunBackToBack {
		t.Errorf("expected back_to_back, got %q %v", p, err)
	}
	if _, err := ParseOverrunPolicy("overlap"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
