package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/jandubois/clusterwatch/internal/probe"
)

type fakeStatus map[string]string

func (f fakeStatus) GetStatus(ctx context.Context, key string) (string, error) {
	v, ok := f[key]
	if !ok {
		return "", errors.New("connection refused")
	}
	return v, nil
}

func TestExecute(t *testing.T) {
	p := New(fakeStatus{
		KeySize:      "3",
		KeyState:     "Synced",
		KeyReady:     "ON",
		KeyConnected: "OFF",
		"garbage":    "three",
	})

	out := p.Execute(context.Background(), probe.Spec{Kind: "size"})
	if n, ok := out.Value.Number(); !ok || n != 3 {
		t.Errorf("expected size 3, got %v", out.Value)
	}

	out = p.Execute(context.Background(), probe.Spec{Kind: "state"})
	if s, ok := out.Value.Text(); !ok || s != "Synced" {
		t.Errorf("expected state Synced, got %v", out.Value)
	}

	out = p.Execute(context.Background(), probe.Spec{Kind: "ready"})
	if b, ok := out.Value.Bool(); !ok || !b {
		t.Errorf("expected ready true, got %v", out.Value)
	}

	out = p.Execute(context.Background(), probe.Spec{Kind: "connected"})
	if b, ok := out.Value.Bool(); !ok || b {
		t.Errorf("expected connected false, got %v", out.Value)
	}

	out = p.Execute(context.Background(), probe.Spec{Kind: "size", Target: "garbage"})
	if out.Kind != probe.OutcomeUnreachable {
		t.Errorf("expected unreachable for unparseable size, got %q", out.Kind)
	}
}

func TestExecuteQueryFailure(t *testing.T) {
	out := New(fakeStatus{}).Execute(context.Background(), probe.Spec{Kind: "size"})
	if out.Kind != probe.OutcomeUnreachable {
		t.Errorf("expected unreachable, got %q", out.Kind)
	}
}

func TestExecuteNoConnection(t *testing.T) {
	out := New(nil).Execute(context.Background(), probe.Spec{Kind: "size"})
	if out.Kind != probe.OutcomeNotApplicable {
		t.Errorf("expected not_applicable, got %q", out.Kind)
	}
}
