package resource

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jandubois/clusterwatch/internal/probe"
)

type fakeReader struct {
	values map[string]float64
	err    error
}

func (f *fakeReader) ReadMetric(ctx context.Context, kind, target string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	v, ok := f.values[kind+target]
	if !ok {
		return 0, fmt.Errorf("mount %s: %w", target, ErrNotFound)
	}
	return v, nil
}

type fakeLister struct {
	mounts []string
	err    error
}

func (f fakeLister) Mounts(ctx context.Context) ([]string, error) { return f.mounts, f.err }

func TestExecute(t *testing.T) {
	reader := &fakeReader{values: map[string]float64{"cpu": 92.456, "disk/var": 81}}
	p := New(reader)

	tests := []struct {
		name string
		spec probe.Spec
		kind probe.OutcomeKind
		want float64
	}{
		{"cpu rounded", probe.Spec{Kind: "cpu"}, probe.OutcomeSuccess, 92.46},
		{"disk mount", probe.Spec{Kind: "disk", Target: "/var"}, probe.OutcomeSuccess, 81},
		{"missing mount", probe.Spec{Kind: "disk", Target: "/srv"}, probe.OutcomeNotApplicable, 0},
		{"wildcard unexpanded", probe.Spec{Kind: "disk", Target: AllMounts}, probe.OutcomeNotApplicable, 0},
		{"unknown kind", probe.Spec{Kind: "swap"}, probe.OutcomeNotApplicable, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := p.Execute(context.Background(), tt.spec)
			if out.Kind != tt.kind {
				t.Fatalf("expected outcome %q, got %q (%s)", tt.kind, out.Kind, out.Detail())
			}
			if tt.kind != probe.OutcomeSuccess {
				return
			}
			got, ok := out.Value.Number()
			if !ok || got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, out.Value)
			}
		})
	}
}

func TestExecuteReaderError(t *testing.T) {
	p := New(&fakeReader{err: errors.New("permission denied")})
	out := p.Execute(context.Background(), probe.Spec{Kind: "memory"})
	if out.Kind != probe.OutcomeUnreachable {
		t.Errorf("expected unreachable, got %q", out.Kind)
	}
}

func TestExpandMounts(t *testing.T) {
	spec := probe.Spec{ID: "disk", Domain: probe.DomainResource, Kind: "disk", Target: AllMounts}
	if !NeedsExpansion(spec) {
		t.Fatal("expected wildcard disk spec to need expansion")
	}

	specs, err := ExpandMounts(context.Background(), fakeLister{mounts: []string{"/", "/var"}}, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	if specs[1].ID != "disk:/var" || specs[1].Target != "/var" {
		t.Errorf("unexpected expanded spec: %+v", specs[1])
	}
	if NeedsExpansion(specs[0]) {
		t.Error("expanded spec should not need expansion")
	}
}

func TestExpandMountsErrors(t *testing.T) {
	spec := probe.Spec{ID: "disk", Domain: probe.DomainResource, Kind: "disk"}
	if _, err := ExpandMounts(context.Background(), fakeLister{err: errors.New("boom")}, spec); err == nil {
		t.Error("expected error when listing fails")
	}
	if _, err := ExpandMounts(context.Background(), fakeLister{}, spec); err == nil {
		t.Error("expected error when no mounts are found")
	}
}
