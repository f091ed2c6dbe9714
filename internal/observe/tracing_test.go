package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jandubois/clusterwatch/internal/probe"
)

type proberFunc func(ctx context.Context, spec probe.Spec) probe.Outcome

func (f proberFunc) Execute(ctx context.Context, spec probe.Spec) probe.Outcome { return f(ctx, spec) }

func recordingTracer() (*Tracer, *tracetest.InMemoryExporter) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	return &Tracer{tracer: tp.Tracer("test"), provider: tp}, exp
}

func attr(s tracetest.SpanStub, key string) attribute.Value {
	for _, kv := range s.Attributes {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestRoundAndProbeSpans(t *testing.T) {
	tr, exp := recordingTracer()

	ctx, end := tr.StartRound(context.Background(), "node1")
	p := tr.WrapProber(proberFunc(func(ctx context.Context, spec probe.Spec) probe.Outcome {
		if spec.ID == "galera" {
			return probe.Unreachable(errors.New("connection refused"))
		}
		return probe.Success(probe.Number(92))
	}))
	p.Execute(ctx, probe.Spec{ID: "cpu", Domain: probe.DomainResource, Kind: "cpu"})
	p.Execute(ctx, probe.Spec{ID: "galera", Domain: probe.DomainCluster, Kind: "size"})
	end(testReport())

	spans := exp.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}

	cpu, galera, round := spans[0], spans[1], spans[2]
	if round.Name != "clusterwatch.round" {
		t.Fatalf("expected round span last, got %q", round.Name)
	}
	if cpu.Parent.SpanID() != round.SpanContext.SpanID() {
		t.Error("expected probe span to be a child of the round span")
	}
	if cpu.Name != "clusterwatch.probe.resource" || attr(cpu, "probe.value").AsString() != "92" {
		t.Errorf("unexpected cpu span %q value %v", cpu.Name, attr(cpu, "probe.value"))
	}
	if galera.Status.Code != codes.Error || attr(galera, "probe.outcome").AsString() != "unreachable" {
		t.Errorf("expected unreachable error span, got %v %v", galera.Status, attr(galera, "probe.outcome"))
	}
	if attr(round, "round.overall").AsString() != "critical" || round.Status.Code != codes.Error {
		t.Errorf("unexpected round span attributes %v", round.Attributes)
	}
}
