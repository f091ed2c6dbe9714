package observe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jandubois/clusterwatch/internal/probe"
	"github.com/jandubois/clusterwatch/internal/report"
)

// Prober mirrors watcher.Prober so probers can be wrapped with spans.
type Prober interface {
	Execute(ctx context.Context, spec probe.Spec) probe.Outcome
}

// Tracer emits one span per round with a child span per probe execution.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// NewTracer creates a tracer for exporter. "none" or "" gives a no-op tracer.
// ratio is the fraction of rounds sampled; probe spans follow their round.
func NewTracer(ctx context.Context, exporter string, ratio float64, res *sdkresource.Resource) (*Tracer, error) {
	exp, err := newSpanExporter(ctx, exporter)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return &Tracer{tracer: tracenoop.NewTracerProvider().Tracer(meterName)}, nil
	}
	if ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("sample ratio must be between 0 and 1, got %g", ratio)
	}

	var sampler sdktrace.Sampler
	switch {
	case ratio >= 1:
		sampler = sdktrace.AlwaysSample()
	case ratio <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(ratio)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
		sdktrace.WithBatcher(exp),
	}
	if res != nil {
		opts = append(opts, sdktrace.WithResource(res))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	return &Tracer{tracer: tp.Tracer(meterName), provider: tp}, nil
}

// StartRound opens the round span. The returned func closes it with the
// report's verdict.
func (t *Tracer) StartRound(ctx context.Context, hostname string) (context.Context, func(*report.Report)) {
	ctx, span := t.tracer.Start(ctx, "clusterwatch.round",
		trace.WithAttributes(attribute.String("host", hostname)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(r *report.Report) {
		if r != nil {
			span.SetAttributes(
				attribute.String("round.id", r.ID),
				attribute.String("round.overall", r.Overall.String()),
				attribute.Int("round.findings", len(r.Findings)),
				attribute.Int("round.critical", r.Summary.Critical),
				attribute.Int("round.warning", r.Summary.Warning),
				attribute.Int("round.unknown", r.Summary.Unknown),
			)
			if r.Overall >= probe.SeverityWarning {
				span.SetStatus(codes.Error, r.Overall.String())
			} else {
				span.SetStatus(codes.Ok, "")
			}
		}
		span.End()
	}
}

// WrapProber returns a Prober that records a span around every execution.
func (t *Tracer) WrapProber(p Prober) Prober {
	return tracedProber{next: p, tracer: t.tracer}
}

type tracedProber struct {
	next   Prober
	tracer trace.Tracer
}

func (p tracedProber) Execute(ctx context.Context, spec probe.Spec) probe.Outcome {
	ctx, span := p.tracer.Start(ctx, "clusterwatch.probe."+string(spec.Domain),
		trace.WithAttributes(
			attribute.String("probe.id", spec.ID),
			attribute.String("probe.kind", spec.Kind),
			attribute.String("probe.target", spec.Target),
		),
	)
	defer span.End()

	outcome := p.next.Execute(ctx, spec)
	span.SetAttributes(attribute.String("probe.outcome", string(outcome.Kind)))
	switch outcome.Kind {
	case probe.OutcomeSuccess:
		span.SetAttributes(attribute.String("probe.value", outcome.Value.String()))
		span.SetStatus(codes.Ok, "")
	case probe.OutcomeNotApplicable:
		span.SetStatus(codes.Ok, outcome.Detail())
	default:
		span.SetStatus(codes.Error, outcome.Detail())
	}
	return outcome
}

// Shutdown flushes pending spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
