// Package observe records round and probe metrics with OpenTelemetry,
// exposes them in Prometheus format and traces rounds.
package observe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jandubois/clusterwatch/internal/probe"
	"github.com/jandubois/clusterwatch/internal/report"
)

const meterName = "github.com/jandubois/clusterwatch"

// Metrics records per-round instruments.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	rounds        metric.Int64Counter
	roundDuration metric.Float64Histogram
	overall       metric.Int64Gauge
	findings      metric.Int64Counter
	probeLatency  metric.Float64Histogram
	alerts        metric.Int64Counter
	alertErrors   metric.Int64Counter
}

// Options configures New. PushExporter adds a periodic stdout or OTLP
// reader next to the Prometheus registry.
type Options struct {
	PushExporter string
	Resource     *sdkresource.Resource
}

// NewResource describes this process for exported telemetry.
func NewResource(ctx context.Context, version, hostname string) (*sdkresource.Resource, error) {
	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(
			semconv.ServiceName("clusterwatch"),
			semconv.ServiceVersion(version),
			semconv.HostName(hostname),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	return res, nil
}

// New creates metrics backed by a private Prometheus registry that also
// carries the Go runtime and process collectors.
func New(ctx context.Context, opts Options) (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	providerOpts := []sdkmetric.Option{sdkmetric.WithReader(exporter)}
	push, err := newPushReader(ctx, opts.PushExporter)
	if err != nil {
		return nil, err
	}
	if push != nil {
		providerOpts = append(providerOpts, sdkmetric.WithReader(push))
	}
	if opts.Resource != nil {
		providerOpts = append(providerOpts, sdkmetric.WithResource(opts.Resource))
	}
	provider := sdkmetric.NewMeterProvider(providerOpts...)

	m, err := newMetrics(provider.Meter(meterName))
	if err != nil {
		return nil, err
	}
	m.registry = registry
	m.provider = provider
	return m, nil
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.rounds, err = meter.Int64Counter("clusterwatch.rounds",
		metric.WithDescription("Completed evaluation rounds"),
		metric.WithUnit("{round}")); err != nil {
		return nil, fmt.Errorf("create rounds counter: %w", err)
	}
	if m.roundDuration, err = meter.Float64Histogram("clusterwatch.round.duration",
		metric.WithDescription("Wall-clock duration of a round in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("create round duration histogram: %w", err)
	}
	if m.overall, err = meter.Int64Gauge("clusterwatch.overall_severity",
		metric.WithDescription("Overall severity of the last round (0 ok, 1 unknown, 2 warning, 3 critical)")); err != nil {
		return nil, fmt.Errorf("create overall gauge: %w", err)
	}
	if m.findings, err = meter.Int64Counter("clusterwatch.findings",
		metric.WithDescription("Findings by domain and severity"),
		metric.WithUnit("{finding}")); err != nil {
		return nil, fmt.Errorf("create findings counter: %w", err)
	}
	if m.probeLatency, err = meter.Float64Histogram("clusterwatch.probe.latency",
		metric.WithDescription("Probe latency in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("create probe latency histogram: %w", err)
	}
	if m.alerts, err = meter.Int64Counter("clusterwatch.alerts",
		metric.WithDescription("Alerts handed to the sink"),
		metric.WithUnit("{alert}")); err != nil {
		return nil, fmt.Errorf("create alerts counter: %w", err)
	}
	if m.alertErrors, err = meter.Int64Counter("clusterwatch.alert.errors",
		metric.WithDescription("Alerts the sink failed to deliver"),
		metric.WithUnit("{error}")); err != nil {
		return nil, fmt.Errorf("create alert errors counter: %w", err)
	}
	return &m, nil
}

// RecordRound records a completed report.
func (m *Metrics) RecordRound(ctx context.Context, r *report.Report) {
	host := metric.WithAttributes(attribute.String("host", r.Hostname))
	m.rounds.Add(ctx, 1, host)
	m.roundDuration.Record(ctx, float64(r.Duration.Milliseconds()), host)
	m.overall.Record(ctx, int64(r.Overall), host)

	for _, f := range r.Findings {
		attrs := metric.WithAttributes(
			attribute.String("domain", string(f.Domain)),
			attribute.String("severity", f.Severity.String()),
		)
		m.findings.Add(ctx, 1, attrs)
		if f.Result.Outcome.Kind == probe.OutcomeSuccess {
			m.probeLatency.Record(ctx, float64(f.Result.Latency.Milliseconds()),
				metric.WithAttributes(attribute.String("domain", string(f.Domain)), attribute.String("kind", f.Result.Kind)))
		}
	}
}

// RecordAlert records an alert dispatch and whether it failed.
func (m *Metrics) RecordAlert(ctx context.Context, a *report.Alert, err error) {
	attrs := metric.WithAttributes(attribute.String("severity", a.Severity().String()))
	m.alerts.Add(ctx, 1, attrs)
	if err != nil {
		m.alertErrors.Add(ctx, 1, attrs)
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
