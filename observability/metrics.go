package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/rivalscan/rivalscan/flow"
)

// InitMetrics initializes OpenTelemetry metrics with Prometheus export and
// installs the provider globally.
func InitMetrics(serviceName string) (*sdkmetric.MeterProvider, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)
	return provider, nil
}

// EngineMetrics records per-step counters and latencies for an engine. Wire
// it in with flow.WithAfterStep(metrics.AfterStep).
type EngineMetrics struct {
	stepCounter  metric.Int64Counter
	errorCounter metric.Int64Counter
	stepLatency  metric.Float64Histogram
}

// NewEngineMetrics creates the engine instrument set on the global meter.
func NewEngineMetrics() (*EngineMetrics, error) {
	meter := otel.Meter("rivalscan.flow")

	stepCounter, err := meter.Int64Counter(
		"rivalscan.step.executions",
		metric.WithDescription("Total step executions, including retries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create step counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"rivalscan.step.errors",
		metric.WithDescription("Step executions that returned an error, by kind"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	stepLatency, err := meter.Float64Histogram(
		"rivalscan.step.latency",
		metric.WithDescription("Step execution latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create latency histogram: %w", err)
	}

	return &EngineMetrics{
		stepCounter:  stepCounter,
		errorCounter: errorCounter,
		stepLatency:  stepLatency,
	}, nil
}

// AfterStep is a flow.StepHook recording one step execution.
func (m *EngineMetrics) AfterStep(run *flow.Run, step flow.Step, err error, elapsed time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("step", step.Name()))

	m.stepCounter.Add(ctx, 1, attrs)
	m.stepLatency.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	if err != nil {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("step", step.Name()),
			attribute.String("kind", flow.ErrorKind(err)),
		))
	}
}
