package main

import (
	"context"
	"fmt"

	otlpmetricgrpc "go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// newOtelMeter builds a real OTel Meter backed by an OTLP gRPC exporter,
// for metricsink.OtelSink to report producer-send counters and histograms
// through alongside the trace spans tracing.Init sets up.
func newOtelMeter(ctx context.Context, f *runFlags) (otelmetric.Meter, func(context.Context) error, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(f.OTLPEndpoint),
	}
	if f.OTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("otlp metric exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	meter := provider.Meter("benchworker/cmd/worker")
	return meter, provider.Shutdown, nil
}
