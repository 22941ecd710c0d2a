package config

import (
	"context"
	"errors"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/version"
)

const (
	serviceName    = "f1-race-engineer"
	metricInterval = 15 * time.Second
)

// Telemetry holds the providers registered as otel globals
type Telemetry struct {
	ctx      context.Context
	metrics  *sdkmetric.MeterProvider
	tracer   *sdktrace.TracerProvider
	shutdown []func(context.Context) error
}

// SetupTelemetry registers meter and tracer providers. With an empty
// TelemetryEndpoint the data is written to stderr.
func SetupTelemetry(ctx context.Context) (*Telemetry, error) {
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version.Version),
	))
	if err != nil {
		return nil, err
	}
	ret := &Telemetry{ctx: ctx}
	if err := ret.setupMetrics(ctx, res); err != nil {
		return nil, err
	}
	if err := ret.setupTraces(ctx, res); err != nil {
		ret.Shutdown()
		return nil, err
	}
	return ret, nil
}

func (t *Telemetry) setupMetrics(ctx context.Context, res *resource.Resource) error {
	var exporter sdkmetric.Exporter
	var err error
	if TelemetryEndpoint == "" {
		exporter, err = stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
	} else {
		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(TelemetryEndpoint),
			otlpmetricgrpc.WithInsecure())
	}
	if err != nil {
		return err
	}
	t.metrics = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(metricInterval))),
	)
	otel.SetMeterProvider(t.metrics)
	t.shutdown = append(t.shutdown, t.metrics.Shutdown)
	return nil
}

func (t *Telemetry) setupTraces(ctx context.Context, res *resource.Resource) error {
	var exporter sdktrace.SpanExporter
	var err error
	if TelemetryEndpoint == "" {
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	} else {
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(TelemetryEndpoint),
			otlptracegrpc.WithInsecure())
	}
	if err != nil {
		return err
	}
	t.tracer = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(t.tracer)
	t.shutdown = append(t.shutdown, t.tracer.Shutdown)
	return nil
}

// Shutdown flushes pending data
func (t *Telemetry) Shutdown() {
	var errs []error
	for _, f := range t.shutdown {
		errs = append(errs, f(t.ctx))
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn("telemetry shutdown", log.ErrorField(err))
	}
}
