package otelstore

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/aneshas/domain-eventstore"

// Semantic attribute keys following OpenTelemetry conventions
const (
	AttrOperation       = attribute.Key("eventstore.operation")
	AttrAggregateRootID = attribute.Key("eventstore.aggregate_root.id")
	AttrStartSequence   = attribute.Key("eventstore.sequence.start")
	AttrEventTypes      = attribute.Key("eventstore.event.types")
	AttrEventCount      = attribute.Key("eventstore.events.count")
)

type config struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures the telemetry store
type Option func(*config)

// WithTracerProvider sets the tracer provider, the global one is used otherwise
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider, the global one is used otherwise
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		c.meterProvider = mp
	}
}

type instruments struct {
	appended metric.Int64Counter
	loaded   metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments(m metric.Meter) (instruments, error) {
	var (
		ins instruments
		err error
	)

	ins.appended, err = m.Int64Counter(
		"eventstore.events.appended",
		metric.WithDescription("Number of events appended by fully successful batches"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return ins, err
	}

	ins.loaded, err = m.Int64Counter(
		"eventstore.events.loaded",
		metric.WithDescription("Number of events read"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return ins, err
	}

	ins.errors, err = m.Int64Counter(
		"eventstore.errors",
		metric.WithDescription("Number of failed event store operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return ins, err
	}

	ins.duration, err = m.Float64Histogram(
		"eventstore.duration",
		metric.WithDescription("Event store operation duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)

	return ins, err
}

func defaultConfig() config {
	return config{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
}
