// Package otelstore decorates an event store with OpenTelemetry spans and metrics
package otelstore

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	eventstore "github.com/aneshas/domain-eventstore"
)

var _ eventstore.Store = (*Store)(nil)

// Store wraps an eventstore.Store, results and errors are passed through as is
type Store struct {
	next   eventstore.Store
	tracer trace.Tracer
	ins    instruments
}

// New constructs a telemetry store around next
func New(next eventstore.Store, opts ...Option) (*Store, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		opt(&cfg)
	}

	ins, err := newInstruments(cfg.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}

	return &Store{
		next:   next,
		tracer: cfg.tracerProvider.Tracer(instrumentationName),
		ins:    ins,
	}, nil
}

// Append with metrics + span.
// eventstore.events.appended only grows for batches that were stored in full.
// Events committed before a failure inside a batch are not counted, the
// failure shows up in eventstore.errors instead
func (s *Store) Append(ctx context.Context, events []eventstore.DomainEvent) error {
	attrs := []attribute.KeyValue{
		AttrOperation.String("append"),
		AttrEventCount.Int(len(events)),
	}

	if len(events) > 0 && !nilEvent(events[0]) {
		attrs = append(attrs, AttrAggregateRootID.String(events[0].AggregateRootID().String()))
	}

	ctx, span := s.tracer.Start(ctx, "EventStore.Append",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	start := time.Now()
	err := s.next.Append(ctx, events)

	s.record(ctx, span, "append", start, err)

	if err == nil {
		s.ins.appended.Add(ctx, int64(len(events)))
	}

	return err
}

// GetEvents with metrics + span
func (s *Store) GetEvents(ctx context.Context, aggregateRootID uuid.UUID, startSequence int) ([]eventstore.DomainEvent, error) {
	ctx, span := s.tracer.Start(ctx, "EventStore.GetEvents",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrOperation.String("get_events"),
			AttrAggregateRootID.String(aggregateRootID.String()),
			AttrStartSequence.Int(startSequence),
		),
	)
	defer span.End()

	start := time.Now()
	events, err := s.next.GetEvents(ctx, aggregateRootID, startSequence)

	s.loaded(ctx, span, "get_events", start, events, err)

	return events, err
}

// GetEventsByEventTypes with metrics + span
func (s *Store) GetEventsByEventTypes(ctx context.Context, types []string, opts ...eventstore.QueryOpt) ([]eventstore.DomainEvent, error) {
	ctx, span := s.tracer.Start(ctx, "EventStore.GetEventsByEventTypes",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrOperation.String("get_events_by_event_types"),
			AttrEventTypes.StringSlice(types),
		),
	)
	defer span.End()

	start := time.Now()
	events, err := s.next.GetEventsByEventTypes(ctx, types, opts...)

	s.loaded(ctx, span, "get_events_by_event_types", start, events, err)

	return events, err
}

func (s *Store) loaded(ctx context.Context, span trace.Span, op string, start time.Time, events []eventstore.DomainEvent, err error) {
	s.record(ctx, span, op, start, err)

	if err != nil {
		return
	}

	span.SetAttributes(AttrEventCount.Int(len(events)))
	s.ins.loaded.Add(ctx, int64(len(events)), metric.WithAttributes(AttrOperation.String(op)))
}

func (s *Store) record(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	opAttr := metric.WithAttributes(AttrOperation.String(op))

	s.ins.duration.Record(ctx, float64(time.Since(start).Milliseconds()), opAttr)

	if err != nil {
		s.ins.errors.Add(ctx, 1, opAttr)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func nilEvent(evt eventstore.DomainEvent) bool {
	if evt == nil {
		return true
	}

	rv := reflect.ValueOf(evt)

	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
