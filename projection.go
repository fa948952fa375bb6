package eventstore

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// TypeReader reads events by type. This package offers EventStore as
// TypeReader implementation
type TypeReader interface {
	GetEventsByEventTypes(ctx context.Context, types []string, opts ...QueryOpt) ([]DomainEvent, error)
}

// Projection represents a projection that should be able to handle
// projected events
type Projection func(DomainEvent) error

// NewProjector constructs a Projector
func NewProjector(r TypeReader, l *slog.Logger) *Projector {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}

	return &Projector{
		reader: r,
		logger: l,
	}
}

// Projector replays stored events of selected types to each registered
// projection on the caller's goroutine
type Projector struct {
	reader      TypeReader
	projections []Projection
	logger      *slog.Logger
}

// Add effectively registers a projection with the projector
// Make sure to add all of your projections before calling Run
func (p *Projector) Add(projections ...Projection) {
	p.projections = append(p.projections, projections...)
}

// Run reads all events of the given types and feeds them to every projection
// ordered by event date, aggregate root id and sequence. The first projection
// error stops the run
func (p *Projector) Run(ctx context.Context, types []string, opts ...QueryOpt) error {
	events, err := p.reader.GetEventsByEventTypes(ctx, types, opts...)
	if err != nil {
		return err
	}

	slices.SortStableFunc(events, compareEvents)

	for i, projection := range p.projections {
		for _, evt := range events {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := projection(evt); err != nil {
				p.logger.ErrorContext(ctx, "projection failed",
					"projection", i,
					"aggregate_root_id", evt.AggregateRootID(),
					"sequence", evt.Sequence(),
					"error", err,
				)

				return fmt.Errorf("projection %d: %w", i, err)
			}
		}
	}

	p.logger.DebugContext(ctx, "projections done",
		"projections", len(p.projections),
		"events", len(events),
	)

	return nil
}

func compareEvents(a, b DomainEvent) int {
	if c := a.EventDate().Compare(b.EventDate()); c != 0 {
		return c
	}

	aID, bID := a.AggregateRootID(), b.AggregateRootID()

	if c := bytes.Compare(aID[:], bID[:]); c != 0 {
		return c
	}

	return cmp.Compare(a.Sequence(), b.Sequence())
}
