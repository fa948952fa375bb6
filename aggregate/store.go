package aggregate

import (
	"context"
	"errors"

	"github.com/google/uuid"

	eventstore "github.com/aneshas/domain-eventstore"
)

// ErrAggregateNotFound is returned when no events are stored for an aggregate
var ErrAggregateNotFound = errors.New("aggregate not found")

// Rooter represents an aggregate root: a concrete aggregate embedding Root
type Rooter interface {
	Handler

	AggregateRootID() uuid.UUID
	Version() int
	Events() []eventstore.DomainEvent
	Rehydrate(h Handler, events ...eventstore.DomainEvent) error
	Commit()
}

// EventStore represents event store
type EventStore interface {
	Append(ctx context.Context, events []eventstore.DomainEvent) error
	GetEvents(ctx context.Context, aggregateRootID uuid.UUID, startSequence int) ([]eventstore.DomainEvent, error)
}

// NewStore constructs new event sourced aggregate store
func NewStore[T Rooter](eventStore EventStore) *Store[T] {
	return &Store[T]{
		eventStore: eventStore,
	}
}

// Store represents event sourced aggregate store
type Store[T Rooter] struct {
	eventStore EventStore
}

// Save appends aggregate's uncommitted events to the event store.
// On error some of the events may already be stored and the aggregate
// should be loaded again before retrying
func (s *Store[T]) Save(ctx context.Context, aggregate T) error {
	events := aggregate.Events()

	if len(events) == 0 {
		return nil
	}

	if err := s.eventStore.Append(ctx, events); err != nil {
		return err
	}

	aggregate.Commit()

	return nil
}

// ByID reads aggregate events by its id and rehydrates the aggregate
func (s *Store[T]) ByID(ctx context.Context, id uuid.UUID, aggregate T) error {
	events, err := s.eventStore.GetEvents(ctx, id, 1)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return ErrAggregateNotFound
	}

	return aggregate.Rehydrate(aggregate, events...)
}
