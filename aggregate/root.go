package aggregate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	eventstore "github.com/aneshas/domain-eventstore"
)

var (
	// ErrAggregateRootNotRehydrated is returned when aggregate is not rehydrated (with Rehydrate method)
	ErrAggregateRootNotRehydrated = fmt.Errorf("aggregate needs to be rehydrated")

	// ErrNilHandler is returned when Rehydrate is called without an event handler
	ErrNilHandler = fmt.Errorf("aggregate event handler must be provided")

	// ErrForeignEvent is returned when an event of another aggregate is applied
	ErrForeignEvent = fmt.Errorf("event belongs to another aggregate")
)

// Handler mutates aggregate state for a single event. Concrete aggregates
// implement it, usually with a type switch
type Handler interface {
	On(eventstore.DomainEvent) error
}

// Root represents reusable DDD Event Sourcing friendly Aggregate
// base type which tracks the aggregate id, the sequence of the last
// stored event and uncommitted events
type Root struct {
	ID uuid.UUID

	version      int
	domainEvents []eventstore.DomainEvent

	h Handler
}

// Rehydrate is used to construct and rehydrate the aggregate from stored events.
// h is the concrete aggregate embedding Root
func (a *Root) Rehydrate(h Handler, events ...eventstore.DomainEvent) error {
	if h == nil {
		return ErrNilHandler
	}

	a.h = h

	for _, evt := range events {
		if err := a.mutate(evt); err != nil {
			return err
		}

		a.version = evt.Sequence()
	}

	return nil
}

// AggregateRootID returns the aggregate identity
func (a *Root) AggregateRootID() uuid.UUID { return a.ID }

// Version returns the sequence of the last stored event (0 for new aggregates)
func (a *Root) Version() int { return a.version }

// Events returns uncommitted domain events (produced by calling Apply)
func (a *Root) Events() []eventstore.DomainEvent {
	if a.domainEvents == nil {
		return []eventstore.DomainEvent{}
	}

	return a.domainEvents
}

// Next returns the header for the next event of this aggregate.
// Its sequence follows the last stored and uncommitted events
func (a *Root) Next(at time.Time) eventstore.Header {
	return eventstore.NewHeader(a.ID, a.version+len(a.domainEvents)+1, at)
}

// Apply mutates aggregate (calls its handler) and appends event to
// the uncommitted events, so that they can be retrieved with Events method
func (a *Root) Apply(events ...eventstore.DomainEvent) error {
	if a.h == nil {
		return ErrAggregateRootNotRehydrated
	}

	for _, evt := range events {
		if err := a.mutate(evt); err != nil {
			return err
		}

		a.domainEvents = append(a.domainEvents, evt)
	}

	return nil
}

// Commit marks uncommitted events as stored
func (a *Root) Commit() {
	if n := len(a.domainEvents); n > 0 {
		a.version = a.domainEvents[n-1].Sequence()
	}

	a.domainEvents = nil
}

func (a *Root) mutate(evt eventstore.DomainEvent) error {
	if a.ID == uuid.Nil {
		a.ID = evt.AggregateRootID()
	}

	if evt.AggregateRootID() != a.ID {
		return fmt.Errorf("%w: %s", ErrForeignEvent, evt.AggregateRootID())
	}

	return a.h.On(evt)
}
