package eventstore

import (
	"time"

	"github.com/google/uuid"
)

// Event is the capability shared by every event: a stable type identifier
// and the instant it occurred on
type Event interface {
	EventType() string
	EventDate() time.Time
}

// DomainEvent is an Event owned by an aggregate root. Sequence is the
// position of the event within the aggregate history and is assigned
// by the caller before Append
type DomainEvent interface {
	Event

	AggregateRootID() uuid.UUID
	Sequence() int
}

// Header holds the fields every domain event carries. Concrete events embed it
// and implement EventType, eg:
//
//	type OrderPlaced struct {
//		eventstore.Header
//		OrderNo string
//	}
//
//	func (OrderPlaced) EventType() string { return "OrderPlaced" }
type Header struct {
	RootID     uuid.UUID `json:"aggregateRootId"`
	Seq        int       `json:"sequence"`
	OccurredOn time.Time `json:"eventDate"`
}

// NewHeader constructs a header, normalizing the date to UTC
func NewHeader(aggregateRootID uuid.UUID, sequence int, date time.Time) Header {
	return Header{
		RootID:     aggregateRootID,
		Seq:        sequence,
		OccurredOn: date.UTC(),
	}
}

// AggregateRootID returns the id of the owning aggregate
func (h Header) AggregateRootID() uuid.UUID { return h.RootID }

// Sequence returns the position of the event within its aggregate
func (h Header) Sequence() int { return h.Seq }

// EventDate returns the instant the event occurred on
func (h Header) EventDate() time.Time { return h.OccurredOn }
