package eventstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueryConfig (configure using QueryOpt)
type QueryConfig struct {
	aggregateRootID *uuid.UUID

	ranged    bool
	startDate time.Time
	endDate   time.Time
}

// QueryOpt represents GetEventsByEventTypes option
type QueryOpt func(QueryConfig) QueryConfig

// ForAggregate narrows GetEventsByEventTypes to a single aggregate
func ForAggregate(aggregateRootID uuid.UUID) QueryOpt {
	return func(cfg QueryConfig) QueryConfig {
		cfg.aggregateRootID = &aggregateRootID

		return cfg
	}
}

// Between keeps only events whose date is within [start, end], both
// ends inclusive
func Between(start, end time.Time) QueryOpt {
	return func(cfg QueryConfig) QueryConfig {
		cfg.ranged = true
		cfg.startDate = start
		cfg.endDate = end

		return cfg
	}
}

func (cfg QueryConfig) inRange(t time.Time) bool {
	return !t.Before(cfg.startDate) && !t.After(cfg.endDate)
}

// GetEventsOf would read the events of one aggregate as a single concrete type.
// The relational store does not support typed retrieval and always returns
// ErrUnsupportedOperation without touching the database
func GetEventsOf[T DomainEvent](_ context.Context, _ *EventStore, _ uuid.UUID, _ int) ([]T, error) {
	var zero T

	return nil, fmt.Errorf("%w: typed retrieval of %T", ErrUnsupportedOperation, zero)
}

// GetEventsByEventType would read every event of a single concrete type.
// Like GetEventsOf it is not supported and returns ErrUnsupportedOperation
func GetEventsByEventType[T DomainEvent](_ context.Context, _ *EventStore) ([]T, error) {
	var zero T

	return nil, fmt.Errorf("%w: typed retrieval of %T", ErrUnsupportedOperation, zero)
}
