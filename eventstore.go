// Package eventstore provides a durable, append-only store of domain events
// keyed by aggregate root id, backed by postgres or sqlite.
// Apart from the event store, mechanisms for building projections and
// working with aggregate roots are provided
package eventstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// postgres unique_violation
const pgUniqueViolation = "23505"

// Store is the public contract of the event store
type Store interface {
	Append(ctx context.Context, events []DomainEvent) error
	GetEvents(ctx context.Context, aggregateRootID uuid.UUID, startSequence int) ([]DomainEvent, error)
	GetEventsByEventTypes(ctx context.Context, types []string, opts ...QueryOpt) ([]DomainEvent, error)
}

var _ Store = (*EventStore)(nil)

// New constructs new event store and provisions its schema.
// ser - a specific serializer implementation (see bundled JSONSerializer)
// opts - backing database and pool configuration (see WithPostgresDB, WithSQLiteDB)
func New(ser Serializer, opts ...Option) (*EventStore, error) {
	if isNil(ser) {
		return nil, fmt.Errorf("%w: serializer implementation must be provided", ErrConfiguration)
	}

	var cfg Cfg

	for _, opt := range opts {
		cfg = opt(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg = cfg.withDefaults()

	var dial gorm.Dialector

	if cfg.PostgresDSN != "" {
		dial = postgres.Open(cfg.PostgresDSN)
	}

	if cfg.SQLitePath != "" {
		dial = sqlite.Open(cfg.SQLitePath)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, storageErr("open", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, storageErr("open", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := initSchema(context.Background(), db); err != nil {
		sqlDB.Close()

		return nil, err
	}

	cfg.logger.Debug("event store ready", "dialect", db.Dialector.Name())

	return newEventStore(db, ser, routinesFor(db.Dialector.Name()), cfg.logger), nil
}

func newEventStore(db *gorm.DB, ser Serializer, r routines, l *slog.Logger) *EventStore {
	return &EventStore{
		db:       db,
		ser:      ser,
		routines: r,
		logger:   l,
	}
}

// EventStore represents a relational event store implementation.
// Every Append item and every query runs in its own connection scope
// taken from the database/sql pool
type EventStore struct {
	db       *gorm.DB
	ser      Serializer
	routines routines
	logger   *slog.Logger
}

// Close should be called as a part of cleanup process
// in order to close the underlying sql connection
func (es *EventStore) Close() error {
	if es.db == nil {
		return nil
	}

	sqlDB, err := es.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func (es *EventStore) ready() error {
	if es == nil || es.db == nil || es.ser == nil || es.routines == nil {
		return ErrStoreNotReady
	}

	return nil
}

// Append stores events one by one, each in its own transaction.
// The first failure is returned immediately and events stored before it
// in the same call stay stored.
//
// Sequence numbers are taken from the events as they are. Append does not
// allocate or check them, so two callers appending the same aggregate
// concurrently race: one of them gets a StorageError wrapping
// ErrDuplicateEvent when they pick the same sequence, otherwise both
// succeed without any ordering guarantee between them
func (es *EventStore) Append(ctx context.Context, events []DomainEvent) error {
	if err := es.ready(); err != nil {
		return err
	}

	for i, evt := range events {
		if isNil(evt) {
			return fmt.Errorf("event %d: %w", i, ErrNilEvent)
		}

		data, err := es.ser.Serialize(evt)
		if err != nil {
			return err
		}

		rec := eventRecord{
			AggregateRootID: evt.AggregateRootID(),
			Sequence:        evt.Sequence(),
			EventType:       evt.EventType(),
			EventDate:       evt.EventDate().UTC(),
			Data:            data,
		}

		err = es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return es.routines.insertEvent(ctx, tx, rec)
		})
		if err != nil {
			return storageErr("append", translate(err))
		}

		es.logger.DebugContext(ctx, "event appended",
			"aggregate_root_id", rec.AggregateRootID,
			"sequence", rec.Sequence,
			"event_type", rec.EventType,
		)
	}

	return nil
}

// GetEvents returns events of the aggregate with sequence >= startSequence
// in ascending sequence order. An event that cannot be deserialized
// fails the whole read
func (es *EventStore) GetEvents(ctx context.Context, aggregateRootID uuid.UUID, startSequence int) ([]DomainEvent, error) {
	if err := es.ready(); err != nil {
		return nil, err
	}

	recs, err := es.routines.eventsByAggregateAndSequence(ctx, es.db, aggregateRootID, startSequence)
	if err != nil {
		return nil, storageErr("get events", err)
	}

	es.logger.DebugContext(ctx, "events read",
		"aggregate_root_id", aggregateRootID,
		"start_sequence", startSequence,
		"count", len(recs),
	)

	return es.decodeEvents(recs)
}

// GetEventsByEventTypes returns events of any of the given types across all
// aggregates, unordered. ForAggregate narrows the result to one aggregate.
//
// Between is evaluated in memory against the event's own date after every
// matching row has been read and deserialized. The stored column may be
// coarser than the event date (postgres keeps microseconds), so it is not
// used for filtering. The whole type history is read on each call
func (es *EventStore) GetEventsByEventTypes(ctx context.Context, types []string, opts ...QueryOpt) ([]DomainEvent, error) {
	if err := es.ready(); err != nil {
		return nil, err
	}

	var cfg QueryConfig

	for _, opt := range opts {
		cfg = opt(cfg)
	}

	for _, t := range types {
		if t == "" || strings.Contains(t, eventTypeSeparator) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEventType, t)
		}
	}

	if len(types) == 0 {
		return []DomainEvent{}, nil
	}

	recs, err := es.routines.eventsByType(ctx, es.db, types, cfg.aggregateRootID)
	if err != nil {
		return nil, storageErr("get events by type", err)
	}

	decoded, err := es.decodeEvents(recs)
	if err != nil {
		return nil, err
	}

	es.logger.DebugContext(ctx, "events read by type",
		"types", types,
		"count", len(recs),
	)

	if !cfg.ranged {
		return decoded, nil
	}

	out := make([]DomainEvent, 0, len(decoded))

	for _, evt := range decoded {
		if cfg.inRange(evt.EventDate()) {
			out = append(out, evt)
		}
	}

	return out, nil
}

func (es *EventStore) decodeEvents(recs []eventRecord) ([]DomainEvent, error) {
	out := make([]DomainEvent, len(recs))

	for i, rec := range recs {
		evt, err := es.ser.Deserialize(rec.EventType, rec.Data)
		if err != nil {
			return nil, err
		}

		out[i] = evt
	}

	return out, nil
}

// isNil reports whether v is nil or an interface holding a nil pointer
func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}

	return false
}

// translate maps key collisions reported by any supported driver
// to ErrDuplicateEvent, keeping the driver error in the chain
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ErrDuplicateEvent, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %w", ErrDuplicateEvent, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %w", ErrDuplicateEvent, err)
	}

	return err
}
