package eventstore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type eventRecord struct {
	AggregateRootID uuid.UUID `gorm:"column:aggregate_root_id;primaryKey"`
	Sequence        int       `gorm:"column:sequence;primaryKey;autoIncrement:false"`
	EventType       string    `gorm:"column:event_type"`
	EventDate       time.Time `gorm:"column:event_date"`
	Data            string    `gorm:"column:data"`
}

// TableName returns gorm table name
func (eventRecord) TableName() string { return "domain_event" }

const eventTypeSeparator = ","

// routines are the three access paths the store is built on
type routines interface {
	// eventsByAggregateAndSequence returns rows of one aggregate with
	// sequence >= seq in ascending sequence order
	eventsByAggregateAndSequence(ctx context.Context, db *gorm.DB, id uuid.UUID, seq int) ([]eventRecord, error)

	// insertEvent inserts a single row and fails on key collision
	insertEvent(ctx context.Context, tx *gorm.DB, rec eventRecord) error

	// eventsByType returns rows of any of the types, optionally narrowed
	// to a single aggregate. Order is unspecified
	eventsByType(ctx context.Context, db *gorm.DB, types []string, id *uuid.UUID) ([]eventRecord, error)
}

func routinesFor(dialect string) routines {
	if dialect == "postgres" {
		return storedRoutines{}
	}

	return builderRoutines{}
}

// storedRoutines call the functions and procedure created by the postgres
// migrations
type storedRoutines struct{}

func (storedRoutines) eventsByAggregateAndSequence(ctx context.Context, db *gorm.DB, id uuid.UUID, seq int) ([]eventRecord, error) {
	var recs []eventRecord

	err := db.WithContext(ctx).
		Raw("SELECT * FROM get_events_by_aggregate_and_sequence(?, ?)", id, seq).
		Scan(&recs).Error

	return recs, err
}

func (storedRoutines) insertEvent(ctx context.Context, tx *gorm.DB, rec eventRecord) error {
	return tx.WithContext(ctx).
		Exec(
			"CALL insert_event(?, ?, ?, ?, ?)",
			rec.AggregateRootID, rec.Sequence, rec.EventType, rec.EventDate, rec.Data,
		).Error
}

func (storedRoutines) eventsByType(ctx context.Context, db *gorm.DB, types []string, id *uuid.UUID) ([]eventRecord, error) {
	var recs []eventRecord

	joined := strings.Join(types, eventTypeSeparator)

	q := db.WithContext(ctx)

	if id != nil {
		q = q.Raw("SELECT * FROM get_events_by_type(?, ?)", joined, *id)
	} else {
		q = q.Raw("SELECT * FROM get_events_by_type(?)", joined)
	}

	return recs, q.Scan(&recs).Error
}

// builderRoutines express the same access paths with the gorm query builder
// for dialects without stored routines (sqlite)
type builderRoutines struct{}

func (builderRoutines) eventsByAggregateAndSequence(ctx context.Context, db *gorm.DB, id uuid.UUID, seq int) ([]eventRecord, error) {
	var recs []eventRecord

	err := db.WithContext(ctx).
		Where("aggregate_root_id = ? AND sequence >= ?", id, seq).
		Order("sequence asc").
		Find(&recs).Error

	return recs, err
}

func (builderRoutines) insertEvent(ctx context.Context, tx *gorm.DB, rec eventRecord) error {
	return tx.WithContext(ctx).Create(&rec).Error
}

func (builderRoutines) eventsByType(ctx context.Context, db *gorm.DB, types []string, id *uuid.UUID) ([]eventRecord, error) {
	var recs []eventRecord

	q := db.WithContext(ctx).Where("event_type IN ?", types)

	if id != nil {
		q = q.Where("aggregate_root_id = ?", *id)
	}

	return recs, q.Find(&recs).Error
}
