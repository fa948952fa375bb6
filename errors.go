package eventstore

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates a missing or invalid endpoint or serializer
	// at construction time
	ErrConfiguration = errors.New("invalid event store configuration")

	// ErrSchemaInitialization indicates that the backing schema could not be
	// provisioned. A store that fails with it is unusable
	ErrSchemaInitialization = errors.New("schema initialization failed")

	// ErrStoreNotReady is returned by every operation of an EventStore that
	// was not constructed with New
	ErrStoreNotReady = errors.New("event store is not initialized")

	// ErrTypeResolution indicates that a stored type identifier is not
	// registered with the serializer
	ErrTypeResolution = errors.New("event type not registered")

	// ErrPayloadFormat indicates that a payload could not be serialized or
	// parsed for its event type
	ErrPayloadFormat = errors.New("malformed event payload")

	// ErrUnsupportedOperation is returned by the typed retrieval variants
	// which this store does not implement
	ErrUnsupportedOperation = errors.New("operation not supported by event store")

	// ErrDuplicateEvent indicates that an event with the same aggregate root id
	// and sequence is already stored. It is always wrapped in a StorageError
	ErrDuplicateEvent = errors.New("event with the same aggregate root id and sequence exists")

	// ErrNilEvent is returned by Append when the batch contains a nil event
	ErrNilEvent = errors.New("event must not be nil")

	// ErrInvalidEventType is returned for empty event types or types that
	// contain the list separator used by the type query
	ErrInvalidEventType = errors.New("invalid event type")
)

// StorageError wraps any failure reported by the backing database
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("eventstore %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return &StorageError{Op: op, Err: err}
}
