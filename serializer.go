package eventstore

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Serializer converts domain events to payload strings and back.
// The store passes the stored type identifier verbatim to Deserialize
type Serializer interface {
	Serialize(DomainEvent) (string, error)
	Deserialize(eventType, payload string) (DomainEvent, error)
}

// Factory returns a new, empty instance of a concrete event that
// a payload can be unmarshaled into. It should return a pointer
type Factory func() DomainEvent

// NewJSONSerializer constructs a json serializer and registers the
// provided factories under the EventType of the event they produce
func NewJSONSerializer(factories ...Factory) *JSONSerializer {
	s := JSONSerializer{
		factories: make(map[string]Factory),
	}

	for _, f := range factories {
		s.Register(f().EventType(), f)
	}

	return &s
}

// JSONSerializer provides the default json Serializer implementation.
// Event types are resolved through an explicit registry of factories
type JSONSerializer struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// Register adds a factory for the given event type. It panics on a nil
// factory, a factory that returns nil or a type registered twice
func (s *JSONSerializer) Register(eventType string, f Factory) {
	if f == nil {
		panic("eventstore: cannot register nil factory")
	}

	if f() == nil {
		panic(fmt.Sprintf("eventstore: factory for %q returned nil", eventType))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.factories[eventType]; ok {
		panic(fmt.Sprintf("eventstore: event type %q already registered", eventType))
	}

	s.factories[eventType] = f
}

// Serialize marshals the event to its json representation
func (s *JSONSerializer) Serialize(evt DomainEvent) (string, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPayloadFormat, evt.EventType(), err)
	}

	return string(data), nil
}

// Deserialize resolves the factory for eventType and unmarshals the payload
// into the instance it returns
func (s *JSONSerializer) Deserialize(eventType, payload string) (DomainEvent, error) {
	s.mu.RLock()
	f, ok := s.factories[eventType]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTypeResolution, eventType)
	}

	evt := f()

	if err := json.Unmarshal([]byte(payload), evt); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPayloadFormat, eventType, err)
	}

	return evt, nil
}
