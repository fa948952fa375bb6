// Package fixtures holds order events and an order aggregate shared by tests
package fixtures

import (
	"errors"
	"fmt"

	eventstore "github.com/aneshas/domain-eventstore"
	"github.com/aneshas/domain-eventstore/aggregate"
)

// Event type identifiers
const (
	OrderPlacedType    = "OrderPlaced"
	OrderShippedType   = "OrderShipped"
	OrderCancelledType = "OrderCancelled"
)

// OrderPlaced is stored when an order is placed
type OrderPlaced struct {
	eventstore.Header

	OrderNo  string   `json:"orderNo"`
	Customer string   `json:"customer"`
	Lines    []string `json:"lines"`
	Total    int64    `json:"total"`
}

// EventType implements eventstore.Event
func (*OrderPlaced) EventType() string { return OrderPlacedType }

// OrderShipped is stored when an order leaves the warehouse
type OrderShipped struct {
	eventstore.Header

	Carrier    string `json:"carrier"`
	TrackingNo string `json:"trackingNo"`
}

// EventType implements eventstore.Event
func (*OrderShipped) EventType() string { return OrderShippedType }

// OrderCancelled is stored when an order is cancelled
type OrderCancelled struct {
	eventstore.Header

	Reason string `json:"reason"`
}

// EventType implements eventstore.Event
func (*OrderCancelled) EventType() string { return OrderCancelledType }

// Serializer returns a json serializer with all order events registered
func Serializer() *eventstore.JSONSerializer {
	return eventstore.NewJSONSerializer(
		func() eventstore.DomainEvent { return &OrderPlaced{} },
		func() eventstore.DomainEvent { return &OrderShipped{} },
		func() eventstore.DomainEvent { return &OrderCancelled{} },
	)
}

// ErrOrderClosed is returned for changes to shipped or cancelled orders
var ErrOrderClosed = errors.New("order is closed")

// Order is an event sourced order aggregate
type Order struct {
	aggregate.Root

	OrderNo string
	Status  string
	Carrier string
}

// On implements aggregate.Handler
func (o *Order) On(evt eventstore.DomainEvent) error {
	switch e := evt.(type) {
	case *OrderPlaced:
		o.OrderNo = e.OrderNo
		o.Status = "placed"

	case *OrderShipped:
		o.Status = "shipped"
		o.Carrier = e.Carrier

	case *OrderCancelled:
		o.Status = "cancelled"

	default:
		return fmt.Errorf("order: unexpected event %s", evt.EventType())
	}

	return nil
}

// Ship records the order as shipped
func (o *Order) Ship(e OrderShipped) error {
	if o.Status != "placed" {
		return ErrOrderClosed
	}

	return o.Apply(&e)
}
