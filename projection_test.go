package eventstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventstore "github.com/aneshas/domain-eventstore"
	"github.com/aneshas/domain-eventstore/internal/fixtures"
)

type reader struct {
	evts []eventstore.DomainEvent
	err  error

	types []string
}

func (r *reader) GetEventsByEventTypes(_ context.Context, types []string, _ ...eventstore.QueryOpt) ([]eventstore.DomainEvent, error) {
	r.types = types

	if r.err != nil {
		return nil, r.err
	}

	out := make([]eventstore.DomainEvent, len(r.evts))
	copy(out, r.evts)

	return out, nil
}

func TestShouldProjectEventsToProjectionsInOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	r := &reader{
		evts: []eventstore.DomainEvent{
			shipped(a, 2, t0.Add(time.Hour)),
			placed(b, 1, t0),
			placed(a, 1, t0.Add(-time.Hour)),
		},
	}

	p := eventstore.NewProjector(r, nil)

	var got, anotherGot []eventstore.DomainEvent

	p.Add(
		func(evt eventstore.DomainEvent) error {
			got = append(got, evt)

			return nil
		},
		func(evt eventstore.DomainEvent) error {
			anotherGot = append(anotherGot, evt)

			return nil
		},
	)

	types := []string{fixtures.OrderPlacedType, fixtures.OrderShippedType}

	err := p.Run(context.Background(), types)
	require.NoError(t, err)

	want := []eventstore.DomainEvent{
		placed(a, 1, t0.Add(-time.Hour)),
		placed(b, 1, t0),
		shipped(a, 2, t0.Add(time.Hour)),
	}

	assert.Equal(t, want, got)
	assert.Equal(t, want, anotherGot)
	assert.Equal(t, types, r.types)
}

func TestProjectorOrdersSameDateBySequence(t *testing.T) {
	a := uuid.New()

	r := &reader{
		evts: []eventstore.DomainEvent{
			shipped(a, 2, t0),
			placed(a, 1, t0),
		},
	}

	p := eventstore.NewProjector(r, nil)

	var seqs []int

	p.Add(func(evt eventstore.DomainEvent) error {
		seqs = append(seqs, evt.Sequence())

		return nil
	})

	require.NoError(t, p.Run(context.Background(), []string{fixtures.OrderPlacedType}))

	assert.Equal(t, []int{1, 2}, seqs)
}

func TestProjectorStopsOnProjectionError(t *testing.T) {
	a := uuid.New()
	anErr := fmt.Errorf("some projection error")

	r := &reader{
		evts: []eventstore.DomainEvent{
			placed(a, 1, t0),
			shipped(a, 2, t0.Add(time.Hour)),
		},
	}

	p := eventstore.NewProjector(r, nil)

	var calls int

	p.Add(func(evt eventstore.DomainEvent) error {
		calls++

		return anErr
	})

	err := p.Run(context.Background(), []string{fixtures.OrderPlacedType})

	assert.ErrorIs(t, err, anErr)
	assert.Equal(t, 1, calls)
}

func TestProjectorPropagatesReadErrors(t *testing.T) {
	anErr := fmt.Errorf("read failed")

	p := eventstore.NewProjector(&reader{err: anErr}, nil)

	p.Add(func(evt eventstore.DomainEvent) error {
		t.Fatal("projection should not be called")

		return nil
	})

	err := p.Run(context.Background(), []string{fixtures.OrderPlacedType})

	assert.ErrorIs(t, err, anErr)
}

func TestProjectorExitsIfContextIsCanceled(t *testing.T) {
	r := &reader{
		evts: []eventstore.DomainEvent{placed(uuid.New(), 1, t0)},
	}

	p := eventstore.NewProjector(r, nil)

	p.Add(func(evt eventstore.DomainEvent) error {
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx, []string{fixtures.OrderPlacedType})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestProjectorReadsFromEventStore(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		es := b.open(t, fixtures.Serializer())
		ctx := context.Background()
		x := uuid.New()

		err := es.Append(ctx, []eventstore.DomainEvent{
			placed(x, 1, t0),
			shipped(x, 2, t0.Add(time.Hour)),
			cancelled(x, 3, t0.Add(2*time.Hour)),
		})
		require.NoError(t, err)

		var orders []string

		p := eventstore.NewProjector(es, nil)

		p.Add(func(evt eventstore.DomainEvent) error {
			if e, ok := evt.(*fixtures.OrderPlaced); ok {
				orders = append(orders, e.OrderNo)
			}

			return nil
		})

		err = p.Run(ctx, []string{fixtures.OrderPlacedType}, eventstore.Between(t0, t0))
		require.NoError(t, err)

		assert.Equal(t, []string{"ord-1"}, orders)
	})
}
