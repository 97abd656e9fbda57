package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []Event
	boom := errors.New("boom")

	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error { return boom })
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		seen = append(seen, e)
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "t-1"})
	assert.ErrorIs(t, err, boom)
	require.Len(t, seen, 1)
	assert.NotEmpty(t, seen[0].ID)
	assert.False(t, seen[0].Timestamp.IsZero())
}

func TestSubscribeAll(t *testing.T) {
	d := NewInMemoryDispatcher()
	count := 0
	SubscribeAll(d, TicketEventTypes, func(context.Context, Event) error {
		count++
		return nil
	})

	for _, et := range TicketEventTypes {
		require.NoError(t, d.Publish(context.Background(), Event{Type: et}))
	}
	assert.Equal(t, len(TicketEventTypes), count)

	require.NoError(t, d.Publish(context.Background(), Event{Type: "unknown"}))
	assert.Equal(t, len(TicketEventTypes), count)
}
