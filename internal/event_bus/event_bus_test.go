package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_Publish(t *testing.T) {
	t.Run("should call handlers in subscription order", func(t *testing.T) {
		// given
		bus := NewEventBus()
		var calls []string
		bus.Subscribe(WorkspaceSavedType, func(e Event) error {
			calls = append(calls, "first")
			return nil
		})
		bus.Subscribe(WorkspaceSavedType, func(e Event) error {
			calls = append(calls, "second")
			return nil
		})
		bus.Subscribe(PresetSavedType, func(e Event) error {
			calls = append(calls, "other type")
			return nil
		})

		// when
		err := bus.Publish(NewEvent(context.Background(), WorkspaceSavedType, WorkspaceSaved{WorkspaceId: "w", Revision: 1}))

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, calls)
	})

	t.Run("should keep going after a failing or panicking handler", func(t *testing.T) {
		// given
		bus := NewEventBus()
		failure := errors.New("boom")
		called := false
		bus.Subscribe(WorkspaceSavedType, func(e Event) error { return failure })
		bus.Subscribe(WorkspaceSavedType, func(e Event) error { panic("handler panic") })
		bus.Subscribe(WorkspaceSavedType, func(e Event) error {
			called = true
			return nil
		})

		// when
		err := bus.Publish(NewEvent(context.Background(), WorkspaceSavedType, WorkspaceSaved{}))

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, failure)
		assert.Contains(t, err.Error(), "2 handler(s) failed")
		assert.True(t, called)
	})

	t.Run("should not publish with a cancelled context", func(t *testing.T) {
		bus := NewEventBus()
		called := false
		bus.Subscribe(WorkspaceSavedType, func(e Event) error {
			called = true
			return nil
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := bus.Publish(NewEvent(ctx, WorkspaceSavedType, WorkspaceSaved{}))

		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("should stop calling an unsubscribed handler", func(t *testing.T) {
		bus := NewEventBus()
		count := 0
		unsubscribe := bus.Subscribe(WorkspaceSavedType, func(e Event) error {
			count++
			return nil
		})

		require.NoError(t, bus.Publish(NewEvent(context.Background(), WorkspaceSavedType, nil)))
		unsubscribe()
		require.NoError(t, bus.Publish(NewEvent(context.Background(), WorkspaceSavedType, nil)))

		assert.Equal(t, 1, count)
	})
}

func TestSubscribeTyped(t *testing.T) {
	// given
	bus := NewEventBus()
	var received []WorkspaceSaved
	SubscribeTyped[WorkspaceSaved](bus, WorkspaceSavedType, func(e EventT[WorkspaceSaved]) error {
		received = append(received, e.Data)
		assert.NotNil(t, e.Context())
		return nil
	})

	// when
	require.NoError(t, bus.Publish(NewEvent(context.Background(), WorkspaceSavedType, WorkspaceSaved{WorkspaceId: "w", Revision: 3})))
	require.NoError(t, bus.Publish(NewEvent(context.Background(), WorkspaceSavedType, PresetSaved{Name: "wrong payload"})))
	require.NoError(t, bus.Publish(Event{Type: WorkspaceSavedType}))

	// then
	assert.Equal(t, []WorkspaceSaved{{WorkspaceId: "w", Revision: 3}}, received)
}
