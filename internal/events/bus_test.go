package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iqdump-service/internal/model"
)

func receive(t *testing.T, sub *Subscription) model.Event {
	t.Helper()
	select {
	case event, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return model.Event{}
	}
}

func TestBusDeliversByType(t *testing.T) {
	bus := NewBus(10, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Start(ctx)

	sweeps := bus.Subscribe(model.EventSweepStarted, model.EventSweepFinished)
	all := bus.Subscribe()
	defer sweeps.Close()
	defer all.Close()

	bus.Publish(model.NewEvent(model.EventDutConnected, "test", nil))
	bus.Publish(model.NewEvent(model.EventSweepStarted, "test", model.JSONObject{"band": "HB"}))

	assert.Equal(t, model.EventDutConnected, receive(t, all).Type)
	assert.Equal(t, model.EventSweepStarted, receive(t, all).Type)

	got := receive(t, sweeps)
	assert.Equal(t, model.EventSweepStarted, got.Type)
	assert.Equal(t, "HB", got.Data["band"])
}

func TestSubscriptionClose(t *testing.T) {
	bus := NewBus(10, nil)
	sub := bus.Subscribe(model.EventSweepIteration)
	sub.Close()
	sub.Close()

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Empty(t, bus.subscribers[model.EventSweepIteration])

	// Distributing after close must not panic
	bus.distributeEvent(model.NewEvent(model.EventSweepIteration, "test", nil))
}

func TestPublishDropsWhenFull(t *testing.T) {
	bus := NewBus(1, nil)
	bus.Publish(model.NewEvent(model.EventSweepIteration, "test", nil))
	bus.Publish(model.NewEvent(model.EventSweepIteration, "test", nil))

	assert.Len(t, bus.events, 1)
}
