package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(16)
	defer sub.Unsubscribe()

	bus.Publish(Event{TaskID: "t1", Stage: StageStage, Status: StatusStarted})
	bus.Publish(Event{TaskID: "t1", Stage: StageStage, Status: StatusInProgress, Percent: 50})
	bus.Publish(Event{TaskID: "t1", Stage: StageStage, Status: StatusCompleted, Percent: 100})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev1, ok := sub.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, StatusStarted, ev1.Status)

	ev2, ok := sub.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, StatusInProgress, ev2.Status)
	assert.Equal(t, 50.0, ev2.Percent)

	ev3, ok := sub.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, ev3.Status)
}

func TestBusDropsUnderBackpressureAndSignals(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(2)
	defer sub.Unsubscribe()

	for i := 0; i < 5; i++ {
		bus.Publish(Event{TaskID: "t1", Status: StatusInProgress, Percent: float64(i)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev, ok := sub.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, StatusDropped, ev.Status)

	// The ring still holds the 2 most recent events.
	ev, ok = sub.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, 3.0, ev.Percent)
	ev, ok = sub.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, 4.0, ev.Percent)
}

func TestBusMultipleSubscribersEachGetEveryEvent(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(8)
	b := bus.Subscribe(8)
	defer a.Unsubscribe()
	defer b.Unsubscribe()

	bus.Publish(Event{TaskID: "t1", Status: StatusStarted})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	evA, ok := a.Next(ctx)
	require.True(t, ok)
	evB, ok := b.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, evA.Status, evB.Status)
}

func TestUnsubscribeStopsNext(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(4)
	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, ok := sub.Next(ctx)
	assert.False(t, ok)
}
