package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Event{Type: TypeMarked, Month: "2025-04", Date: "2025-04-02"}))

	events, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case evt := <-events:
		assert.Equal(t, TypeMarked, evt.Type)
		assert.Equal(t, "2025-04", evt.Month)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Event{Type: TypeMarked}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Publish(ctx, Event{Type: TypeMarked})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInMemoryConsumeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	events, err := q.Consume(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}
