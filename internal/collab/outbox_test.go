package collab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbox_FIFO(t *testing.T) {
	q := newOutbox(8, nil)

	for _, id := range []string{"a", "b", "c"} {
		require.True(t, q.Enqueue(EditEvent{ID: id}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		ev, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, ev.ID)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "empty queue must not dequeue")
}

func TestOutbox_DropsOldestWhenFull(t *testing.T) {
	q := newOutbox(2, nil)

	require.True(t, q.Enqueue(EditEvent{ID: "old"}))
	require.True(t, q.Enqueue(EditEvent{ID: "mid"}))
	require.True(t, q.Enqueue(EditEvent{ID: "new"}))

	assert.Equal(t, 2, q.Len())

	ev, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "mid", ev.ID, "oldest entry is the one evicted")

	ev, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "new", ev.ID)
}

func TestOutbox_PushFrontPreservesReplayOrder(t *testing.T) {
	q := newOutbox(8, nil)
	q.Enqueue(EditEvent{ID: "first"})
	q.Enqueue(EditEvent{ID: "second"})

	ev, ok := q.TryDequeue()
	require.True(t, ok)
	require.Equal(t, "first", ev.ID)

	// Simulate a failed publish.
	q.PushFront(ev)

	ev, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "first", ev.ID)
}

func TestOutbox_WaitSignalsAvailability(t *testing.T) {
	q := newOutbox(8, nil)

	select {
	case <-q.Wait():
		t.Fatal("signal before any enqueue")
	default:
	}

	q.Enqueue(EditEvent{ID: "x"})

	select {
	case <-q.Wait():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no signal after enqueue")
	}
}

func TestOutbox_Close(t *testing.T) {
	q := newOutbox(8, nil)
	q.Close()

	assert.False(t, q.Enqueue(EditEvent{ID: "late"}))

	// Close wakes waiters.
	select {
	case <-q.Wait():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("close did not wake waiter")
	}

	// Idempotent.
	q.Close()
}
