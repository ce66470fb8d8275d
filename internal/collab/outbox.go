package collab

import (
	"log/slog"
	"sync"
)

// defaultOutboxCap bounds how many edits a disconnected session holds
// for replay. At the cap the oldest entries are discarded first, which
// keeps memory flat over long offline periods at the cost of losing the
// edits least likely to still matter.
const defaultOutboxCap = 1024

// outbox is a thread-safe bounded FIFO of edit events awaiting publish.
//
// Thread-safety covers external enqueuing (the workbook's edit hook
// fires from whatever goroutine mutated the cell) while the session's
// run loop dequeues.
//
// A buffered size-1 channel signals availability so the run loop can
// select against context cancellation instead of polling.
type outbox struct {
	mu     sync.Mutex
	events []EditEvent
	cap    int
	closed bool
	signal chan struct{}

	log *slog.Logger
}

func newOutbox(capacity int, log *slog.Logger) *outbox {
	if capacity <= 0 {
		capacity = defaultOutboxCap
	}
	if log == nil {
		log = slog.Default()
	}
	return &outbox{
		events: make([]EditEvent, 0, 64),
		cap:    capacity,
		signal: make(chan struct{}, 1),
		log:    log,
	}
}

// Enqueue appends an event, evicting the oldest entry when full.
// Returns false after Close.
func (q *outbox) Enqueue(e EditEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	if len(q.events) >= q.cap {
		dropped := q.events[0]
		q.events[0] = EditEvent{}
		q.events = q.events[1:]
		q.log.Warn("outbox full, dropping oldest pending edit",
			"dropped_event_id", dropped.ID,
			"cell_id", dropped.CellID,
			"capacity", q.cap)
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces repeated signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// PushFront returns a dequeued event to the head of the queue. Used
// when a publish fails mid-flush so replay order is preserved.
func (q *outbox) PushFront(e EditEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.events = append([]EditEvent{e}, q.events...)

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// TryDequeue pops the front event without blocking.
func (q *outbox) TryDequeue() (EditEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return EditEvent{}, false
	}

	e := q.events[0]

	// Nil out the slot so the backing array does not retain the event.
	q.events[0] = EditEvent{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns the availability signal for select-based waiting.
func (q *outbox) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending events.
func (q *outbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops accepting events and wakes any waiter.
func (q *outbox) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
