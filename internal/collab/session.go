package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/gridsync/internal/grid"
)

// State describes where a session is in its connection lifecycle.
type State string

const (
	// StateDisconnected means no transport is open.
	StateDisconnected State = "disconnected"
	// StateConnecting means a dial or redial is in progress.
	StateConnecting State = "connecting"
	// StateSubscribed means the session is live on its topic.
	StateSubscribed State = "subscribed"
)

const (
	defaultHeartbeat      = 15 * time.Second
	defaultPresenceMaxAge = 45 * time.Second
	defaultBackoffMin     = 250 * time.Millisecond
	defaultBackoffMax     = 15 * time.Second
)

// Session broadcasts one sheet's local edits and applies the remote
// edit stream back into the workbook.
//
// Local origin edits are stamped with a fresh event id and sequence
// number, then queued on the outbox; the run loop publishes them in
// order whenever a transport is up. Remote edits apply through
// Workbook.SetCell tagged non-origin, so they never re-enter the
// outbox. A remote edit with this session's own actor id is an echo
// and is discarded outright.
type Session struct {
	wb      *grid.Workbook
	sheetID string
	topic   string
	actor   Collaborator

	dialer   Dialer
	outbox   *outbox
	presence *Tracker
	clock    *Clock
	ids      grid.IDGenerator
	now      func() time.Time
	log      *slog.Logger

	heartbeat      time.Duration
	presenceMaxAge time.Duration
	backoffMin     time.Duration
	backoffMax     time.Duration
	outboxCap      int

	// observer sees every edit the session carries, local and remote,
	// after it is accepted. Used for the persistent audit log.
	observer func(EditEvent)

	// mu guards state and transport; the run loop owns the transport's
	// lifecycle, other goroutines only read it for advisory publishes.
	mu        sync.RWMutex
	state     State
	transport Transport
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the structured logger.
func WithSessionLogger(log *slog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// WithOutboxCapacity bounds the pending-edit queue.
func WithOutboxCapacity(n int) SessionOption {
	return func(s *Session) { s.outboxCap = n }
}

// WithHeartbeat sets the presence heartbeat interval.
func WithHeartbeat(d time.Duration) SessionOption {
	return func(s *Session) { s.heartbeat = d }
}

// WithPresenceMaxAge sets how long a silent actor stays listed.
func WithPresenceMaxAge(d time.Duration) SessionOption {
	return func(s *Session) { s.presenceMaxAge = d }
}

// WithBackoff sets the reconnect backoff bounds.
func WithBackoff(min, max time.Duration) SessionOption {
	return func(s *Session) {
		s.backoffMin = min
		s.backoffMax = max
	}
}

// WithSessionClock sets the sequence clock, e.g. one resumed from a
// persisted edit log.
func WithSessionClock(c *Clock) SessionOption {
	return func(s *Session) { s.clock = c }
}

// WithSessionIDs sets the event id generator.
func WithSessionIDs(g grid.IDGenerator) SessionOption {
	return func(s *Session) { s.ids = g }
}

// WithSessionNow sets the time source.
func WithSessionNow(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithEditObserver registers a callback for every accepted edit, both
// locally originated and applied from remote actors. Must not block.
func WithEditObserver(fn func(EditEvent)) SessionOption {
	return func(s *Session) { s.observer = fn }
}

// NewSession creates a session for one sheet of a workbook. actor
// identifies the local user on the wire; its ActorID must be non-empty
// and stable for the life of the session.
func NewSession(wb *grid.Workbook, sheetID string, actor Collaborator, dialer Dialer, opts ...SessionOption) *Session {
	s := &Session{
		wb:             wb,
		sheetID:        sheetID,
		topic:          TopicFor(sheetID),
		actor:          actor,
		dialer:         dialer,
		clock:          NewClock(),
		ids:            grid.UUIDv7Generator{},
		now:            time.Now,
		log:            slog.Default(),
		heartbeat:      defaultHeartbeat,
		presenceMaxAge: defaultPresenceMaxAge,
		backoffMin:     defaultBackoffMin,
		backoffMax:     defaultBackoffMax,
		state:          StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.outbox = newOutbox(s.outboxCap, s.log)
	s.presence = NewTracker(actor.ActorID)
	if s.actor.JoinedAt.IsZero() {
		s.actor.JoinedAt = s.now()
	}
	return s
}

// Attach claims the workbook's edit hook for this session. A workbook
// carries one hook, so with multiple sessions the caller must fan out
// to each session's LocalEdit instead.
func (s *Session) Attach() {
	s.wb.OnEdit(s.LocalEdit)
}

// LocalEdit queues a local origin mutation for broadcast. Safe to call
// whether or not a transport is up; disconnected edits wait on the
// outbox for replay.
func (s *Session) LocalEdit(sheetID, cellID string, patch grid.Patch) {
	if sheetID != s.sheetID {
		return
	}
	ev := EditEvent{
		ID:        s.ids.Generate(),
		SheetID:   sheetID,
		CellID:    cellID,
		Data:      patch,
		ActorID:   s.actor.ActorID,
		Seq:       s.clock.Next(),
		Timestamp: s.now(),
	}
	if !s.outbox.Enqueue(ev) {
		s.log.Warn("edit after session close, dropping", "cell_id", cellID)
		return
	}
	if s.observer != nil {
		s.observer(ev)
	}
}

// Presence lists the remote collaborators currently on the sheet.
func (s *Session) Presence() []Collaborator {
	return s.presence.List()
}

// Pending reports how many local edits await publish.
func (s *Session) Pending() int {
	return s.outbox.Len()
}

// State reports the connection lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// SetFocus broadcasts which cell the local user is editing. Advisory
// only; lost focus updates are not retried.
func (s *Session) SetFocus(ctx context.Context, cellID string) {
	s.mu.RLock()
	tr := s.transport
	s.mu.RUnlock()
	if tr == nil {
		return
	}
	msg, err := newMessage(MessageFocus, s.topic, s.actor.ActorID, FocusPayload{EditingCell: cellID})
	if err != nil {
		return
	}
	if err := tr.Publish(ctx, msg); err != nil {
		s.log.Debug("focus publish failed", "error", err)
	}
}

// Run connects, subscribes, and serves until ctx is cancelled,
// redialing with capped exponential backoff after every transport
// failure. Pending edits survive reconnects and replay in order.
func (s *Session) Run(ctx context.Context) error {
	defer s.outbox.Close()
	defer s.setState(StateDisconnected)

	backoff := s.backoffMin
	for {
		s.setState(StateConnecting)
		tr, err := s.dialer.Dial(ctx, s.topic)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("dial failed, backing off",
				"topic", s.topic, "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, s.backoffMax)
			continue
		}
		backoff = s.backoffMin

		err = s.subscribed(ctx, tr)
		s.presence.Clear()
		s.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !errors.Is(err, ErrTransportClosed) {
			s.log.Warn("session dropped", "topic", s.topic, "error", err)
		}
	}
}

// subscribed announces presence, flushes the outbox, and serves the
// inbound stream until the transport dies or ctx ends.
func (s *Session) subscribed(ctx context.Context, tr Transport) error {
	s.mu.Lock()
	s.transport = tr
	s.state = StateSubscribed
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.transport = nil
		s.mu.Unlock()
		tr.Close()
	}()

	s.log.Info("subscribed", "topic", s.topic, "actor_id", s.actor.ActorID, "pending", s.outbox.Len())

	join, err := newMessage(MessageJoin, s.topic, s.actor.ActorID, s.actor)
	if err != nil {
		return err
	}
	if err := tr.Publish(ctx, join); err != nil {
		return err
	}

	if err := s.flush(ctx, tr); err != nil {
		return err
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.announceLeave(tr)
			return ctx.Err()

		case msg, ok := <-tr.Receive():
			if !ok {
				return ErrTransportClosed
			}
			if err := s.handle(ctx, tr, msg); err != nil {
				return err
			}

		case <-s.outbox.Wait():
			if err := s.flush(ctx, tr); err != nil {
				return err
			}

		case <-ticker.C:
			hb, err := newMessage(MessageHeartbeat, s.topic, s.actor.ActorID, nil)
			if err != nil {
				return err
			}
			if err := tr.Publish(ctx, hb); err != nil {
				return err
			}
			for _, id := range s.presence.Sweep(s.now(), s.presenceMaxAge) {
				s.log.Info("presence expired", "topic", s.topic, "actor_id", id)
			}
		}
	}
}

// flush publishes pending edits in FIFO order. A failed publish puts
// the event back at the head so nothing is skipped on the next pass.
func (s *Session) flush(ctx context.Context, tr Transport) error {
	for {
		ev, ok := s.outbox.TryDequeue()
		if !ok {
			return nil
		}
		msg, err := newMessage(MessageEdit, s.topic, s.actor.ActorID, ev)
		if err != nil {
			s.log.Error("unencodable edit event, dropping", "event_id", ev.ID, "error", err)
			continue
		}
		if err := tr.Publish(ctx, msg); err != nil {
			s.outbox.PushFront(ev)
			return err
		}
	}
}

// handle applies one inbound message.
func (s *Session) handle(ctx context.Context, tr Transport, msg Message) error {
	if msg.ActorID == s.actor.ActorID {
		// Echo of our own publish.
		return nil
	}

	s.presence.Apply(msg, s.now())

	switch msg.Type {
	case MessageEdit:
		var ev EditEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			s.log.Warn("malformed edit payload, skipping", "error", err)
			return nil
		}
		if ev.SheetID != s.sheetID {
			return nil
		}
		if err := s.wb.SetCell(ev.SheetID, ev.CellID, ev.Data, false); err != nil {
			// A bad remote edit must not kill the session.
			s.log.Warn("remote edit rejected",
				"event_id", ev.ID, "cell_id", ev.CellID, "error", err)
			return nil
		}
		if err := s.wb.Recalculate(ev.SheetID); err != nil {
			s.log.Warn("recalculate failed", "sheet_id", ev.SheetID, "error", err)
		}
		if s.observer != nil {
			s.observer(ev)
		}

	case MessageJoin:
		// Tell the newcomer who is already here, ourselves included.
		actors := append(s.presence.List(), s.actor)
		reply, err := newMessage(MessageSync, s.topic, s.actor.ActorID, SyncPayload{Actors: actors})
		if err != nil {
			return err
		}
		if err := tr.Publish(ctx, reply); err != nil {
			return err
		}
	}
	return nil
}

// announceLeave is best-effort on teardown.
func (s *Session) announceLeave(tr Transport) {
	msg, err := newMessage(MessageLeave, s.topic, s.actor.ActorID, nil)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tr.Publish(ctx, msg); err != nil {
		s.log.Debug("leave publish failed", "error", err)
	}
}
