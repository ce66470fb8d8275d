package collab

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Tracker maintains the set of actors currently present on one sheet.
//
// Presence is ephemeral soft state rebuilt from the message stream; it
// is never persisted. Entries without a heartbeat for longer than the
// sweep age are evicted, covering actors that vanished without a LEAVE.
//
// Thread-safety: safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	localID string
	actors  map[string]*presenceEntry
}

type presenceEntry struct {
	info     Collaborator
	lastSeen time.Time
}

// NewTracker creates a tracker. localID is the owning actor, which is
// excluded from List so the UI only shows remote collaborators.
func NewTracker(localID string) *Tracker {
	return &Tracker{
		localID: localID,
		actors:  make(map[string]*presenceEntry),
	}
}

// Apply folds one presence-bearing message into the tracker. Edit
// messages also count: an actor that is editing is present. Unknown or
// malformed payloads are ignored; presence is advisory and a dropped
// update self-heals on the next heartbeat.
func (t *Tracker) Apply(msg Message, now time.Time) {
	if msg.ActorID == "" || msg.ActorID == t.localID {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch msg.Type {
	case MessageJoin:
		var c Collaborator
		if err := json.Unmarshal(msg.Payload, &c); err != nil {
			return
		}
		c.ActorID = msg.ActorID
		if c.JoinedAt.IsZero() {
			c.JoinedAt = now
		}
		t.actors[msg.ActorID] = &presenceEntry{info: c, lastSeen: now}

	case MessageLeave:
		delete(t.actors, msg.ActorID)

	case MessageSync:
		var p SyncPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		for _, c := range p.Actors {
			if c.ActorID == "" || c.ActorID == t.localID {
				continue
			}
			t.actors[c.ActorID] = &presenceEntry{info: c, lastSeen: now}
		}

	case MessageFocus:
		var p FocusPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		if e, ok := t.actors[msg.ActorID]; ok {
			e.info.EditingCell = p.EditingCell
			e.lastSeen = now
		}

	case MessageHeartbeat, MessageEdit:
		if e, ok := t.actors[msg.ActorID]; ok {
			e.lastSeen = now
		}
	}
}

// List returns the remote collaborators sorted by actor id.
func (t *Tracker) List() []Collaborator {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Collaborator, 0, len(t.actors))
	for _, e := range t.actors {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out
}

// Sweep evicts actors whose last heartbeat is older than maxAge and
// returns the ids removed.
func (t *Tracker) Sweep(now time.Time, maxAge time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var gone []string
	for id, e := range t.actors {
		if now.Sub(e.lastSeen) > maxAge {
			delete(t.actors, id)
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	return gone
}

// Clear drops every entry. Called when the session disconnects, since
// stale presence on a dead subscription is worse than none.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actors = make(map[string]*presenceEntry)
}
