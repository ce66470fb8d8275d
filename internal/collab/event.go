package collab

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/gridsync/internal/grid"
)

// MessageType discriminates the payloads exchanged on a sheet topic.
type MessageType string

const (
	// MessageEdit carries an EditEvent.
	MessageEdit MessageType = "EDIT_CELL"
	// MessageJoin announces a newly subscribed actor (Collaborator payload).
	MessageJoin MessageType = "JOIN"
	// MessageLeave announces a departing actor.
	MessageLeave MessageType = "LEAVE"
	// MessageSync carries a full presence snapshot (SyncPayload).
	MessageSync MessageType = "SYNC"
	// MessageFocus carries an advisory editing-focus change (FocusPayload).
	MessageFocus MessageType = "FOCUS"
	// MessageHeartbeat keeps a quiet actor's presence entry alive.
	MessageHeartbeat MessageType = "HEARTBEAT"
)

// Message is the wire envelope for everything on a sheet topic.
type Message struct {
	Type    MessageType     `json:"type"`
	Topic   string          `json:"topic"`
	ActorID string          `json:"actor_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TopicFor names the publish/subscribe topic for a sheet. The naming is
// deterministic so every subscriber of a sheet lands in the same room.
func TopicFor(sheetID string) string {
	return "sheet:" + sheetID
}

// EditEvent is the network-visible representation of one cell mutation.
// Transient: it is the wire shape of a store mutation, not a persisted
// entity of its own (the storage package keeps an audit log separately).
type EditEvent struct {
	ID        string     `json:"id"`
	SheetID   string     `json:"sheet_id"`
	CellID    string     `json:"cell_id"`
	Data      grid.Patch `json:"data"`
	ActorID   string     `json:"actor_id"`
	Seq       int64      `json:"seq"`
	Timestamp time.Time  `json:"timestamp"`
}

// Collaborator is one visible presence entry.
type Collaborator struct {
	ActorID     string    `json:"actor_id"`
	Label       string    `json:"label"`
	Color       string    `json:"color,omitempty"`
	EditingCell string    `json:"editing_cell,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}

// SyncPayload is a full-state snapshot of currently-present actors.
type SyncPayload struct {
	Actors []Collaborator `json:"actors"`
}

// FocusPayload is the advisory editing-focus metadata set by the UI
// layer. Purely cosmetic; it never participates in conflict resolution.
type FocusPayload struct {
	EditingCell string `json:"editing_cell"`
}

// newMessage marshals a payload into an envelope.
func newMessage(typ MessageType, topic, actorID string, payload any) (Message, error) {
	msg := Message{Type: typ, Topic: topic, ActorID: actorID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		msg.Payload = raw
	}
	return msg, nil
}
