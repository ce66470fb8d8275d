package collab

import (
	"context"
	"log/slog"
	"sync"
)

// connBuffer is the per-subscriber inbound buffer. A subscriber that
// falls this far behind starts losing messages rather than stalling
// the hub loop.
const connBuffer = 64

// Hub is an in-process topic router. One hub serves any number of
// topics; each topic is a room of subscribed connections. The demo
// server runs sessions and websocket bridges against a single hub, and
// tests use it to wire multiple workbooks together without a network.
//
// All room bookkeeping happens on the Run goroutine, so the maps need
// no locking.
type Hub struct {
	register   chan *hubConn
	unregister chan *hubConn
	broadcast  chan Message

	rooms map[string]map[*hubConn]bool
	done  chan struct{}

	log *slog.Logger
}

// NewHub creates a hub. Call Run before dialing.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		register:   make(chan *hubConn),
		unregister: make(chan *hubConn),
		broadcast:  make(chan Message, connBuffer),
		rooms:      make(map[string]map[*hubConn]bool),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			room, ok := h.rooms[c.topic]
			if !ok {
				room = make(map[*hubConn]bool)
				h.rooms[c.topic] = room
			}
			room[c] = true
			h.log.Debug("hub subscriber joined", "topic", c.topic, "room_size", len(room))

		case c := <-h.unregister:
			if room, ok := h.rooms[c.topic]; ok && room[c] {
				delete(room, c)
				close(c.recv)
				if len(room) == 0 {
					delete(h.rooms, c.topic)
				}
			}

		case msg := <-h.broadcast:
			for c := range h.rooms[msg.Topic] {
				select {
				case c.recv <- msg:
				default:
					// Slow subscriber: drop rather than stall the loop.
					h.log.Warn("hub subscriber lagging, dropping message",
						"topic", msg.Topic, "type", msg.Type)
				}
			}
		}
	}
}

// shutdown closes every live connection's receive channel.
func (h *Hub) shutdown() {
	close(h.done)

	for topic, room := range h.rooms {
		for c := range room {
			close(c.recv)
		}
		delete(h.rooms, topic)
	}
}

// Dial subscribes to a topic. Implements Dialer.
func (h *Hub) Dial(ctx context.Context, topic string) (Transport, error) {
	c := &hubConn{
		hub:   h,
		topic: topic,
		recv:  make(chan Message, connBuffer),
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrTransportClosed
	case h.register <- c:
		return c, nil
	}
}

// hubConn is one subscription to a hub topic.
type hubConn struct {
	hub   *Hub
	topic string
	recv  chan Message

	closeOnce sync.Once
}

func (c *hubConn) Publish(ctx context.Context, msg Message) error {
	msg.Topic = c.topic
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.hub.done:
		return ErrTransportClosed
	case c.hub.broadcast <- msg:
		return nil
	}
}

func (c *hubConn) Receive() <-chan Message {
	return c.recv
}

func (c *hubConn) Close() error {
	c.closeOnce.Do(func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	})
	return nil
}
