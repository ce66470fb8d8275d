package collab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single websocket write.
	writeWait = 10 * time.Second
	// pongWait is how long a peer may stay silent before the read side
	// gives up on it.
	pongWait = 60 * time.Second
	// pingPeriod must be under pongWait so pings land in time.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize caps a single inbound frame.
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin checks belong to the auth layer in front of the server.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WSDialer dials a gridsync server's websocket endpoint. Implements
// Dialer, so a Session cannot tell it apart from an in-process hub.
type WSDialer struct {
	// URL is the endpoint, e.g. ws://host:port/ws. The topic is added
	// as a query parameter on each dial.
	URL string
	// Header carries extra handshake headers, if any.
	Header http.Header

	Log *slog.Logger
}

// Dial opens a websocket subscription to topic.
func (d *WSDialer) Dial(ctx context.Context, topic string) (Transport, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket url: %w", err)
	}
	q := u.Query()
	q.Set("topic", topic)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), d.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	t := newWSTransport(conn, log)
	go t.readPump()
	go t.writePump()
	return t, nil
}

// wsTransport adapts one websocket connection to the Transport
// interface. Gorilla connections allow one concurrent reader and one
// concurrent writer, so all traffic funnels through the two pumps.
type wsTransport struct {
	conn *websocket.Conn
	recv chan Message
	send chan Message
	done chan struct{}

	closeOnce sync.Once
	log       *slog.Logger
}

func newWSTransport(conn *websocket.Conn, log *slog.Logger) *wsTransport {
	return &wsTransport{
		conn: conn,
		recv: make(chan Message, connBuffer),
		send: make(chan Message, connBuffer),
		done: make(chan struct{}),
		log:  log,
	}
}

func (t *wsTransport) Publish(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrTransportClosed
	case t.send <- msg:
		return nil
	}
}

func (t *wsTransport) Receive() <-chan Message {
	return t.recv
}

func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.conn.Close()
	})
	return nil
}

func (t *wsTransport) readPump() {
	defer func() {
		t.Close()
		close(t.recv)
	}()

	t.conn.SetReadLimit(maxMessageSize)
	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		return t.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := t.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.log.Debug("websocket read failed", "error", err)
			}
			return
		}
		select {
		case t.recv <- msg:
		case <-t.done:
			return
		}
	}
}

func (t *wsTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		t.Close()
	}()

	for {
		select {
		case <-t.done:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			t.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case msg := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteJSON(msg); err != nil {
				t.log.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades an HTTP request to a websocket and bridges it onto
// the hub room named by the topic query parameter. It blocks until the
// client disconnects.
func ServeWS(hub *Hub, log *slog.Logger, w http.ResponseWriter, r *http.Request) {
	if log == nil {
		log = slog.Default()
	}
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		http.Error(w, "missing topic parameter", http.StatusBadRequest)
		return
	}

	room, err := hub.Dial(r.Context(), topic)
	if err != nil {
		http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		room.Close()
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	t := newWSTransport(conn, log)
	go t.readPump()
	go t.writePump()
	defer func() {
		t.Close()
		room.Close()
	}()

	log.Info("websocket client connected", "topic", topic, "remote", r.RemoteAddr)

	ctx := context.Background()
	go func() {
		// Hub room to websocket client.
		for msg := range room.Receive() {
			if err := t.Publish(ctx, msg); err != nil {
				t.Close()
				return
			}
		}
		t.Close()
	}()

	// Websocket client to hub room.
	for msg := range t.Receive() {
		msg.Topic = topic
		if err := room.Publish(ctx, msg); err != nil {
			break
		}
	}

	log.Info("websocket client disconnected", "topic", topic, "remote", r.RemoteAddr)
}
