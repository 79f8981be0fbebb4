package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/StrathCole/oracle-validator/pkg/logging"
	"github.com/StrathCole/oracle-validator/pkg/notify"
)

// EventHub streams change notifications to WebSocket clients. It implements notify.Notifier.
type EventHub struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*eventClient]bool

	updates chan notify.Event
	done    chan struct{}
}

var _ notify.Notifier = (*EventHub)(nil)

type eventClient struct {
	conn  *websocket.Conn
	send  chan []byte
	hub   *EventHub
	mu    sync.RWMutex
	all   bool
	kinds map[notify.Kind]bool
}

// ClientMessage is a message sent by a client.
type ClientMessage struct {
	Type  string        `json:"type"`  // "subscribe", "unsubscribe", "ping"
	Kinds []notify.Kind `json:"kinds"` // kinds to (un)subscribe; empty means all
}

// EventMessage is sent to clients for every notification.
type EventMessage struct {
	Type  string       `json:"type"` // "event"
	Event notify.Event `json:"event"`
}

// NewEventHub creates a hub. Run must be called to deliver events.
func NewEventHub(logger *logging.Logger) *EventHub {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &EventHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		clients: make(map[*eventClient]bool),
		updates: make(chan notify.Event, 100),
		done:    make(chan struct{}),
	}
}

// Run broadcasts queued events until ctx is done, then disconnects every client.
func (h *EventHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case event := <-h.updates:
			h.broadcast(event)
		}
	}
}

// Notify implements notify.Notifier. Events are dropped when the queue stays
// full or once Run has returned.
func (h *EventHub) Notify(_ context.Context, event notify.Event) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.updates <- event:
	case <-h.done:
	case <-time.After(100 * time.Millisecond):
		h.logger.Warn("Event queue full, dropping notification", "kind", event.Kind)
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := &eventClient{
		conn:  conn,
		send:  make(chan []byte, 256),
		hub:   h,
		all:   true,
		kinds: make(map[notify.Kind]bool),
	}
	h.register(client)

	go client.writePump()
	go client.readPump()

	h.logger.Info("New WebSocket client connected", "remote", conn.RemoteAddr())
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventHub) register(client *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

func (h *EventHub) unregister(client *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *EventHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *EventHub) broadcast(event notify.Event) {
	data, err := json.Marshal(EventMessage{Type: "event", Event: event})
	if err != nil {
		h.logger.Error("Failed to marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.wants(event.Kind) {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.logger.Warn("Client send buffer full, skipping event")
		}
	}
}

func (c *eventClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *eventClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *eventClient) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.hub.logger.Warn("Invalid client message", "error", err)
		return
	}

	switch msg.Type {
	case "subscribe":
		c.mu.Lock()
		c.all = len(msg.Kinds) == 0
		c.kinds = make(map[notify.Kind]bool)
		for _, k := range msg.Kinds {
			c.kinds[k] = true
		}
		c.mu.Unlock()
		c.reply(map[string]interface{}{"type": "subscribed", "kinds": msg.Kinds})
	case "unsubscribe":
		c.mu.Lock()
		if len(msg.Kinds) == 0 {
			c.kinds = make(map[notify.Kind]bool)
		} else if c.all {
			for _, k := range notify.Kinds() {
				c.kinds[k] = true
			}
		}
		c.all = false
		for _, k := range msg.Kinds {
			delete(c.kinds, k)
		}
		c.mu.Unlock()
		c.reply(map[string]interface{}{"type": "unsubscribed", "kinds": msg.Kinds})
	case "ping":
		c.reply(map[string]string{"type": "pong"})
	default:
		c.hub.logger.Warn("Unknown message type", "type", msg.Type)
	}
}

func (c *eventClient) wants(kind notify.Kind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.all || c.kinds[kind]
}

// reply queues a control message. It never blocks; the hub may have closed send.
func (c *eventClient) reply(v interface{}) {
	data, _ := json.Marshal(v)
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
