// Package ws is the WebSocket Broadcaster (C8): tracks connected clients,
// each with an optional event/entity filter, and relays C7's real-time
// event stream to them as JSON frames. Grounded on the teacher's
// internal/mcp/server.go (session map keyed by id, upgrader, per-session
// goroutine, ping/pong, dead-session reap), generalized from MCP's
// request/response protocol to a pure broadcast-with-filter protocol.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"dev.helix.code/internal/codegraph/cdc"
	"dev.helix.code/internal/codegraph/graph"
	"dev.helix.code/internal/logging"
)

const (
	heartbeatInterval = 30 * time.Second
	maxMissedPings    = 2
	writeTimeout      = 5 * time.Second
	sendBuffer        = 128
)

// Client is one connected WebSocket subscriber.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte

	filterMu sync.RWMutex
	filter   ClientFilter

	missedPings atomic.Int32
	closeOnce   sync.Once
}

// ClientFilter selects which events a client receives: empty slices match
// everything, per spec §4.8's "optional filter (sets of event kinds and
// entity kinds)".
type ClientFilter struct {
	EventTypes  []string `json:"event_types"`
	EntityTypes []string `json:"entity_types"`
}

func (f ClientFilter) matches(e graph.Event) bool {
	if len(f.EventTypes) > 0 && !containsString(f.EventTypes, string(e.Kind)) {
		return false
	}
	if len(f.EntityTypes) > 0 {
		entityKind, _ := e.Payload["kind"].(string)
		if !containsString(f.EntityTypes, entityKind) {
			return false
		}
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// controlFrame is an inbound client message: a filter update or a
// keep-alive ping (spec §6 "WebSocket protocol").
type controlFrame struct {
	Action      string   `json:"action"`
	EventTypes  []string `json:"event_types"`
	EntityTypes []string `json:"entity_types"`
}

// outboundFrame is every frame the server sends: a welcome, an event
// relay, or a pong. `type` is always present, per spec §6.
type outboundFrame struct {
	Type      string                 `json:"type"`
	EventID   string                 `json:"event_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
	ClientID  string                 `json:"client_id,omitempty"`
	Cursor    int64                  `json:"cursor,omitempty"`
	Kind      string                 `json:"kind,omitempty"`
	EntityID  string                 `json:"entity_id,omitempty"`
	FilePath  string                 `json:"file_path,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Broadcaster is C8: an upgrader, a client set, and a subscription to C7's
// real-time channel.
type Broadcaster struct {
	upgrader websocket.Upgrader
	cdc      *cdc.Manager
	log      *logging.Logger

	mu      sync.RWMutex
	clients map[string]*Client

	sub *cdc.Subscription
}

// New builds a Broadcaster fed by cdcManager's in-process subscription API.
func New(cdcManager *cdc.Manager, log *logging.Logger) *Broadcaster {
	return &Broadcaster{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		cdc:     cdcManager,
		log:     log,
		clients: make(map[string]*Client),
	}
}

// Run subscribes to the CDC manager's real-time channel and relays events
// to matching clients until ctx is cancelled. Run must be started once,
// typically from the serving layer's main goroutine.
func (b *Broadcaster) Run(ctx context.Context) {
	b.sub = b.cdc.Subscribe(cdc.Filter{})
	defer b.cdc.Unsubscribe(b.sub)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-b.sub.Events:
			if !ok {
				return
			}
			b.broadcast(event)
		}
	}
}

// broadcast delivers event to every client whose filter matches it, then
// sweeps clients whose send buffer was full or whose connection is dead
// (spec §4.8 "Dead clients are swept at the end of each broadcast batch").
func (b *Broadcaster) broadcast(event graph.Event) {
	frame := outboundFrame{
		Type:      "event",
		EventID:   fmt.Sprintf("%d", event.EventID),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Kind:      string(event.Kind),
		EntityID:  event.EntityID,
		FilePath:  event.FilePath,
		Payload:   event.Payload,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	var dead []*Client
	b.mu.RLock()
	for _, c := range b.clients {
		c.filterMu.RLock()
		match := c.filter.matches(event)
		c.filterMu.RUnlock()
		if !match {
			continue
		}
		select {
		case c.send <- data:
		default:
			dead = append(dead, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range dead {
		b.removeClient(c)
	}
}

// HandleWebSocket upgrades the connection, registers the client, sends the
// welcome frame, and starts its read/write/heartbeat goroutines.
func (b *Broadcaster) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if b.log != nil {
			b.log.Error("ws: upgrade failed: %v", err)
		}
		return
	}

	client := &Client{
		ID:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	b.mu.Lock()
	b.clients[client.ID] = client
	b.mu.Unlock()

	// A brand-new subscriber has no prior cursor; a client wanting
	// history calls C7's Replay(since_id, filter) separately.
	welcome := outboundFrame{Type: "welcome", ClientID: client.ID, Cursor: 0}
	if data, err := json.Marshal(welcome); err == nil {
		select {
		case client.send <- data:
		default:
		}
	}

	go b.writePump(client)
	go b.readPump(client)
}

// writePump is the single writer goroutine for this client's socket
// (spec §4.8 "the broadcaster serializes writes to each socket").
func (b *Broadcaster) writePump(c *Client) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	defer b.removeClient(c)

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if c.missedPings.Add(1) > maxMissedPings {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads control frames (filter updates, client-initiated pings)
// until the connection errors or closes.
func (b *Broadcaster) readPump(c *Client) {
	defer b.removeClient(c)

	c.conn.SetPongHandler(func(string) error {
		c.missedPings.Store(0)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame controlFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Action {
		case "filter":
			c.filterMu.Lock()
			c.filter = ClientFilter{EventTypes: frame.EventTypes, EntityTypes: frame.EntityTypes}
			c.filterMu.Unlock()
		case "ping":
			pong, _ := json.Marshal(outboundFrame{Type: "pong"})
			select {
			case c.send <- pong:
			default:
			}
		}
	}
}

func (b *Broadcaster) removeClient(c *Client) {
	c.closeOnce.Do(func() {
		b.mu.Lock()
		delete(b.clients, c.ID)
		b.mu.Unlock()
		close(c.send)
		_ = c.conn.Close()
	})
}

// ClientCount reports the number of currently connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
