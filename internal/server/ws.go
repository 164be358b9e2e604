package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/moodflix/internal/log"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	sendBuffer = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes mood updates to websocket clients. Each client has its own
// writer goroutine; a client whose buffer is full is dropped.
type Hub struct {
	current func() any
	clients map[string]*wsClient
	mu      sync.Mutex
}

// NewHub creates a Hub. current builds the message sent to a client right
// after it connects.
func NewHub(current func() any) *Hub {
	return &Hub{
		current: current,
		clients: make(map[string]*wsClient),
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn(r.Context(), "websocket upgrade failed", "err", err)
		return
	}

	c := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	// No Publish may fall between the snapshot and the registration.
	h.mu.Lock()
	if msg, err := json.Marshal(h.current()); err == nil {
		c.send <- msg
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	log.Debug(r.Context(), "websocket client connected", "client", c.id)

	go h.writePump(c)
	h.readPump(c)
}

// Publish sends the current state to every client. The state is read under
// the hub lock, so clients see updates in order.
func (h *Hub) Publish() {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg, err := json.Marshal(h.current())
	if err != nil {
		log.Error(context.Background(), "websocket marshal failed", "err", err)
		return
	}
	h.send(msg)
}

// Broadcast sends v as JSON to every client.
func (h *Hub) Broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		log.Error(context.Background(), "websocket marshal failed", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.send(msg)
}

// send queues msg for every client, dropping those that are full. h.mu must
// be held.
func (h *Hub) send(msg []byte) {
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Warn(context.Background(), "dropping slow websocket client", "client", id)
			delete(h.clients, id)
			close(c.send)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// readPump discards client messages and returns when the connection fails.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		log.Debug(context.Background(), "websocket client disconnected", "client", c.id)
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
