package websocket

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/gavel/internal/errors"
	"github.com/abrezinsky/gavel/internal/logger"
	"github.com/abrezinsky/gavel/internal/metrics"
	"github.com/abrezinsky/gavel/internal/models"
	"github.com/abrezinsky/gavel/internal/services"
)

// Message types pushed to clients
const (
	MessageSessionState = "session_state"
	MessageTick         = "tick"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the chair and delegates share a LAN, any origin is fine
	},
}

// Hub maintains the set of active clients and fans session updates out to
// the clients following each committee
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
	sessions   services.SessionServicer
	metrics    *metrics.Metrics
}

// Client is a middleman between the websocket connection and the hub.
// A zero committeeID follows every committee.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan models.WSMessage
	committeeID int64
}

var _ services.Broadcaster = (*Hub)(nil)

// New creates a new Hub instance with injected dependencies
func New(log logger.Logger, sessions services.SessionServicer, m *metrics.Metrics) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.WSMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		sessions:   sessions,
		metrics:    m,
	}
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// Stop ends the main loop and closes every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// run handles client registration/unregistration and message broadcasting
func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
				h.metrics.ClientDisconnected()
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.metrics.ClientConnected()
			h.log.Debug("Client connected", "committee_id", client.committeeID, "total_clients", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.ClientDisconnected()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "committee_id", client.committeeID, "total_clients", total)

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				if !client.follows(message.CommitteeID) {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, unregister
					go h.drop(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (c *Client) follows(committeeID int64) bool {
	return c.committeeID == 0 || c.committeeID == committeeID
}

// BroadcastMessage sends a message to every client following committeeID.
// It never blocks once the hub is stopped.
func (h *Hub) BroadcastMessage(msgType string, committeeID int64, payload interface{}) {
	select {
	case h.broadcast <- models.WSMessage{Type: msgType, CommitteeID: committeeID, Payload: payload}:
	case <-h.done:
	}
}

// BroadcastSession implements services.Broadcaster
func (h *Hub) BroadcastSession(view services.SessionView) {
	h.BroadcastMessage(MessageSessionState, view.CommitteeID, view)
}

// BroadcastTick implements services.Broadcaster
func (h *Hub) BroadcastTick(update services.TickUpdate) {
	h.BroadcastMessage(MessageTick, update.CommitteeID, update)
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		// Commands go through the HTTP API; inbound frames are only logged
		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.hub.log.Debug("Received message", "type", msg.Type, "committee_id", c.committeeID)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			msgBytes, err := json.Marshal(message)
			if err != nil {
				c.hub.log.Error("Failed to encode message", "type", message.Type, "error", err)
				w.Close()
				continue
			}
			w.Write(msgBytes)

			if err := w.Close(); err != nil {
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

// ServeWs handles websocket requests from clients. ?committee=<id> follows
// one committee and receives its current floor as the first message.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	var committeeID int64
	var initial *services.SessionView
	if raw := r.URL.Query().Get("committee"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid committee id", http.StatusBadRequest)
			return
		}
		view, err := h.sessions.State(r.Context(), id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, errors.ErrNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		committeeID = id
		initial = view
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:         h,
		conn:        conn,
		send:        make(chan models.WSMessage, sendBuffer),
		committeeID: committeeID,
	}
	if initial != nil {
		client.send <- models.WSMessage{Type: MessageSessionState, CommitteeID: committeeID, Payload: initial}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
