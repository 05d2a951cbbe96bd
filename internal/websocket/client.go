package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/your-username/click-lite-reports/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024
)

type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	scopes map[string]bool
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:     uuid.New().String(),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		scopes: make(map[string]bool),
	}
}

// HandleWebSocket upgrades the connection and registers the client.
// allowedOrigins empty or containing "*" accepts any origin.
func HandleWebSocket(hub *Hub, allowedOrigins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("Failed to upgrade connection")
			return
		}

		client := newClient(hub, conn)
		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Wants reports whether the client should receive a message for scopes.
// A client without subscriptions receives everything.
func (c *Client) Wants(scopes []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.scopes) == 0 || len(scopes) == 0 {
		return true
	}
	for sub := range c.scopes {
		for _, scope := range scopes {
			if scopeMatches(sub, scope) {
				return true
			}
		}
	}
	return false
}

// handleMessage applies one client command
func (c *Client) handleMessage(msg models.WebSocketMessage) {
	switch msg.Type {
	case "subscribe":
		c.mu.Lock()
		for _, s := range msg.Scopes {
			c.scopes[s] = true
		}
		c.mu.Unlock()
		c.sendStatus("subscribed", "")
	case "unsubscribe":
		c.mu.Lock()
		if len(msg.Scopes) == 0 {
			c.scopes = make(map[string]bool)
		}
		for _, s := range msg.Scopes {
			delete(c.scopes, s)
		}
		c.mu.Unlock()
		c.sendStatus("unsubscribed", "")
	case "ping":
		c.sendStatus("pong", "")
	default:
		log.Warn().Str("type", msg.Type).Msg("Unknown message type")
	}
}

// readPump handles incoming messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("client_id", c.id).Msg("WebSocket error")
			}
			break
		}

		var msg models.WebSocketMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Error().Err(err).Msg("Failed to parse WebSocket message")
			continue
		}
		c.handleMessage(msg)
	}
}

// writePump handles outgoing messages to the WebSocket connection
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON message per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// sendStatus sends a status message to the client
func (c *Client) sendStatus(status, message string) {
	c.sendJSON(models.WebSocketMessage{
		Type: "status",
		Data: map[string]string{
			"status":  status,
			"message": message,
		},
	})
}

func (c *Client) sendJSON(msg models.WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().Str("client_id", c.id).Msg("Client send buffer full")
	}
}

// closeSend closes the outbound queue once; called by the hub only
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
