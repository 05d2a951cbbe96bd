package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/your-username/click-lite-reports/internal/models"
	"github.com/your-username/click-lite-reports/internal/monitoring"
)

type envelope struct {
	data   []byte
	scopes []string
}

type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages tagged with the scopes they concern
	broadcast chan envelope

	register   chan *Client
	unregister chan *Client

	metrics *monitoring.Metrics

	// Closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

func NewHub(metrics *monitoring.Metrics) *Hub {
	return &Hub{
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		metrics:    metrics,
		done:       make(chan struct{}),
	}
}

// Run serves registrations and fan-out until ctx is done, then closes
// every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.metrics.SetWSClients(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetWSClients(n)
			log.Info().Str("client_id", client.id).Msg("Client connected")

			client.sendJSON(models.WebSocketMessage{
				Type: "connection",
				Data: map[string]string{
					"status":  "connected",
					"message": "Connected to preview status stream",
				},
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetWSClients(n)
			log.Info().Str("client_id", client.id).Msg("Client disconnected")

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.Wants(msg.scopes) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Client's send channel is full, close it
					client.closeSend()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues msg for every client subscribed to one of its scopes.
// Messages are dropped when the queue is full.
func (h *Hub) Publish(msg models.WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("Failed to encode websocket message")
		return
	}

	select {
	case h.broadcast <- envelope{data: data, scopes: msg.Scopes}:
	default:
		log.Warn().Str("type", msg.Type).Msg("Websocket broadcast queue full, dropping message")
	}
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// scopeMatches reports whether a subscription covers scope: equal, or a
// path prefix ending at a "/" boundary
func scopeMatches(subscription, scope string) bool {
	if subscription == scope {
		return true
	}
	return strings.HasPrefix(scope, subscription+"/")
}
