package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

type envelope struct {
	topic string
	data  []byte
}

// Hub maintains the set of active clients and fans view updates out to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound messages, already encoded.
	broadcast chan envelope

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan envelope, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Str("topic", client.Topic).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				if !client.wants(msg.topic) {
					continue
				}
				select {
				case client.Send <- msg.data:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Add registers a client. It reports false once the hub has stopped.
func (h *Hub) Add(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Stop ends Run and closes every client channel.
func (h *Hub) Stop() {
	close(h.done)
}

// Observe publishes a view snapshot. It never blocks; updates are dropped when the hub is saturated.
func (h *Hub) Observe(action string, snapshot any) {
	msg := Message{Action: action, Payload: snapshot}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode view update")
		return
	}
	select {
	case h.broadcast <- envelope{topic: msg.Topic(), data: data}:
	default:
		log.Warn().Str("action", action).Msg("Hub saturated, dropping view update")
	}
}
