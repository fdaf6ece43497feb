package hub

import (
	"context"
	"sync"

	"github.com/teslashibe/go-vigil/pkg/debug"
)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Name for logging
	name string

	// Registered clients, owned by Run
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Last message per type, replayed to new clients
	latest map[string]Message

	mu    sync.RWMutex // guards count
	count int

	done chan struct{}
}

// New creates a new Hub
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		latest:     make(map[string]Message),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, after
// closing every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			for _, msg := range h.latest {
				select {
				case client.send <- msg:
				default:
				}
			}
			h.setCount()
			debug.Log("🔌 [%s] Client connected (%d total)\n", h.name, len(h.clients))

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
			}
			debug.Log("🔌 [%s] Client disconnected (%d remaining)\n", h.name, len(h.clients))

		case message := <-h.broadcast:
			h.latest[message.Type] = message
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Too slow to keep up
					h.drop(client)
					debug.Log("⚠️  [%s] Dropped slow client\n", h.name)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients. It never blocks; the
// message is dropped when the queue is full.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		debug.Log("⚠️  [%s] Broadcast channel full, dropping %s message\n", h.name, msg.Type)
	}
}

// Publish encodes v as a typ envelope and broadcasts it.
func (h *Hub) Publish(typ string, v any) error {
	msg, err := Encode(typ, v)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
