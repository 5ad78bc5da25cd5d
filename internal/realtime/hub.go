// Package realtime fans proctoring and lifecycle events out to exam
// observers over WebSocket. Each exam has one channel; proctors watching
// an exam subscribe to its channel and receive every signal reported by
// sessions of that exam.
package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is the envelope pushed to every subscriber of a channel.
type Message struct {
	Channel string      `json:"channel"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type subscription struct {
	client  *Client
	channel string
}

type broadcast struct {
	channel string
	data    []byte
}

// Hub routes messages to clients grouped by channel. All map access is
// confined to the run loop.
type Hub struct {
	channels map[string]map[*Client]bool

	register   chan subscription
	unregister chan subscription
	broadcast  chan broadcast
	done       chan struct{}

	closeOnce sync.Once
	logger    *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		channels:   make(map[string]map[*Client]bool),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		broadcast:  make(chan broadcast, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// ExamChannel names the channel carrying one exam's events.
func ExamChannel(examID uint) string {
	return fmt.Sprintf("exam_%d", examID)
}

// Run processes subscriptions and broadcasts until Stop is called.
// It must run in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			clients := h.channels[sub.channel]
			if clients == nil {
				clients = make(map[*Client]bool)
				h.channels[sub.channel] = clients
			}
			clients[sub.client] = true

		case sub := <-h.unregister:
			if clients, ok := h.channels[sub.channel]; ok {
				if clients[sub.client] {
					delete(clients, sub.client)
					close(sub.client.send)
					if len(clients) == 0 {
						delete(h.channels, sub.channel)
					}
				}
			}

		case msg := <-h.broadcast:
			for client := range h.channels[msg.channel] {
				select {
				case client.send <- msg.data:
				default:
					// Slow consumer, drop it rather than blocking the hub.
					delete(h.channels[msg.channel], client)
					close(client.send)
				}
			}

		case <-h.done:
			for channel, clients := range h.channels {
				for client := range clients {
					close(client.send)
				}
				delete(h.channels, channel)
			}
			return
		}
	}
}

// Stop shuts the run loop down and disconnects every client.
func (h *Hub) Stop() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// Emit broadcasts an event to all subscribers of a channel. Marshal errors
// are logged and swallowed; realtime delivery is best effort.
func (h *Hub) Emit(channel, event string, payload interface{}) {
	data, err := json.Marshal(Message{
		Channel: channel,
		Event:   event,
		Payload: payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal realtime message", "channel", channel, "event", event, "error", err)
		return
	}

	select {
	case h.broadcast <- broadcast{channel: channel, data: data}:
	case <-h.done:
	}
}

// Subscribe attaches a client to a channel.
func (h *Hub) Subscribe(c *Client, channel string) {
	select {
	case h.register <- subscription{client: c, channel: channel}:
	case <-h.done:
	}
}

// Unsubscribe detaches a client from a channel and closes its send queue.
func (h *Hub) Unsubscribe(c *Client, channel string) {
	select {
	case h.unregister <- subscription{client: c, channel: channel}:
	case <-h.done:
	}
}
