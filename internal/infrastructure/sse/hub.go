package sse

import "sync"

// Event is one server-sent update pushed to signed-in participants when
// their timelines change.
type Event struct {
	Type    string `json:"type"`
	ChatID  string `json:"chatId,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Client is one connected stream, keyed by connection id and owned by a
// single alias.
type Client struct {
	ID     string
	Alias  string
	Events chan *Event

	closeOnce sync.Once
}

// NewClient creates a client with a buffered event channel.
func NewClient(id, alias string) *Client {
	return &Client{ID: id, Alias: alias, Events: make(chan *Event, 16)}
}

// Close shuts the client's channel. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.Events) })
}

// Hub fans timeline events out to connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastToAliases delivers an event to every client owned by one of
// the aliases. Slow clients are skipped rather than blocked on.
func (h *Hub) BroadcastToAliases(aliases []string, ev *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		for _, a := range aliases {
			if c.Alias == a {
				trySend(c, ev)
				break
			}
		}
	}
}

// Stop closes every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

func trySend(c *Client, ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
