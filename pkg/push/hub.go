package push

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub is the process-wide registry of connected delivery channels, keyed by
// user identity. One user may hold several concurrent sessions; a push to the
// user reaches all of them. The hub has an explicit lifecycle: construct
// once, Run until shutdown, Close on teardown.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once

	onSession func(delta int)

	logger *zap.Logger
}

// OnSessionChange registers a callback invoked with +1/-1 as sessions come
// and go. Must be set before Run.
func (h *Hub) OnSessionChange(fn func(delta int)) {
	h.onSession = fn
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registration traffic until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Close stops the hub and disconnects every client.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// PushToUser delivers the payload to every session the user currently holds.
// An offline user is not an error; a session whose buffer is full is skipped.
func (h *Hub) PushToUser(userID string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("push buffer full, dropping message",
				zap.String("user_id", userID))
		}
	}
	return nil
}

// Connected reports how many sessions the user currently holds.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	if h.onSession != nil {
		h.onSession(1)
	}

	h.logger.Info("push client registered",
		zap.String("user_id", client.userID),
		zap.Int("sessions", len(h.clients[client.userID])))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := sessions[client]; !ok {
		return
	}
	delete(sessions, client)
	close(client.send)
	if h.onSession != nil {
		h.onSession(-1)
	}
	if len(sessions) == 0 {
		delete(h.clients, client.userID)
	}

	h.logger.Info("push client unregistered", zap.String("user_id", client.userID))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, sessions := range h.clients {
		for client := range sessions {
			close(client.send)
			if h.onSession != nil {
				h.onSession(-1)
			}
		}
		delete(h.clients, userID)
	}
}
