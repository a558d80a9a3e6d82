package websocket

import (
	"encoding/json"
	"sync"
)

// BalanceUpdate is pushed to every connection of the account after a committed change.
type BalanceUpdate struct {
	Username string `json:"username"`
	Balance  string `json:"balance"`
	Reason   string `json:"reason"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
	}
}

func (h *Hub) Register(accountID int64, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[accountID] == nil {
		h.clients[accountID] = make(map[*Client]struct{})
	}
	h.clients[accountID][client] = struct{}{}
}

func (h *Hub) Unregister(accountID int64, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.clients[accountID]
	if conns == nil {
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.clients, accountID)
	}
}

// Connections reports how many live connections the account has.
func (h *Hub) Connections(accountID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID])
}

// BroadcastBalance never blocks; a client with a full buffer misses the update.
func (h *Hub) BroadcastBalance(accountID int64, update BalanceUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[accountID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
