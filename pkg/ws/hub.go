package ws

import (
	"sync"

	"baatcheet/pkg/logger"
	"baatcheet/pkg/metrics"
	"baatcheet/pkg/presence"
)

// Hub owns the connID -> client map and implements fan-out. Targeting is
// by user identity: a user-addressed event reaches every connection the
// registry holds for that user.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Client
	reg   *presence.Registry
}

// NewHub builds a hub over the shared registry.
func NewHub(reg *presence.Registry) *Hub {
	return &Hub{conns: make(map[string]*Client), reg: reg}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	delete(h.conns, c.ID)
	h.mu.Unlock()
}

// ToConn sends an event to exactly one connection.
func (h *Hub) ToConn(connID, event string, data any) {
	b, err := encodeEvent(event, data)
	if err != nil {
		logger.Error("encode_event_failed", "event", event, "error", err)
		return
	}
	h.mu.RLock()
	c := h.conns[connID]
	h.mu.RUnlock()
	if c != nil {
		c.enqueue(b)
		metrics.EventsOut.WithLabelValues(event).Inc()
	}
}

// ToUser fans an event out to every active connection of the user.
func (h *Hub) ToUser(userID, event string, data any) {
	b, err := encodeEvent(event, data)
	if err != nil {
		logger.Error("encode_event_failed", "event", event, "error", err)
		return
	}
	for _, connID := range h.reg.ActiveConnections(userID) {
		h.mu.RLock()
		c := h.conns[connID]
		h.mu.RUnlock()
		if c != nil {
			c.enqueue(b)
			metrics.EventsOut.WithLabelValues(event).Inc()
		}
	}
}

// ToAll sends an event to every open connection of every user.
func (h *Hub) ToAll(event string, data any) {
	b, err := encodeEvent(event, data)
	if err != nil {
		logger.Error("encode_event_failed", "event", event, "error", err)
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.conns))
	for _, c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.enqueue(b)
		metrics.EventsOut.WithLabelValues(event).Inc()
	}
}

// CloseAll tears down every connection; used on shutdown before the
// registry drain.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	targets := make([]*Client, 0, len(h.conns))
	for id, c := range h.conns {
		targets = append(targets, c)
		delete(h.conns, id)
	}
	h.mu.Unlock()
	for _, c := range targets {
		c.close()
	}
}
