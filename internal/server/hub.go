package server

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Hub fans task lifecycle events out to the websocket subscribers of
// each project. Slow or dead connections are dropped, not waited on;
// a reconnecting client is resynchronized by the initial_tasks
// snapshot it receives on attach.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: map[string]map[*websocket.Conn]struct{}{}}
}

// Attach registers a connection under a project.
func (h *Hub) Attach(projectID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[projectID] == nil {
		h.clients[projectID] = map[*websocket.Conn]struct{}{}
	}
	h.clients[projectID][conn] = struct{}{}
}

// Detach removes a connection.
func (h *Hub) Detach(projectID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[projectID], conn)
}

// Broadcast sends one event envelope to every subscriber of the
// project.
func (h *Hub) Broadcast(projectID, eventType string, data any) {
	payload, err := json.Marshal(map[string]any{"type": eventType, "data": data})
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("hub: encode event")
		return
	}

	// The lock also serializes writes: gorilla connections allow a
	// single concurrent writer.
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients[projectID] {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Debug().Err(err).Msg("hub: dropping dead subscriber")
			delete(h.clients[projectID], conn)
			_ = conn.Close()
		}
	}
}
