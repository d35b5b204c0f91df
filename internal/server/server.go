package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Server provides the REST API and the websocket event channel.
type Server struct {
	store    *Store
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer creates a server over a task store.
func NewServer(store *Store, hub *Hub) *Server {
	return &Server{
		store: store,
		hub:   hub,
		// The reference backend serves local UIs; no origin policy.
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/projects/{projectID}/tasks", s.handleList)
	mux.HandleFunc("GET /api/projects/{projectID}/events", s.handleEvents)
	mux.HandleFunc("POST /api/tasks", s.handleCreate)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/tasks/{id}/archive", s.handleArchive)
	return mux
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.List(r.Context(), r.PathValue("projectID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []Record{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "malformed task payload", http.StatusBadRequest)
		return
	}
	created, err := s.store.Create(r.Context(), rec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.hub.Broadcast(created.ProjectID, "task_created", created)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "malformed patch payload", http.StatusBadRequest)
		return
	}
	updated, err := s.store.Update(r.Context(), r.PathValue("id"), patch)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.hub.Broadcast(updated.ProjectID, "task_updated", updated)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, "task_deleted")
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, "task_archived")
}

// remove deletes the row either way; archive differs only in the
// event kind clients receive.
func (s *Server) remove(w http.ResponseWriter, r *http.Request, eventType string) {
	id := r.PathValue("id")
	rec, err := s.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.hub.Broadcast(rec.ProjectID, eventType, Record{ID: rec.ID, ProjectID: rec.ProjectID})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// Snapshot first, then attach: between the two no broadcast can
	// reach this connection, so the snapshot write needs no
	// serialization against the hub.
	tasks, err := s.store.List(r.Context(), projectID)
	if err != nil {
		log.Error().Err(err).Msg("events: initial snapshot failed")
		_ = conn.Close()
		return
	}
	if tasks == nil {
		tasks = []Record{}
	}
	snapshot, err := json.Marshal(map[string]any{"type": "initial_tasks", "data": tasks})
	if err != nil {
		_ = conn.Close()
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, snapshot); err != nil {
		_ = conn.Close()
		return
	}

	s.hub.Attach(projectID, conn)
	defer func() {
		s.hub.Detach(projectID, conn)
		_ = conn.Close()
	}()

	// Subscribers never send application messages; the read loop just
	// notices when they go away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("api: write response")
	}
}
