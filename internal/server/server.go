package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lazypower/synapse/internal/graph"
	"github.com/lazypower/synapse/internal/memory"
	"github.com/lazypower/synapse/internal/store"
)

// Server is the synapse HTTP API server. The memory system is
// single-writer, so every handler takes the server mutex: serializing
// access is the integrator's job and this is where it happens.
type Server struct {
	mu      sync.Mutex
	sys     *memory.System
	db      *store.DB
	version string
	started time.Time
	router  chi.Router
}

// New creates a Server over the given memory system and snapshot store.
// db may be nil, which disables the snapshot routes.
func New(sys *memory.System, db *store.DB, version string) *Server {
	s := &Server{
		sys:     sys,
		db:      db,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RunMaintenance runs one maintenance pass under the server's write lock.
// The periodic sweep timer calls this so it never races the handlers.
func (s *Server) RunMaintenance(opts graph.MaintenanceOpts) (memory.MaintainResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sys.Maintain(opts)
}

// PersistSnapshot exports the graph under the server's lock, saves it to
// the snapshot store, and prunes history down to keep entries.
func (s *Server) PersistSnapshot(keep int) error {
	if s.db == nil {
		return nil
	}

	s.mu.Lock()
	data, err := s.sys.Export()
	stats := s.sys.Stats()
	now := s.sys.Now()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if _, err := s.db.SaveSnapshot(data, stats.NodeCount, stats.EdgeCount, now); err != nil {
		return err
	}
	_, err = s.db.PruneSnapshots(keep)
	return err
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)

		r.Post("/memories", s.handleRemember)
		r.Get("/memories/{id}", s.handleGetMemory)
		r.Delete("/memories/{id}", s.handleForget)
		r.Get("/memories/{id}/recall", s.handleRecall)
		r.Post("/memories/{id}/rehearse", s.handleRehearse)

		r.Post("/recall", s.handleContextualRecall)
		r.Post("/associations", s.handleAssociate)
		r.Post("/reinforce", s.handleReinforce)

		r.Post("/maintain", s.handleMaintain)
		r.Get("/recommendations", s.handleRecommendations)
		r.Get("/hubs", s.handleHubs)
		r.Get("/reviews/due", s.handleDueReviews)

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Post("/snapshots", s.handleSaveSnapshot)
		r.Post("/snapshots/restore", s.handleRestoreSnapshot)
		r.Get("/snapshots", s.handleListSnapshots)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			dbOK = false
		}
	}

	s.mu.Lock()
	stats := s.sys.Stats()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"nodes":   stats.NodeCount,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeRawJSON writes an already-encoded body. Responses that reference
// live graph nodes are encoded while the handler still holds s.mu, so a
// maintenance sweep can never mutate a node mid-encode; this sends the
// finished bytes after the lock is released.
func writeRawJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError maps graph sentinel errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, graph.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, graph.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, graph.ErrBadSnapshot):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
