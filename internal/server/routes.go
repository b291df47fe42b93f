package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/synapse/internal/graph"
)

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

func (s *Server) handleRemember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content    string            `json:"content"`
		Importance float64           `json:"importance"`
		Type       string            `json:"type"`
		Tags       []string          `json:"tags"`
		Extra      map[string]string `json:"extra"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content required"})
		return
	}
	if req.Importance < 0 || req.Importance > 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "importance must be in [0,1]"})
		return
	}

	s.mu.Lock()
	node := s.sys.Remember(req.Content, graph.Metadata{
		Importance: req.Importance,
		Type:       req.Type,
		Tags:       req.Tags,
		Extra:      req.Extra,
	})
	body, err := json.Marshal(node)
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	writeRawJSON(w, http.StatusCreated, body)
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	node := s.sys.Graph().Get(id)
	var body []byte
	var err error
	if node != nil {
		body, err = json.Marshal(node)
	}
	s.mu.Unlock()

	if node == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "memory not found"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	s.sys.Forget(id)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "forgotten"})
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	opts := activationOptsFromQuery(r)

	temporalWeight := queryFloat(r, "temporal_weight", 0)

	s.mu.Lock()
	var results []graph.ActivationResult
	var err error
	if temporalWeight > 0 {
		results, err = s.sys.RecallTemporal(id, graph.TemporalOpts{
			ActivationOpts: opts,
			TemporalWeight: temporalWeight,
		})
	} else {
		results, err = s.sys.Recall(id, opts)
	}
	var body []byte
	if err == nil {
		body, err = json.Marshal(map[string]any{"results": results, "count": len(results)})
	}
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleContextualRecall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cues       []string `json:"cues"`
		MaxDepth   int      `json:"max_depth"`
		MaxResults int      `json:"max_results"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.MaxDepth == 0 {
		req.MaxDepth = 2
	}

	s.mu.Lock()
	results, err := s.sys.RecallContextual(req.Cues, graph.ActivationOpts{
		MaxDepth:   req.MaxDepth,
		MaxResults: req.MaxResults,
	})
	var body []byte
	if err == nil {
		body, err = json.Marshal(map[string]any{"results": results, "count": len(results)})
	}
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleAssociate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		A        string  `json:"a"`
		B        string  `json:"b"`
		Weight   float64 `json:"weight"`
		Type     string  `json:"type"`
		Directed bool    `json:"directed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	s.mu.Lock()
	var err error
	if req.Directed {
		err = s.sys.AssociateDirected(req.A, req.B, req.Weight, req.Type)
	} else {
		err = s.sys.Associate(req.A, req.B, req.Weight, req.Type)
	}
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "associated"})
}

func (s *Server) handleReinforce(w http.ResponseWriter, r *http.Request) {
	var req struct {
		A     string  `json:"a"`
		B     string  `json:"b"`
		Delta float64 `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	s.mu.Lock()
	err := s.sys.Reinforce(req.A, req.B, req.Delta)
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reinforced"})
}

func (s *Server) handleRehearse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Boost float64 `json:"boost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Boost == 0 {
		req.Boost = 0.2
	}

	s.mu.Lock()
	err := s.sys.Rehearse(id, req.Boost)
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rehearsed"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.sys.Stats()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleMaintain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Aggressive    bool `json:"aggressive"`
		MaxOperations int  `json:"max_operations"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	s.mu.Lock()
	result, err := s.sys.Maintain(graph.MaintenanceOpts{
		Aggressive:    req.Aggressive,
		MaxOperations: req.MaxOperations,
	})
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	recs := s.sys.Recommendations()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func (s *Server) handleHubs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)

	s.mu.Lock()
	hubs := graph.Hubs(s.sys.Graph(), limit)
	body, err := json.Marshal(map[string]any{"hubs": hubs})
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleDueReviews(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	due := s.sys.Decay().DueForReview(s.sys.Graph(), s.sys.Now())
	body, err := json.Marshal(map[string]any{"due": due, "count": len(due)})
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, err := s.sys.Export()
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body failed"})
		return
	}

	s.mu.Lock()
	err = s.sys.Import(data)
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no snapshot store configured"})
		return
	}

	s.mu.Lock()
	data, err := s.sys.Export()
	stats := s.sys.Stats()
	now := s.sys.Now()
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}

	id, err := s.db.SaveSnapshot(data, stats.NodeCount, stats.EdgeCount, now)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("snapshot: saved #%d (%d nodes, %d edges)", id, stats.NodeCount, stats.EdgeCount)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "nodes": stats.NodeCount, "edges": stats.EdgeCount})
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no snapshot store configured"})
		return
	}

	latest, err := s.db.LatestSnapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	if latest == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshots"})
		return
	}

	s.mu.Lock()
	err = s.sys.Import(latest.Payload)
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "restored", "id": latest.ID, "nodes": latest.NodeCount})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no snapshot store configured"})
		return
	}

	rows, err := s.db.ListSnapshots(queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": rows})
}

func activationOptsFromQuery(r *http.Request) graph.ActivationOpts {
	return graph.ActivationOpts{
		MaxDepth:      queryInt(r, "depth", 2),
		DecayFactor:   queryFloat(r, "decay", 0),
		MinActivation: queryFloat(r, "min_activation", 0),
		MaxResults:    queryInt(r, "limit", 10),
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	if v := r.URL.Query().Get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
