// Package memory exposes the facade collaborators drive the graph core
// through: remember, recall, associate, maintain, export, import.
package memory

import (
	"fmt"
	"time"

	"github.com/lazypower/synapse/internal/graph"
)

// System composes the memory graph with its decay configuration and an
// optional injected similarity function. It is single-writer: callers
// that mutate concurrently must serialize externally.
type System struct {
	g     *graph.Graph
	decay graph.Decay
	sim   graph.SimilarityFunc

	// Now supplies the current time for every time-sensitive call, so
	// tests can pin the clock instead of mocking time globally.
	Now func() time.Time
}

// Option customizes a System.
type Option func(*System)

// WithDecay overrides the default decay configuration.
func WithDecay(d graph.Decay) Option {
	return func(s *System) { s.decay = d }
}

// WithSimilarity injects the similarity function used by consolidation.
func WithSimilarity(sim graph.SimilarityFunc) Option {
	return func(s *System) { s.sim = sim }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *System) { s.Now = now }
}

// New creates a memory system over an empty graph.
func New(opts graph.Options, options ...Option) *System {
	s := &System{
		g:     graph.New(opts),
		decay: graph.DefaultDecay(),
		Now:   time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Graph returns the underlying graph for read access and advanced callers.
func (s *System) Graph() *graph.Graph { return s.g }

// Decay returns the active decay configuration.
func (s *System) Decay() graph.Decay { return s.decay }

// Remember stores content as a memory node, or returns the existing node
// when identical content is already known.
func (s *System) Remember(content string, meta graph.Metadata) *graph.Node {
	n, _ := s.g.CreateNode(content, meta, s.Now())
	return n
}

// Recall performs spreading activation from a node and touches every
// recalled node, so retrieval itself counts as access.
func (s *System) Recall(id string, opts graph.ActivationOpts) ([]graph.ActivationResult, error) {
	results, err := graph.SpreadingActivation(s.g, id, opts)
	if err != nil {
		return nil, err
	}
	s.touchResults(id, results)
	return results, nil
}

// RecallTemporal blends activation with time-decayed relevance.
func (s *System) RecallTemporal(id string, opts graph.TemporalOpts) ([]graph.ActivationResult, error) {
	results, err := graph.TemporalRecall(s.g, s.decay, id, opts, s.Now())
	if err != nil {
		return nil, err
	}
	s.touchResults(id, results)
	return results, nil
}

// RecallContextual spreads activation from several cues at once, summing
// per-node activation across cues.
func (s *System) RecallContextual(cueIDs []string, opts graph.ActivationOpts) ([]graph.ActivationResult, error) {
	results, err := graph.ContextualRecall(s.g, cueIDs, opts)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	for _, cue := range cueIDs {
		if n := s.g.Get(cue); n != nil {
			n.Meta.LastAccessed = now
			n.Meta.AccessCount++
		}
	}
	s.markAccessed(results, now)
	return results, nil
}

// touchResults records access on the recall cue and every result, and
// bumps traversal counts on the cue's direct edges into the result set.
func (s *System) touchResults(cueID string, results []graph.ActivationResult) {
	now := s.Now()
	if cue := s.g.Get(cueID); cue != nil {
		cue.Meta.LastAccessed = now
		cue.Meta.AccessCount++
		for _, r := range results {
			if e := cue.Edges[r.Node.ID]; e != nil {
				e.AccessCount++
			}
		}
	}
	s.markAccessed(results, now)
}

func (s *System) markAccessed(results []graph.ActivationResult, now time.Time) {
	for _, r := range results {
		r.Node.Meta.LastAccessed = now
		r.Node.Meta.AccessCount++
	}
}

// Associate links two memories with a symmetric weighted, typed edge.
func (s *System) Associate(a, b string, weight float64, edgeType string) error {
	return s.g.Associate(a, b, weight, edgeType, s.Now())
}

// AssociateDirected links source to target one way only.
func (s *System) AssociateDirected(source, target string, weight float64, edgeType string) error {
	return s.g.AssociateDirected(source, target, weight, edgeType, s.Now())
}

// Reinforce strengthens the connection between two memories.
func (s *System) Reinforce(a, b string, delta float64) error {
	return s.g.ReinforceConnection(a, b, delta, s.Now())
}

// Rehearse boosts a memory and primes its neighbors.
func (s *System) Rehearse(id string, boost float64) error {
	return s.decay.Rehearse(s.g, id, boost, s.Now())
}

// Forget removes a memory. Unknown ids are a no-op.
func (s *System) Forget(id string) {
	s.g.DeleteNode(id)
}

// MaintainResult is the summary returned by Maintain.
type MaintainResult struct {
	NodesDecayed int `json:"nodes_decayed"`
	EdgesDecayed int `json:"edges_decayed"`
	graph.MaintenanceReport
}

// Maintain runs one full maintenance pass: a decay sweep followed by the
// consolidation pipeline. Meant to be scheduled periodically; decay is
// idempotent to reapply, so staleness between sweeps is harmless.
func (s *System) Maintain(opts graph.MaintenanceOpts) (MaintainResult, error) {
	now := s.Now()
	var result MaintainResult
	result.NodesDecayed, result.EdgesDecayed = s.decay.Apply(s.g, now)

	report, err := graph.AutoMaintenance(s.g, s.decay, s.sim, opts, now)
	if err != nil {
		return result, fmt.Errorf("maintain: %w", err)
	}
	result.MaintenanceReport = report
	return result, nil
}

// Recommendations reports suggested maintenance without mutating anything.
func (s *System) Recommendations() []graph.Recommendation {
	return graph.Recommendations(s.g, s.decay, s.sim, s.Now())
}

// Stats returns current graph statistics.
func (s *System) Stats() graph.Stats { return s.g.Stats() }

// Export serializes the entire graph to a JSON snapshot.
func (s *System) Export() ([]byte, error) { return s.g.Export() }

// Import replaces the graph with the one in the snapshot. On a malformed
// payload the existing graph is left untouched and graph.ErrBadSnapshot
// is returned, so callers can fall back to a fresh graph deliberately.
func (s *System) Import(data []byte) error {
	g, err := graph.Import(data)
	if err != nil {
		return err
	}
	s.g = g
	return nil
}
