package graph

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Snapshot is the full serialized form of a graph: every node with its
// metadata and edges, plus the graph options. It round-trips exactly.
type Snapshot struct {
	Options Options `json:"options"`
	Nodes   []*Node `json:"nodes"`
}

// Snapshot captures the graph's current state. Nodes are ordered by id so
// repeated exports of the same graph are byte-identical.
func (g *Graph) Snapshot() *Snapshot {
	snap := &Snapshot{Options: g.opts, Nodes: make([]*Node, 0, len(g.nodes))}
	for _, n := range g.nodes {
		snap.Nodes = append(snap.Nodes, n)
	}
	sort.Slice(snap.Nodes, func(i, j int) bool {
		return snap.Nodes[i].ID < snap.Nodes[j].ID
	})
	return snap
}

// Export serializes the graph to JSON.
func (g *Graph) Export() ([]byte, error) {
	data, err := json.MarshalIndent(g.Snapshot(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return data, nil
}

// FromSnapshot builds a graph from a snapshot, validating structural
// invariants. Duplicate ids, duplicate content, or edges referencing ids
// absent from the snapshot surface ErrBadSnapshot.
func FromSnapshot(snap *Snapshot) (*Graph, error) {
	g := New(snap.Options)
	for _, n := range snap.Nodes {
		if n == nil || n.ID == "" {
			return nil, fmt.Errorf("node with empty id: %w", ErrBadSnapshot)
		}
		if _, exists := g.nodes[n.ID]; exists {
			return nil, fmt.Errorf("duplicate node id %s: %w", n.ID, ErrBadSnapshot)
		}
		if _, exists := g.byContent[n.Content]; exists {
			return nil, fmt.Errorf("duplicate content on node %s: %w", n.ID, ErrBadSnapshot)
		}
		if n.Edges == nil {
			n.Edges = make(map[string]*Edge)
		}
		n.Meta.Importance = clamp01(n.Meta.Importance)
		g.nodes[n.ID] = n
		g.byContent[n.Content] = n.ID
	}

	// Edges may only reference ids present in the snapshot.
	for id, n := range g.nodes {
		for target, e := range n.Edges {
			if _, ok := g.nodes[target]; !ok {
				return nil, fmt.Errorf("node %s: edge to unknown id %s: %w", id, target, ErrBadSnapshot)
			}
			if e == nil {
				return nil, fmt.Errorf("node %s: nil edge to %s: %w", id, target, ErrBadSnapshot)
			}
			e.Weight = clamp01(e.Weight)
		}
	}

	g.indexStale = true
	return g, nil
}

// Import deserializes a JSON snapshot into a new graph. Malformed
// payloads return ErrBadSnapshot so callers can distinguish bad input
// from runtime errors and fall back to a fresh graph.
func Import(data []byte) (*Graph, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %v: %w", err, ErrBadSnapshot)
	}
	return FromSnapshot(&snap)
}
