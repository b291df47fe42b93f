package graph

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultEdgeType is used when an association is created without an
// explicit type.
const DefaultEdgeType = "association"

// Options configures a Graph. MaxNodes is a soft capacity: it is advisory
// and enforced only by consolidation sweeps, never by CreateNode.
type Options struct {
	MaxNodes int `json:"max_nodes,omitempty"`
}

// Graph owns a set of memory nodes keyed by id, plus a content index for
// dedup and lazily built tag/type indices. It is a single-writer
// structure: callers serialize mutation externally.
type Graph struct {
	nodes     map[string]*Node
	byContent map[string]string // exact content -> node id
	opts      Options

	// lazily rebuilt on first lookup after a mutation
	tagIndex   map[string][]string
	typeIndex  map[string][]string
	indexStale bool
}

// New creates an empty graph.
func New(opts Options) *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		byContent: make(map[string]string),
		opts:      opts,
	}
}

// Options returns the graph's configured options.
func (g *Graph) Options() Options { return g.opts }

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Get returns the node with the given id, or nil if absent.
func (g *Graph) Get(id string) *Node {
	return g.nodes[id]
}

// Nodes returns the live node set. The map is the graph's own storage;
// callers must not add or remove entries directly.
func (g *Graph) Nodes() map[string]*Node { return g.nodes }

// CreateNode adds a node, deduplicating by exact content equality. On a
// dedup hit the existing node is touched and returned with created=false.
// Zero caller importance falls back to DefaultImportance. The soft
// capacity is deliberately not checked here: reclamation is the
// consolidation sweep's job.
func (g *Graph) CreateNode(content string, meta Metadata, now time.Time) (*Node, bool) {
	if id, ok := g.byContent[content]; ok {
		existing := g.nodes[id]
		existing.touch(now)
		return existing, false
	}

	if meta.Importance == 0 {
		meta.Importance = DefaultImportance
	}
	meta.Importance = clamp01(meta.Importance)
	meta.Timestamp = now
	meta.LastAccessed = now
	meta.AccessCount = 0

	n := &Node{
		ID:      uuid.NewString(),
		Content: content,
		Meta:    meta,
		Edges:   make(map[string]*Edge),
	}
	g.nodes[n.ID] = n
	g.byContent[content] = n.ID
	g.indexStale = true
	return n, true
}

// GetEdge returns the directed edge from a to b, or nil if either node or
// the edge is absent.
func (g *Graph) GetEdge(a, b string) *Edge {
	n, ok := g.nodes[a]
	if !ok {
		return nil
	}
	return n.Edges[b]
}

// Associate creates (or overwrites) a symmetric edge pair between a and b
// with the same weight and type on both sides.
func (g *Graph) Associate(a, b string, weight float64, edgeType string, now time.Time) error {
	if weight < 0 || weight > 1 {
		return fmt.Errorf("associate: weight %v: %w", weight, ErrInvalidArgument)
	}
	na, nb, err := g.pair(a, b)
	if err != nil {
		return fmt.Errorf("associate: %w", err)
	}
	if edgeType == "" {
		edgeType = DefaultEdgeType
	}
	na.Edges[b] = &Edge{Weight: weight, Type: edgeType, CreatedAt: now}
	nb.Edges[a] = &Edge{Weight: weight, Type: edgeType, CreatedAt: now}
	return nil
}

// AssociateDirected creates (or overwrites) a one-way edge from source to
// target.
func (g *Graph) AssociateDirected(source, target string, weight float64, edgeType string, now time.Time) error {
	if weight < 0 || weight > 1 {
		return fmt.Errorf("associate directed: weight %v: %w", weight, ErrInvalidArgument)
	}
	src, _, err := g.pair(source, target)
	if err != nil {
		return fmt.Errorf("associate directed: %w", err)
	}
	if edgeType == "" {
		edgeType = DefaultEdgeType
	}
	src.Edges[target] = &Edge{Weight: weight, Type: edgeType, CreatedAt: now}
	return nil
}

// ReinforceConnection strengthens the symmetric connection between a and b
// by delta, clamped at 1.0. If no edge exists, it behaves as Associate
// with weight=delta.
func (g *Graph) ReinforceConnection(a, b string, delta float64, now time.Time) error {
	if delta < 0 || delta > 1 {
		return fmt.Errorf("reinforce: delta %v: %w", delta, ErrInvalidArgument)
	}
	na, nb, err := g.pair(a, b)
	if err != nil {
		return fmt.Errorf("reinforce: %w", err)
	}

	ab := na.Edges[b]
	if ab == nil {
		return g.Associate(a, b, delta, DefaultEdgeType, now)
	}
	ab.Weight = clamp01(ab.Weight + delta)
	if ba := nb.Edges[a]; ba != nil {
		ba.Weight = clamp01(ba.Weight + delta)
	}
	return nil
}

// Neighbors returns the nodes reachable by one outgoing edge from id.
func (g *Graph) Neighbors(id string) ([]*Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("neighbors %s: %w", id, ErrNotFound)
	}
	out := make([]*Node, 0, len(n.Edges))
	for target := range n.Edges {
		if t, ok := g.nodes[target]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// FindByTag returns all nodes carrying the given tag, in no particular order.
func (g *Graph) FindByTag(tag string) []*Node {
	g.rebuildIndexes()
	ids := g.tagIndex[tag]
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.nodes[id])
	}
	return out
}

// FindByType returns all nodes of the given type, in no particular order.
func (g *Graph) FindByType(nodeType string) []*Node {
	g.rebuildIndexes()
	ids := g.typeIndex[nodeType]
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.nodes[id])
	}
	return out
}

// DeleteNode removes a node and every edge any neighbor held toward it.
// Deleting an unknown id is a no-op.
func (g *Graph) DeleteNode(id string) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	delete(g.nodes, id)
	delete(g.byContent, n.Content)
	for _, other := range g.nodes {
		delete(other.Edges, id)
	}
	g.indexStale = true
}

// Stats summarizes graph size and connectivity. EdgeCount counts each
// directed edge instance, so a symmetric pair counts as 2.
type Stats struct {
	NodeCount int     `json:"node_count"`
	EdgeCount int     `json:"edge_count"`
	AvgEdges  float64 `json:"avg_edges"`
	MaxEdges  int     `json:"max_edges"`
	MinEdges  int     `json:"min_edges"`
	MaxNodes  int     `json:"max_nodes,omitempty"`
}

// Stats computes current graph statistics.
func (g *Graph) Stats() Stats {
	s := Stats{NodeCount: len(g.nodes), MaxNodes: g.opts.MaxNodes}
	if s.NodeCount == 0 {
		return s
	}
	s.MinEdges = -1
	for _, n := range g.nodes {
		c := len(n.Edges)
		s.EdgeCount += c
		if c > s.MaxEdges {
			s.MaxEdges = c
		}
		if s.MinEdges < 0 || c < s.MinEdges {
			s.MinEdges = c
		}
	}
	s.AvgEdges = float64(s.EdgeCount) / float64(s.NodeCount)
	return s
}

// pair looks up two nodes, failing with ErrNotFound on the first absent id.
func (g *Graph) pair(a, b string) (*Node, *Node, error) {
	na, ok := g.nodes[a]
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", a, ErrNotFound)
	}
	nb, ok := g.nodes[b]
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", b, ErrNotFound)
	}
	return na, nb, nil
}

func (g *Graph) rebuildIndexes() {
	if !g.indexStale && g.tagIndex != nil {
		return
	}
	g.tagIndex = make(map[string][]string)
	g.typeIndex = make(map[string][]string)
	for id, n := range g.nodes {
		for _, tag := range n.Meta.Tags {
			g.tagIndex[tag] = append(g.tagIndex[tag], id)
		}
		if n.Meta.Type != "" {
			g.typeIndex[n.Meta.Type] = append(g.typeIndex[n.Meta.Type], id)
		}
	}
	g.indexStale = false
}
