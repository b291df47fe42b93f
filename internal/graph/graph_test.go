package graph

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// mustCreate adds a node and fails the test on a dedup hit.
func mustCreate(t *testing.T, g *Graph, content string, meta Metadata, now time.Time) *Node {
	t.Helper()
	n, created := g.CreateNode(content, meta, now)
	if !created {
		t.Fatalf("CreateNode(%q): expected a new node, got dedup hit on %s", content, n.ID)
	}
	return n
}

func TestCreateNodeDefaults(t *testing.T) {
	g := New(Options{})
	n := mustCreate(t, g, "the capital of France is Paris", Metadata{}, t0)

	if n.ID == "" {
		t.Fatal("expected a generated id")
	}
	if n.Meta.Importance != DefaultImportance {
		t.Errorf("importance = %v, want default %v", n.Meta.Importance, DefaultImportance)
	}
	if !n.Meta.Timestamp.Equal(t0) || !n.Meta.LastAccessed.Equal(t0) {
		t.Errorf("timestamps not initialized to now: %v / %v", n.Meta.Timestamp, n.Meta.LastAccessed)
	}
	if n.Meta.AccessCount != 0 {
		t.Errorf("access count = %d, want 0", n.Meta.AccessCount)
	}
}

func TestCreateNodeClampsImportance(t *testing.T) {
	g := New(Options{})
	n := mustCreate(t, g, "overconfident", Metadata{Importance: 3.5}, t0)
	if n.Meta.Importance != 1.0 {
		t.Errorf("importance = %v, want clamped to 1.0", n.Meta.Importance)
	}
}

func TestCreateNodeDedup(t *testing.T) {
	g := New(Options{})
	a := mustCreate(t, g, "same content", Metadata{}, t0)

	later := t0.Add(time.Hour)
	b, created := g.CreateNode("same content", Metadata{}, later)
	if created {
		t.Fatal("expected dedup hit, got new node")
	}
	if b.ID != a.ID {
		t.Errorf("dedup returned %s, want %s", b.ID, a.ID)
	}
	if b.Meta.AccessCount != 1 {
		t.Errorf("access count = %d, want 1 after dedup access", b.Meta.AccessCount)
	}
	if !b.Meta.LastAccessed.Equal(later) {
		t.Errorf("last accessed = %v, want %v", b.Meta.LastAccessed, later)
	}
	if g.Len() != 1 {
		t.Errorf("node count = %d, want 1", g.Len())
	}
}

func TestAssociateSymmetry(t *testing.T) {
	g := New(Options{})
	a := mustCreate(t, g, "a", Metadata{}, t0)
	b := mustCreate(t, g, "b", Metadata{}, t0)

	if err := g.Associate(a.ID, b.ID, 0.8, "causes", t0); err != nil {
		t.Fatalf("Associate: %v", err)
	}

	ab := g.GetEdge(a.ID, b.ID)
	ba := g.GetEdge(b.ID, a.ID)
	if ab == nil || ba == nil {
		t.Fatal("expected edges in both directions")
	}
	if ab.Weight != 0.8 || ba.Weight != 0.8 {
		t.Errorf("weights = %v / %v, want 0.8 both ways", ab.Weight, ba.Weight)
	}
	if ab.Type != "causes" || ba.Type != "causes" {
		t.Errorf("types = %q / %q, want identical", ab.Type, ba.Type)
	}
}

func TestAssociateOverwrites(t *testing.T) {
	g := New(Options{})
	a := mustCreate(t, g, "a", Metadata{}, t0)
	b := mustCreate(t, g, "b", Metadata{}, t0)

	if err := g.Associate(a.ID, b.ID, 0.3, "", t0); err != nil {
		t.Fatalf("Associate: %v", err)
	}
	if err := g.Associate(a.ID, b.ID, 0.9, "refines", t0); err != nil {
		t.Fatalf("Associate: %v", err)
	}

	if e := g.GetEdge(a.ID, b.ID); e.Weight != 0.9 || e.Type != "refines" {
		t.Errorf("edge = %+v, want overwritten weight 0.9, type refines", e)
	}
	if len(g.Get(a.ID).Edges) != 1 {
		t.Errorf("edge count = %d, want 1 (overwrite, not append)", len(g.Get(a.ID).Edges))
	}
}

func TestAssociateErrors(t *testing.T) {
	g := New(Options{})
	a := mustCreate(t, g, "a", Metadata{}, t0)

	if err := g.Associate(a.ID, "nope", 0.5, "", t0); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing target: err = %v, want ErrNotFound", err)
	}
	b := mustCreate(t, g, "b", Metadata{}, t0)
	if err := g.Associate(a.ID, b.ID, 1.5, "", t0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("weight 1.5: err = %v, want ErrInvalidArgument", err)
	}
	if err := g.Associate(a.ID, b.ID, -0.1, "", t0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("weight -0.1: err = %v, want ErrInvalidArgument", err)
	}
}

func TestAssociateDirectedOneWay(t *testing.T) {
	g := New(Options{})
	a := mustCreate(t, g, "a", Metadata{}, t0)
	b := mustCreate(t, g, "b", Metadata{}, t0)

	if err := g.AssociateDirected(a.ID, b.ID, 0.6, "cites", t0); err != nil {
		t.Fatalf("AssociateDirected: %v", err)
	}
	if g.GetEdge(a.ID, b.ID) == nil {
		t.Error("expected forward edge")
	}
	if g.GetEdge(b.ID, a.ID) != nil {
		t.Error("expected no reverse edge")
	}
}

func TestReinforceConnection(t *testing.T) {
	g := New(Options{})
	a := mustCreate(t, g, "a", Metadata{}, t0)
	b := mustCreate(t, g, "b", Metadata{}, t0)

	// No edge yet: behaves as associate with weight=delta.
	if err := g.ReinforceConnection(a.ID, b.ID, 0.3, t0); err != nil {
		t.Fatalf("ReinforceConnection: %v", err)
	}
	if e := g.GetEdge(b.ID, a.ID); e == nil || e.Weight != 0.3 {
		t.Fatalf("reverse edge = %+v, want symmetric weight 0.3", e)
	}

	// Additive on an existing edge, both directions.
	if err := g.ReinforceConnection(a.ID, b.ID, 0.5, t0); err != nil {
		t.Fatalf("ReinforceConnection: %v", err)
	}
	if e := g.GetEdge(a.ID, b.ID); e.Weight != 0.8 {
		t.Errorf("weight = %v, want 0.8", e.Weight)
	}

	// Clamped at 1.0.
	if err := g.ReinforceConnection(a.ID, b.ID, 0.9, t0); err != nil {
		t.Fatalf("ReinforceConnection: %v", err)
	}
	if e := g.GetEdge(a.ID, b.ID); e.Weight != 1.0 {
		t.Errorf("weight = %v, want clamped to 1.0", e.Weight)
	}
	if e := g.GetEdge(b.ID, a.ID); e.Weight != 1.0 {
		t.Errorf("reverse weight = %v, want clamped to 1.0", e.Weight)
	}
}

func TestFindByTagAndType(t *testing.T) {
	g := New(Options{})
	mustCreate(t, g, "go history", Metadata{Type: "fact", Tags: []string{"go", "history"}}, t0)
	mustCreate(t, g, "go generics", Metadata{Type: "fact", Tags: []string{"go"}}, t0)
	mustCreate(t, g, "lunch plan", Metadata{Type: "event"}, t0)

	if got := len(g.FindByTag("go")); got != 2 {
		t.Errorf("FindByTag(go) = %d nodes, want 2", got)
	}
	if got := len(g.FindByTag("history")); got != 1 {
		t.Errorf("FindByTag(history) = %d nodes, want 1", got)
	}
	if got := len(g.FindByType("fact")); got != 2 {
		t.Errorf("FindByType(fact) = %d nodes, want 2", got)
	}
	if got := len(g.FindByType("missing")); got != 0 {
		t.Errorf("FindByType(missing) = %d nodes, want 0", got)
	}

	// Index refreshes after mutation.
	mustCreate(t, g, "go modules", Metadata{Tags: []string{"go"}}, t0)
	if got := len(g.FindByTag("go")); got != 3 {
		t.Errorf("FindByTag(go) after add = %d nodes, want 3", got)
	}
}

func TestNeighbors(t *testing.T) {
	g := New(Options{})
	a := mustCreate(t, g, "a", Metadata{}, t0)
	b := mustCreate(t, g, "b", Metadata{}, t0)
	c := mustCreate(t, g, "c", Metadata{}, t0)
	g.Associate(a.ID, b.ID, 0.5, "", t0)
	g.AssociateDirected(a.ID, c.ID, 0.5, "", t0)

	got, err := g.Neighbors(a.ID)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("neighbors = %d, want 2", len(got))
	}

	// c has no outgoing edges back.
	got, err = g.Neighbors(c.ID)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("neighbors of c = %d, want 0", len(got))
	}

	if _, err := g.Neighbors("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNodeScrubsEdges(t *testing.T) {
	g := New(Options{})
	a := mustCreate(t, g, "a", Metadata{}, t0)
	b := mustCreate(t, g, "b", Metadata{}, t0)
	c := mustCreate(t, g, "c", Metadata{}, t0)
	g.Associate(a.ID, b.ID, 0.5, "", t0)
	g.AssociateDirected(c.ID, b.ID, 0.5, "", t0)

	g.DeleteNode(b.ID)

	if g.Get(b.ID) != nil {
		t.Fatal("node still present after delete")
	}
	for id, n := range g.Nodes() {
		if _, ok := n.Edges[b.ID]; ok {
			t.Errorf("node %s still holds an edge to the deleted node", id)
		}
	}

	// Idempotent: deleting again is a no-op.
	g.DeleteNode(b.ID)
	if g.Len() != 2 {
		t.Errorf("node count = %d, want 2", g.Len())
	}

	// Content slot is free again.
	if _, created := g.CreateNode("b", Metadata{}, t0); !created {
		t.Error("expected content reuse after delete to create a new node")
	}
}

func TestStats(t *testing.T) {
	g := New(Options{MaxNodes: 100})
	if s := g.Stats(); s.NodeCount != 0 || s.EdgeCount != 0 {
		t.Errorf("empty stats = %+v", s)
	}

	a := mustCreate(t, g, "a", Metadata{}, t0)
	b := mustCreate(t, g, "b", Metadata{}, t0)
	c := mustCreate(t, g, "c", Metadata{}, t0)
	g.Associate(a.ID, b.ID, 0.5, "", t0)     // 2 directed edges
	g.AssociateDirected(a.ID, c.ID, 0.5, "", t0) // 1 directed edge

	s := g.Stats()
	if s.NodeCount != 3 {
		t.Errorf("node count = %d, want 3", s.NodeCount)
	}
	if s.EdgeCount != 3 {
		t.Errorf("edge count = %d, want 3 (bidirectional pair counts as 2)", s.EdgeCount)
	}
	if s.MaxEdges != 2 {
		t.Errorf("max edges = %d, want 2", s.MaxEdges)
	}
	if s.MinEdges != 0 {
		t.Errorf("min edges = %d, want 0", s.MinEdges)
	}
	if s.AvgEdges != 1.0 {
		t.Errorf("avg edges = %v, want 1.0", s.AvgEdges)
	}
}
