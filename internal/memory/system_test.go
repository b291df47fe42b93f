package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/lazypower/synapse/internal/graph"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newSystem returns a system with a pinned clock the test can advance.
func newSystem(opts ...Option) (*System, *time.Time) {
	now := t0
	all := append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return New(graph.Options{}, all...), &now
}

func TestRememberDedup(t *testing.T) {
	s, _ := newSystem()

	a := s.Remember("the deploy runs on fridays", graph.Metadata{Importance: 0.7})
	if a == nil {
		t.Fatal("Remember returned nil")
	}
	if a.Meta.Importance != 0.7 {
		t.Errorf("importance = %v, want 0.7", a.Meta.Importance)
	}

	b := s.Remember("the deploy runs on fridays", graph.Metadata{})
	if b.ID != a.ID {
		t.Errorf("duplicate content created a second node: %s != %s", b.ID, a.ID)
	}
	if s.Stats().NodeCount != 1 {
		t.Errorf("node count = %d, want 1", s.Stats().NodeCount)
	}
}

func TestRecallTouchesResults(t *testing.T) {
	s, now := newSystem()

	a := s.Remember("alpha", graph.Metadata{})
	b := s.Remember("beta", graph.Metadata{})
	if err := s.Associate(a.ID, b.ID, 0.9, ""); err != nil {
		t.Fatalf("Associate: %v", err)
	}

	*now = t0.Add(time.Hour)
	results, err := s.Recall(a.ID, graph.ActivationOpts{MaxDepth: 2})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(results) != 1 || results[0].Node.ID != b.ID {
		t.Fatalf("results = %+v, want just beta", results)
	}

	// Retrieval counts as access on both the cue and the result.
	if !a.Meta.LastAccessed.Equal(*now) || a.Meta.AccessCount != 1 {
		t.Errorf("cue not touched: %v / %d", a.Meta.LastAccessed, a.Meta.AccessCount)
	}
	if !b.Meta.LastAccessed.Equal(*now) || b.Meta.AccessCount != 1 {
		t.Errorf("result not touched: %v / %d", b.Meta.LastAccessed, b.Meta.AccessCount)
	}
	if s.Graph().GetEdge(a.ID, b.ID).AccessCount != 1 {
		t.Error("traversed edge access count not bumped")
	}

	if _, err := s.Recall("ghost", graph.ActivationOpts{MaxDepth: 1}); !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRecallContextual(t *testing.T) {
	s, _ := newSystem()

	a := s.Remember("cue one", graph.Metadata{})
	b := s.Remember("cue two", graph.Metadata{})
	shared := s.Remember("shared memory", graph.Metadata{})
	lone := s.Remember("single link", graph.Metadata{})
	s.Associate(a.ID, shared.ID, 0.8, "")
	s.Associate(b.ID, shared.ID, 0.8, "")
	s.Associate(a.ID, lone.ID, 0.8, "")

	results, err := s.RecallContextual([]string{a.ID, b.ID}, graph.ActivationOpts{MaxDepth: 1})
	if err != nil {
		t.Fatalf("RecallContextual: %v", err)
	}
	if len(results) == 0 || results[0].Node.ID != shared.ID {
		t.Errorf("results = %+v, want the shared memory ranked first", results)
	}
	for _, r := range results {
		if r.Node.ID == a.ID || r.Node.ID == b.ID {
			t.Errorf("cue %s appeared in its own results", r.Node.ID)
		}
	}
}

func TestRecallTemporalFavorsFresh(t *testing.T) {
	s, now := newSystem()

	cue := s.Remember("cue", graph.Metadata{})
	stale := s.Remember("stale", graph.Metadata{Importance: 0.9})
	s.Associate(cue.ID, stale.ID, 0.8, "")

	*now = t0.Add(120 * 24 * time.Hour)
	fresh := s.Remember("fresh", graph.Metadata{Importance: 0.9})
	s.Associate(cue.ID, fresh.ID, 0.8, "")

	results, err := s.RecallTemporal(cue.ID, graph.TemporalOpts{
		ActivationOpts: graph.ActivationOpts{MaxDepth: 1},
		TemporalWeight: 0.8,
	})
	if err != nil {
		t.Fatalf("RecallTemporal: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Node.ID != fresh.ID {
		t.Errorf("first = %s, want the fresh memory", results[0].Node.ID)
	}
}

func TestRehearseAndForget(t *testing.T) {
	s, _ := newSystem()

	a := s.Remember("keep this", graph.Metadata{Importance: 0.5})
	if err := s.Rehearse(a.ID, 0.2); err != nil {
		t.Fatalf("Rehearse: %v", err)
	}
	if a.Meta.Importance != 0.7 {
		t.Errorf("importance = %v, want 0.7", a.Meta.Importance)
	}
	if a.Meta.ReviewCount != 1 {
		t.Errorf("review count = %d, want 1", a.Meta.ReviewCount)
	}

	s.Forget(a.ID)
	if s.Stats().NodeCount != 0 {
		t.Error("node survived Forget")
	}
	s.Forget(a.ID) // unknown id is a no-op
}

func TestReinforce(t *testing.T) {
	s, _ := newSystem()
	a := s.Remember("a", graph.Metadata{})
	b := s.Remember("b", graph.Metadata{})
	s.Associate(a.ID, b.ID, 0.4, "")

	if err := s.Reinforce(a.ID, b.ID, 0.3); err != nil {
		t.Fatalf("Reinforce: %v", err)
	}
	if w := s.Graph().GetEdge(a.ID, b.ID).Weight; !almostEqual(w, 0.7) {
		t.Errorf("weight = %v, want 0.7", w)
	}
}

func TestMaintain(t *testing.T) {
	s, now := newSystem()

	s.Remember("important and current", graph.Metadata{Importance: 0.9})
	stale := s.Remember("forgettable", graph.Metadata{Importance: 0.1})

	*now = t0.Add(90 * 24 * time.Hour)
	s.Remember("fresh", graph.Metadata{Importance: 0.8})

	result, err := s.Maintain(graph.MaintenanceOpts{})
	if err != nil {
		t.Fatalf("Maintain: %v", err)
	}
	if result.NodesDecayed == 0 {
		t.Error("decay sweep touched nothing after 90 days")
	}
	if result.NodesPruned == 0 {
		t.Error("stale low-importance node survived")
	}
	if s.Graph().Get(stale.ID) != nil {
		t.Error("stale node still present")
	}

	// Reapplying at the same instant must not decay further.
	again, err := s.Maintain(graph.MaintenanceOpts{})
	if err != nil {
		t.Fatalf("Maintain: %v", err)
	}
	if again.NodesDecayed != 0 {
		t.Errorf("second sweep decayed %d nodes, want 0", again.NodesDecayed)
	}
}

func TestMaintainConsolidates(t *testing.T) {
	sim := func(a, b string) float64 {
		if a == b+"!" || b == a+"!" {
			return 0.95
		}
		return 0
	}
	s, _ := newSystem(WithSimilarity(sim))

	s.Remember("ship it", graph.Metadata{Importance: 0.9})
	s.Remember("ship it!", graph.Metadata{Importance: 0.3})

	result, err := s.Maintain(graph.MaintenanceOpts{})
	if err != nil {
		t.Fatalf("Maintain: %v", err)
	}
	if result.NodesMerged != 1 {
		t.Errorf("merged = %d, want 1", result.NodesMerged)
	}
	if s.Stats().NodeCount != 1 {
		t.Errorf("node count = %d, want 1 after consolidation", s.Stats().NodeCount)
	}
}

func TestExportImport(t *testing.T) {
	s, _ := newSystem()
	a := s.Remember("exported", graph.Metadata{Importance: 0.6})
	b := s.Remember("also exported", graph.Metadata{})
	s.Associate(a.ID, b.ID, 0.5, "")

	data, err := s.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	restored, _ := newSystem()
	if err := restored.Import(data); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if restored.Stats().NodeCount != 2 {
		t.Errorf("node count = %d, want 2", restored.Stats().NodeCount)
	}
	if restored.Graph().GetEdge(a.ID, b.ID) == nil {
		t.Error("edge lost in round trip")
	}
}

func TestImportBadSnapshotLeavesGraphIntact(t *testing.T) {
	s, _ := newSystem()
	s.Remember("existing", graph.Metadata{})

	err := s.Import([]byte(`{"nodes":[{"id":"","content":"x"}]}`))
	if !errors.Is(err, graph.ErrBadSnapshot) {
		t.Fatalf("err = %v, want ErrBadSnapshot", err)
	}
	if s.Stats().NodeCount != 1 {
		t.Error("failed import disturbed the existing graph")
	}
}

func almostEqual(a, b float64) bool {
	diff := a - b
	return diff < 1e-9 && diff > -1e-9
}
