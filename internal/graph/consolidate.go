package graph

// Consolidation: batch maintenance sweeps that keep the graph within
// capacity and structurally coherent. Every sweep is an atomic pass over
// the current state; there is no persistent state machine between calls.

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"
)

// SimilarityFunc scores two content values in [0, 1]. Implementations are
// injected by the integrator; the core never assumes any particular
// similarity technology.
type SimilarityFunc func(a, b string) float64

// PruneNodeOpts controls a node prune sweep.
type PruneNodeOpts struct {
	MinRelevance  float64       // delete below this decayed relevance
	ProtectRecent time.Duration // never delete nodes accessed this recently
	DryRun        bool          // report without deleting
}

// PruneNodes deletes (or, when DryRun, only reports) nodes whose decayed
// relevance is below MinRelevance and whose age since last access exceeds
// ProtectRecent. Returns the ids that were (or would be) removed.
func PruneNodes(g *Graph, d Decay, opts PruneNodeOpts, now time.Time) ([]string, error) {
	if opts.MinRelevance < 0 || opts.MinRelevance > 1 {
		return nil, fmt.Errorf("prune nodes: min relevance %v: %w", opts.MinRelevance, ErrInvalidArgument)
	}

	var victims []string
	for id, n := range g.Nodes() {
		if ageSince(n.Meta.LastAccessed, now) <= opts.ProtectRecent {
			continue
		}
		if d.Relevance(n, now) < opts.MinRelevance {
			victims = append(victims, id)
		}
	}
	sort.Strings(victims)

	if !opts.DryRun {
		for _, id := range victims {
			g.DeleteNode(id)
		}
	}
	return victims, nil
}

// PruneEdgeOpts controls an edge prune sweep.
type PruneEdgeOpts struct {
	MinWeight      float64 // remove edges below this weight
	MinAccessCount int     // but keep weak edges traversed more than this
	DryRun         bool
}

// EdgeRef identifies a directed edge instance.
type EdgeRef struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PruneEdges removes (or reports) directed edges below MinWeight, except
// those whose traversal access count exceeds MinAccessCount: frequently
// used edges are protected even when nominally weak.
func PruneEdges(g *Graph, opts PruneEdgeOpts) ([]EdgeRef, error) {
	if opts.MinWeight < 0 || opts.MinWeight > 1 {
		return nil, fmt.Errorf("prune edges: min weight %v: %w", opts.MinWeight, ErrInvalidArgument)
	}

	var victims []EdgeRef
	for id, n := range g.Nodes() {
		for target, e := range n.Edges {
			if e.Weight >= opts.MinWeight {
				continue
			}
			if e.AccessCount > opts.MinAccessCount {
				continue
			}
			victims = append(victims, EdgeRef{From: id, To: target})
		}
	}
	sort.Slice(victims, func(i, j int) bool {
		if victims[i].From != victims[j].From {
			return victims[i].From < victims[j].From
		}
		return victims[i].To < victims[j].To
	})

	if !opts.DryRun {
		for _, ref := range victims {
			delete(g.Get(ref.From).Edges, ref.To)
		}
	}
	return victims, nil
}

// Merge records one consolidation: the surviving node and the ids it
// absorbed.
type Merge struct {
	Survivor string   `json:"survivor"`
	Absorbed []string `json:"absorbed"`
}

// ConsolidateSimilar clusters nodes transitively connected by pairwise
// similarity >= threshold and merges each cluster into a single survivor.
// Union-find keeps chains collapsing to one node rather than pairwise
// cascades. The survivor is the cluster's most important node (ties break
// toward the most recently accessed); it absorbs every edge of the nodes
// it swallows, and a shared-neighbor edge keeps the higher of the two
// weights (max-of-pair: merged evidence never weakens a connection).
func ConsolidateSimilar(g *Graph, sim SimilarityFunc, threshold float64, dryRun bool, now time.Time) ([]Merge, error) {
	if sim == nil {
		return nil, fmt.Errorf("consolidate: no similarity function: %w", ErrInvalidArgument)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("consolidate: threshold %v: %w", threshold, ErrInvalidArgument)
	}

	ids := make([]string, 0, g.Len())
	for id := range g.Nodes() {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	uf := newUnionFind(ids)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			score := sim(g.Get(ids[i]).Content, g.Get(ids[j]).Content)
			if score < 0 || score > 1 {
				return nil, fmt.Errorf("consolidate: similarity %v out of range: %w", score, ErrInvalidArgument)
			}
			if score >= threshold {
				uf.union(ids[i], ids[j])
			}
		}
	}

	clusters := make(map[string][]string)
	for _, id := range ids {
		root := uf.find(id)
		clusters[root] = append(clusters[root], id)
	}

	var merges []Merge
	for _, members := range clusters {
		if len(members) < 2 {
			continue
		}
		survivor := pickSurvivor(g, members)
		m := Merge{Survivor: survivor}
		for _, id := range members {
			if id != survivor {
				m.Absorbed = append(m.Absorbed, id)
			}
		}
		sort.Strings(m.Absorbed)
		merges = append(merges, m)
	}
	sort.Slice(merges, func(i, j int) bool { return merges[i].Survivor < merges[j].Survivor })

	if dryRun {
		return merges, nil
	}

	for _, m := range merges {
		for _, absorbed := range m.Absorbed {
			mergeNode(g, m.Survivor, absorbed, now)
		}
	}
	return merges, nil
}

// pickSurvivor chooses the cluster member with the highest importance,
// breaking ties toward the most recently accessed, then lowest id.
func pickSurvivor(g *Graph, members []string) string {
	best := members[0]
	for _, id := range members[1:] {
		n, b := g.Get(id).Meta, g.Get(best).Meta
		switch {
		case n.Importance > b.Importance:
			best = id
		case n.Importance == b.Importance && n.LastAccessed.After(b.LastAccessed):
			best = id
		}
	}
	return best
}

// mergeNode folds the absorbed node into the survivor: outgoing and
// incoming edges move over (shared neighbors keep the max weight), tags
// union, access history accumulates, and the absorbed node is deleted.
func mergeNode(g *Graph, survivorID, absorbedID string, now time.Time) {
	survivor := g.Get(survivorID)
	absorbed := g.Get(absorbedID)
	if survivor == nil || absorbed == nil {
		return
	}

	// Outgoing edges of the absorbed node.
	for target, e := range absorbed.Edges {
		if target == survivorID {
			continue
		}
		if existing := survivor.Edges[target]; existing != nil {
			existing.Weight = math.Max(existing.Weight, e.Weight)
			existing.AccessCount += e.AccessCount
		} else {
			survivor.Edges[target] = &Edge{Weight: e.Weight, Type: e.Type, CreatedAt: e.CreatedAt, AccessCount: e.AccessCount}
		}
	}

	// Incoming edges held by other nodes toward the absorbed node.
	for id, other := range g.Nodes() {
		if id == survivorID || id == absorbedID {
			continue
		}
		e := other.Edges[absorbedID]
		if e == nil {
			continue
		}
		if existing := other.Edges[survivorID]; existing != nil {
			existing.Weight = math.Max(existing.Weight, e.Weight)
			existing.AccessCount += e.AccessCount
		} else {
			other.Edges[survivorID] = &Edge{Weight: e.Weight, Type: e.Type, CreatedAt: e.CreatedAt, AccessCount: e.AccessCount}
		}
	}

	for _, tag := range absorbed.Meta.Tags {
		if !survivor.HasTag(tag) {
			survivor.Meta.Tags = append(survivor.Meta.Tags, tag)
		}
	}
	survivor.Meta.AccessCount += absorbed.Meta.AccessCount
	survivor.Meta.Importance = math.Max(survivor.Meta.Importance, absorbed.Meta.Importance)
	if absorbed.Meta.LastAccessed.After(survivor.Meta.LastAccessed) {
		survivor.Meta.LastAccessed = absorbed.Meta.LastAccessed
	}

	g.DeleteNode(absorbedID)
}

// EnforceNodeLimit deletes the lowest-relevance node until the graph holds
// at most maxNodes. Returns the ids removed, lowest relevance first.
func EnforceNodeLimit(g *Graph, d Decay, maxNodes int, now time.Time) ([]string, error) {
	if maxNodes < 0 {
		return nil, fmt.Errorf("enforce limit: max nodes %d: %w", maxNodes, ErrInvalidArgument)
	}
	excess := g.Len() - maxNodes
	if excess <= 0 {
		return nil, nil
	}

	type ranked struct {
		id        string
		relevance float64
	}
	nodes := make([]ranked, 0, g.Len())
	for id, n := range g.Nodes() {
		nodes = append(nodes, ranked{id, d.Relevance(n, now)})
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].relevance != nodes[j].relevance {
			return nodes[i].relevance < nodes[j].relevance
		}
		return nodes[i].id < nodes[j].id
	})

	removed := make([]string, 0, excess)
	for _, r := range nodes[:excess] {
		g.DeleteNode(r.id)
		removed = append(removed, r.id)
	}
	return removed, nil
}

// DefaultPathBoost is the per-edge weight increase applied by ReinforcePaths.
const DefaultPathBoost = 0.05

// ReinforcePaths walks outward from each hub up to depthLimit hops and
// strengthens every edge encountered by boost (clamped at 1.0): structure
// that connects hubs gets richer. Returns the number of edge boosts applied.
func ReinforcePaths(g *Graph, hubIDs []string, depthLimit int, boost float64) (int, error) {
	if depthLimit < 0 {
		return 0, fmt.Errorf("reinforce paths: depth %d: %w", depthLimit, ErrInvalidArgument)
	}
	if boost < 0 || boost > 1 {
		return 0, fmt.Errorf("reinforce paths: boost %v: %w", boost, ErrInvalidArgument)
	}
	if boost == 0 {
		boost = DefaultPathBoost
	}

	boosted := 0
	for _, hub := range hubIDs {
		if g.Get(hub) == nil {
			return boosted, fmt.Errorf("reinforce paths %s: %w", hub, ErrNotFound)
		}
		visited := map[string]bool{hub: true}
		frontier := []string{hub}
		for depth := 0; depth < depthLimit && len(frontier) > 0; depth++ {
			var next []string
			for _, id := range frontier {
				for target, e := range g.Get(id).Edges {
					if g.Get(target) == nil {
						continue
					}
					e.Weight = clamp01(e.Weight + boost)
					boosted++
					if !visited[target] {
						visited[target] = true
						next = append(next, target)
					}
				}
			}
			frontier = next
		}
	}
	return boosted, nil
}

// Recommendation is a suggested maintenance action. Producing one never
// mutates the graph.
type Recommendation struct {
	Action   string `json:"action"`
	Priority string `json:"priority"` // "high", "medium", "low"
	Reason   string `json:"reason"`
}

// Recommendations inspects graph health (size against capacity, the
// share of low-relevance nodes, the share of weak edges) and returns a
// prioritized list of suggested sweeps.
func Recommendations(g *Graph, d Decay, sim SimilarityFunc, now time.Time) []Recommendation {
	var recs []Recommendation
	stats := g.Stats()

	if max := g.Options().MaxNodes; max > 0 {
		usage := float64(stats.NodeCount) / float64(max)
		if usage > 1 {
			recs = append(recs, Recommendation{
				Action:   "enforce_node_limit",
				Priority: "high",
				Reason:   fmt.Sprintf("%d nodes over the %d-node capacity", stats.NodeCount-max, max),
			})
		} else if usage > 0.9 {
			recs = append(recs, Recommendation{
				Action:   "prune_nodes",
				Priority: "medium",
				Reason:   fmt.Sprintf("at %.0f%% of the %d-node capacity", usage*100, max),
			})
		}
	}

	if stats.NodeCount > 0 {
		lowRelevance := 0
		for _, n := range g.Nodes() {
			if d.Relevance(n, now) < 0.2 {
				lowRelevance++
			}
		}
		if share := float64(lowRelevance) / float64(stats.NodeCount); share > 0.3 {
			recs = append(recs, Recommendation{
				Action:   "prune_nodes",
				Priority: "medium",
				Reason:   fmt.Sprintf("%.0f%% of nodes have decayed below 0.2 relevance", share*100),
			})
		}
	}

	if stats.EdgeCount > 0 {
		weak := 0
		for _, n := range g.Nodes() {
			for _, e := range n.Edges {
				if e.Weight < 0.1 {
					weak++
				}
			}
		}
		if share := float64(weak) / float64(stats.EdgeCount); share > 0.4 {
			recs = append(recs, Recommendation{
				Action:   "prune_edges",
				Priority: "low",
				Reason:   fmt.Sprintf("%.0f%% of edges are weaker than 0.1", share*100),
			})
		}
	}

	if sim != nil && stats.NodeCount > 50 {
		recs = append(recs, Recommendation{
			Action:   "consolidate_similar",
			Priority: "low",
			Reason:   fmt.Sprintf("%d nodes with a similarity function configured", stats.NodeCount),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank(recs[i].Priority) < priorityRank(recs[j].Priority)
	})
	return recs
}

func priorityRank(p string) int {
	switch p {
	case "high":
		return 0
	case "medium":
		return 1
	default:
		return 2
	}
}

// MaintenanceOpts controls an AutoMaintenance run.
type MaintenanceOpts struct {
	Aggressive    bool // widen every threshold
	MaxOperations int  // bound on deletions+merges; <=0 means unbounded
}

// MaintenanceReport summarizes one AutoMaintenance run.
type MaintenanceReport struct {
	NodesPruned  int      `json:"nodes_pruned"`
	EdgesPruned  int      `json:"edges_pruned"`
	NodesMerged  int      `json:"nodes_merged"`
	NodesEvicted int      `json:"nodes_evicted"`
	Log          []string `json:"log"`
}

func (r MaintenanceReport) operations() int {
	return r.NodesPruned + r.EdgesPruned + r.NodesMerged + r.NodesEvicted
}

// AutoMaintenance runs the fixed pipeline: prune stale nodes, prune weak
// edges, consolidate similar nodes (when a similarity function is
// configured), then enforce the node limit. Aggressive widens every
// threshold; MaxOperations bounds the total mutation count, stopping the
// pipeline once reached.
func AutoMaintenance(g *Graph, d Decay, sim SimilarityFunc, opts MaintenanceOpts, now time.Time) (MaintenanceReport, error) {
	minRelevance, protectRecent := 0.1, 7*24*time.Hour
	minWeight, minEdgeAccess := 0.1, 5
	simThreshold := 0.9
	if opts.Aggressive {
		minRelevance, protectRecent = 0.2, 24*time.Hour
		minWeight, minEdgeAccess = 0.2, 10
		simThreshold = 0.85
	}

	var report MaintenanceReport
	budget := func() int {
		if opts.MaxOperations <= 0 {
			return int(math.MaxInt32)
		}
		return opts.MaxOperations - report.operations()
	}

	pruned, err := PruneNodes(g, d, PruneNodeOpts{MinRelevance: minRelevance, ProtectRecent: protectRecent, DryRun: true}, now)
	if err != nil {
		return report, err
	}
	if len(pruned) > budget() {
		pruned = pruned[:budget()]
	}
	for _, id := range pruned {
		g.DeleteNode(id)
	}
	report.NodesPruned = len(pruned)
	report.Log = append(report.Log, fmt.Sprintf("pruned %d stale nodes (min relevance %.2f)", len(pruned), minRelevance))

	if budget() > 0 {
		weak, err := PruneEdges(g, PruneEdgeOpts{MinWeight: minWeight, MinAccessCount: minEdgeAccess, DryRun: true})
		if err != nil {
			return report, err
		}
		if len(weak) > budget() {
			weak = weak[:budget()]
		}
		for _, ref := range weak {
			delete(g.Get(ref.From).Edges, ref.To)
		}
		report.EdgesPruned = len(weak)
		report.Log = append(report.Log, fmt.Sprintf("pruned %d weak edges (min weight %.2f)", len(weak), minWeight))
	}

	if sim != nil && budget() > 0 {
		merges, err := ConsolidateSimilar(g, sim, simThreshold, true, now)
		if err != nil {
			return report, err
		}
		for _, m := range merges {
			for _, absorbed := range m.Absorbed {
				if budget() <= 0 {
					break
				}
				mergeNode(g, m.Survivor, absorbed, now)
				report.NodesMerged++
			}
		}
		report.Log = append(report.Log, fmt.Sprintf("merged %d similar nodes (threshold %.2f)", report.NodesMerged, simThreshold))
	}

	if max := g.Options().MaxNodes; max > 0 && budget() > 0 {
		excess := g.Len() - max
		if excess > budget() {
			excess = budget()
		}
		if excess > 0 {
			evicted, err := EnforceNodeLimit(g, d, g.Len()-excess, now)
			if err != nil {
				return report, err
			}
			report.NodesEvicted = len(evicted)
		}
		report.Log = append(report.Log, fmt.Sprintf("evicted %d nodes to respect the %d-node limit", report.NodesEvicted, max))
	}

	if total := report.operations(); total > 0 {
		log.Printf("maintain: %d operations (%d nodes pruned, %d edges pruned, %d merged, %d evicted)",
			total, report.NodesPruned, report.EdgesPruned, report.NodesMerged, report.NodesEvicted)
	}
	return report, nil
}

// unionFind is a plain union-find over string ids with path compression.
type unionFind struct {
	parent map[string]string
}

func newUnionFind(ids []string) *unionFind {
	uf := &unionFind{parent: make(map[string]string, len(ids))}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

func (uf *unionFind) find(id string) string {
	for uf.parent[id] != id {
		uf.parent[id] = uf.parent[uf.parent[id]]
		id = uf.parent[id]
	}
	return id
}

func (uf *unionFind) union(a, b string) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[rb] = ra
	}
}
