package graph

// Recall algorithms. All traversals are stateless reads over a Graph,
// bounded by explicit depth/result limits so every call has a
// deterministic worst-case visit count.

import (
	"fmt"
	"sort"
	"time"
)

// DefaultDecayFactor is the per-hop activation attenuation used when the
// caller does not supply one.
const DefaultDecayFactor = 0.7

// ActivationOpts controls a spreading-activation traversal.
type ActivationOpts struct {
	MaxDepth      int     // hops from the start node; 0 yields no results
	DecayFactor   float64 // per-hop attenuation in (0, 1] (default 0.7)
	MinActivation float64 // expansion halts below this activation
	MaxResults    int     // truncate the ranked list; <=0 means unlimited
}

func (o ActivationOpts) decayFactor() float64 {
	if o.DecayFactor <= 0 {
		return DefaultDecayFactor
	}
	return o.DecayFactor
}

// ActivationResult is one recalled node with its activation score.
type ActivationResult struct {
	Node       *Node   `json:"node"`
	Activation float64 `json:"activation"`
}

// SpreadingActivation is the base recall primitive. Activation starts at
// 1.0 on the start node (excluded from output) and propagates per hop as
// parentActivation * edgeWeight * decayFactor. A node reachable via
// multiple paths keeps the maximum activation over all paths, never the
// sum, which bounds accumulation in cyclic graphs. The sweep is strictly
// depth-bounded, so cycles terminate even at decay 1.0.
func SpreadingActivation(g *Graph, startID string, opts ActivationOpts) ([]ActivationResult, error) {
	if opts.MaxDepth < 0 {
		return nil, fmt.Errorf("spreading activation: max depth %d: %w", opts.MaxDepth, ErrInvalidArgument)
	}
	// A factor above 1 would amplify activation per hop instead of
	// attenuating it, growing without bound on deep or cyclic graphs.
	if opts.DecayFactor > 1 {
		return nil, fmt.Errorf("spreading activation: decay factor %v: %w", opts.DecayFactor, ErrInvalidArgument)
	}
	start := g.Get(startID)
	if start == nil {
		return nil, fmt.Errorf("spreading activation %s: %w", startID, ErrNotFound)
	}
	if opts.MaxDepth == 0 {
		return nil, nil
	}
	decay := opts.decayFactor()

	// Level-synchronous sweep: level[id] holds the best activation of any
	// path of exactly `depth` hops ending at id; best[id] keeps the max
	// over all path lengths seen so far.
	best := map[string]float64{startID: 1.0}
	level := map[string]float64{startID: 1.0}

	for depth := 0; depth < opts.MaxDepth && len(level) > 0; depth++ {
		next := make(map[string]float64)
		for id, act := range level {
			for target, e := range g.Get(id).Edges {
				if g.Get(target) == nil {
					continue
				}
				a := act * e.Weight * decay
				if a <= 0 || a < opts.MinActivation {
					continue
				}
				if a > next[target] {
					next[target] = a
				}
			}
		}
		for id, a := range next {
			if a > best[id] {
				best[id] = a
			}
		}
		level = next
	}

	results := make([]ActivationResult, 0, len(best)-1)
	for id, a := range best {
		if id == startID {
			continue
		}
		results = append(results, ActivationResult{Node: g.Get(id), Activation: a})
	}
	sortActivations(results)
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results, nil
}

// FindPath returns the shortest unweighted hop-path from start to end as
// an ordered id list, or nil if end is unreachable within maxDepth hops.
// FindPath(x, x) is [x].
func FindPath(g *Graph, start, end string, maxDepth int) ([]string, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("find path: max depth %d: %w", maxDepth, ErrInvalidArgument)
	}
	if g.Get(start) == nil {
		return nil, fmt.Errorf("find path %s: %w", start, ErrNotFound)
	}
	if g.Get(end) == nil {
		return nil, fmt.Errorf("find path %s: %w", end, ErrNotFound)
	}
	if start == end {
		return []string{start}, nil
	}

	parent := map[string]string{start: ""}
	frontier := []string{start}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for target := range g.Get(id).Edges {
				if _, seen := parent[target]; seen || g.Get(target) == nil {
					continue
				}
				parent[target] = id
				if target == end {
					return tracePath(parent, start, end), nil
				}
				next = append(next, target)
			}
		}
		frontier = next
	}
	return nil, nil
}

func tracePath(parent map[string]string, start, end string) []string {
	var rev []string
	for id := end; id != ""; id = parent[id] {
		rev = append(rev, id)
		if id == start {
			break
		}
	}
	path := make([]string, len(rev))
	for i, id := range rev {
		path[len(rev)-1-i] = id
	}
	return path
}

// NeighborhoodResult annotates a node with its exact shortest-hop distance
// from the start node.
type NeighborhoodResult struct {
	Node     *Node `json:"node"`
	Distance int   `json:"distance"`
}

// Neighborhood returns every node within k unweighted hops of start,
// including the start node itself at distance 0, ordered by distance.
func Neighborhood(g *Graph, startID string, k int) ([]NeighborhoodResult, error) {
	if k < 0 {
		return nil, fmt.Errorf("neighborhood: radius %d: %w", k, ErrInvalidArgument)
	}
	if g.Get(startID) == nil {
		return nil, fmt.Errorf("neighborhood %s: %w", startID, ErrNotFound)
	}

	dist := map[string]int{startID: 0}
	frontier := []string{startID}
	for d := 0; d < k && len(frontier) > 0; d++ {
		var next []string
		for _, id := range frontier {
			for target := range g.Get(id).Edges {
				if _, seen := dist[target]; seen || g.Get(target) == nil {
					continue
				}
				dist[target] = d + 1
				next = append(next, target)
			}
		}
		frontier = next
	}

	results := make([]NeighborhoodResult, 0, len(dist))
	for id, d := range dist {
		results = append(results, NeighborhoodResult{Node: g.Get(id), Distance: d})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Node.ID < results[j].Node.ID
	})
	return results, nil
}

// HubResult is a node ranked by its outgoing connectivity.
type HubResult struct {
	Node           *Node   `json:"node"`
	Degree         int     `json:"degree"`
	WeightedDegree float64 `json:"weighted_degree"`
}

// Hubs returns the top nodes by weighted out-degree (sum of outgoing edge
// weights). limit <= 0 returns all nodes ranked.
func Hubs(g *Graph, limit int) []HubResult {
	results := make([]HubResult, 0, g.Len())
	for _, n := range g.Nodes() {
		var weighted float64
		for _, e := range n.Edges {
			weighted += e.Weight
		}
		results = append(results, HubResult{Node: n, Degree: len(n.Edges), WeightedDegree: weighted})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].WeightedDegree != results[j].WeightedDegree {
			return results[i].WeightedDegree > results[j].WeightedDegree
		}
		return results[i].Node.ID < results[j].Node.ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// TemporalOpts controls a temporal recall: activation blended with
// time-decayed relevance.
type TemporalOpts struct {
	ActivationOpts
	TemporalWeight float64 // share of the score taken by recency, in [0,1]
}

// TemporalRecall runs spreading activation and re-ranks results by
// blending activation with each node's time-decayed relevance:
// activation*(1-w) + relevance*w.
func TemporalRecall(g *Graph, d Decay, startID string, opts TemporalOpts, now time.Time) ([]ActivationResult, error) {
	if opts.TemporalWeight < 0 || opts.TemporalWeight > 1 {
		return nil, fmt.Errorf("temporal recall: weight %v: %w", opts.TemporalWeight, ErrInvalidArgument)
	}

	inner := opts.ActivationOpts
	inner.MaxResults = 0 // re-rank before truncating
	results, err := SpreadingActivation(g, startID, inner)
	if err != nil {
		return nil, err
	}

	w := opts.TemporalWeight
	for i := range results {
		relevance := d.Relevance(results[i].Node, now)
		results[i].Activation = results[i].Activation*(1-w) + relevance*w
	}
	sortActivations(results)
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results, nil
}

// ContextualRecall runs spreading activation independently for each cue
// and sums per-node activation across cues, so nodes connected to several
// cues rank above nodes connected to one. Cue nodes themselves are
// excluded from the output.
func ContextualRecall(g *Graph, cueIDs []string, opts ActivationOpts) ([]ActivationResult, error) {
	if len(cueIDs) == 0 {
		return nil, fmt.Errorf("contextual recall: no cues: %w", ErrInvalidArgument)
	}

	cues := make(map[string]bool, len(cueIDs))
	for _, id := range cueIDs {
		cues[id] = true
	}

	inner := opts
	inner.MaxResults = 0
	combined := make(map[string]float64)
	for _, cue := range cueIDs {
		results, err := SpreadingActivation(g, cue, inner)
		if err != nil {
			return nil, fmt.Errorf("cue %s: %w", cue, err)
		}
		for _, r := range results {
			if cues[r.Node.ID] {
				continue
			}
			combined[r.Node.ID] += r.Activation
		}
	}

	results := make([]ActivationResult, 0, len(combined))
	for id, a := range combined {
		results = append(results, ActivationResult{Node: g.Get(id), Activation: a})
	}
	sortActivations(results)
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results, nil
}

// sortActivations orders by activation descending, then id for stability.
func sortActivations(results []ActivationResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Activation != results[j].Activation {
			return results[i].Activation > results[j].Activation
		}
		return results[i].Node.ID < results[j].Node.ID
	})
}
