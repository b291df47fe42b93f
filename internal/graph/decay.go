package graph

// Temporal decay and spaced-repetition scheduling.
//
//   - Importance decays from the last access, floored so memories are
//     never fully forgotten. Default is a 90-day half-life.
//   - Each node carries a DecayedAt watermark; a sweep decays only the
//     elapsed time since the later of last access and last sweep, so
//     reapplying decay at the same instant is a no-op.
//   - Edge weights decay from the more recent of the two endpoints'
//     reference times, with their own floor.
//   - Review intervals grow geometrically with ReviewCount.

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Curve selects a decay family. Every curve returns exactly 1.0 at age
// zero and decreases toward 0 with age.
type Curve string

const (
	CurveExponential Curve = "exponential" // e^(-rate*age)
	CurveLinear      Curve = "linear"      // max(0, 1-rate*age)
	CurvePower       Curve = "power"       // 1/(1+rate*age)^p
	CurveLogarithmic Curve = "logarithmic" // 1/(1+rate*log(1+age))
)

// Decay holds the decay and review-scheduling configuration. The zero
// value is not useful; start from DefaultDecay.
type Decay struct {
	Curve           Curve
	Rate            float64 // per day of age
	Power           float64 // exponent for CurvePower
	ImportanceFloor float64 // importance never decays below this
	EdgeFloor       float64 // edge weight never decays below this
	PrimingFactor   float64 // share of a rehearsal boost passed to neighbors

	ReviewBase   time.Duration // first review interval
	ReviewGrowth float64       // interval multiplier per completed review
	ReviewMax    time.Duration // interval ceiling

	AtRiskMinAccess int // access count that marks a node as having been useful
}

// DefaultDecay returns the standard configuration: exponential decay with
// a 90-day half-life, floors at 0.05/0.02, and review intervals starting
// at one day and growing 2x per review up to 180 days.
func DefaultDecay() Decay {
	return Decay{
		Curve:           CurveExponential,
		Rate:            math.Ln2 / 90, // half-life of 90 days
		Power:           1,
		ImportanceFloor: 0.05,
		EdgeFloor:       0.02,
		PrimingFactor:   0.25,
		ReviewBase:      24 * time.Hour,
		ReviewGrowth:    2.0,
		ReviewMax:       180 * 24 * time.Hour,
		AtRiskMinAccess: 3,
	}
}

// Factor returns the decay multiplier for the given age: 1.0 at age <= 0,
// strictly decreasing toward 0 as age grows.
func (d Decay) Factor(age time.Duration) float64 {
	if age <= 0 {
		return 1.0
	}
	days := age.Hours() / 24
	switch d.Curve {
	case CurveLinear:
		return math.Max(0, 1-d.Rate*days)
	case CurvePower:
		p := d.Power
		if p <= 0 {
			p = 1
		}
		return 1 / math.Pow(1+d.Rate*days, p)
	case CurveLogarithmic:
		return 1 / (1 + d.Rate*math.Log(1+days))
	default: // CurveExponential
		return math.Exp(-d.Rate * days)
	}
}

// Relevance is a node's time-decayed importance at the given instant.
// Distinct from the stored importance, which only changes on sweeps.
func (d Decay) Relevance(n *Node, now time.Time) float64 {
	return n.Meta.Importance * d.Factor(ageSince(n.decayRef(), now))
}

// Apply runs one decay sweep over the whole graph: every node's stored
// importance is multiplied by its decay factor (floored), and every edge
// weight decays from the more recent endpoint reference time (with its
// own floor). Returns the number of nodes and edges changed.
func (d Decay) Apply(g *Graph, now time.Time) (nodesChanged, edgesChanged int) {
	// Snapshot reference times before mutating, so edge ages are computed
	// against pre-sweep state regardless of iteration order.
	refs := make(map[string]time.Time, g.Len())
	for id, n := range g.Nodes() {
		refs[id] = n.decayRef()
	}

	for id, n := range g.Nodes() {
		factor := d.Factor(ageSince(refs[id], now))
		if factor < 1 {
			decayed := math.Max(n.Meta.Importance*factor, d.ImportanceFloor)
			if decayed < n.Meta.Importance {
				n.Meta.Importance = decayed
				nodesChanged++
			}
		}
		n.Meta.DecayedAt = now

		for target, e := range n.Edges {
			ref := refs[id]
			if tr, ok := refs[target]; ok && tr.After(ref) {
				ref = tr
			}
			factor := d.Factor(ageSince(ref, now))
			if factor >= 1 {
				continue
			}
			decayed := math.Max(e.Weight*factor, d.EdgeFloor)
			if decayed < e.Weight {
				e.Weight = decayed
				edgesChanged++
			}
		}
	}
	return nodesChanged, edgesChanged
}

// Rehearse boosts a node's importance by boost (clamped at 1.0), marks it
// accessed and reviewed, and applies a smaller priming boost to every
// directly connected neighbor.
func (d Decay) Rehearse(g *Graph, id string, boost float64, now time.Time) error {
	if boost < 0 || boost > 1 {
		return fmt.Errorf("rehearse: boost %v: %w", boost, ErrInvalidArgument)
	}
	n := g.Get(id)
	if n == nil {
		return fmt.Errorf("rehearse %s: %w", id, ErrNotFound)
	}

	n.Meta.Importance = clamp01(n.Meta.Importance + boost)
	n.touch(now)
	n.Meta.ReviewCount++

	priming := boost * d.PrimingFactor
	for target := range n.Edges {
		if neighbor := g.Get(target); neighbor != nil {
			neighbor.Meta.Importance = clamp01(neighbor.Meta.Importance + priming)
		}
	}
	return nil
}

// AtRisk pairs a fading node with its current relevance.
type AtRisk struct {
	Node      *Node   `json:"node"`
	Relevance float64 `json:"relevance"`
}

// AtRiskNodes returns nodes whose decayed relevance has fallen below
// threshold but whose access history shows they were useful: fading
// candidates worth rehearsing before a prune sweep claims them.
func (d Decay) AtRiskNodes(g *Graph, threshold float64, now time.Time) []AtRisk {
	var out []AtRisk
	for _, n := range g.Nodes() {
		if n.Meta.AccessCount < d.AtRiskMinAccess {
			continue
		}
		rel := d.Relevance(n, now)
		if rel < threshold {
			out = append(out, AtRisk{Node: n, Relevance: rel})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance < out[j].Relevance
		}
		return out[i].Node.ID < out[j].Node.ID
	})
	return out
}

// RetentionRate returns the fraction of nodes accessed within the window
// ending at now. An empty graph retains nothing.
func (d Decay) RetentionRate(g *Graph, window time.Duration, now time.Time) float64 {
	if g.Len() == 0 {
		return 0
	}
	retained := 0
	for _, n := range g.Nodes() {
		if ageSince(n.Meta.LastAccessed, now) <= window {
			retained++
		}
	}
	return float64(retained) / float64(g.Len())
}

// reviewInterval grows geometrically with the completed review count,
// capped at ReviewMax. Always positive, so the next review is strictly
// after the last access.
func (d Decay) reviewInterval(reviewCount int) time.Duration {
	interval := float64(d.ReviewBase)
	for i := 0; i < reviewCount; i++ {
		interval *= d.ReviewGrowth
		if time.Duration(interval) >= d.ReviewMax {
			return d.ReviewMax
		}
	}
	if time.Duration(interval) > d.ReviewMax {
		return d.ReviewMax
	}
	return time.Duration(interval)
}

// NextReviewTime returns the spaced-repetition due time for a node.
func (d Decay) NextReviewTime(g *Graph, id string) (time.Time, error) {
	n := g.Get(id)
	if n == nil {
		return time.Time{}, fmt.Errorf("next review %s: %w", id, ErrNotFound)
	}
	return n.Meta.LastAccessed.Add(d.reviewInterval(n.Meta.ReviewCount)), nil
}

// DueReview is a node whose review time has passed, with how overdue it is.
type DueReview struct {
	Node    *Node         `json:"node"`
	Due     time.Time     `json:"due"`
	Overdue time.Duration `json:"overdue"`
}

// DueForReview returns all nodes whose next review time has passed,
// most-overdue first.
func (d Decay) DueForReview(g *Graph, now time.Time) []DueReview {
	var due []DueReview
	for _, n := range g.Nodes() {
		at := n.Meta.LastAccessed.Add(d.reviewInterval(n.Meta.ReviewCount))
		if at.Before(now) {
			due = append(due, DueReview{Node: n, Due: at, Overdue: now.Sub(at)})
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].Overdue != due[j].Overdue {
			return due[i].Overdue > due[j].Overdue
		}
		return due[i].Node.ID < due[j].Node.ID
	})
	return due
}

// ageSince returns the non-negative elapsed time from t to now.
func ageSince(t, now time.Time) time.Duration {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return d
}
