package graph

import (
	"time"
)

// DefaultImportance is assigned when a caller does not supply an importance.
const DefaultImportance = 0.5

// Metadata is the typed core of a node's metadata. Integrator-specific
// fields go in Extra rather than loose keys on the node itself.
type Metadata struct {
	Timestamp    time.Time         `json:"timestamp"`
	LastAccessed time.Time         `json:"last_accessed"`
	AccessCount  int               `json:"access_count"`
	Importance   float64           `json:"importance"`
	Type         string            `json:"type,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	ReviewCount  int               `json:"review_count"`
	DecayedAt    time.Time         `json:"decayed_at,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Edge is an outgoing weighted, typed connection to another node.
// Edges are keyed by target id in the owning node's edge map, so cycles
// are plain data: an edge is a relation plus a lookup, never a pointer.
type Edge struct {
	Weight      float64   `json:"weight"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
	AccessCount int       `json:"access_count"`
}

// Node is the atomic memory unit: opaque content, metadata, and outgoing
// edges keyed by target node id.
type Node struct {
	ID      string           `json:"id"`
	Content string           `json:"content"`
	Meta    Metadata         `json:"meta"`
	Edges   map[string]*Edge `json:"edges,omitempty"`
}

// touch records an access: bumps the access count and access timestamp.
func (n *Node) touch(now time.Time) {
	n.Meta.LastAccessed = now
	n.Meta.AccessCount++
}

// HasTag reports whether the node carries the given tag.
func (n *Node) HasTag(tag string) bool {
	for _, t := range n.Meta.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// decayRef returns the reference time for decay: the later of the last
// access and the last decay sweep, so reapplying decay at the same
// instant is a no-op.
func (n *Node) decayRef() time.Time {
	if n.Meta.DecayedAt.After(n.Meta.LastAccessed) {
		return n.Meta.DecayedAt
	}
	return n.Meta.LastAccessed
}

// clamp01 bounds v to [0, 1]. Importance and edge weights always pass
// through here before being stored.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
