package arena

import (
	"sync/atomic"

	"github.com/polysearch/mcts/internal/sim"
	"github.com/polysearch/mcts/internal/stats"
)

// Index is a compact integer handle into an Arena's node slice. It replaces
// the raw pointers of the system this was distilled from (spec.md §9:
// "use an arena with compact integer indices").
type Index int32

// NilIndex is the "no node" sentinel, mirroring the teacher's
// (github.com/alphabeth) mcts/naughty.go nilNode.
const NilIndex Index = -1

// Valid reports whether idx addresses a real node.
func (idx Index) Valid() bool { return idx >= 0 }

// Node is the (state, incoming-move) pair of spec.md §3. Once Arena.Expand
// has published a node's children, firstChild/childCount are immutable for the lifetime of the
// tree instance; readers must load ChildCount with an atomic Load (acquire
// semantics are implied by Go's sequentially consistent atomics) before
// trusting FirstChild.
type Node struct {
	Move sim.MoveID

	// firstChild is published by childCount: write firstChild, THEN
	// atomically store childCount. Readers atomically load childCount
	// first; if non-zero, the plain read of firstChild that follows is
	// guaranteed to observe the write that preceded the publishing store
	// (spec.md §5, §9: "the parent's child-count field is the publication
	// atomic").
	firstChild int32
	childCount atomic.Int32

	Stat stats.Stat         // visit count + value mean, from the parent's to-move perspective
	Rave stats.WeightedStat // RAVE count + RAVE value

	Hint float32 // domain-provided initialization hint (spec.md §3)
}

// reset clears a node back to its zero state, used when a slot is
// reinitialized by Clear (root) — never for an in-use node, since nodes are
// never freed individually (spec.md §3: "no node is ever freed
// individually").
func (n *Node) reset() {
	n.Move = sim.NullMove
	n.firstChild = 0
	n.childCount.Store(0)
	n.Stat.Reset()
	n.Rave.Reset()
	n.Hint = 0
}

// Children returns the child range as (first, count), or (NilIndex, 0, false)
// if no children have been published yet. Safe for concurrent use with
// Arena.Expand on the same or other nodes.
func (n *Node) Children() (first Index, count int32, ok bool) {
	c := n.childCount.Load()
	if c == 0 {
		return NilIndex, 0, false
	}
	return Index(n.firstChild), c, true
}

// ChildCount is a cheap acquire-load of the published child count, without
// requiring the caller to also want the first-child index.
func (n *Node) ChildCount() int32 { return n.childCount.Load() }
