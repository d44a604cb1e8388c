// Package arena implements the concurrency-safe node arena and tree of
// spec.md §3/§4.1: a bounded, pre-allocated slice of Node, a monotonic
// atomic bump allocator, release/acquire child-linkage publication, and the
// reuse/pruning operations (copy_subtree, extract_subtree, find_node).
//
// Grounded on the teacher's (github.com/alphabeth) mcts/tree.go (alloc,
// free, cleanup, cleanChildren — generalized from a mutex-protected
// freelist/parallel-children-slice design to index-range children and a
// lock-free bump allocator, since spec.md §5 specifically requires atomic
// fetch-add allocation and release/acquire publication rather than a
// mutex-protected arena) and mcts/node.go (AddChild, countChildren,
// findChild).
package arena

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/polysearch/mcts/internal/sim"
)

// ErrOutOfMemory is returned by Expand when the arena has no room for the
// requested contiguous range of child slots (spec.md §4.1, §7).
var ErrOutOfMemory = errors.New("arena: out of memory")

// Arena is a fixed-capacity, pre-allocated pool of nodes. Allocation is a
// single atomic fetch-add on next; nodes are never freed individually.
type Arena struct {
	nodes []Node
	next  atomic.Int32 // monotonic bump allocator; next node index to hand out
	cap   int32
}

// New allocates an Arena with room for capacity nodes. capacity should be
// derived from the search's memory budget as N = memory / (2*sizeof(Node))
// per spec.md §3 (the caller is expected to build two Arenas of this size
// for the live/scratch pair; see Tree).
func New(capacity int) *Arena {
	if capacity < 1 {
		capacity = 1
	}
	return &Arena{
		nodes: make([]Node, capacity),
		cap:   int32(capacity),
	}
}

// Cap returns the arena's fixed capacity.
func (a *Arena) Cap() int32 { return a.cap }

// Len returns the number of slots currently allocated (including any
// in-flight allocation that has reserved but not yet published its range).
func (a *Arena) Len() int32 {
	n := a.next.Load()
	if n > a.cap {
		return a.cap
	}
	return n
}

// Node returns a pointer to the node at idx. The caller must ensure idx was
// returned by a prior allocation on this Arena (root index 0, or a child
// range from Expand/Children).
func (a *Arena) Node(idx Index) *Node {
	return &a.nodes[idx]
}

// Clear resets the arena to hold just the root (index 0), initialized with
// rootTieValue as its starting value estimate (spec.md §4.1: "reset the
// free pointer to one past root, initialize the root to default statistics
// with the given tie-value initialization").
func (a *Arena) Clear(rootTieValue float32) {
	for i := range a.nodes {
		a.nodes[i].reset()
	}
	a.next.Store(1)
	root := &a.nodes[0]
	root.Move = sim.NullMove
	root.Stat.Add(rootTieValue)
}

// alloc reserves a contiguous range of k slots, returning the first index,
// or ErrOutOfMemory if the arena cannot satisfy the request. This is the
// sole lock-free allocation primitive; it never blocks.
func (a *Arena) alloc(k int32) (Index, error) {
	if k <= 0 {
		return NilIndex, errors.New("arena: non-positive child count")
	}
	first := a.next.Add(k) - k
	if first+k > a.cap {
		return NilIndex, ErrOutOfMemory
	}
	return Index(first), nil
}

// Expand atomically allocates len(descriptors) contiguous slots, writes
// each child slot fully, and publishes the range on parent with a release
// store on the child count (spec.md §4.1, §5, §9). On ErrOutOfMemory the
// parent is left unlinked (no partial publication ever occurs: the
// allocation either fully succeeds before any slot is touched, or fails
// before any slot is touched).
func (a *Arena) Expand(parent Index, descriptors []sim.ChildDescriptor) (Index, error) {
	if len(descriptors) == 0 {
		return NilIndex, errors.New("arena: no children to expand")
	}
	first, err := a.alloc(int32(len(descriptors)))
	if err != nil {
		return NilIndex, err
	}
	for i, d := range descriptors {
		child := &a.nodes[int(first)+i]
		child.Move = d.Move
		for n := float32(0); n < d.InitCount; n++ {
			child.Stat.Add(d.InitValue)
		}
		child.Hint = d.InitValue
	}
	p := a.Node(parent)
	p.firstChild = int32(first)             // plain write, happens-before the publish below
	p.childCount.Store(int32(len(descriptors))) // release: publishes firstChild + the fully-initialized children
	return first, nil
}

// AbortFunc is polled periodically during potentially-long tree walks
// (copy/extract); returning true cuts the walk short, leaving a partial
// but internally-consistent result in the destination arena (spec.md
// §4.1: "Returns false (aborted) if the abort predicate fires before
// completion; partial result is retained in dst").
type AbortFunc func() bool

// CopySubtree deep-copies, from src starting at srcRoot, every node
// reachable via children whose visit count is >= minCount, allocating into
// dst in BFS order. It returns the new root index in dst and whether the
// copy completed (false if abort fired first). Any previous contents of dst
// are discarded: allocation in dst restarts at index 0, so the copied root
// is always Root.
func CopySubtree(dst *Arena, src *Arena, srcRoot Index, minCount int64, abort AbortFunc) (Index, bool) {
	dst.next.Store(0)
	dstRoot, err := dst.alloc(1)
	if err != nil {
		return NilIndex, false
	}
	*dst.Node(dstRoot) = *src.Node(srcRoot)
	dst.Node(dstRoot).childCount.Store(0)

	type pending struct{ srcIdx, dstIdx Index }
	queue := []pending{{srcRoot, dstRoot}}

	for len(queue) > 0 {
		if abort != nil && abort() {
			return dstRoot, false
		}
		cur := queue[0]
		queue = queue[1:]

		first, count, ok := src.Node(cur.srcIdx).Children()
		if !ok {
			continue
		}

		var keep []int32
		for i := int32(0); i < count; i++ {
			childSrc := src.Node(Index(int32(first) + i))
			if childSrc.Stat.Count() >= minCount {
				keep = append(keep, int32(first)+i)
			}
		}
		if len(keep) == 0 {
			continue
		}

		dstFirst, err := dst.alloc(int32(len(keep)))
		if err != nil {
			return dstRoot, false
		}
		for i, srcChildIdx := range keep {
			dstChildIdx := Index(int32(dstFirst) + int32(i))
			*dst.Node(dstChildIdx) = *src.Node(Index(srcChildIdx))
			dst.Node(dstChildIdx).childCount.Store(0)
			queue = append(queue, pending{Index(srcChildIdx), dstChildIdx})
		}
		dstParent := dst.Node(cur.dstIdx)
		dstParent.firstChild = int32(dstFirst)
		dstParent.childCount.Store(int32(len(keep)))
	}
	return dstRoot, true
}

// ExtractSubtree deep-copies src's subtree rooted at an arbitrary node
// srcNode into dst, with no minimum-count filter (equivalent to
// CopySubtree with minCount 0). Used for reuse along a follow-up move
// sequence (spec.md §4.1, §4.2 step 1).
func ExtractSubtree(dst *Arena, src *Arena, srcNode Index, abort AbortFunc) (Index, bool) {
	return CopySubtree(dst, src, srcNode, 0, abort)
}

// FindNode follows the listed moves from root, returning the matching
// descendant, or (NilIndex, false) if the sequence is not present in the
// arena. Children are visited in allocation order (the stable tie-break
// spec.md §4.1 specifies), so the first child with a matching move wins.
func FindNode(a *Arena, root Index, moves []sim.MoveID) (Index, bool) {
	cur := root
	for _, mv := range moves {
		first, count, ok := a.Node(cur).Children()
		if !ok {
			return NilIndex, false
		}
		found := NilIndex
		for i := int32(0); i < count; i++ {
			idx := Index(int32(first) + i)
			if a.Node(idx).Move == mv {
				found = idx
				break
			}
		}
		if !found.Valid() {
			return NilIndex, false
		}
		cur = found
	}
	return cur, true
}
