package arena

// Tree owns the live/scratch arena pair of spec.md §3 ("two such arenas
// exist so that one can be the live tree and the other the scratch buffer
// for subtree extraction/pruning"). Root is always slot 0 of the live
// arena.
type Tree struct {
	live, scratch *Arena
}

// NewTree builds a Tree with two arenas of the given per-arena capacity
// (the caller derives capacity from the memory budget as
// N = memory / (2*sizeof(Node)), so the pair together fits the budget).
func NewTree(capacityPerArena int) *Tree {
	return &Tree{
		live:    New(capacityPerArena),
		scratch: New(capacityPerArena),
	}
}

// Root is always index 0 of the live arena.
const Root Index = 0

// Live returns the currently-live arena.
func (t *Tree) Live() *Arena { return t.live }

// Scratch returns the currently-scratch arena (valid to write into freely;
// it holds no live data between reuse/prune operations).
func (t *Tree) Scratch() *Arena { return t.scratch }

// Swap exchanges the live and scratch arenas. Callers use this after
// copying a new tree into scratch (via CopySubtree/ExtractSubtree) to make
// it live; the previous live arena becomes the new scratch, to be
// overwritten by the next such operation (spec.md §3: "the previous live
// arena becomes scratch and is overwritten on the next such operation").
func (t *Tree) Swap() {
	t.live, t.scratch = t.scratch, t.live
}

// Clear resets the live arena to hold just the root, per Arena.Clear.
func (t *Tree) Clear(rootTieValue float32) {
	t.live.Clear(rootTieValue)
}

// Reuse extracts the subtree rooted at srcNode (found in the live arena)
// into the scratch arena and swaps it in as the new live tree. It reports
// whether the extraction completed; on partial completion (abort fired)
// the scratch arena still holds a valid, if incomplete, tree rooted at
// Root once swapped in — callers decide, per spec.md §4.2's
// REUSE_ABORTED/always_search handling, whether to proceed with it.
func (t *Tree) Reuse(srcNode Index, abort AbortFunc) bool {
	newRoot, complete := ExtractSubtree(t.scratch, t.live, srcNode, abort)
	_ = newRoot // always Root (0) by construction of ExtractSubtree/CopySubtree
	t.Swap()
	return complete
}

// Prune copies every descendant of Root whose visit count is >= minCount
// into the scratch arena and swaps it in. Reports whether the prune
// completed without an abort.
func (t *Tree) Prune(minCount int64, abort AbortFunc) bool {
	_, complete := CopySubtree(t.scratch, t.live, Root, minCount, abort)
	t.Swap()
	return complete
}

// RetainedFraction returns the fraction of previously-live nodes retained
// by the most recent Prune/Reuse call (live arena's Len over the arena
// capacity), used by the controller's pruning-threshold adaptation
// (spec.md §4.2 step 6).
func (t *Tree) RetainedFraction() float32 {
	return float32(t.live.Len()) / float32(t.live.Cap())
}
