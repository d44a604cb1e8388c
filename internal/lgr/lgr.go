// Package lgr implements the Last-Good-Reply table (spec.md §3, §4.3): for
// each player, a mapping from (last opponent move, second-to-last move) to
// a candidate reply move, kept at two "plies" (1-ply: keyed only on the
// immediate predecessor; 2-ply: keyed on the pair). A win stores the
// winner's reply; a loss forgets it — it is never overwritten by a losing
// reply.
//
// No example repo in the corpus implements this heuristic (it is specific
// to the family of game engines spec.md distills), so the table is built
// directly from the algorithm description in spec.md §3/§4.3, using the
// small map-behind-a-mutex shape the teacher (github.com/alphabeth) uses
// elsewhere for its shared mutable state (mcts/tree.go's
// sync.RWMutex-guarded MCTS struct).
package lgr

import (
	"sync"

	"github.com/polysearch/mcts/internal/sim"
)

// key1 is a 1-ply reply key: the immediate predecessor move.
type key1 struct {
	player sim.Player
	m1     sim.MoveID
}

// key2 is a 2-ply reply key: the immediate and second-to-last predecessor.
type key2 struct {
	player sim.Player
	m1, m2 sim.MoveID
}

// Table is safe for concurrent Update/Reply calls; lost updates under race
// are acceptable (spec.md §5: "the reply table is updated without locks...
// given its heuristic nature" — here the table uses a narrow mutex instead
// of true lock-freedom, since map writes in Go cannot be made lock-free,
// but the mutex is held only for the duration of a single map write/read,
// preserving the "no blocking on the per-iteration hot path beyond a
// negligible critical section" intent).
type Table struct {
	mu   sync.RWMutex
	ply1 map[key1]sim.MoveID
	ply2 map[key2]sim.MoveID
}

// New creates an empty reply table.
func New() *Table {
	return &Table{
		ply1: make(map[key1]sim.MoveID),
		ply2: make(map[key2]sim.MoveID),
	}
}

// Reply1 returns the stored 1-ply reply for player p to move m1, if any.
func (t *Table) Reply1(p sim.Player, m1 sim.MoveID) (sim.MoveID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	mv, ok := t.ply1[key1{p, m1}]
	return mv, ok
}

// Reply2 returns the stored 2-ply reply for player p to the move pair
// (m1, m2), if any.
func (t *Table) Reply2(p sim.Player, m1, m2 sim.MoveID) (sim.MoveID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	mv, ok := t.ply2[key2{p, m1, m2}]
	return mv, ok
}

// Update records the outcome of a simulation for player p having played
// `reply` immediately after (m1, m2) [m2 may be sim.NullMove if there was
// no second-to-last move]. If won is true, the first stored reply for this
// key wins (subsequent Update calls with won=true do not overwrite it). If
// won is false, any existing reply for this key is forgotten.
func (t *Table) Update(p sim.Player, m1, m2, reply sim.MoveID, won bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k1 := key1{p, m1}
	if won {
		if _, ok := t.ply1[k1]; !ok {
			t.ply1[k1] = reply
		}
	} else {
		delete(t.ply1, k1)
	}
	if m2 == sim.NullMove {
		return
	}
	k2 := key2{p, m1, m2}
	if won {
		if _, ok := t.ply2[k2]; !ok {
			t.ply2[k2] = reply
		}
	} else {
		delete(t.ply2, k2)
	}
}

// Clear empties the table; used when search parameters that affect reply
// semantics change and reuse across searches is no longer valid.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ply1 = make(map[key1]sim.MoveID)
	t.ply2 = make(map[key2]sim.MoveID)
}
