package search

import (
	"io"
	"time"

	"github.com/polysearch/mcts/internal/arena"
	"github.com/polysearch/mcts/internal/dotdump"
	"github.com/polysearch/mcts/internal/sim"
)

// ProgressFunc is invoked approximately every 100ms during a Search call
// with the elapsed time and an estimate of the time remaining (spec.md §6:
// "an optional callback invoked approximately every 0.1s with (elapsed,
// estimated_remaining)"). estimatedRemaining is 0 when the active limit is
// a simulation count rather than a time budget and no reliable estimate is
// available.
type ProgressFunc func(elapsed, estimatedRemaining time.Duration)

// Observation is the read-only view of a Searcher's tree spec.md §6 calls
// "Observation": simulation count, root-value vector, the chosen move of
// the most recent completed Search call, and a diagnostic tree dump.
type Observation struct {
	s *Searcher
}

// Observe returns a read-only snapshot handle over s's current tree. Safe
// to call between searches; calling it while a Search is in flight from
// another goroutine returns a live, racily-consistent view (the same dirty
// read contract the statistics primitives themselves carry).
func (s *Searcher) Observe() Observation { return Observation{s: s} }

// SimulationCount returns the number of simulations performed by the most
// recently started (or in-flight) Search call.
func (o Observation) SimulationCount() int64 { return o.s.simCount.Load() }

// RootValue returns a copy of the per-player root-value accumulator vector.
func (o Observation) RootValue() []float32 {
	out := make([]float32, len(o.s.rootValue))
	copy(out, o.s.rootValue)
	return out
}

// Move returns the move chosen by the most recently completed Search call,
// and whether a search has completed at least once.
func (o Observation) Move() (sim.MoveID, bool) { return o.s.lastMove, o.s.lastDone }

// WorkerErrors returns the aggregated, non-fatal worker iteration errors
// observed during the most recently completed search round (spec.md §7), or
// nil if none occurred. Each call is logged and degraded rather than aborting
// the search; WorkerErrors lets a caller inspect what went wrong without
// interrupting progress.
func (o Observation) WorkerErrors() error { return o.s.roundErrorSnapshot() }

// ReuseCount returns the live root's visit count. Right after a reuse
// extraction, before the next search runs, that is the count the root
// carried over from the previous tree. The carried-over part is not kept
// separately: once a search has run, the value also includes that search's
// own simulations, and a freshly cleared root reports 1 (the visit Clear
// gives it). See Config's reuse-compatibility rules and spec.md §4.2 step 1.
func (o Observation) ReuseCount() int64 {
	return o.s.tree.Live().Node(arena.Root).Stat.Count()
}

// Dump renders the live tree to Graphviz DOT, the default implementation of
// the domain's dump(stream) diagnostic hook at the engine level (spec.md §6).
func (o Observation) Dump(w io.Writer) error {
	return dotdump.Dump(w, o.s.tree.Live(), arena.Root)
}
