// Package stats implements the "dirty-lock-free" running mean primitives
// described in spec.md §4.4. Updates are lock-free and may lose individual
// mean updates under concurrent writers (the counts and weight sums
// themselves are advanced atomically and are never lost); the search
// algorithm as a whole only
// needs the accumulated values to converge approximately, so torn reads are
// an accepted cost rather than a bug.
//
// This generalizes the teacher's (github.com/alphabeth) mcts/node.go
// accumulate(), which computes the same incremental-mean update but behind
// a per-node sync.Mutex. Here the update is genuinely lock-free: each field
// is itself atomic, but the read-modify-write across the pair of fields is
// intentionally not a single atomic transaction (see Add).
package stats

import (
	"sync/atomic"

	"github.com/chewxy/math32"
)

// Stat is a lock-free (count, mean) pair. Add may race with concurrent Add
// calls and lose individual updates; Mean/Count may observe a transiently
// inconsistent pair (e.g. a count that has already advanced past the mean
// that produced it). Neither condition is treated as an error.
type Stat struct {
	n    atomic.Int64
	bits atomic.Uint32 // math32.Float32bits(mean)
}

// Add folds x into the running mean and advances the count by one.
func (s *Stat) Add(x float32) {
	n := s.n.Add(1)
	old := math32.Float32frombits(s.bits.Load())
	next := old + (x-old)/float32(n)
	s.bits.Store(math32.Float32bits(next))
}

// Count returns the current visit count. Monotonically non-decreasing for
// the lifetime of the Stat (spec.md §3, "statistics are monotone in visit
// count").
func (s *Stat) Count() int64 { return s.n.Load() }

// Mean returns the current running mean.
func (s *Stat) Mean() float32 { return math32.Float32frombits(s.bits.Load()) }

// Reset zeros the stat. Callers must ensure no concurrent Add/Mean/Count is
// in flight; it exists for arena slot reuse during Clear/prune, never during
// an active search.
func (s *Stat) Reset() {
	s.n.Store(0)
	s.bits.Store(0)
}

// ClearMean zeros the running mean but preserves the visit count, used when
// a reused subtree's new root has its value cleared while its historical
// count is kept for diagnostic purposes (spec.md §4.2 step 1: "clear the new
// root's value and count is preserved but not directly added to the
// simulation count").
func (s *Stat) ClearMean() {
	s.bits.Store(0)
}

// WeightedStat is the weighted counterpart used for RAVE backup, where each
// update carries its own weight instead of always counting as one (spec.md
// §4.3's "weight is either 2-(first_play_index-node_index)/simulation_length
// ... or 1").
type WeightedStat struct {
	sumWeight atomic.Uint32 // math32.Float32bits
	bits      atomic.Uint32 // math32.Float32bits(mean)
}

// Add folds x into the running weighted mean with the given weight.
func (s *WeightedStat) Add(x, weight float32) {
	// CAS loop on the weight sum so concurrent Adds never lose a weight
	// increment. The mean is updated afterwards by a plain load/store, so a
	// concurrent reader can observe the new weight sum before the matching
	// mean, and a racing mean update can be lost (the torn-read tolerance
	// this package documents).
	var newSum float32
	for {
		oldBits := s.sumWeight.Load()
		old := math32.Float32frombits(oldBits)
		newSum = old + weight
		if s.sumWeight.CompareAndSwap(oldBits, math32.Float32bits(newSum)) {
			break
		}
	}
	oldMeanBits := s.bits.Load()
	oldMean := math32.Float32frombits(oldMeanBits)
	var next float32
	if newSum > 0 {
		next = oldMean + weight*(x-oldMean)/newSum
	}
	s.bits.Store(math32.Float32bits(next))
}

// Weight returns the accumulated sum of weights (the RAVE count, in spec.md
// terms).
func (s *WeightedStat) Weight() float32 { return math32.Float32frombits(s.sumWeight.Load()) }

// Mean returns the current running weighted mean.
func (s *WeightedStat) Mean() float32 { return math32.Float32frombits(s.bits.Load()) }

// Reset zeros the stat; see Stat.Reset for the concurrency caveat.
func (s *WeightedStat) Reset() {
	s.sumWeight.Store(0)
	s.bits.Store(0)
}

// Strict is the single-threaded, non-racy variant spec.md §4.4 calls out
// ("the ordinary (single-threaded) variant is strict"). It serves tests that
// need an exact reference value to compare the lock-free variant against.
type Strict struct {
	n    int64
	mean float32
}

func (s *Strict) Add(x float32) {
	s.n++
	s.mean += (x - s.mean) / float32(s.n)
}

func (s *Strict) Count() int64   { return s.n }
func (s *Strict) Mean() float32  { return s.mean }
func (s *Strict) Reset()         { s.n, s.mean = 0, 0 }
