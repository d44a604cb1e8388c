package search

import (
	"runtime"

	"github.com/pkg/errors"
)

// MaxCount is the ceiling spec.md §9 calls for: "a max-representable
// threshold tied to the chosen numeric type's mantissa width". Visit counts
// are stored as int64 (see internal/stats), but the bias/selection
// arithmetic that consumes them runs in float32, so counts are treated as
// approaching saturation once they near float32's 24-bit mantissa — beyond
// that, two distinct counts can round to the same float32 and comparisons
// between them become unreliable.
const MaxCount int64 = 1 << 24

// Config bundles the search parameters of spec.md §3: "a value bundle
// recognized for reuse compatibility". It plays the role of the teacher's
// (github.com/alphabeth) mcts.Config/agogo.Config value struct.
type Config struct {
	// UCTConstant is the exploration constant C in the bias term C*sqrt(log(n)/c).
	UCTConstant float32

	// ExpansionThreshold is the minimum visit count a leaf must reach before
	// its children are materialized (spec.md GLOSSARY).
	ExpansionThreshold int64

	RaveEnabled       bool
	RaveEquivalence   float32
	WeightRaveUpdates bool
	RaveCheckSame     bool
	ReplyHeuristic    bool

	// PruneEnabled mirrors the source's set_prune_full_tree: if false, a
	// memory-exhausted search simply ends rather than pruning and resuming
	// (spec.md §9 Open Questions: this documented behavior is preserved
	// as-is rather than reinterpreted).
	PruneEnabled bool
	PruneStart   int64

	// MemoryBudget is in bytes; the per-arena node capacity is derived as
	// MemoryBudget / (2*sizeof(Node)) (spec.md §3).
	MemoryBudget int64

	Deterministic bool
	Threads       int

	// Debug routes verbose per-phase logging to the Searcher's logger,
	// mirroring the teacher's t.log(...) guarded calls.
	Debug bool

	// NoiseAlpha/NoiseEps/NoiseSeed configure root-exploration Dirichlet
	// noise (internal/noise); NoiseEps of 0 disables blending entirely.
	NoiseAlpha float64
	NoiseEps   float32
	NoiseSeed  uint64

	// Progress, if non-nil, is invoked roughly every 100ms during a Search
	// call (spec.md §6's Observation callback).
	Progress ProgressFunc
}

// DefaultThreads mirrors the teacher's runtime.NumCPU() worker count,
// clamped as spec.md §5 specifies ("default min(hardware parallelism, 8)").
func DefaultThreads() int {
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// IsValid reports a config error, or nil if cfg is usable.
func (c Config) IsValid() error {
	if c.ExpansionThreshold < 0 {
		return errors.New("search: negative expansion threshold")
	}
	if c.RaveEnabled && c.RaveEquivalence < 0 {
		return errors.New("search: negative rave equivalence")
	}
	if c.PruneEnabled && c.PruneStart < 0 {
		return errors.New("search: negative prune start")
	}
	if c.MemoryBudget <= 0 {
		return errors.New("search: non-positive memory budget")
	}
	if c.Threads < 1 {
		return errors.New("search: non-positive thread count")
	}
	return nil
}

// reuseCompatible reports whether two search calls can reuse the same tree,
// per spec.md §3's exact reuse-relevant subset: "uct exploration constant;
// expansion threshold; rave enabled; rave equivalence; weight-rave-updates
// flag; rave-check-same flag; reply-heuristic flag; prune-start count;
// memory budget; deterministic-mode flag; thread count".
func (c Config) reuseCompatible(o Config) bool {
	return c.UCTConstant == o.UCTConstant &&
		c.ExpansionThreshold == o.ExpansionThreshold &&
		c.RaveEnabled == o.RaveEnabled &&
		c.RaveEquivalence == o.RaveEquivalence &&
		c.WeightRaveUpdates == o.WeightRaveUpdates &&
		c.RaveCheckSame == o.RaveCheckSame &&
		c.ReplyHeuristic == o.ReplyHeuristic &&
		c.PruneStart == o.PruneStart &&
		c.MemoryBudget == o.MemoryBudget &&
		c.Deterministic == o.Deterministic &&
		c.Threads == o.Threads
}
