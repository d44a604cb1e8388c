// Package sim defines the abstract contract the search core uses to talk
// to a domain (the game model, board, move generator and evaluator). It is
// the boundary described in spec.md §6: everything on the other side of
// this interface (legality, evaluation, storage, UI) is out of scope here.
package sim

import "io"

// MoveID is the domain's move identity, packed into a dense range
// [0, ActionSpace) so the arena and the reply table can use it as an
// array/map index without any knowledge of the domain's real move type.
type MoveID int32

// NullMove is the domain's "no move" sentinel, e.g. for the root node which
// has no incoming move.
const NullMove MoveID = -1

// Player identifies whose turn it is. Domains with more than two players
// number them 0..NumPlayers-1.
type Player int8

// ChildDescriptor is one candidate child yielded by GenChildren: a move,
// together with the domain's initial visit count and initial value estimate
// for taking it (used to bias PUCT-style priors; zero values are fine for
// domains with no such estimate).
type ChildDescriptor struct {
	Move       MoveID
	InitCount  float32
	InitValue  float32
	SkipRave   bool // mirrors State.SkipRave(Move); not read by the search core, whose RAVE backup calls State.SkipRave
}

// Expander receives the children a domain wants materialized during
// GenChildren. Implementations must not retain the descriptors after
// GenChildren returns.
type Expander interface {
	AddChild(ChildDescriptor)
}

// State is the per-worker simulation-state contract consumed by the search
// core (spec.md §6). Each active worker goroutine owns exactly one State
// instance, created afresh at the start of each Searcher.Search call; states
// are never shared across workers.
type State interface {
	// StartSearch is called once per Searcher.Search call, before any
	// simulation, to let the domain reset per-search caches.
	StartSearch()

	// StartSimulation is called at the start of each iteration; index is
	// a counter local to this worker that increases within one search round
	// and restarts at 0 when a round resumes after pruning, useful for
	// domain-side instrumentation.
	StartSimulation(index int)

	// StartPlayout marks the transition from in-tree descent to the random
	// playout phase.
	StartPlayout()

	// PlayInTree advances the domain state by one move while still
	// descending the tree (as opposed to the playout phase).
	PlayInTree(move MoveID) error

	// FinishInTree is called once the in-tree descent is complete (either
	// a leaf was reached, or expansion just happened).
	FinishInTree()

	// GenChildren asks the domain to generate the legal children of the
	// current state, given the per-player init value estimate (used to
	// bias any domain-side prior). The domain calls expander.AddChild once
	// per legal move. initValue has one entry per player.
	GenChildren(expander Expander, initValue []float32) error

	// PlayExpandedChild advances the domain state by one of the children
	// just generated by GenChildren.
	PlayExpandedChild(move MoveID) error

	// GenAndPlayPlayoutMove asks the domain to pick and play one playout
	// move, optionally biased by up to two last-good-reply candidates
	// (either may be sim.NullMove). Returns false when the playout has
	// reached a terminal state.
	GenAndPlayPlayoutMove(reply1, reply2 MoveID) (bool, error)

	// EvaluatePlayout returns a per-player evaluation vector in [0, 1] once
	// GenAndPlayPlayoutMove has returned false.
	EvaluatePlayout() []float32

	// EvaluateTerminal returns a per-player evaluation vector in [0, 1] for
	// a state that was already terminal before any playout moves were
	// needed (used when the in-tree descent itself reaches a terminal
	// node).
	EvaluateTerminal() []float32

	// NumMoves returns how many moves have been played so far in this
	// simulation (root to current point), used to index the RAVE
	// first-play scratch arrays.
	NumMoves() int

	// MoveAt returns the player and move played at ply i (0-based, root to
	// current point).
	MoveAt(i int) (Player, MoveID)

	// ToPlay returns the player to move at the current state.
	ToPlay() Player

	// SkipRave reports whether a given move should be excluded from RAVE
	// bookkeeping (e.g. domain "pass"-like moves that are not meaningfully
	// comparable across positions).
	SkipRave(move MoveID) bool

	// Dump writes a human-readable rendering of the current state, for
	// diagnostics only.
	Dump(w io.Writer)
}

// Hooks bundles the small set of host-supplied facts spec.md §6 calls
// "Host hooks": values the core needs but that are not per-worker playout
// state.
type Hooks interface {
	// TieValue is the evaluation corresponding to a 50% outcome.
	TieValue() float32

	// NumPlayers returns the number of players in the game.
	NumPlayers() int

	// InitialToPlay returns which player moves first.
	InitialToPlay() Player

	// MoveString renders a move for diagnostics; never used on a
	// performance path.
	MoveString(m MoveID) string

	// CheckFollowup reports whether newRoot is a follow-up of the previous
	// root, filling moves with the move sequence connecting them (appended
	// to, not replacing, any existing contents). The default implementation
	// always returns false ("no reuse").
	CheckFollowup(moves *[]MoveID) bool
}

// DefaultHooks can be embedded by a Hooks implementation that has no
// followup/reuse detection to offer; CheckFollowup always reports false,
// matching spec.md §6's documented default.
type DefaultHooks struct{}

func (DefaultHooks) CheckFollowup(moves *[]MoveID) bool { return false }
