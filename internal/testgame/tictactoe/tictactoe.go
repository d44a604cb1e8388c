// Package tictactoe is a minimal single-player fixed-depth binary toy
// domain implementing internal/sim.State and internal/sim.Hooks, used by
// the end-to-end scenarios of spec.md §8 (S1, S2, S4, S5) and by unit tests
// of the search package that need a cheap, deterministic domain rather than
// a real game.
//
// No example repo in the retrieval pack ships a fixture like this; it is
// grounded directly on the scenario descriptions spec.md §8 gives (fixed
// leaf evaluations, no playout randomness, shared move identities across
// isomorphic subtrees for the RAVE scenario).
package tictactoe

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/polysearch/mcts/internal/sim"
)

// LeafEval scores a completed path of moves, one entry per ply from the
// root, returned in [0, 1].
type LeafEval func(path []sim.MoveID) float32

// Hooks is the shared, immutable-per-search-call host-fact bundle (spec.md
// §6). A single Hooks instance is passed to search.New and reused across
// many Search calls; SetFollowup lets a caller (or a test orchestrating
// S4-style reuse) declare the next root as a follow-up of the last.
type Hooks struct {
	tie      float32
	followup []sim.MoveID
}

// NewHooks builds a Hooks bundle with the given tie-value (the evaluation
// corresponding to a 50% outcome; 0.5 for most fixtures).
func NewHooks(tie float32) *Hooks { return &Hooks{tie: tie} }

func (h *Hooks) TieValue() float32          { return h.tie }
func (h *Hooks) NumPlayers() int            { return 1 }
func (h *Hooks) InitialToPlay() sim.Player  { return 0 }
func (h *Hooks) MoveString(m sim.MoveID) string {
	return fmt.Sprintf("m%d", int32(m))
}

// CheckFollowup reports whether a previously declared follow-up sequence is
// pending (via SetFollowup), consuming it on report.
func (h *Hooks) CheckFollowup(moves *[]sim.MoveID) bool {
	if len(h.followup) == 0 {
		return false
	}
	*moves = append(*moves, h.followup...)
	h.followup = nil
	return true
}

// SetFollowup declares that the next Search call's root is reached from the
// current root by playing the given move sequence.
func (h *Hooks) SetFollowup(moves []sim.MoveID) { h.followup = moves }

// Game is one per-worker simulation state: a fixed-depth binary tree where,
// at ply p, the two available moves are MoveID(2p) and MoveID(2p+1). Using
// the same pair of move identities at every node of a given depth (rather
// than unique identities per tree position) lets two structurally
// isomorphic subtrees share RAVE statistics, per S5's construction.
type Game struct {
	depth int
	eval  LeafEval
	rng   *rand.Rand

	path []sim.MoveID
}

// NewFixedEval builds a Game of the given depth whose terminal evaluation
// is computed by eval over the full root-to-leaf move path.
func NewFixedEval(depth int, eval LeafEval, seed int64) *Game {
	return &Game{
		depth: depth,
		eval:  eval,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// TwoChildFixed builds S1's domain exactly: a one-ply game whose two
// children (moves 0 and 1) have fixed evaluations v0 and v1.
func TwoChildFixed(v0, v1 float32) *Game {
	return NewFixedEval(1, func(path []sim.MoveID) float32 {
		if path[0] == 0 {
			return v0
		}
		return v1
	}, 1)
}

// RaveFavored builds S5's domain: a depth-3 tree with two structurally
// isomorphic subtrees under the root (path[0] selects Left or Right), each
// using the same pair of move identities at every ply (2/3 at ply 1, 4/5 at
// ply 2), so RAVE statistics pool across both subtrees rather than being
// scoped to tree position. The decisive move differs between the two
// subtrees: in Left, move 2 at ply 1 wins whatever is played at ply 2; in
// Right, move 2 at ply 1 decides nothing and move 4 at ply 2 wins. A path
// too short to reach the deciding ply scores 0.
func RaveFavored() *Game {
	return NewFixedEval(3, func(path []sim.MoveID) float32 {
		if path[0] == 0 { // Left
			if len(path) > 1 && path[1] == 2 {
				return 1
			}
			return 0
		}
		// Right
		if len(path) > 2 && path[2] == 4 {
			return 1
		}
		return 0
	}, 2)
}

// NewState returns a fresh, root-positioned Game instance, suitable as the
// newState closure search.Searcher.Search expects (one call per active
// worker per Search invocation).
func (g *Game) NewState() sim.State {
	return &Game{depth: g.depth, eval: g.eval, rng: rand.New(rand.NewSource(g.rng.Int63()))}
}

func (g *Game) StartSearch()            {}
func (g *Game) StartSimulation(int)     { g.path = g.path[:0] }
func (g *Game) StartPlayout()           {}
func (g *Game) FinishInTree()           {}
func (g *Game) ToPlay() sim.Player      { return 0 }
func (g *Game) SkipRave(sim.MoveID) bool { return false }
func (g *Game) NumMoves() int           { return len(g.path) }

func (g *Game) MoveAt(i int) (sim.Player, sim.MoveID) { return 0, g.path[i] }

func (g *Game) PlayInTree(move sim.MoveID) error {
	g.path = append(g.path, move)
	return nil
}

func (g *Game) PlayExpandedChild(move sim.MoveID) error {
	g.path = append(g.path, move)
	return nil
}

// GenChildren yields the two children of the current ply, unless depth has
// been reached (the domain is then terminal and the search core skips
// playout entirely, matching S1/S2's "no playout randomness").
func (g *Game) GenChildren(expander sim.Expander, initValue []float32) error {
	ply := len(g.path)
	if ply >= g.depth {
		return nil
	}
	base := sim.MoveID(2 * ply)
	expander.AddChild(sim.ChildDescriptor{Move: base})
	expander.AddChild(sim.ChildDescriptor{Move: base + 1})
	return nil
}

// GenAndPlayPlayoutMove plays one of the current ply's two moves uniformly
// at random, and returns false once depth is reached. The search core calls
// it for every playout that starts above depth (for example after
// descending into a freshly expanded child, or from a leaf below the
// expansion threshold).
func (g *Game) GenAndPlayPlayoutMove(reply1, reply2 sim.MoveID) (bool, error) {
	ply := len(g.path)
	if ply >= g.depth {
		return false, nil
	}
	move := sim.MoveID(2*ply + g.rng.Intn(2))
	g.path = append(g.path, move)
	return true, nil
}

func (g *Game) EvaluatePlayout() []float32  { return []float32{g.eval(g.path)} }
func (g *Game) EvaluateTerminal() []float32 { return []float32{g.eval(g.path)} }

func (g *Game) Dump(w io.Writer) {
	fmt.Fprintf(w, "path=%v\n", g.path)
}
