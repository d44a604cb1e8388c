// Package branchy is a fixed-branching-factor, effectively-unbounded-depth
// single-player toy domain implementing internal/sim.State and
// internal/sim.Hooks, used by spec.md §8's S3 memory-exhaustion-and-prune
// scenario: a domain whose tree keeps growing past any realistic arena
// capacity, exercising out-of-memory handling and pruning rather than any
// particular search outcome.
//
// Grounded directly on S3's description (branching factor 8, arena capacity
// small enough to exhaust); no example repo in the pack ships a comparable
// fixture.
package branchy

import (
	"fmt"
	"io"

	"github.com/polysearch/mcts/internal/sim"
)

// Hooks is the shared host-fact bundle for a branchy domain.
type Hooks struct {
	sim.DefaultHooks
	tie float32
}

func NewHooks(tie float32) *Hooks { return &Hooks{tie: tie} }

func (h *Hooks) TieValue() float32         { return h.tie }
func (h *Hooks) NumPlayers() int           { return 1 }
func (h *Hooks) InitialToPlay() sim.Player { return 0 }
func (h *Hooks) MoveString(m sim.MoveID) string {
	return fmt.Sprintf("b%d", int32(m))
}

// Game is one per-worker simulation state: at every ply, exactly branching
// children are offered, with move identities unique to (ply, branch), so
// children at different plies never share a move identity (all nodes at the
// same ply offer the same child set). maxDepth is far beyond what any
// realistic arena capacity lets the tree reach, but it is also the only end
// of a playout: every playout runs until the path is maxDepth moves long.
type Game struct {
	branching int
	maxDepth  int
	tieValue  float32

	path []sim.MoveID
}

// New builds a Game with the given branching factor.
func New(branching int, tieValue float32) *Game {
	return &Game{branching: branching, maxDepth: 1 << 20, tieValue: tieValue}
}

func (g *Game) NewState() sim.State {
	return &Game{branching: g.branching, maxDepth: g.maxDepth, tieValue: g.tieValue}
}

func (g *Game) StartSearch()             {}
func (g *Game) StartSimulation(int)      { g.path = g.path[:0] }
func (g *Game) StartPlayout()            {}
func (g *Game) FinishInTree()            {}
func (g *Game) ToPlay() sim.Player       { return 0 }
func (g *Game) SkipRave(sim.MoveID) bool { return false }
func (g *Game) NumMoves() int            { return len(g.path) }

func (g *Game) MoveAt(i int) (sim.Player, sim.MoveID) { return 0, g.path[i] }

func (g *Game) PlayInTree(move sim.MoveID) error {
	g.path = append(g.path, move)
	return nil
}

func (g *Game) PlayExpandedChild(move sim.MoveID) error {
	g.path = append(g.path, move)
	return nil
}

func (g *Game) GenChildren(expander sim.Expander, initValue []float32) error {
	ply := len(g.path)
	if ply >= g.maxDepth {
		return nil
	}
	base := sim.MoveID(ply * g.branching)
	for i := 0; i < g.branching; i++ {
		expander.AddChild(sim.ChildDescriptor{Move: base + sim.MoveID(i)})
	}
	return nil
}

func (g *Game) GenAndPlayPlayoutMove(reply1, reply2 sim.MoveID) (bool, error) {
	ply := len(g.path)
	if ply >= g.maxDepth {
		return false, nil
	}
	g.path = append(g.path, sim.MoveID(ply*g.branching))
	return true, nil
}

func (g *Game) EvaluatePlayout() []float32  { return []float32{g.tieValue} }
func (g *Game) EvaluateTerminal() []float32 { return []float32{g.tieValue} }

func (g *Game) Dump(w io.Writer) {
	fmt.Fprintf(w, "depth=%d\n", len(g.path))
}
