// Package chessdomain adapts the teacher's game/chess.go onto the
// internal/sim.State and internal/sim.Hooks contracts, serving as the
// integration-test domain of spec.md §8: a real two-player game with a
// large, position-dependent branching factor, backed by
// github.com/notnil/chess exactly as the teacher used it.
//
// Move identity here is position-relative: GenChildren enumerates the
// current position's ValidMoves() in order and hands out dense indices as
// sim.MoveID, and PlayInTree/PlayExpandedChild re-derive the same
// ValidMoves() ordering to resolve an index back to a concrete move. This
// drops the teacher's global action-space/UCI-notation encoding (an
// artifact of feeding a neural network's fixed-width output layer), which
// has no counterpart in this contract; reply-heuristic biasing is
// therefore not meaningful across distinct positions and
// GenAndPlayPlayoutMove ignores its reply arguments, noted where it does.
package chessdomain

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/notnil/chess"
	"github.com/pkg/errors"

	"github.com/polysearch/mcts/internal/sim"
)

// Hooks is the two-player chess host-fact bundle.
type Hooks struct {
	sim.DefaultHooks
}

func NewHooks() *Hooks { return &Hooks{} }

func (Hooks) TieValue() float32         { return 0.5 }
func (Hooks) NumPlayers() int           { return 2 }
func (Hooks) InitialToPlay() sim.Player { return 0 } // White moves first
func (Hooks) MoveString(m sim.MoveID) string {
	return fmt.Sprintf("idx%d", int32(m))
}

type playedMove struct {
	player sim.Player
	move   sim.MoveID
}

// Game is one per-worker simulation state, wrapping a *chess.Game exactly as
// teacher's game.Chess wraps chess.Game/UCINotation, minus the NN action
// space the teacher needed and this contract does not.
type Game struct {
	g     *chess.Game
	moves []playedMove
	rng   *rand.Rand
}

// New builds a Game at chess's standard starting position, using UCI
// notation for move application, matching teacher's ChessGame constructor.
func New(seed int64) *Game {
	return &Game{
		g:   chess.NewGame(chess.UseNotation(chess.UCINotation{})),
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (g *Game) NewState() sim.State {
	return New(g.rng.Int63())
}

func (g *Game) StartSearch()        {}
func (g *Game) StartSimulation(int) { g.moves = g.moves[:0] }
func (g *Game) StartPlayout()       {}
func (g *Game) FinishInTree()       {}

func (g *Game) ToPlay() sim.Player {
	if g.g.Position().Turn() == chess.White {
		return 0
	}
	return 1
}

func (g *Game) SkipRave(sim.MoveID) bool { return false }
func (g *Game) NumMoves() int            { return len(g.moves) }

func (g *Game) MoveAt(i int) (sim.Player, sim.MoveID) {
	pm := g.moves[i]
	return pm.player, pm.move
}

func (g *Game) PlayInTree(move sim.MoveID) error      { return g.applyAt(move) }
func (g *Game) PlayExpandedChild(move sim.MoveID) error { return g.applyAt(move) }

func (g *Game) applyAt(move sim.MoveID) error {
	valid := g.g.ValidMoves()
	if int(move) < 0 || int(move) >= len(valid) {
		return errors.Errorf("chessdomain: move index %d out of range (%d valid)", move, len(valid))
	}
	return g.apply(valid, move)
}

func (g *Game) apply(valid []*chess.Move, idx sim.MoveID) error {
	mover := g.ToPlay()
	newG := g.g.Clone()
	if err := newG.MoveStr(valid[idx].String()); err != nil {
		return errors.Wrap(err, "chessdomain: apply move")
	}
	g.g = newG
	g.moves = append(g.moves, playedMove{mover, idx})
	return nil
}

// GenChildren enumerates the current position's legal moves in
// chess.Game.ValidMoves order; the domain offers no prior, so InitValue is
// left at the caller-supplied zero value.
func (g *Game) GenChildren(expander sim.Expander, initValue []float32) error {
	valid := g.g.ValidMoves()
	for i := range valid {
		expander.AddChild(sim.ChildDescriptor{Move: sim.MoveID(i)})
	}
	return nil
}

// GenAndPlayPlayoutMove plays uniformly at random among the legal moves of
// the current position until the game ends. reply1/reply2 are accepted to
// satisfy the contract but ignored: move indices here are position-relative
// and carry no meaning across the distinct positions an LGR reply was
// learned from and is offered at.
func (g *Game) GenAndPlayPlayoutMove(reply1, reply2 sim.MoveID) (bool, error) {
	if ended, _ := g.Ended(); ended {
		return false, nil
	}
	valid := g.g.ValidMoves()
	if len(valid) == 0 {
		return false, nil
	}
	idx := sim.MoveID(g.rng.Intn(len(valid)))
	if err := g.apply(valid, idx); err != nil {
		return false, err
	}
	return true, nil
}

// Ended reports whether the game has concluded and, if so, the winning
// color (chess.NoColor for a draw), mirroring teacher's Chess.Ended.
func (g *Game) Ended() (ended bool, winner chess.Color) {
	switch g.g.Outcome() {
	case chess.NoOutcome:
		return false, chess.NoColor
	case chess.WhiteWon:
		return true, chess.White
	case chess.BlackWon:
		return true, chess.Black
	default:
		return true, chess.NoColor
	}
}

func (g *Game) EvaluatePlayout() []float32  { return g.evaluate() }
func (g *Game) EvaluateTerminal() []float32 { return g.evaluate() }

func (g *Game) evaluate() []float32 {
	switch g.g.Outcome() {
	case chess.WhiteWon:
		return []float32{1, 0}
	case chess.BlackWon:
		return []float32{0, 1}
	default:
		return []float32{0.5, 0.5}
	}
}

func (g *Game) Dump(w io.Writer) {
	fmt.Fprint(w, g.g.Position().Board().Draw())
}
