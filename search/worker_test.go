package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polysearch/mcts/internal/arena"
	"github.com/polysearch/mcts/internal/sim"
	"github.com/polysearch/mcts/internal/testgame/tictactoe"
)

func newTestSearcher(t *testing.T, cfg Config) *Searcher {
	t.Helper()
	hooks := tictactoe.NewHooks(0.5)
	s, err := New(cfg, hooks)
	require.NoError(t, err)
	return s
}

func TestSelectChildAlwaysPicksUnvisitedFirst(t *testing.T) {
	s := newTestSearcher(t, baseConfig())
	first, err := s.tree.Live().Expand(arena.Root, []sim.ChildDescriptor{
		{Move: 0}, {Move: 1},
	})
	require.NoError(t, err)
	live := s.tree.Live()
	// Give child 0 many low-value visits; child 1 stays unvisited.
	for i := 0; i < 50; i++ {
		live.Node(first).Stat.Add(0.1)
	}

	chosen := s.selectChild(arena.Root, first, 2)
	assert.Equal(t, sim.MoveID(1), live.Node(chosen).Move)
}

func TestSelectChildExploitsHighestMeanOnceAllVisited(t *testing.T) {
	cfg := baseConfig()
	cfg.UCTConstant = 0.01 // near-pure exploitation
	s := newTestSearcher(t, cfg)
	first, err := s.tree.Live().Expand(arena.Root, []sim.ChildDescriptor{
		{Move: 0}, {Move: 1},
	})
	require.NoError(t, err)
	live := s.tree.Live()
	for i := 0; i < 20; i++ {
		live.Node(first).Stat.Add(0.9)
		live.Node(arena.Index(int32(first) + 1)).Stat.Add(0.1)
	}

	chosen := s.selectChild(arena.Root, first, 2)
	assert.Equal(t, sim.MoveID(0), live.Node(chosen).Move)
}

func TestBackupAdvancesPathStats(t *testing.T) {
	s := newTestSearcher(t, baseConfig())
	first, err := s.tree.Live().Expand(arena.Root, []sim.ChildDescriptor{{Move: 0}})
	require.NoError(t, err)

	toy := tictactoe.TwoChildFixed(0.8, 0.2)
	state := toy.NewState()
	require.NoError(t, state.PlayInTree(0))

	w := &workerSlot{
		state:     state,
		path:      []arena.Index{arena.Root, first},
		movers:    []sim.Player{0, 0},
		firstPlay: []map[sim.MoveID]int{make(map[sim.MoveID]int)},
	}

	preRootCount := s.tree.Live().Node(arena.Root).Stat.Count()
	s.backup(w, []float32{0.8})

	live := s.tree.Live()
	assert.Equal(t, preRootCount+1, live.Node(arena.Root).Stat.Count())
	assert.Equal(t, int64(1), live.Node(first).Stat.Count())
	assert.Equal(t, float32(0.8), live.Node(first).Stat.Mean())
}

func TestBackupUpdatesReplyTableOnWin(t *testing.T) {
	cfg := baseConfig()
	cfg.ReplyHeuristic = true
	s := newTestSearcher(t, cfg)

	toy := tictactoe.NewFixedEval(2, func(path []sim.MoveID) float32 { return 1 }, 1)
	state := toy.NewState()
	require.NoError(t, state.PlayInTree(0))
	require.NoError(t, state.PlayInTree(2))

	w := &workerSlot{
		state:     state,
		path:      []arena.Index{arena.Root},
		movers:    []sim.Player{0},
		firstPlay: []map[sim.MoveID]int{make(map[sim.MoveID]int)},
	}

	s.backup(w, []float32{1})

	reply, ok := s.reply.Reply1(0, 0)
	assert.True(t, ok)
	assert.Equal(t, sim.MoveID(2), reply)
}

func TestTryClaimExpandIsExclusiveUntilReleased(t *testing.T) {
	s := newTestSearcher(t, baseConfig())
	assert.True(t, s.tryClaimExpand(arena.Root))
	assert.False(t, s.tryClaimExpand(arena.Root))
	s.releaseExpand(arena.Root)
	assert.True(t, s.tryClaimExpand(arena.Root))
}
