package search

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/polysearch/mcts/internal/arena"
	"github.com/polysearch/mcts/internal/bias"
	"github.com/polysearch/mcts/internal/noise"
	"github.com/polysearch/mcts/internal/sim"
)

// childCollector implements sim.Expander, gathering the descriptors a
// domain's GenChildren call produces so the controller can hand them to
// arena.Expand in one shot.
type childCollector struct {
	descs []sim.ChildDescriptor
}

func (c *childCollector) AddChild(d sim.ChildDescriptor) {
	c.descs = append(c.descs, d)
}

// runIteration performs one simulation iteration for worker w (spec.md
// §4.3): selection, expansion, playout, evaluation, backup and reply-table
// update. simIndex is the worker-local monotonically increasing simulation
// counter passed to sim.State.StartSimulation.
func (s *Searcher) runIteration(w *workerSlot, simIndex int) (oom bool, err error) {
	w.state.StartSimulation(simIndex)

	w.path = w.path[:0]
	w.movers = w.movers[:0]
	w.path = append(w.path, arena.Root)
	w.movers = append(w.movers, s.rootPlayer)

	cur := arena.Root
	live := s.tree.Live()

	// Selection: descend while the current node has linked children.
	for {
		node := live.Node(cur)
		first, count, ok := node.Children()
		if !ok {
			break
		}
		mover := w.state.ToPlay()
		chosen := s.selectChild(cur, first, count)
		move := live.Node(chosen).Move
		if err := w.state.PlayInTree(move); err != nil {
			return false, errors.Wrap(err, "search: PlayInTree")
		}
		w.path = append(w.path, chosen)
		w.movers = append(w.movers, mover)
		cur = chosen
	}
	w.state.FinishInTree()

	// Expansion.
	var terminalEval []float32
	leaf := live.Node(cur)
	eligible := cur == arena.Root || leaf.Stat.Count() > s.cfg.ExpansionThreshold
	if eligible {
		if claimed := s.tryClaimExpand(cur); claimed {
			expandOOM, expandErr := s.expandLeaf(w, cur, &terminalEval)
			s.releaseExpand(cur)
			if expandErr != nil {
				return false, expandErr
			}
			if expandOOM {
				return true, nil
			}
		}
		// A lost claim race (another worker is already expanding cur) is
		// not an error: this iteration simply plays out from the
		// un-expanded leaf, and the next iteration will see the published
		// children once that worker finishes.
	}

	// Playout, unless expansion already reached a terminal state.
	var eval []float32
	if terminalEval != nil {
		eval = terminalEval
	} else {
		w.state.StartPlayout()
		for {
			var r1, r2 sim.MoveID = sim.NullMove, sim.NullMove
			if s.cfg.ReplyHeuristic {
				p := w.state.ToPlay()
				nm := w.state.NumMoves()
				var m1, m2 sim.MoveID = sim.NullMove, sim.NullMove
				if nm >= 1 {
					_, m1 = w.state.MoveAt(nm - 1)
				}
				if nm >= 2 {
					_, m2 = w.state.MoveAt(nm - 2)
				}
				r1, _ = s.reply.Reply1(p, m1)
				r2, _ = s.reply.Reply2(p, m1, m2)
			}
			cont, err := w.state.GenAndPlayPlayoutMove(r1, r2)
			if err != nil {
				return false, errors.Wrap(err, "search: GenAndPlayPlayoutMove")
			}
			if !cont {
				break
			}
		}
		eval = w.state.EvaluatePlayout()
	}

	s.backup(w, eval)
	return false, nil
}

// expandLeaf generates and links children for leaf (already claimed for
// exclusive expansion by the caller), descending one more step into the
// best newly-created child by initial value (spec.md §4.3). If the domain
// reports no children, *terminalEval is set instead and the caller skips
// the playout phase for this iteration.
func (s *Searcher) expandLeaf(w *workerSlot, leaf arena.Index, terminalEval *[]float32) (oom bool, err error) {
	live := s.tree.Live()
	if _, _, already := live.Node(leaf).Children(); already {
		// Published by another worker between our first check and the
		// successful claim; nothing to do.
		return false, nil
	}

	collector := &childCollector{}
	if err := w.state.GenChildren(collector, w.lastInitValue); err != nil {
		return false, errors.Wrap(err, "search: GenChildren")
	}
	if len(collector.descs) == 0 {
		*terminalEval = w.state.EvaluateTerminal()
		return false, nil
	}

	if leaf == arena.Root && s.cfg.NoiseEps > 0 {
		s.applyRootNoise(collector.descs)
	}

	first, err := live.Expand(leaf, collector.descs)
	if errors.Is(err, arena.ErrOutOfMemory) {
		return true, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "search: Expand")
	}

	best := s.pickBestByInitValue(first, int32(len(collector.descs)))
	move := live.Node(best).Move
	mover := w.state.ToPlay()
	if err := w.state.PlayExpandedChild(move); err != nil {
		return false, errors.Wrap(err, "search: PlayExpandedChild")
	}
	w.path = append(w.path, best)
	w.movers = append(w.movers, mover)
	return false, nil
}

// applyRootNoise blends Dirichlet root-exploration noise into the root's
// freshly generated child priors in place, following teacher
// (github.com/alphabeth) mcts/tree.go's New() pattern.
func (s *Searcher) applyRootNoise(descs []sim.ChildDescriptor) {
	sampler := noise.NewSampler(len(descs), s.cfg.NoiseAlpha, s.cfg.NoiseSeed)
	sample := sampler.Sample()
	priors := make([]float32, len(descs))
	for i, d := range descs {
		priors[i] = d.InitValue
	}
	noise.Blend(priors, sample, s.cfg.NoiseEps)
	for i := range descs {
		descs[i].InitValue = priors[i]
	}
}

func (s *Searcher) tryClaimExpand(idx arena.Index) bool {
	_, loaded := s.expanding.LoadOrStore(idx, struct{}{})
	return !loaded
}

func (s *Searcher) releaseExpand(idx arena.Index) {
	s.expanding.Delete(idx)
}

// selectChild implements spec.md §4.3's selection rule: maximize
// β·rave_value + (1-β)·value + bias(parent.count, child.count), first
// child encountered wins ties.
func (s *Searcher) selectChild(parent arena.Index, first arena.Index, count int32) arena.Index {
	live := s.tree.Live()
	parentVisits := float32(live.Node(parent).Stat.Count())
	bc := bias.New(s.cfg.UCTConstant, parentVisits)

	var beta float32
	if s.cfg.RaveEnabled {
		beta = math32.Sqrt(s.cfg.RaveEquivalence / (3*parentVisits + s.cfg.RaveEquivalence))
	}

	best := arena.NilIndex
	bestScore := math32.Inf(-1)
	for i := int32(0); i < count; i++ {
		idx := arena.Index(int32(first) + i)
		child := live.Node(idx)
		cv := float32(child.Stat.Count())
		score := beta*child.Rave.Mean() + (1-beta)*child.Stat.Mean() + bc.Term(cv)
		if score > bestScore {
			bestScore = score
			best = idx
		}
	}
	return best
}

// pickBestByInitValue selects, among count newly-created siblings starting
// at first, the one with the highest domain-provided initial value
// (spec.md §4.3: "pick the best child among the new ones (by initial
// value) and descend one more step").
func (s *Searcher) pickBestByInitValue(first arena.Index, count int32) arena.Index {
	live := s.tree.Live()
	best := first
	bestVal := live.Node(first).Hint
	for i := int32(1); i < count; i++ {
		idx := arena.Index(int32(first) + i)
		if v := live.Node(idx).Hint; v > bestVal {
			bestVal = v
			best = idx
		}
	}
	return best
}

// backup implements spec.md §4.3's Backup/RAVE-backup/Reply-table-update
// steps for one completed simulation.
func (s *Searcher) backup(w *workerSlot, eval []float32) {
	live := s.tree.Live()
	for i, nodeIdx := range w.path {
		live.Node(nodeIdx).Stat.Add(eval[w.movers[i]])
	}

	for p := range w.firstPlay {
		clear(w.firstPlay[p])
	}
	nm := w.state.NumMoves()
	for ply := 0; ply < nm; ply++ {
		p, mv := w.state.MoveAt(ply)
		if _, ok := w.firstPlay[p][mv]; !ok {
			w.firstPlay[p][mv] = ply
		}
	}

	if s.cfg.RaveEnabled {
		s.backupRave(w, eval, nm)
	}

	if s.cfg.ReplyHeuristic {
		s.updateReplyTable(w, eval, nm)
	}
}

func (s *Searcher) backupRave(w *workerSlot, eval []float32, simLen int) {
	live := s.tree.Live()
	for i := 0; i < len(w.path)-1; i++ {
		node := live.Node(w.path[i])
		first, count, ok := node.Children()
		if !ok {
			continue
		}
		player := w.movers[i+1]
		for c := int32(0); c < count; c++ {
			childIdx := arena.Index(int32(first) + c)
			child := live.Node(childIdx)
			if w.state.SkipRave(child.Move) {
				continue
			}
			firstPly, ok := w.firstPlay[player][child.Move]
			if !ok || firstPly < i {
				continue
			}
			if s.cfg.RaveCheckSame && s.raveShadowed(w, player, child.Move, i, firstPly) {
				continue
			}
			weight := float32(1)
			if s.cfg.WeightRaveUpdates && simLen > 0 {
				weight = 2 - float32(firstPly-i)/float32(simLen)
			}
			child.Rave.Add(eval[player], weight)
		}
	}
}

// raveShadowed implements the rave_check_same rule per spec.md §9's
// resolved reading: skip the RAVE update of move m for player p at node
// index i if some other player's first play of m lies strictly between i
// and p's own first play of m.
func (s *Searcher) raveShadowed(w *workerSlot, player sim.Player, move sim.MoveID, i, firstPly int) bool {
	for q := 0; q < s.numPlayers; q++ {
		if sim.Player(q) == player {
			continue
		}
		if otherPly, ok := w.firstPlay[sim.Player(q)][move]; ok && otherPly > i && otherPly < firstPly {
			return true
		}
	}
	return false
}

func (s *Searcher) updateReplyTable(w *workerSlot, eval []float32, nm int) {
	maxEval := eval[0]
	for _, v := range eval[1:] {
		if v > maxEval {
			maxEval = v
		}
	}
	for i := nm - 1; i >= 0; i-- {
		p, mv := w.state.MoveAt(i)
		var m1, m2 sim.MoveID = sim.NullMove, sim.NullMove
		if i-1 >= 0 {
			_, m1 = w.state.MoveAt(i - 1)
		}
		if i-2 >= 0 {
			_, m2 = w.state.MoveAt(i - 2)
		}
		won := eval[p] == maxEval
		s.reply.Update(p, m1, m2, mv, won)
	}
}
