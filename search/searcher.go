// Package search implements the public controller of spec.md §4.2: the
// per-search lifecycle (subtree reuse, initialization, worker launch,
// termination, pruning, final selection). It is the renamed, generalized
// counterpart of the teacher's (github.com/alphabeth) mcts package, split
// out from the arena/stats/bias/lgr machinery those packages now own
// independently (see DESIGN.md).
package search

import (
	"bytes"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/polysearch/mcts/internal/arena"
	"github.com/polysearch/mcts/internal/interval"
	"github.com/polysearch/mcts/internal/lgr"
	"github.com/polysearch/mcts/internal/sim"
)

// workerSlot is one persistent worker: a goroutine that blocks between
// searches (spec.md §5: "at construction each worker thread spins up and
// blocks on a start-search condition"), plus the per-search scratch it owns
// exclusively while running (simulation record, RAVE first-play tables,
// interval checker).
type workerSlot struct {
	id      int
	startCh chan struct{}
	doneCh  chan struct{}

	state         sim.State
	path          []arena.Index
	movers        []sim.Player
	firstPlay     []map[sim.MoveID]int
	checker       *interval.Checker
	lastInitValue []float32
}

// Searcher owns one search tree and drives searches against it. A Searcher
// is not safe to use from two goroutines calling Search concurrently — the
// worker pool and controller bookkeeping are for exactly one in-flight
// search at a time, matching spec.md's single-controller model.
type Searcher struct {
	cfg   Config
	hooks sim.Hooks

	log *log.Logger
	buf bytes.Buffer

	tree  *arena.Tree
	reply *lgr.Table

	numPlayers int
	rootValue  []float32
	rootPlayer sim.Player

	prevCfg    Config
	prevCfgSet bool

	workers []*workerSlot

	expanding sync.Map // arena.Index -> struct{}; nodes mid-expansion

	errMu     sync.Mutex
	roundErrs *multierror.Error // per-worker iteration errors accumulated this round

	abort    atomic.Bool
	oom      atomic.Bool
	stopNow  atomic.Bool
	simCount atomic.Int64

	pruneMinCount int64
	simsPerSec    float64

	lastMove sim.MoveID
	lastDone bool
}

// New builds a Searcher over a freshly cleared tree, sized from
// cfg.MemoryBudget per spec.md §3 (N = memory / (2*sizeof(Node))).
func New(cfg Config, hooks sim.Hooks) (*Searcher, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, err
	}
	const nodeSize = 64 // approximate arena.Node footprint; sizing need not be exact
	capacityPerArena := int(cfg.MemoryBudget / (2 * nodeSize))
	if capacityPerArena < 2 {
		capacityPerArena = 2
	}

	s := &Searcher{
		cfg:           cfg,
		hooks:         hooks,
		tree:          arena.NewTree(capacityPerArena),
		reply:         lgr.New(),
		numPlayers:    hooks.NumPlayers(),
		pruneMinCount: cfg.PruneStart,
		lastMove:      sim.NullMove,
	}
	s.log = log.New(&s.buf, "search: ", log.LstdFlags)

	s.rootValue = make([]float32, s.numPlayers)
	tie := hooks.TieValue()
	for p := range s.rootValue {
		s.rootValue[p] = tie
	}

	s.tree.Clear(tie)

	s.workers = make([]*workerSlot, cfg.Threads)
	for i := range s.workers {
		w := &workerSlot{
			id:        i,
			startCh:   make(chan struct{}),
			doneCh:    make(chan struct{}),
			firstPlay: make([]map[sim.MoveID]int, s.numPlayers),
		}
		for p := range w.firstPlay {
			w.firstPlay[p] = make(map[sim.MoveID]int)
		}
		s.workers[i] = w
		if i > 0 {
			go s.workerLoop(w)
		}
	}
	return s, nil
}

func (s *Searcher) debugf(format string, args ...interface{}) {
	if s.cfg.Debug {
		s.log.Printf(format, args...)
	}
}

// Abort sets the process-wide cancellation flag spec.md §5 describes;
// in-flight simulations complete their backup before any worker observes it
// (cancellation is cooperative, checked only on the expensive-abort path).
func (s *Searcher) Abort() { s.abort.Store(true) }

// ResetAbort clears a previously-set abort flag, for reuse of the Searcher
// across multiple Search calls after a cancelled one.
func (s *Searcher) ResetAbort() { s.abort.Store(false) }

func (s *Searcher) workerLoop(w *workerSlot) {
	for range w.startCh {
		s.runWorker(w)
		w.doneCh <- struct{}{}
	}
}

// Search implements spec.md §4.2's public contract. newState constructs one
// fresh per-worker simulation-state instance, already positioned at the
// root to search from; it is called once per active worker at the start of
// this call (spec.md §5's "owns its own instance created at thread
// construction" — the interface gives no way to reposition an existing
// State to a new root, so construction happens once per Search call rather
// than once per Searcher lifetime; the worker goroutines themselves remain
// persistent across calls, only the State they drive is rebuilt).
func (s *Searcher) Search(
	out *sim.MoveID,
	newState func() sim.State,
	maxCount int64,
	minSimulations int64,
	maxTime time.Duration,
	timeSource func() time.Time,
	alwaysSearch bool,
) (bool, error) {
	if timeSource == nil {
		timeSource = time.Now
	}
	searchStart := timeSource()

	if err := s.tryReuse(alwaysSearch); err != nil {
		return false, err
	}

	initValue := s.computeInitValue()

	activeThreads := s.cfg.Threads
	if s.effectiveTimeShort(maxCount, maxTime) {
		activeThreads = 1
	}

	for i := 0; i < s.cfg.Threads; i++ {
		w := s.workers[i]
		w.path = w.path[:0]
		w.movers = w.movers[:0]
		if i < activeThreads {
			w.state = newState()
		} else {
			w.state = nil
		}
		w.checker = s.newChecker(timeSource, searchStart, maxCount, minSimulations, maxTime)
	}
	s.rootPlayer = s.workers[0].state.ToPlay()
	for i := 0; i < activeThreads; i++ {
		s.workers[i].state.StartSearch()
	}

	s.simCount.Store(0)
	s.oom.Store(false)
	s.stopNow.Store(false)

	s.debugf("search start: threads=%d active=%d maxCount=%d maxTime=%s", s.cfg.Threads, activeThreads, maxCount, maxTime)

	var progressStop chan struct{}
	if s.cfg.Progress != nil {
		progressStop = s.startProgress(searchStart, maxCount, maxTime, timeSource)
	}

	for {
		s.runRound(activeThreads, initValue)

		if !s.oom.Load() {
			break
		}
		if !s.cfg.PruneEnabled {
			break
		}
		shrunk, err := s.prune()
		if err != nil || !shrunk {
			break
		}
		if s.tree.RetainedFraction() > 0.5 {
			s.pruneMinCount *= 2
			if s.pruneMinCount > MaxCount/2 {
				s.pruneMinCount = MaxCount / 2
			}
		}
		s.oom.Store(false)
		s.stopNow.Store(false)
	}
	if progressStop != nil {
		close(progressStop)
	}

	elapsed := timeSource().Sub(searchStart)
	if elapsed > 0 {
		s.simsPerSec = float64(s.simCount.Load()) / elapsed.Seconds()
	}

	root := s.tree.Live().Node(arena.Root)
	first, count, ok := root.Children()
	outOfMemory := s.oom.Load()
	if !ok || count == 0 {
		return false, ErrNoMove
	}

	best := s.selectFinal(first, count, nil)
	move := s.tree.Live().Node(best).Move
	*out = move
	s.lastMove, s.lastDone = move, true

	s.rootValue[s.rootPlayer] = root.Stat.Mean()
	s.prevCfg, s.prevCfgSet = s.cfg, true

	if outOfMemory {
		return true, ErrOutOfMemory
	}
	return true, nil
}

func (s *Searcher) runRound(activeThreads int, initValue []float32) {
	s.errMu.Lock()
	s.roundErrs = nil
	s.errMu.Unlock()

	for i := range s.workers {
		s.workers[i].lastInitValue = initValue
	}
	for i := 1; i < activeThreads; i++ {
		s.workers[i].startCh <- struct{}{}
	}
	s.runWorker(s.workers[0])
	for i := 1; i < activeThreads; i++ {
		<-s.workers[i].doneCh
	}
}

func (s *Searcher) runWorker(w *workerSlot) {
	if w.state == nil {
		return
	}
	idx := 0
	for !s.stopNow.Load() {
		oom, err := s.runIteration(w, idx)
		idx++
		if err != nil {
			// Logged and degraded, never propagated (spec.md §7): a single
			// bad iteration does not abort the search, but still counts
			// against the interval checker so a persistently failing
			// domain cannot spin the worker loop unbounded.
			s.debugf("worker %d iteration error: %v", w.id, err)
			s.reportIterationError(w.id, err)
		} else if oom {
			s.oom.Store(true)
			s.stopNow.Store(true)
			return
		} else {
			s.simCount.Add(1)
		}
		if w.checker.Check() {
			s.stopNow.Store(true)
			return
		}
	}
}

// reportIterationError folds one worker's iteration error into the round's
// multierror.Error, guarded by errMu since workers other than worker 0 call
// this from their own goroutine (spec.md §7: when more than one worker
// reports an abnormal termination in the same search call, the controller
// aggregates rather than surfacing only the last one observed).
func (s *Searcher) reportIterationError(workerID int, err error) {
	wrapped := errors.Wrapf(err, "worker %d", workerID)
	s.errMu.Lock()
	s.roundErrs = multierror.Append(s.roundErrs, wrapped)
	s.errMu.Unlock()
}

// roundErrorSnapshot returns the worker errors folded into the most recently
// completed round as one aggregated error (nil if there were none), for
// Observation.WorkerErrors.
func (s *Searcher) roundErrorSnapshot() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.roundErrs == nil {
		return nil
	}
	return s.roundErrs.ErrorOrNil()
}

// startProgress launches the ~100ms Observation progress ticker (spec.md
// §6) and returns a channel that, when closed, stops it.
func (s *Searcher) startProgress(start time.Time, maxCount int64, maxTime time.Duration, timeSource func() time.Time) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				elapsed := timeSource().Sub(start)
				var remaining time.Duration
				switch {
				case maxTime > 0:
					remaining = maxTime - elapsed
					if remaining < 0 {
						remaining = 0
					}
				case maxCount > 0 && s.simsPerSec > 0:
					left := maxCount - s.simCount.Load()
					if left > 0 {
						remaining = time.Duration(float64(left) / s.simsPerSec * float64(time.Second))
					}
				}
				s.cfg.Progress(elapsed, remaining)
			}
		}
	}()
	return stop
}

func (s *Searcher) computeInitValue() []float32 {
	out := make([]float32, s.numPlayers)
	copy(out, s.rootValue)
	return out
}

func (s *Searcher) tryReuse(alwaysSearch bool) error {
	tie := s.hooks.TieValue()
	if !s.prevCfgSet || !s.prevCfg.reuseCompatible(s.cfg) {
		s.tree.Clear(tie)
		s.reply.Clear()
		s.resetRootValue(tie)
		return nil
	}

	var moves []sim.MoveID
	if !s.hooks.CheckFollowup(&moves) || len(moves) > s.numPlayers {
		s.tree.Clear(tie)
		s.resetRootValue(tie)
		return nil
	}

	target, ok := arena.FindNode(s.tree.Live(), arena.Root, moves)
	if !ok {
		s.tree.Clear(tie)
		s.resetRootValue(tie)
		return nil
	}

	abort := func() bool { return s.abort.Load() }
	complete := s.tree.Reuse(target, abort)
	if !complete && !alwaysSearch {
		return ErrReuseAborted
	}

	// Reuse-count bookkeeping (spec.md §4.2 step 1): the new root's value
	// is cleared, but its visit count survives from the old tree and is
	// exposed via Observation.ReuseCount — it is not folded into this
	// search's own simulation counter.
	s.tree.Live().Node(arena.Root).Stat.ClearMean()
	return nil
}

// resetRootValue resets every player's per-root init value to the domain's
// tie value (spec.md §4.2 step 2(b)): whenever tryReuse discards the old tree
// instead of reusing a subtree of it, the stale root.Stat.Mean() an earlier,
// unrelated position left in s.rootValue must not leak into this search's
// root noise / init value.
func (s *Searcher) resetRootValue(tie float32) {
	for p := range s.rootValue {
		s.rootValue[p] = tie
	}
}

func (s *Searcher) prune() (bool, error) {
	preLen := s.tree.Live().Len()
	abort := func() bool { return s.abort.Load() }
	s.tree.Prune(s.pruneMinCount, abort)
	if s.tree.Live().Len() >= preLen {
		return false, errors.New("search: pruning could not shrink the tree")
	}
	return true, nil
}

// effectiveTimeShort implements spec.md §4.2 step 3: force single-threaded
// execution when the effective search budget is under 500ms, whether that
// budget is given directly as a time limit or estimated from a simulation
// count using the Searcher's running throughput estimate from prior calls.
func (s *Searcher) effectiveTimeShort(maxCount int64, maxTime time.Duration) bool {
	if maxTime > 0 && maxTime < 500*time.Millisecond {
		return true
	}
	if maxCount > 0 && s.simsPerSec > 0 {
		est := time.Duration(float64(maxCount) / s.simsPerSec * float64(time.Second))
		if est < 500*time.Millisecond {
			return true
		}
	}
	return false
}

func (s *Searcher) newChecker(timeSource func() time.Time, start time.Time, maxCount, minSimulations int64, maxTime time.Duration) *interval.Checker {
	expensive := func() bool {
		if s.abort.Load() {
			return true
		}
		if maxTime > 0 && timeSource().Sub(start) >= maxTime {
			return true
		}
		if maxCount > 0 && s.simCount.Load() >= maxCount {
			return true
		}
		if s.simCount.Load() >= minSimulations && maxCount > 0 {
			remaining := maxCount - s.simCount.Load()
			if s.cannotChange(remaining) {
				return true
			}
		}
		if s.countSaturated() {
			return true
		}
		return false
	}
	return interval.New(expensive, timeSource, 50*time.Millisecond, s.cfg.Deterministic, 64)
}

// countSaturated implements spec.md §7's count-saturation failure mode: once
// the root or any of its children nears MaxCount, float32 mean/bias
// comparisons between simulation counts start to lose precision, so the
// search is stopped and the current best move is returned rather than
// letting selection degrade silently.
func (s *Searcher) countSaturated() bool {
	live := s.tree.Live()
	root := live.Node(arena.Root)
	if root.Stat.Count() >= MaxCount {
		return true
	}
	first, count, ok := root.Children()
	if !ok {
		return false
	}
	for i := int32(0); i < count; i++ {
		if live.Node(arena.Index(int32(first) + i)).Stat.Count() >= MaxCount {
			return true
		}
	}
	return false
}

// cannotChange implements spec.md §4.2 step 5 / testable property 6: the
// root's best child is guaranteed stable once its lead over the runner-up
// exceeds the number of simulations remaining.
func (s *Searcher) cannotChange(remaining int64) bool {
	live := s.tree.Live()
	root := live.Node(arena.Root)
	first, count, ok := root.Children()
	if !ok || count < 2 {
		return false
	}
	var m1, m2 int64 = -1, -1
	for i := int32(0); i < count; i++ {
		c := live.Node(arena.Index(int32(first) + i)).Stat.Count()
		if c > m1 {
			m2 = m1
			m1 = c
		} else if c > m2 {
			m2 = c
		}
	}
	if m2 < 0 {
		m2 = 0
	}
	return m1 > m2+remaining
}

// selectFinal implements spec.md §4.2 step 7 / testable property 7: highest
// visit count wins; ties break on higher value; further ties keep the
// earlier-allocated (first encountered) child. exclude, if non-nil, removes
// candidate moves from consideration.
func (s *Searcher) selectFinal(first arena.Index, count int32, exclude map[sim.MoveID]bool) arena.Index {
	live := s.tree.Live()
	best := arena.NilIndex
	var bestCount int64 = -1
	var bestValue float32
	for i := int32(0); i < count; i++ {
		idx := arena.Index(int32(first) + i)
		node := live.Node(idx)
		if exclude != nil && exclude[node.Move] {
			continue
		}
		c := node.Stat.Count()
		v := node.Stat.Mean()
		if c > bestCount || (c == bestCount && v > bestValue) {
			bestCount, bestValue, best = c, v, idx
		}
	}
	return best
}
