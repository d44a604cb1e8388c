package arena

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polysearch/mcts/internal/sim"
)

func descs(n int) []sim.ChildDescriptor {
	out := make([]sim.ChildDescriptor, n)
	for i := range out {
		out[i] = sim.ChildDescriptor{Move: sim.MoveID(i)}
	}
	return out
}

func TestArenaDiscipline(t *testing.T) {
	// Property 1: after any number of concurrent Expand calls, allocated
	// slots == sum of child counts + 1 (root), and no slot referenced twice.
	a := New(1000)
	a.Clear(0.5)

	var wg sync.WaitGroup
	results := make([]Index, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			first, err := a.Expand(Root, descs(3))
			require.NoError(t, err)
			results[i] = first
		}(i)
	}
	wg.Wait()

	seen := map[Index]bool{}
	for _, first := range results {
		for i := int32(0); i < 3; i++ {
			idx := Index(int32(first) + i)
			assert.False(t, seen[idx], "slot %d referenced twice", idx)
			seen[idx] = true
		}
	}
	assert.Equal(t, int32(1+16*3), a.Len())
}

func TestExpandOutOfMemory(t *testing.T) {
	a := New(4)
	a.Clear(0)
	_, err := a.Expand(Root, descs(2))
	require.NoError(t, err)
	_, err = a.Expand(Root, descs(2))
	require.ErrorIs(t, err, ErrOutOfMemory)
	// Parent must remain unlinked to the failed allocation: child count
	// unchanged from the earlier successful Expand.
	_, count, ok := a.Node(Root).Children()
	require.True(t, ok)
	assert.Equal(t, int32(2), count)
}

func TestPublishBeforeObserve(t *testing.T) {
	// Property 2: a child slot is never observed with an uninitialized
	// move once the parent's child count is non-zero.
	a := New(20000)
	a.Clear(0)

	const producers = 4
	const perProducer = 50
	var wg sync.WaitGroup
	parents := make(chan Index, producers*perProducer)

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				first, err := a.Expand(Root, []sim.ChildDescriptor{{Move: sim.MoveID(i + 1)}})
				if err == nil {
					parents <- first
				}
			}
		}()
	}

	var obsWg sync.WaitGroup
	stop := make(chan struct{})
	badCh := make(chan string, 1)
	obsWg.Add(1)
	go func() {
		defer obsWg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_, count, ok := a.Node(Root).Children()
				if ok && count > 0 {
					first, _, _ := a.Node(Root).Children()
					child := a.Node(first)
					if child.Move == sim.NullMove {
						select {
						case badCh <- "observed uninitialized move":
						default:
						}
					}
				}
			}
		}
	}()

	wg.Wait()
	close(stop)
	obsWg.Wait()
	select {
	case msg := <-badCh:
		t.Fatal(msg)
	default:
	}
	close(parents)
}

func TestMonotoneCounts(t *testing.T) {
	a := New(10)
	a.Clear(0)
	root := a.Node(Root)
	last := root.Stat.Count()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				root.Stat.Add(0.5)
			}
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, root.Stat.Count(), last)
	assert.Equal(t, last+800, root.Stat.Count())
}

func TestCopySubtreeIdempotence(t *testing.T) {
	// Property 5: copy_subtree with min_count=0 preserves node count.
	src := New(100)
	src.Clear(0)
	first, err := src.Expand(Root, descs(4))
	require.NoError(t, err)
	for i := int32(0); i < 4; i++ {
		src.Node(Index(int32(first)+i)).Stat.Add(0.1)
	}
	_, err2 := src.Expand(Index(first), descs(2))
	require.NoError(t, err2)

	dst := New(100)
	newRoot, complete := CopySubtree(dst, src, Root, 0, nil)
	require.True(t, complete)
	assert.Equal(t, Root, newRoot)
	assert.Equal(t, src.Len(), dst.Len())
}

func TestReuseCorrectness(t *testing.T) {
	// Property 4: reachable descendants in the scratch tree preserve
	// count>=0 and child order/identity (up to the min-count filter).
	src := New(100)
	src.Clear(0)
	first, err := src.Expand(Root, descs(3))
	require.NoError(t, err)
	target := Index(int32(first) + 1)
	src.Node(target).Stat.Add(0.7)
	_, err2 := src.Expand(target, descs(2))
	require.NoError(t, err2)

	dst := New(100)
	newRoot, complete := ExtractSubtree(dst, src, target, nil)
	require.True(t, complete)
	assert.Equal(t, Root, newRoot)
	assert.GreaterOrEqual(t, dst.Node(newRoot).Stat.Count(), int64(0))

	firstDst, countDst, ok := dst.Node(newRoot).Children()
	require.True(t, ok)
	firstSrc, countSrc, ok2 := src.Node(target).Children()
	require.True(t, ok2)
	require.Equal(t, countSrc, countDst)
	for i := int32(0); i < countSrc; i++ {
		assert.Equal(t, src.Node(Index(int32(firstSrc)+i)).Move, dst.Node(Index(int32(firstDst)+i)).Move)
	}
}

func TestFindNode(t *testing.T) {
	a := New(100)
	a.Clear(0)
	first, err := a.Expand(Root, descs(3))
	require.NoError(t, err)
	grandchild := Index(int32(first) + 2)
	_, err2 := a.Expand(grandchild, []sim.ChildDescriptor{{Move: sim.MoveID(99)}})
	require.NoError(t, err2)

	found, ok := FindNode(a, Root, []sim.MoveID{2, 99})
	require.True(t, ok)
	assert.Equal(t, sim.MoveID(99), a.Node(found).Move)

	_, ok2 := FindNode(a, Root, []sim.MoveID{2, 123})
	assert.False(t, ok2)
}
