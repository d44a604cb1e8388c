package dotdump

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polysearch/mcts/internal/arena"
	"github.com/polysearch/mcts/internal/sim"
)

func TestDumpRendersNodesAndEdges(t *testing.T) {
	a := arena.New(8)
	a.Clear(0.5)

	first, err := a.Expand(arena.Root, []sim.ChildDescriptor{
		{Move: 0, InitValue: 0.1},
		{Move: 1, InitValue: 0.2},
	})
	require.NoError(t, err)
	_, err = a.Expand(first, []sim.ChildDescriptor{
		{Move: 2, InitValue: 0.3},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, a, arena.Root))

	out := buf.String()
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "n0")
	assert.Contains(t, out, "n1")
	assert.Contains(t, out, "n2")
	assert.Contains(t, out, "n3")
	assert.Equal(t, 2, strings.Count(out, "n0->"))
}

func TestDumpStopsAtMaxNodes(t *testing.T) {
	a := arena.New(int(MaxNodes) + 10)
	a.Clear(0.5)

	descs := make([]sim.ChildDescriptor, MaxNodes+5)
	for i := range descs {
		descs[i] = sim.ChildDescriptor{Move: sim.MoveID(i)}
	}
	_, err := a.Expand(arena.Root, descs)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, a, arena.Root))
	assert.LessOrEqual(t, strings.Count(buf.String(), "label="), MaxNodes)
}
