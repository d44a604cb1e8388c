// Package dotdump renders a snapshot of a search tree to Graphviz DOT,
// serving the domain diagnostic hook spec.md §6 names (`dump(stream)`) and
// the read-only Observation tree access of the same section.
//
// Nothing in the teacher (github.com/alphabeth) renders a tree to DOT; this
// package exists to put the gographviz dependency already present in the
// teacher's go.mod to use rather than drop it, since no SPEC_FULL.md
// component other than this diagnostic hook has a natural home for a graph
// renderer.
package dotdump

import (
	"fmt"
	"io"

	"github.com/awalterschulze/gographviz"

	"github.com/polysearch/mcts/internal/arena"
)

// MaxNodes bounds how many nodes a single Dump will visit, so a pathological
// or still-growing tree cannot make the diagnostic hook itself run unbounded.
const MaxNodes = 20000

// Dump writes a BFS-order DOT rendering of a, starting at root, to w. Each
// node label carries its visit count, mean value and RAVE mean; edges carry
// the move id that produced the child. Traversal stops early, still emitting
// a valid (partial) graph, if more than MaxNodes nodes would be visited.
func Dump(w io.Writer, a *arena.Arena, root arena.Index) error {
	g := gographviz.NewGraph()
	if err := g.SetName("search"); err != nil {
		return err
	}
	if err := g.SetDir(true); err != nil {
		return err
	}

	type pending struct {
		idx    arena.Index
		parent string
	}
	queue := []pending{{root, ""}}
	visited := 0

	for len(queue) > 0 && visited < MaxNodes {
		cur := queue[0]
		queue = queue[1:]
		visited++

		name := nodeName(cur.idx)
		node := a.Node(cur.idx)
		label := fmt.Sprintf("move=%d n=%d q=%.3f rave=%.3f",
			node.Move, node.Stat.Count(), node.Stat.Mean(), node.Rave.Mean())
		if err := g.AddNode("search", name, map[string]string{"label": quote(label)}); err != nil {
			return err
		}
		if cur.parent != "" {
			if err := g.AddEdge(cur.parent, name, true, nil); err != nil {
				return err
			}
		}

		first, count, ok := node.Children()
		if !ok {
			continue
		}
		for i := int32(0); i < count; i++ {
			queue = append(queue, pending{arena.Index(int32(first) + i), name})
		}
	}

	_, err := io.WriteString(w, g.String())
	return err
}

func nodeName(idx arena.Index) string {
	return fmt.Sprintf("n%d", int32(idx))
}

func quote(s string) string {
	return "\"" + s + "\""
}
