package smiles

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/turtacn/autofragment/internal/domain/fragment"
	"github.com/turtacn/autofragment/pkg/errors"
)

// toGonum builds the undirected connectivity graph of g; node ids are atom
// indices.
func toGonum(g *fragment.MolecularGraph) *simple.UndirectedGraph {
	return connectivity(g.NumAtoms(), g.Bonds())
}

// atomDepths returns the bond distance from atom to every atom reachable
// within limit steps.
func atomDepths(g *fragment.MolecularGraph, atom, limit int) map[int]int {
	depths := make(map[int]int)
	bfs := traverse.BreadthFirst{}
	bfs.Walk(toGonum(g), simple.Node(int64(atom)), func(n graph.Node, d int) bool {
		if d > limit {
			return true
		}
		depths[int(n.ID())] = d
		return false
	})
	return depths
}

// environmentBonds returns the bonds with at least one endpoint fewer than
// radius steps from atom.  With enforceSize the result is empty unless some
// bond starts exactly radius-1 steps away, i.e. the environment really
// reaches the requested radius.
func environmentBonds(g *fragment.MolecularGraph, atom, radius int, enforceSize bool) ([]int, error) {
	if !g.HasAtom(atom) {
		return nil, errors.Newf(errors.ErrCodeEnvironmentFailed, "atom %d out of range", atom)
	}
	if radius < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidRadius, "radius %d is negative", radius)
	}
	if radius == 0 || g.Degree(atom) == 0 {
		return []int{}, nil
	}

	depths := atomDepths(g, atom, radius-1)
	seen := make(map[int]struct{})
	reached := false
	for a, d := range depths {
		for _, b := range g.BondsOf(a) {
			if d == radius-1 {
				if od, ok := depths[g.Bond(b).Other(a)]; !ok || od >= d {
					reached = true
				}
			}
			seen[b] = struct{}{}
		}
	}
	if enforceSize && !reached {
		return []int{}, nil
	}

	out := make([]int, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Ints(out)
	return out, nil
}

//Personal.AI order the ending
