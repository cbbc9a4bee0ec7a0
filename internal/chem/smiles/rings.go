package smiles

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/turtacn/autofragment/internal/domain/fragment"
)

func connectivity(numAtoms int, bonds []fragment.Bond) *simple.UndirectedGraph {
	ug := simple.NewUndirectedGraph()
	for i := 0; i < numAtoms; i++ {
		ug.AddNode(simple.Node(int64(i)))
	}
	for _, b := range bonds {
		ug.SetEdge(ug.NewEdge(simple.Node(int64(b.Begin)), simple.Node(int64(b.End))))
	}
	return ug
}

// ringPairs returns the atom pairs, smaller index first, that are joined by
// a bond lying on some cycle.  A bond lies on a cycle exactly when it lies on
// a member of a cycle basis.
func ringPairs(numAtoms int, bonds []fragment.Bond) map[[2]int]struct{} {
	pairs := make(map[[2]int]struct{})
	for _, cycle := range topo.UndirectedCyclesIn(connectivity(numAtoms, bonds)) {
		// The first node is repeated at the end.
		for i := 1; i < len(cycle); i++ {
			a, b := int(cycle[i-1].ID()), int(cycle[i].ID())
			pairs[[2]int{min(a, b), max(a, b)}] = struct{}{}
		}
	}
	return pairs
}

// inRing reports whether the bond between a and b lies on a cycle.
func inRing(rings map[[2]int]struct{}, a, b int) bool {
	_, ok := rings[[2]int{min(a, b), max(a, b)}]
	return ok
}

//Personal.AI order the ending
