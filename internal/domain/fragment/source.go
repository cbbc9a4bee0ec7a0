package fragment

// GraphSource is the cheminformatics capability the counter depends on.
// Implementations must be safe for concurrent use; the batch decomposer calls
// them from several workers at once.
type GraphSource interface {
	// Parse turns a structural source string into a graph.
	Parse(source string) (*MolecularGraph, error)

	// RemoveExplicitHydrogens returns a graph with explicit hydrogen atoms
	// folded into their heavy neighbours.  The input graph is left untouched.
	RemoveExplicitHydrogens(g *MolecularGraph) (*MolecularGraph, error)

	// EnvironmentBonds returns the indices of the bonds within radius
	// bond-steps of atom.
	EnvironmentBonds(g *MolecularGraph, atom, radius int) ([]int, error)

	// CanonicalFragment renders the subgraph induced by atoms and bonds to a
	// string that does not depend on atom numbering.
	CanonicalFragment(g *MolecularGraph, atoms, bonds []int) (string, error)
}

//Personal.AI order the ending
