package smiles

import (
	"github.com/turtacn/autofragment/internal/domain/fragment"
)

// removableHydrogen reports whether atom i is an explicit hydrogen that can
// be folded into its only neighbour: neutral, no isotope label, exactly one
// single bond to a non-hydrogen atom.
func removableHydrogen(g *fragment.MolecularGraph, i int) (neighbor int, ok bool) {
	a := g.Atom(i)
	if !a.IsHydrogen() || a.Charge != 0 || a.Isotope != 0 || a.Hydrogens != 0 || g.Degree(i) != 1 {
		return -1, false
	}
	b := g.Bond(g.BondsOf(i)[0])
	if b.Order != fragment.BondSingle {
		return -1, false
	}
	nb := b.Other(i)
	if g.Atom(nb).IsHydrogen() {
		return -1, false
	}
	return nb, true
}

// removeExplicitHydrogens returns a new graph without removable hydrogens;
// each removed hydrogen is added to its neighbour's hydrogen count.
func removeExplicitHydrogens(g *fragment.MolecularGraph) (*fragment.MolecularGraph, error) {
	remap := make([]int, g.NumAtoms())
	extra := make([]int, g.NumAtoms())
	atoms := make([]fragment.Atom, 0, g.NumAtoms())
	for i := 0; i < g.NumAtoms(); i++ {
		if nb, ok := removableHydrogen(g, i); ok {
			remap[i] = -1
			extra[nb]++
			continue
		}
		remap[i] = len(atoms)
		atoms = append(atoms, g.Atom(i))
	}
	if len(atoms) == g.NumAtoms() {
		return g, nil
	}
	for i := 0; i < g.NumAtoms(); i++ {
		if remap[i] >= 0 {
			atoms[remap[i]].Hydrogens += extra[i]
		}
	}

	bonds := make([]fragment.Bond, 0, g.NumBonds())
	for _, b := range g.Bonds() {
		nb, ne := remap[b.Begin], remap[b.End]
		if nb < 0 || ne < 0 {
			continue
		}
		bonds = append(bonds, fragment.Bond{Begin: nb, End: ne, Order: b.Order})
	}
	return fragment.NewMolecularGraph(atoms, bonds)
}

//Personal.AI order the ending
