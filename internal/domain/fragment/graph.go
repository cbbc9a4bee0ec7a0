// Package fragment implements circular-fragment decomposition of molecular
// graphs.  For every atom it collects the bond-induced environment of a
// bounded radius, renders that environment to a canonical fragment string
// through a GraphSource, and tabulates how often each string occurs.  The
// batch layer applies the counter to a mapping of molecule id to structure
// source and isolates per-molecule failures.
package fragment

import (
	"fmt"

	"github.com/turtacn/autofragment/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Bond orders
// ─────────────────────────────────────────────────────────────────────────────

// BondOrder is the order (type) of a bond.
type BondOrder int

const (
	BondSingle    BondOrder = 1
	BondDouble    BondOrder = 2
	BondTriple    BondOrder = 3
	BondQuadruple BondOrder = 4
	// BondAromatic marks a bond inside an aromatic system.
	BondAromatic BondOrder = 5
)

// String returns the conventional line-notation symbol of the bond order.
func (o BondOrder) String() string {
	switch o {
	case BondSingle:
		return "-"
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondQuadruple:
		return "$"
	case BondAromatic:
		return ":"
	default:
		return fmt.Sprintf("?%d", int(o))
	}
}

// Valence returns the bond's contribution to an atom's valence.  Aromatic
// bonds count as one; the extra electron is accounted for per atom.
func (o BondOrder) Valence() int {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	case BondQuadruple:
		return 4
	default:
		return 1
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Atoms and bonds
// ─────────────────────────────────────────────────────────────────────────────

// Atom is one vertex of a MolecularGraph.
type Atom struct {
	Index    int
	Element  string
	Aromatic bool
	Charge   int
	// Isotope is the mass number, zero when unspecified.
	Isotope int
	// Hydrogens is the total number of implicit plus folded hydrogens.
	Hydrogens int
}

// IsHydrogen reports whether the atom is a hydrogen atom.
func (a Atom) IsHydrogen() bool {
	return a.Element == "H"
}

// Bond is one edge of a MolecularGraph.
type Bond struct {
	Index int
	Begin int
	End   int
	Order BondOrder
}

// Other returns the endpoint of b that is not atom.
func (b Bond) Other(atom int) int {
	if b.Begin == atom {
		return b.End
	}
	return b.Begin
}

// ─────────────────────────────────────────────────────────────────────────────
// MolecularGraph
// ─────────────────────────────────────────────────────────────────────────────

// MolecularGraph is an immutable atoms-and-bonds view of one molecule.
// Atom and bond indices are dense and start at zero.
type MolecularGraph struct {
	atoms     []Atom
	bonds     []Bond
	adjacency [][]int
}

// NewMolecularGraph validates atoms and bonds and builds the graph.  Atom and
// bond Index fields are rewritten to match their slice position.
func NewMolecularGraph(atoms []Atom, bonds []Bond) (*MolecularGraph, error) {
	g := &MolecularGraph{
		atoms:     make([]Atom, len(atoms)),
		bonds:     make([]Bond, len(bonds)),
		adjacency: make([][]int, len(atoms)),
	}
	for i, a := range atoms {
		a.Index = i
		g.atoms[i] = a
	}

	seen := make(map[[2]int]struct{}, len(bonds))
	for i, b := range bonds {
		if b.Begin < 0 || b.Begin >= len(atoms) || b.End < 0 || b.End >= len(atoms) {
			return nil, errors.Newf(errors.ErrCodeStructureParseFailed,
				"bond %d references atom outside [0,%d)", i, len(atoms))
		}
		if b.Begin == b.End {
			return nil, errors.Newf(errors.ErrCodeStructureParseFailed, "bond %d is a self-loop on atom %d", i, b.Begin)
		}
		key := [2]int{min(b.Begin, b.End), max(b.Begin, b.End)}
		if _, dup := seen[key]; dup {
			return nil, errors.Newf(errors.ErrCodeStructureParseFailed,
				"duplicate bond between atoms %d and %d", key[0], key[1])
		}
		seen[key] = struct{}{}
		if b.Order == 0 {
			b.Order = BondSingle
		}
		b.Index = i
		g.bonds[i] = b
		g.adjacency[b.Begin] = append(g.adjacency[b.Begin], i)
		g.adjacency[b.End] = append(g.adjacency[b.End], i)
	}
	return g, nil
}

// NumAtoms returns the number of atoms.
func (g *MolecularGraph) NumAtoms() int { return len(g.atoms) }

// NumBonds returns the number of bonds.
func (g *MolecularGraph) NumBonds() int { return len(g.bonds) }

// Atom returns the atom at index i.  It panics if i is out of range.
func (g *MolecularGraph) Atom(i int) Atom { return g.atoms[i] }

// Bond returns the bond at index i.  It panics if i is out of range.
func (g *MolecularGraph) Bond(i int) Bond { return g.bonds[i] }

// Atoms returns a copy of all atoms.
func (g *MolecularGraph) Atoms() []Atom {
	out := make([]Atom, len(g.atoms))
	copy(out, g.atoms)
	return out
}

// Bonds returns a copy of all bonds.
func (g *MolecularGraph) Bonds() []Bond {
	out := make([]Bond, len(g.bonds))
	copy(out, g.bonds)
	return out
}

// BondsOf returns the indices of the bonds incident to atom i.
func (g *MolecularGraph) BondsOf(i int) []int {
	out := make([]int, len(g.adjacency[i]))
	copy(out, g.adjacency[i])
	return out
}

// Degree returns the number of bonds incident to atom i.
func (g *MolecularGraph) Degree(i int) int { return len(g.adjacency[i]) }

// HasAtom reports whether i is a valid atom index.
func (g *MolecularGraph) HasAtom(i int) bool { return i >= 0 && i < len(g.atoms) }

// HasBond reports whether i is a valid bond index.
func (g *MolecularGraph) HasBond(i int) bool { return i >= 0 && i < len(g.bonds) }

// Neighborhood is the environment of one center atom: the bonds within the
// radius and the atoms they touch.
type Neighborhood struct {
	Center int
	Bonds  []int
	Atoms  []int
}

//Personal.AI order the ending
