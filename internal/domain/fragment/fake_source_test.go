package fragment

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/turtacn/autofragment/pkg/errors"
)

// fakeSource understands a toy notation: each upper-case letter is an atom
// bonded to the previous one, '.' starts a new component and 'H' is an
// explicit hydrogen.  Fragment strings are the sorted element letters of the
// subgraph followed by its bond count.
type fakeSource struct {
	failCanonicalOn string
	failEnvironment bool
	panicOn         string
	parses          atomic.Int32
}

func (f *fakeSource) Parse(source string) (*MolecularGraph, error) {
	f.parses.Add(1)
	if f.panicOn != "" && source == f.panicOn {
		panic("toolkit crashed")
	}
	var atoms []Atom
	var bonds []Bond
	prev := -1
	for _, r := range source {
		switch {
		case r == '.':
			prev = -1
		case r >= 'A' && r <= 'Z':
			atoms = append(atoms, Atom{Element: string(r)})
			cur := len(atoms) - 1
			if prev >= 0 {
				bonds = append(bonds, Bond{Begin: prev, End: cur, Order: BondSingle})
			}
			prev = cur
		default:
			return nil, errors.Newf(errors.ErrCodeStructureParseFailed, "unexpected %q", r)
		}
	}
	return NewMolecularGraph(atoms, bonds)
}

func (f *fakeSource) RemoveExplicitHydrogens(g *MolecularGraph) (*MolecularGraph, error) {
	remap := make(map[int]int)
	var atoms []Atom
	for _, a := range g.Atoms() {
		if a.IsHydrogen() {
			continue
		}
		remap[a.Index] = len(atoms)
		atoms = append(atoms, a)
	}
	var bonds []Bond
	for _, b := range g.Bonds() {
		nb, okB := remap[b.Begin]
		ne, okE := remap[b.End]
		if okB && okE {
			bonds = append(bonds, Bond{Begin: nb, End: ne, Order: b.Order})
		} else if okB {
			atoms[nb].Hydrogens++
		} else if okE {
			atoms[ne].Hydrogens++
		}
	}
	return NewMolecularGraph(atoms, bonds)
}

func (f *fakeSource) EnvironmentBonds(g *MolecularGraph, atom, radius int) ([]int, error) {
	if f.failEnvironment {
		return nil, errors.New(errors.ErrCodeEnvironmentFailed, "no environment")
	}
	depth := map[int]int{atom: 0}
	queue := []int{atom}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, b := range g.BondsOf(cur) {
			nb := g.Bond(b).Other(cur)
			if _, ok := depth[nb]; !ok {
				depth[nb] = depth[cur] + 1
				queue = append(queue, nb)
			}
		}
	}
	var out []int
	for i := 0; i < g.NumBonds(); i++ {
		b := g.Bond(i)
		db, okB := depth[b.Begin]
		de, okE := depth[b.End]
		if okB && okE && min(db, de) <= radius-1 {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeSource) CanonicalFragment(g *MolecularGraph, atoms, bonds []int) (string, error) {
	elems := make([]string, len(atoms))
	for i, a := range atoms {
		elems[i] = g.Atom(a).Element
		if h := g.Atom(a).Hydrogens; h > 0 {
			elems[i] += strings.Repeat("h", h)
		}
	}
	sort.Strings(elems)
	key := strings.Join(elems, "") + "/" + string(rune('0'+len(bonds)))
	if f.failCanonicalOn != "" && strings.Contains(key, f.failCanonicalOn) {
		return "", errors.New(errors.CodeUnknown, "degenerate substructure")
	}
	return key, nil
}

//Personal.AI order the ending
