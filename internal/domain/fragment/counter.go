package fragment

import (
	"context"
	"sort"

	"github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

// DefaultMaxAtoms is the heavy-atom limit applied when none is configured.
const DefaultMaxAtoms = 500

// Counter computes per-molecule fragment frequency tables.
type Counter struct {
	source   GraphSource
	maxAtoms int
}

// CounterOption configures a Counter.
type CounterOption func(*Counter)

// WithMaxAtoms sets the largest molecule the counter accepts.  A value of
// zero or less disables the limit.
func WithMaxAtoms(n int) CounterOption {
	return func(c *Counter) {
		c.maxAtoms = n
	}
}

// NewCounter creates a Counter backed by source.
func NewCounter(source GraphSource, opts ...CounterOption) *Counter {
	c := &Counter{source: source, maxAtoms: DefaultMaxAtoms}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CountFragments returns the fragment table of g at the given radius.  The
// counts sum to the number of atoms in g.  Any capability failure aborts the
// whole molecule; no partial table is returned.
func (c *Counter) CountFragments(g *MolecularGraph, radius int) (molecule.FragmentCountMap, error) {
	return c.CountFragmentsContext(context.Background(), g, radius)
}

// CountFragmentsContext is CountFragments that gives up between atoms once
// ctx is done.
func (c *Counter) CountFragmentsContext(ctx context.Context, g *MolecularGraph, radius int) (molecule.FragmentCountMap, error) {
	if err := c.check(g, radius); err != nil {
		return nil, err
	}
	counts := make(molecule.FragmentCountMap)
	for i := 0; i < g.NumAtoms(); i++ {
		if err := interrupted(ctx); err != nil {
			return nil, err
		}
		key, err := c.fragmentAt(g, i, radius)
		if err != nil {
			return nil, err
		}
		counts[key]++
	}
	return counts, nil
}

// CountFragmentsUpTo merges the tables of every radius from 0 to maxRadius.
// The counts sum to (maxRadius+1) times the number of atoms.
func (c *Counter) CountFragmentsUpTo(g *MolecularGraph, maxRadius int) (molecule.FragmentCountMap, error) {
	return c.CountFragmentsUpToContext(context.Background(), g, maxRadius)
}

// CountFragmentsUpToContext is CountFragmentsUpTo that gives up between atoms
// once ctx is done.
func (c *Counter) CountFragmentsUpToContext(ctx context.Context, g *MolecularGraph, maxRadius int) (molecule.FragmentCountMap, error) {
	if err := c.check(g, maxRadius); err != nil {
		return nil, err
	}
	counts := make(molecule.FragmentCountMap)
	for r := 0; r <= maxRadius; r++ {
		layer, err := c.CountFragmentsContext(ctx, g, r)
		if err != nil {
			return nil, err
		}
		counts.Merge(layer)
	}
	return counts, nil
}

// Neighborhood returns the environment of atom at radius.  When no bond lies
// within the radius the atom itself is the only member.
func (c *Counter) Neighborhood(g *MolecularGraph, atom, radius int) (Neighborhood, error) {
	bonds, err := c.source.EnvironmentBonds(g, atom, radius)
	if err != nil {
		return Neighborhood{}, errors.Wrap(err, errors.ErrCodeEnvironmentFailed, "environment lookup failed").
			WithDetailf("atom=%d radius=%d", atom, radius)
	}

	bonds = uniqueSorted(bonds)
	touched := make([]int, 0, len(bonds)+1)
	for _, b := range bonds {
		if !g.HasBond(b) {
			return Neighborhood{}, errors.Newf(errors.ErrCodeEnvironmentFailed,
				"environment of atom %d references unknown bond %d", atom, b)
		}
		bond := g.Bond(b)
		touched = append(touched, bond.Begin, bond.End)
	}
	touched = uniqueSorted(touched)
	if len(touched) == 0 {
		touched = []int{atom}
	}
	return Neighborhood{Center: atom, Bonds: bonds, Atoms: touched}, nil
}

func (c *Counter) fragmentAt(g *MolecularGraph, atom, radius int) (string, error) {
	env, err := c.Neighborhood(g, atom, radius)
	if err != nil {
		return "", err
	}
	key, err := c.source.CanonicalFragment(g, env.Atoms, env.Bonds)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeCanonicalizationFailed, "fragment could not be canonicalized").
			WithDetailf("atom=%d radius=%d", atom, radius)
	}
	return key, nil
}

func (c *Counter) check(g *MolecularGraph, radius int) error {
	if radius < 0 {
		return errors.Newf(errors.ErrCodeInvalidRadius, "radius %d is negative", radius)
	}
	if g == nil || g.NumAtoms() == 0 {
		return errors.New(errors.ErrCodeEmptyMolecule, "molecule has no atoms")
	}
	if c.maxAtoms > 0 && g.NumAtoms() > c.maxAtoms {
		return errors.Newf(errors.ErrCodeMoleculeTooLarge, "molecule has %d atoms, limit is %d", g.NumAtoms(), c.maxAtoms)
	}
	return nil
}

func interrupted(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.ErrCodeTimeout, "fragment counting timed out")
	default:
		return errors.Wrap(err, errors.ErrCodeCancelled, "fragment counting cancelled")
	}
}

func uniqueSorted(in []int) []int {
	if len(in) == 0 {
		return []int{}
	}
	out := make([]int, len(in))
	copy(out, in)
	sort.Ints(out)
	j := 0
	for i := 1; i < len(out); i++ {
		if out[i] != out[j] {
			j++
			out[j] = out[i]
		}
	}
	return out[:j+1]
}

//Personal.AI order the ending
