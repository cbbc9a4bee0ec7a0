// Package smiles is the native cheminformatics toolkit behind fragment
// decomposition.  It parses SMILES line notation into molecular graphs,
// folds explicit hydrogens into their heavy neighbours, finds bounded-radius
// atom environments and renders environments to canonical fragment strings.
//
// Only the parts of SMILES needed for connectivity are interpreted: stereo
// markers and atom classes are accepted and dropped, and aromaticity is taken
// as written.
package smiles

import (
	"fmt"

	"github.com/turtacn/autofragment/internal/domain/fragment"
)

// Toolkit implements fragment.GraphSource.  It holds no mutable state and
// is safe for concurrent use.
type Toolkit struct {
	enforceSize bool
	maxLeaves   int
}

var _ fragment.GraphSource = (*Toolkit)(nil)

// Option configures a Toolkit.
type Option func(*Toolkit)

// WithEnforceSize controls whether an environment that cannot reach the
// requested radius collapses to the bare atom.  Enabled by default.
func WithEnforceSize(enabled bool) Option {
	return func(t *Toolkit) {
		t.enforceSize = enabled
	}
}

// WithMaxLeaves bounds the canonicalization search for one fragment.
func WithMaxLeaves(n int) Option {
	return func(t *Toolkit) {
		if n > 0 {
			t.maxLeaves = n
		}
	}
}

// NewToolkit creates a Toolkit.
func NewToolkit(opts ...Option) *Toolkit {
	t := &Toolkit{enforceSize: true, maxLeaves: DefaultMaxLeaves}
	for _, o := range opts {
		o(t)
	}
	return t
}

// formatVersion changes whenever the fragment string format does, so tables
// cached under an older format are never served.
const formatVersion = 2

// Variant describes the options that change fragment output, for use in
// cache keys.  The leaf bound is included because it decides which fragments
// fail.
func (t *Toolkit) Variant() string {
	return fmt.Sprintf("smiles/v%d:enforce=%t:leaves=%d", formatVersion, t.enforceSize, t.maxLeaves)
}

// Parse implements fragment.GraphSource.
func (t *Toolkit) Parse(source string) (*fragment.MolecularGraph, error) {
	return parse(source)
}

// RemoveExplicitHydrogens implements fragment.GraphSource.
func (t *Toolkit) RemoveExplicitHydrogens(g *fragment.MolecularGraph) (*fragment.MolecularGraph, error) {
	return removeExplicitHydrogens(g)
}

// EnvironmentBonds implements fragment.GraphSource.
func (t *Toolkit) EnvironmentBonds(g *fragment.MolecularGraph, atom, radius int) ([]int, error) {
	return environmentBonds(g, atom, radius, t.enforceSize)
}

// CanonicalFragment implements fragment.GraphSource.
func (t *Toolkit) CanonicalFragment(g *fragment.MolecularGraph, atoms, bonds []int) (string, error) {
	return canonicalString(g, atoms, bonds, t.maxLeaves)
}

//Personal.AI order the ending
