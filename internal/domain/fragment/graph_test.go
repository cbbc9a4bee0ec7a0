package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/autofragment/pkg/errors"
)

func TestNewMolecularGraph_Valid(t *testing.T) {
	t.Parallel()
	g, err := NewMolecularGraph(
		[]Atom{{Element: "C", Index: 7}, {Element: "O"}},
		[]Bond{{Begin: 0, End: 1}},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, g.NumAtoms())
	assert.Equal(t, 1, g.NumBonds())
	assert.Equal(t, 0, g.Atom(0).Index)
	assert.Equal(t, BondSingle, g.Bond(0).Order)
	assert.Equal(t, []int{0}, g.BondsOf(1))
	assert.Equal(t, 1, g.Bond(0).Other(0))
	assert.Equal(t, 0, g.Bond(0).Other(1))
}

func TestNewMolecularGraph_Rejects(t *testing.T) {
	t.Parallel()
	atoms := []Atom{{Element: "C"}, {Element: "C"}}
	cases := map[string][]Bond{
		"out of range": {{Begin: 0, End: 2}},
		"self loop":    {{Begin: 1, End: 1}},
		"duplicate":    {{Begin: 0, End: 1}, {Begin: 1, End: 0}},
	}
	for name, bonds := range cases {
		bonds := bonds
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := NewMolecularGraph(atoms, bonds)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeStructureParseFailed))
		})
	}
}

func TestMolecularGraph_AccessorsReturnCopies(t *testing.T) {
	t.Parallel()
	g, err := NewMolecularGraph([]Atom{{Element: "C"}, {Element: "N"}}, []Bond{{Begin: 0, End: 1, Order: BondTriple}})
	require.NoError(t, err)

	g.BondsOf(0)[0] = 99
	g.Atoms()[0].Element = "X"
	g.Bonds()[0].Order = BondSingle

	assert.Equal(t, []int{0}, g.BondsOf(0))
	assert.Equal(t, "C", g.Atom(0).Element)
	assert.Equal(t, BondTriple, g.Bond(0).Order)
}

func TestBondOrder(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "=", BondDouble.String())
	assert.Equal(t, ":", BondAromatic.String())
	assert.Equal(t, 1, BondAromatic.Valence())
	assert.Equal(t, 3, BondTriple.Valence())
}

//Personal.AI order the ending
