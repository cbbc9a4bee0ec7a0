package smiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/autofragment/internal/domain/fragment"
	"github.com/turtacn/autofragment/pkg/errors"
)

func hydrogens(g *fragment.MolecularGraph) []int {
	out := make([]int, g.NumAtoms())
	for i := range out {
		out[i] = g.Atom(i).Hydrogens
	}
	return out
}

func TestParse_Valid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		smiles    string
		atoms     int
		bonds     int
		hydrogens []int
	}{
		{"ethanol", "CCO", 3, 2, []int{3, 2, 1}},
		{"formaldehyde", "C=O", 2, 1, []int{2, 0}},
		{"acetylene", "C#C", 2, 1, []int{1, 1}},
		{"isobutane", "CC(C)C", 4, 3, []int{3, 1, 3, 3}},
		{"neopentane", "CC(C)(C)C", 5, 4, []int{3, 0, 3, 3, 3}},
		{"cyclopropane", "C1CC1", 3, 3, []int{2, 2, 2}},
		{"two digit ring", "C%10CC%10", 3, 3, []int{2, 2, 2}},
		{"benzene", "c1ccccc1", 6, 6, []int{1, 1, 1, 1, 1, 1}},
		{"pyridine", "n1ccccc1", 6, 6, []int{0, 1, 1, 1, 1, 1}},
		{"pyrrole", "[nH]1cccc1", 5, 5, []int{1, 1, 1, 1, 1}},
		{"thiophene", "c1ccsc1", 5, 5, []int{1, 1, 1, 0, 1}},
		{"selenophene", "[se]1cccc1", 5, 5, []int{0, 1, 1, 1, 1}},
		{"halogens", "ClCBr", 3, 2, []int{0, 2, 0}},
		{"stereo bonds", "C/C=C/C", 4, 3, []int{3, 1, 1, 3}},
		{"chirality", "C[C@@H](O)N", 4, 3, []int{3, 1, 1, 2}},
		{"ammonium", "[NH4+]", 1, 0, []int{4}},
		{"salt", "[Na+].[Cl-]", 2, 0, []int{0, 0}},
		{"atom class", "[CH3:1]O", 2, 1, []int{3, 1}},
		{"sulfoxide", "CS(=O)C", 4, 3, []int{3, 0, 0, 3}},
		{"water", "O", 1, 0, []int{2}},
		{"surrounding space", "  CC  ", 2, 1, []int{3, 3}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, err := parse(tt.smiles)
			require.NoError(t, err)
			assert.Equal(t, tt.atoms, g.NumAtoms())
			assert.Equal(t, tt.bonds, g.NumBonds())
			assert.Equal(t, tt.hydrogens, hydrogens(g))
		})
	}
}

func TestParse_AtomProperties(t *testing.T) {
	t.Parallel()
	g, err := parse("[13CH4]")
	require.NoError(t, err)
	assert.Equal(t, 13, g.Atom(0).Isotope)
	assert.Equal(t, "C", g.Atom(0).Element)

	g, err = parse("[O--]")
	require.NoError(t, err)
	assert.Equal(t, -2, g.Atom(0).Charge)

	g, err = parse("[Fe+3]")
	require.NoError(t, err)
	assert.Equal(t, 3, g.Atom(0).Charge)
	assert.Equal(t, "Fe", g.Atom(0).Element)

	g, err = parse("c1ccccc1")
	require.NoError(t, err)
	for i := 0; i < g.NumBonds(); i++ {
		assert.Equal(t, fragment.BondAromatic, g.Bond(i).Order)
	}

	g, err = parse("c1ccccc1-c1ccccc1")
	require.NoError(t, err)
	assert.Equal(t, fragment.BondSingle, g.Bond(6).Order)

	// An unwritten bond between aromatic atoms is aromatic only inside a ring.
	g, err = parse("c1ccccc1c1ccccc1")
	require.NoError(t, err)
	require.Equal(t, 13, g.NumBonds())
	assert.Equal(t, fragment.BondSingle, g.Bond(6).Order)
	assert.Equal(t, fragment.BondAromatic, g.Bond(5).Order)
	assert.Equal(t, fragment.BondAromatic, g.Bond(12).Order)
	assert.Equal(t, 0, g.Atom(5).Hydrogens)
	assert.Equal(t, 1, g.Atom(7).Hydrogens)

	g, err = parse("C=1CC1")
	require.NoError(t, err)
	assert.Equal(t, fragment.BondDouble, g.Bond(2).Order)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	tests := map[string]errors.ErrorCode{
		"":                      errors.ErrCodeEmptyMolecule,
		"   ":                   errors.ErrCodeEmptyMolecule,
		"not a valid structure": errors.ErrCodeStructureParseFailed,
		"C(":                    errors.ErrCodeStructureParseFailed,
		"C)":                    errors.ErrCodeStructureParseFailed,
		"(C)":                   errors.ErrCodeStructureParseFailed,
		"C1CC":                  errors.ErrCodeStructureParseFailed,
		"X":                     errors.ErrCodeStructureParseFailed,
		"[Xx]":                  errors.ErrCodeStructureParseFailed,
		"[CH4":                  errors.ErrCodeStructureParseFailed,
		"C=":                    errors.ErrCodeStructureParseFailed,
		"C==C":                  errors.ErrCodeStructureParseFailed,
		"C11":                   errors.ErrCodeStructureParseFailed,
		"C12CC12":               errors.ErrCodeStructureParseFailed,
		"C=1CC#1":               errors.ErrCodeStructureParseFailed,
		"C%1":                   errors.ErrCodeStructureParseFailed,
		"=C":                    errors.ErrCodeStructureParseFailed,
		"[C:]":                  errors.ErrCodeStructureParseFailed,
	}
	for src, code := range tests {
		src, code := src, code
		t.Run(src, func(t *testing.T) {
			t.Parallel()
			_, err := parse(src)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, code), "got %v", err)
		})
	}
}

func TestParse_TrailingDotIsAccepted(t *testing.T) {
	t.Parallel()
	g, err := parse("C.")
	require.NoError(t, err)
	assert.Equal(t, 1, g.NumAtoms())
}

//Personal.AI order the ending
