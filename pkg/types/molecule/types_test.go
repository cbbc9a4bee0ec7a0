package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFragmentCountMap_TotalAndKeys(t *testing.T) {
	m := FragmentCountMap{"[CH3]C": 2, "O": 1, "C(C)O": 1}
	assert.Equal(t, 4, m.Total())
	assert.Equal(t, []string{"C(C)O", "O", "[CH3]C"}, m.Keys())
	assert.Equal(t, 0, FragmentCountMap{}.Total())
}

func TestFragmentCountMap_Merge(t *testing.T) {
	m := FragmentCountMap{"a": 1}
	m.Merge(FragmentCountMap{"a": 2, "b": 1})
	assert.Equal(t, FragmentCountMap{"a": 3, "b": 1}, m)
}

func TestDecompositionResult_Stats(t *testing.T) {
	r := NewDecompositionResult(1)
	r.Fragments["ethanol"] = FragmentCountMap{"x": 2, "y": 1}
	r.Fragments["water"] = FragmentCountMap{"[OH2]": 1}
	r.FailedIDs = append(r.FailedIDs, "junk")

	s := r.Stats()
	assert.Equal(t, Stats{Molecules: 3, Succeeded: 2, Failed: 1, DistinctFragments: 3, TotalAtoms: 4}, s)
}

func TestNewDecompositionResult_EmptyNotNil(t *testing.T) {
	r := NewDecompositionResult(0)
	assert.NotNil(t, r.Fragments)
	assert.NotNil(t, r.FailedIDs)
	assert.Equal(t, 0, r.Radius)
}

//Personal.AI order the ending
