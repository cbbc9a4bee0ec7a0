package fragment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

func mustParse(t *testing.T, src *fakeSource, s string) *MolecularGraph {
	t.Helper()
	g, err := src.Parse(s)
	require.NoError(t, err)
	g, err = src.RemoveExplicitHydrogens(g)
	require.NoError(t, err)
	return g
}

func TestCountFragments_Ethanol(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	c := NewCounter(src)
	g := mustParse(t, src, "CCO")

	r0, err := c.CountFragments(g, 0)
	require.NoError(t, err)
	assert.Equal(t, molecule.FragmentCountMap{"C/0": 2, "O/0": 1}, r0)

	r1, err := c.CountFragments(g, 1)
	require.NoError(t, err)
	assert.Equal(t, molecule.FragmentCountMap{"CC/1": 1, "CCO/2": 1, "CO/1": 1}, r1)
}

func TestCountFragments_OrderIndependent(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	c := NewCounter(src)

	for _, r := range []int{0, 1, 2, 3} {
		a, err := c.CountFragments(mustParse(t, src, "CCON"), r)
		require.NoError(t, err)
		b, err := c.CountFragments(mustParse(t, src, "NOCC"), r)
		require.NoError(t, err)
		assert.Equal(t, a, b, "radius %d", r)
	}
}

func TestCountFragments_Deterministic(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	c := NewCounter(src)
	g := mustParse(t, src, "CCNCCO.CS")

	first, err := c.CountFragments(g, 2)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := c.CountFragments(g, 2)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCountFragments_CountConservation(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	c := NewCounter(src)

	for _, s := range []string{"C", "CC", "CCO", "CCCCCC.O.N", "HOH", "CNOSPF"} {
		g := mustParse(t, src, s)
		for r := 0; r <= 4; r++ {
			m, err := c.CountFragments(g, r)
			require.NoError(t, err)
			assert.Equal(t, g.NumAtoms(), m.Total(), "%s at radius %d", s, r)
		}
	}
}

func TestCountFragments_RadiusZeroBaseline(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	c := NewCounter(src)
	g := mustParse(t, src, "CCOCCNCC")

	m, err := c.CountFragments(g, 0)
	require.NoError(t, err)
	elements := map[string]struct{}{}
	for _, a := range g.Atoms() {
		elements[a.Element] = struct{}{}
	}
	assert.LessOrEqual(t, len(m), len(elements))
}

func TestCountFragments_IsolatedAtomFallback(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	c := NewCounter(src)
	g := mustParse(t, src, "O")

	for r := 0; r <= 3; r++ {
		m, err := c.CountFragments(g, r)
		require.NoError(t, err)
		assert.Equal(t, molecule.FragmentCountMap{"O/0": 1}, m)
	}
}

func TestCountFragments_Water(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	g := mustParse(t, src, "HOH")
	require.Equal(t, 1, g.NumAtoms())
	require.Equal(t, 0, g.NumBonds())

	m, err := NewCounter(src).CountFragments(g, 1)
	require.NoError(t, err)
	assert.Equal(t, molecule.FragmentCountMap{"Ohh/0": 1}, m)
}

func TestCountFragments_Errors(t *testing.T) {
	t.Parallel()

	t.Run("negative radius", func(t *testing.T) {
		src := &fakeSource{}
		_, err := NewCounter(src).CountFragments(mustParse(t, src, "CC"), -1)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRadius))
	})

	t.Run("empty molecule", func(t *testing.T) {
		g, err := NewMolecularGraph(nil, nil)
		require.NoError(t, err)
		_, err = NewCounter(&fakeSource{}).CountFragments(g, 1)
		assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyMolecule))

		_, err = NewCounter(&fakeSource{}).CountFragments(nil, 1)
		assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyMolecule))
	})

	t.Run("too large", func(t *testing.T) {
		src := &fakeSource{}
		_, err := NewCounter(src, WithMaxAtoms(2)).CountFragments(mustParse(t, src, "CCO"), 1)
		assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeTooLarge))

		m, err := NewCounter(src, WithMaxAtoms(0)).CountFragments(mustParse(t, src, "CCO"), 1)
		require.NoError(t, err)
		assert.Equal(t, 3, m.Total())
	})

	t.Run("cancelled context", func(t *testing.T) {
		src := &fakeSource{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m, err := NewCounter(src).CountFragmentsUpToContext(ctx, mustParse(t, src, "CCO"), 2)
		assert.Nil(t, m)
		assert.True(t, errors.IsCode(err, errors.ErrCodeCancelled))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("environment failure", func(t *testing.T) {
		src := &fakeSource{failEnvironment: true}
		m, err := NewCounter(src).CountFragments(mustParse(t, src, "CC"), 1)
		assert.Nil(t, m)
		assert.True(t, errors.IsCode(err, errors.ErrCodeEnvironmentFailed))
	})

	t.Run("canonicalization failure drops whole molecule", func(t *testing.T) {
		src := &fakeSource{failCanonicalOn: "S"}
		m, err := NewCounter(src).CountFragments(mustParse(t, src, "CCCS"), 0)
		assert.Nil(t, m)
		assert.Equal(t, errors.ErrCodeCanonicalizationFailed, errors.GetCode(err))
	})
}

func TestCountFragmentsUpTo(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	c := NewCounter(src)
	g := mustParse(t, src, "CCO")

	m, err := c.CountFragmentsUpTo(g, 1)
	require.NoError(t, err)
	assert.Equal(t, molecule.FragmentCountMap{"C/0": 2, "O/0": 1, "CC/1": 1, "CCO/2": 1, "CO/1": 1}, m)
	assert.Equal(t, 2*g.NumAtoms(), m.Total())

	_, err = c.CountFragmentsUpTo(g, -1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRadius))
}

func TestNeighborhood(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	c := NewCounter(src)
	g := mustParse(t, src, "CCOC")

	n, err := c.Neighborhood(g, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n.Center)
	assert.Equal(t, []int{0, 1}, n.Bonds)
	assert.Equal(t, []int{0, 1, 2}, n.Atoms)

	n, err = c.Neighborhood(g, 3, 0)
	require.NoError(t, err)
	assert.Empty(t, n.Bonds)
	assert.Equal(t, []int{3}, n.Atoms)
}

//Personal.AI order the ending
