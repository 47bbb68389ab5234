package prng_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/agv-fleet-sim/pkg/prng"
)

func TestNewSameSeedSameSequence(t *testing.T) {
	a := prng.New("warehouse-floor-1")
	b := prng.New("warehouse-floor-1")

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Float64(), b.Float64(), "sequence diverged at draw %d", i)
	}
}

func TestNewDifferentSeedsDiverge(t *testing.T) {
	a := prng.New("seed-a")
	b := prng.New("seed-b")

	assert.NotEqual(t, a.Float64(), b.Float64())
}

func TestFloat64StaysInUnitRange(t *testing.T) {
	s := prng.New("range-check")
	for i := 0; i < 10000; i++ {
		v := s.Float64()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestIntNStaysInBounds(t *testing.T) {
	s := prng.New("intn-check")
	for i := 0; i < 1000; i++ {
		v := s.IntN(7)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 7)
	}
}

func TestIntNPanicsOnNonPositiveN(t *testing.T) {
	assert.Panics(t, func() {
		prng.New("panic-check").IntN(0)
	})
}

func TestBoolHonorsExtremeProbabilities(t *testing.T) {
	s := prng.New("bool-check")
	assert.False(t, s.Bool(0))
	assert.True(t, s.Bool(1))
}

func TestStateRoundTripsThroughNewFromState(t *testing.T) {
	a := prng.New("fork-source")
	a.Float64()
	a.Float64()

	forked := prng.NewFromState(a.State())
	assert.Equal(t, a.Float64(), forked.Float64())
}
