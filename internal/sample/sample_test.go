package sample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUniform tests that uniform samples lie in [0, 1).
func TestUniform(t *testing.T) {
	xs := Uniform(NewRand(7), 10_000)
	require.Len(t, xs, 10_000)
	for _, x := range xs {
		require.GreaterOrEqual(t, x, 0.0)
		require.Less(t, x, 1.0)
	}

	s := Summarize(xs)
	assert.InDelta(t, 0.5, s.Mean, 0.02)
}

func TestUniform_Deterministic(t *testing.T) {
	assert.Equal(t, Uniform(NewRand(42), 16), Uniform(NewRand(42), 16))
	assert.NotEqual(t, Uniform(NewRand(42), 16), Uniform(NewRand(43), 16))
}

// TestNormal tests the moments of normal samples.
func TestNormal(t *testing.T) {
	xs := Normal(NewRand(3), 20_001)
	require.Len(t, xs, 20_001, "odd lengths drop the spare draw")

	s := Summarize(xs)
	assert.InDelta(t, 0, s.Mean, 0.05)

	var m2 float64
	for _, x := range xs {
		m2 += (x - s.Mean) * (x - s.Mean)
	}
	assert.InDelta(t, 1, m2/float64(len(xs)-1), 0.05)
}

// TestBoxMuller tests the Box-Muller transform on known inputs.
func TestBoxMuller(t *testing.T) {
	// u = 1 gives radius 0.
	x, y := BoxMuller(1, 0.3)
	assert.Zero(t, x)
	assert.Zero(t, y)

	// v = 0 puts the whole radius on x.
	x, y = BoxMuller(math.Exp(-0.5), 0)
	assert.InDelta(t, 1, x, 1e-12)
	assert.InDelta(t, 0, y, 1e-12)
}

func TestConstant(t *testing.T) {
	assert.Equal(t, []float64{2, 2, 2}, Constant(2, 3))
}

// TestSummarize tests mean, standard error and extremes.
func TestSummarize(t *testing.T) {
	s := Summarize([]float64{1, 2, 3, 4})
	assert.Equal(t, 4, s.N)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	// sample variance 5/3, stderr sqrt(5/3/4)
	assert.InDelta(t, math.Sqrt(5.0/12.0), s.StdErr, 1e-12)

	single := Summarize([]float64{7})
	assert.Equal(t, 7.0, single.Mean)
	assert.Zero(t, single.StdErr)

	empty := Summarize(nil)
	assert.True(t, math.IsNaN(empty.Mean))
}

func TestSummarize_PropagatesNaN(t *testing.T) {
	s := Summarize([]float64{1, math.NaN(), 3})
	assert.True(t, math.IsNaN(s.Mean))
}
