// Package sample draws per-path input data and summarizes per-path output.
package sample

import (
	"math"
	"math/rand/v2"
)

// NewRand returns a deterministic generator for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Uniform returns n draws from U[0, 1).
func Uniform(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()
	}
	return out
}

// Normal returns n standard normal draws, generated in pairs with BoxMuller.
func Normal(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i += 2 {
		// 1-Float64() lies in (0, 1], keeping log finite.
		x, y := BoxMuller(1-rng.Float64(), rng.Float64())
		out[i] = x
		if i+1 < n {
			out[i+1] = y
		}
	}
	return out
}

// BoxMuller converts two independent U(0, 1] samples into two independent
// standard normal samples.
func BoxMuller(u, v float64) (x, y float64) {
	r := math.Sqrt(-2 * math.Log(u))
	s, c := math.Sincos(2 * math.Pi * v)
	return r * c, r * s
}

// Constant returns n copies of v.
func Constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Summary describes a per-path result buffer.
type Summary struct {
	Mean   float64
	StdErr float64 // standard error of the mean
	Min    float64
	Max    float64
	N      int
}

// Summarize computes the sample mean and its standard error. NaN and Inf
// values are included as-is and propagate into the summary.
func Summarize(xs []float64) Summary {
	n := len(xs)
	if n == 0 {
		return Summary{Mean: math.NaN(), StdErr: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	}

	s := Summary{N: n, Min: xs[0], Max: xs[0]}

	// Welford's update keeps the variance stable for large path counts.
	var mean, m2 float64
	for i, x := range xs {
		delta := x - mean
		mean += delta / float64(i+1)
		m2 += delta * (x - mean)
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
	}
	s.Mean = mean
	if n > 1 {
		s.StdErr = math.Sqrt(m2 / float64(n-1) / float64(n))
	}
	return s
}
