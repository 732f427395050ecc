package forward_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/autoexpr/internal/expr"
	"github.com/born-ml/autoexpr/internal/forward"
	"github.com/born-ml/autoexpr/internal/sample"
)

// valueOnly evaluates root with all seeds zero and returns the values.
func valueOnly(t *testing.T, root expr.Node, n int, data map[string][]float64) []float64 {
	t.Helper()
	inputs := make(map[string]forward.Input, len(data))
	for name, d := range data {
		inputs[name] = forward.Input{Data: d}
	}
	value, _ := eval(t, root, n, inputs)
	return value
}

// shifted returns a copy of data with every path of variable name moved by eps.
func shifted(data map[string][]float64, name string, eps float64) map[string][]float64 {
	out := make(map[string][]float64, len(data))
	for k, d := range data {
		cp := append([]float64(nil), d...)
		if k == name {
			for i := range cp {
				cp[i] += eps
			}
		}
		out[k] = cp
	}
	return out
}

// checkAgainstFiniteDifferences compares the analytic partial derivative
// along each variable with a finite-difference estimate on every path.
func checkAgainstFiniteDifferences(t *testing.T, root expr.Node, data map[string][]float64, eps, tol float64, central bool) {
	t.Helper()

	n := 0
	for _, d := range data {
		n = len(d)
	}

	for _, name := range expr.Vars(root) {
		inputs := make(map[string]forward.Input, len(data))
		for k, d := range data {
			seed := 0.0
			if k == name {
				seed = 1
			}
			inputs[k] = forward.Input{Data: d, Seed: seed}
		}
		_, analytic := eval(t, root, n, inputs)

		plus := valueOnly(t, root, n, shifted(data, name, eps))
		var minus []float64
		width := eps
		if central {
			minus = valueOnly(t, root, n, shifted(data, name, -eps))
			width = 2 * eps
		} else {
			minus = valueOnly(t, root, n, data)
		}

		for p := range n {
			numerical := (plus[p] - minus[p]) / width
			scale := math.Max(1, math.Abs(analytic[p]))
			assert.InDelta(t, numerical, analytic[p], tol*scale,
				"d/d%s of %s at path %d", name, expr.Format(root), p)
		}
	}
}

// TestGradientCheck_Product4 checks f = a·b·c·d with forward differences.
// f is linear in each factor, so the estimate is exact up to rounding.
func TestGradientCheck_Product4(t *testing.T) {
	rng := sample.NewRand(11)
	data := map[string][]float64{}
	for _, name := range []string{"a", "b", "c", "d"} {
		xs := sample.Uniform(rng, 64)
		for i := range xs {
			xs[i] = 0.5 + 1.5*xs[i]
		}
		data[name] = xs
	}

	tree := mul(v("a"), v("b"), v("c"), v("d"))
	checkAgainstFiniteDifferences(t, tree, data, 1e-6, 1e-5, false)
}

// TestGradientCheck_Composite checks a tree mixing every node kind.
func TestGradientCheck_Composite(t *testing.T) {
	rng := sample.NewRand(5)
	data := map[string][]float64{
		"x": sample.Normal(rng, 32),
		"y": sample.Uniform(rng, 32),
		"z": sample.Normal(rng, 32),
	}

	// exp(x·y) · (z + 2) · x + exp(-0.5·z·z) + 3
	tree := add(
		mul(exp(mul(v("x"), v("y"))), add(v("z"), c(2)), v("x")),
		exp(mul(c(-0.5), v("z"), v("z"))),
		c(3),
	)
	checkAgainstFiniteDifferences(t, tree, data, 1e-5, 1e-6, true)
}

// TestGradientCheck_MomentGeneratingFunction reproduces the demo estimate:
// E[exp(1 + 2x)] for x ~ U(0,1) is e(e²-1)/2 ≈ 8.68 and its x-derivative
// along seed 1 averages 2·E[exp(1+2x)] ≈ 17.36.
func TestGradientCheck_MomentGeneratingFunction(t *testing.T) {
	const n = 200_000
	xs := sample.Uniform(sample.NewRand(1), n)

	tree := exp(add(c(1), mul(c(2), v("x"))))
	value, deriv := eval(t, tree, n, map[string]forward.Input{"x": {Data: xs, Seed: 1}})

	want := math.E * (math.E*math.E - 1) / 2
	vs := sample.Summarize(value)
	ds := sample.Summarize(deriv)

	require.InDelta(t, want, vs.Mean, 5*vs.StdErr+1e-9)
	require.InDelta(t, 2*want, ds.Mean, 5*ds.StdErr+1e-9)
	for p := range n {
		assert.InDelta(t, 2*value[p], deriv[p], 1e-9*value[p])
	}
}
