package cpu

import "math"

// Elementwise float64 kernels. Callers pass equally sized sub-slices.

func fillFloat64(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}

func addInplaceFloat64(a, b []float64) {
	for i := range a {
		a[i] += b[i]
	}
}

func mulInplaceFloat64(a, b []float64) {
	for i := range a {
		a[i] *= b[i]
	}
}

func expInplaceFloat64(a []float64) {
	for i, v := range a {
		a[i] = math.Exp(v)
	}
}
