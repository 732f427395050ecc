// Package vector defines the contract between the forward-mode code
// generator and a vector-math backend.
//
// A backend operates on contiguous float64 buffers identified by an opaque
// handle type B. The eager CPU backend uses B = []float64 and executes each
// call immediately; the program recorder uses a symbolic reference type and
// appends the call to an instruction list instead.
//
// All operations are elementwise over the first n elements and independent
// across elements ("paths").
package vector

import "errors"

// Common errors.
var (
	// ErrAllocation is returned by Alloc when a request cannot be satisfied.
	ErrAllocation = errors.New("vector: allocation failed")

	// ErrDoubleFree reports a release of a buffer that is not live.
	ErrDoubleFree = errors.New("vector: buffer freed twice or never allocated")
)

// Backend is the set of vector operations the code generator needs.
type Backend[B any] interface {
	// Alloc obtains storage for n doubles. Contents are unspecified.
	Alloc(n int) (B, error)

	// Free releases storage obtained from Alloc. Views produced by Offset
	// must not be freed.
	Free(buf B)

	// Offset returns a view of buf starting off elements in.
	Offset(buf B, off int) B

	// Fill sets dst[i] = v.
	Fill(dst B, v float64, n int)

	// Zero sets dst[i] = 0. Equivalent to Fill(dst, 0, n).
	Zero(dst B, n int)

	// Copy sets dst[i] = src[i].
	Copy(src, dst B, n int)

	// AddInplace sets dst[i] += src[i].
	AddInplace(src, dst B, n int)

	// MulInplace sets dst[i] *= src[i].
	MulInplace(src, dst B, n int)

	// ExpInplace sets buf[i] = exp(buf[i]).
	ExpInplace(buf B, n int)
}

// Set dispatches to Zero for v == 0 and to Fill otherwise.
func Set[B any](be Backend[B], dst B, v float64, n int) {
	if v == 0 {
		be.Zero(dst, n)
		return
	}
	be.Fill(dst, v, n)
}
