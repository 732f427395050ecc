package metrics

import "github.com/born-ml/autoexpr/internal/vector"

// Backend records every call on a host backend into a Collector, labelled
// with the kernel symbol a compiled program would call for the same
// operation. Eager evaluation and program execution therefore report the
// same series.
type Backend struct {
	inner vector.Backend[[]float64]
	c     *Collector
}

// NewBackend wraps inner. A nil collector records nothing.
func NewBackend(inner vector.Backend[[]float64], c *Collector) *Backend {
	return &Backend{inner: inner, c: c}
}

// Alloc implements vector.Backend. Failed allocations are not counted.
func (b *Backend) Alloc(n int) ([]float64, error) {
	buf, err := b.inner.Alloc(n)
	if err != nil {
		return nil, err
	}
	b.c.Kernel(vector.SymAlloc)
	b.c.Alloc(n)
	return buf, nil
}

// Free implements vector.Backend.
func (b *Backend) Free(buf []float64) {
	b.c.Kernel(vector.SymFree)
	b.c.Release(len(buf))
	b.inner.Free(buf)
}

// Offset implements vector.Backend.
func (b *Backend) Offset(buf []float64, off int) []float64 {
	return b.inner.Offset(buf, off)
}

// Fill implements vector.Backend.
func (b *Backend) Fill(dst []float64, v float64, n int) {
	b.c.Kernel(vector.SymSet)
	b.inner.Fill(dst, v, n)
}

// Zero implements vector.Backend.
func (b *Backend) Zero(dst []float64, n int) {
	b.c.Kernel(vector.SymZero)
	b.inner.Zero(dst, n)
}

// Copy implements vector.Backend.
func (b *Backend) Copy(src, dst []float64, n int) {
	b.c.Kernel(vector.SymCopy)
	b.inner.Copy(src, dst, n)
}

// AddInplace implements vector.Backend.
func (b *Backend) AddInplace(src, dst []float64, n int) {
	b.c.Kernel(vector.SymAdd)
	b.inner.AddInplace(src, dst, n)
}

// MulInplace implements vector.Backend.
func (b *Backend) MulInplace(src, dst []float64, n int) {
	b.c.Kernel(vector.SymMul)
	b.inner.MulInplace(src, dst, n)
}

// ExpInplace implements vector.Backend.
func (b *Backend) ExpInplace(buf []float64, n int) {
	b.c.Kernel(vector.SymExp)
	b.inner.ExpInplace(buf, n)
}
