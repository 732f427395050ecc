// Package cpu implements the reference vector backend over Go float64 slices.
//
// CPUBackend executes every operation of the vector.Backend contract
// immediately. Large kernels are split across goroutines with
// internal/parallel; each path is still computed exactly as a sequential
// loop would.
package cpu

import (
	"fmt"
	"sync"

	"github.com/born-ml/autoexpr/internal/parallel"
	"github.com/born-ml/autoexpr/internal/vector"
)

// Compile-time check.
var _ vector.Backend[[]float64] = (*CPUBackend)(nil)

// Option configures a CPUBackend.
type Option func(*CPUBackend)

// WithMaxElements caps the number of elements that may be live in
// allocations at once. Zero means unlimited.
func WithMaxElements(n int) Option {
	return func(cpu *CPUBackend) {
		cpu.maxElems = n
	}
}

// WithParallel overrides the kernel parallelism settings.
func WithParallel(cfg parallel.Config) Option {
	return func(cpu *CPUBackend) {
		cpu.par = cfg
	}
}

// CPUBackend implements vector.Backend with B = []float64.
type CPUBackend struct {
	par      parallel.Config
	maxElems int

	mu        sync.Mutex
	live      map[*float64]int // first element -> allocation size
	liveElems int
}

// New creates a new CPU backend.
func New(opts ...Option) *CPUBackend {
	cpu := &CPUBackend{
		par:  parallel.DefaultConfig(),
		live: make(map[*float64]int),
	}
	for _, opt := range opts {
		opt(cpu)
	}
	return cpu
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Alloc returns a zeroed slice of n elements.
func (cpu *CPUBackend) Alloc(n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: size %d", vector.ErrAllocation, n)
	}

	cpu.mu.Lock()
	defer cpu.mu.Unlock()

	if cpu.maxElems > 0 && cpu.liveElems+n > cpu.maxElems {
		return nil, fmt.Errorf("%w: %d elements requested, %d of %d in use",
			vector.ErrAllocation, n, cpu.liveElems, cpu.maxElems)
	}

	buf := make([]float64, n)
	cpu.live[&buf[0]] = n
	cpu.liveElems += n
	return buf, nil
}

// Free releases a slice returned by Alloc.
// Panics if buf was not allocated here or was already freed.
func (cpu *CPUBackend) Free(buf []float64) {
	if len(buf) == 0 {
		panic(fmt.Sprintf("free: %v: empty buffer", vector.ErrDoubleFree))
	}

	cpu.mu.Lock()
	defer cpu.mu.Unlock()

	n, ok := cpu.live[&buf[0]]
	if !ok {
		panic(fmt.Sprintf("free: %v", vector.ErrDoubleFree))
	}
	delete(cpu.live, &buf[0])
	cpu.liveElems -= n
}

// Offset returns buf[off:].
func (cpu *CPUBackend) Offset(buf []float64, off int) []float64 {
	return buf[off:]
}

// LiveBuffers returns the number of allocations not yet freed.
func (cpu *CPUBackend) LiveBuffers() int {
	cpu.mu.Lock()
	defer cpu.mu.Unlock()
	return len(cpu.live)
}

// LiveElements returns the number of elements held by live allocations.
func (cpu *CPUBackend) LiveElements() int {
	cpu.mu.Lock()
	defer cpu.mu.Unlock()
	return cpu.liveElems
}

// Fill sets dst[i] = v for i < n.
func (cpu *CPUBackend) Fill(dst []float64, v float64, n int) {
	checkLen("fill", dst, n)
	parallel.ForRange(n, func(s, e int) {
		fillFloat64(dst[s:e], v)
	}, cpu.par)
}

// Zero sets dst[i] = 0 for i < n.
func (cpu *CPUBackend) Zero(dst []float64, n int) {
	checkLen("zero", dst, n)
	parallel.ForRange(n, func(s, e int) {
		clear(dst[s:e])
	}, cpu.par)
}

// Copy sets dst[i] = src[i] for i < n.
func (cpu *CPUBackend) Copy(src, dst []float64, n int) {
	checkLen("copy", src, n)
	checkLen("copy", dst, n)
	parallel.ForRange(n, func(s, e int) {
		copy(dst[s:e], src[s:e])
	}, cpu.par)
}

// AddInplace sets dst[i] += src[i] for i < n.
func (cpu *CPUBackend) AddInplace(src, dst []float64, n int) {
	checkLen("add", src, n)
	checkLen("add", dst, n)
	parallel.ForRange(n, func(s, e int) {
		addInplaceFloat64(dst[s:e], src[s:e])
	}, cpu.par)
}

// MulInplace sets dst[i] *= src[i] for i < n.
func (cpu *CPUBackend) MulInplace(src, dst []float64, n int) {
	checkLen("mul", src, n)
	checkLen("mul", dst, n)
	parallel.ForRange(n, func(s, e int) {
		mulInplaceFloat64(dst[s:e], src[s:e])
	}, cpu.par)
}

// ExpInplace sets buf[i] = exp(buf[i]) for i < n.
func (cpu *CPUBackend) ExpInplace(buf []float64, n int) {
	checkLen("exp", buf, n)
	parallel.ForRange(n, func(s, e int) {
		expInplaceFloat64(buf[s:e])
	}, cpu.par)
}

func checkLen(op string, buf []float64, n int) {
	if len(buf) < n {
		panic(fmt.Sprintf("%s: buffer has %d elements, need %d", op, len(buf), n))
	}
}
