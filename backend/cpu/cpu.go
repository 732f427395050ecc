// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/autoexpr/internal/backend/cpu"
	"github.com/born-ml/autoexpr/internal/vector"
)

// Backend represents the CPU backend implementation.
//
// The CPU backend executes every vector operation immediately on Go float64
// slices, splitting large kernels across goroutines.
type Backend = internalcpu.CPUBackend

// Option configures a Backend.
type Option = internalcpu.Option

// Compile-time check that Backend implements the vector contract.
var _ vector.Backend[[]float64] = (*Backend)(nil)

// WithMaxElements caps the elements live in allocations at once.
func WithMaxElements(n int) Option {
	return internalcpu.WithMaxElements(n)
}

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/born-ml/autoexpr/backend/cpu"
//	    "github.com/born-ml/autoexpr/forward"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    ex, err := forward.Link(backend.Symbols())
//	}
func New(opts ...Option) *Backend {
	return internalcpu.New(opts...)
}
