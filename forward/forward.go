// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package forward computes expression values and forward-mode directional
// derivatives over many independent paths at once.
//
// Expressions can be evaluated eagerly on a backend, or compiled into a
// program that is linked against kernel symbols and run later.
//
// Example:
//
//	import (
//	    "github.com/born-ml/autoexpr/backend/cpu"
//	    "github.com/born-ml/autoexpr/expr"
//	    "github.com/born-ml/autoexpr/forward"
//	)
//
//	func main() {
//	    f := expr.NewExp(expr.NewVar("x"))
//	    xs := []float64{0, 0.5, 1}
//	    value := make([]float64, len(xs))
//	    deriv := make([]float64, len(xs))
//
//	    err := forward.Evaluate(f, map[string]forward.Input{
//	        "x": {Data: xs, Seed: 1},
//	    }, value, deriv, cpu.New())
//	}
package forward

import (
	"context"

	"github.com/born-ml/autoexpr/internal/exec"
	"github.com/born-ml/autoexpr/internal/expr"
	"github.com/born-ml/autoexpr/internal/forward"
	"github.com/born-ml/autoexpr/internal/program"
	"github.com/born-ml/autoexpr/internal/vector"
)

// Common errors.
var (
	ErrUnboundVariable  = forward.ErrUnboundVariable
	ErrNoOperands       = forward.ErrNoOperands
	ErrNilNode          = forward.ErrNilNode
	ErrInvalidPaths     = forward.ErrInvalidPaths
	ErrLengthMismatch   = forward.ErrLengthMismatch
	ErrAllocation       = vector.ErrAllocation
	ErrUnresolvedSymbol = exec.ErrUnresolvedSymbol
)

// Backend is the vector-math contract the generator drives.
type Backend[B any] = vector.Backend[B]

// Context holds the result registers and variable bindings of one walk.
type Context[B any] = forward.Context[B]

// Input is one variable's per-path samples and derivative seed.
type Input = forward.Input

// NewContext creates a context for n paths.
func NewContext[B any](n int, value, deriv B) *Context[B] {
	return forward.NewContext(n, value, deriv)
}

// Generate walks root once, issuing vector operations on be.
func Generate[B any](root expr.Node, ctx *Context[B], be Backend[B]) error {
	return forward.Generate(root, ctx, be)
}

// Evaluate computes root on host memory. len(value) is the path count.
func Evaluate(root expr.Node, inputs map[string]Input, value, deriv []float64, be Backend[[]float64]) error {
	return forward.Evaluate(root, inputs, value, deriv, be)
}

// Program is a compiled instruction list.
type Program = program.Program

// Memory is the storage a program runs against.
type Memory = exec.Memory

// Executor runs programs on linked kernels.
type Executor = exec.Executor

// Compile records the program computing root over paths elements with the
// given variable seeds.
func Compile(root expr.Node, paths int, seeds map[string]float64) (*Program, error) {
	return program.Compile(root, paths, seeds)
}

// Link resolves kernel symbols, such as those from cpu.Backend.Symbols.
func Link(symbols map[string]any) (*Executor, error) {
	return exec.Link(symbols)
}

// Run compiles root, links it against symbols and runs it once.
func Run(ctx context.Context, root expr.Node, seeds map[string]float64, symbols map[string]any, mem Memory) error {
	prog, err := Compile(root, len(mem.Value), seeds)
	if err != nil {
		return err
	}
	ex, err := Link(symbols)
	if err != nil {
		return err
	}
	return ex.Run(ctx, prog, mem)
}
