// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for vector operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Float64 elementwise kernels (fill, copy, add, multiply, exp)
//   - Data-parallel execution across paths for large buffers
//   - Allocation accounting with an optional element cap
//
// # Basic Usage
//
//	backend := cpu.New()
//	value := make([]float64, n)
//	deriv := make([]float64, n)
//	err := forward.Evaluate(tree, inputs, value, deriv, backend)
//
// # Linking
//
// Symbols exports the kernels under their native names so that a compiled
// program can be linked and executed:
//
//	prog, _ := forward.Compile(tree, n, seeds)
//	ex, _ := forward.Link(backend.Symbols())
//	err := ex.Run(ctx, prog, forward.Memory{Value: value, Deriv: deriv, Vars: vars})
package cpu
