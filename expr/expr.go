// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package expr provides the expression trees that autoexpr differentiates.
//
// A tree is built from five immutable node kinds: constants, named
// variables, n-ary sums, n-ary products and the exponential.
//
// Example:
//
//	import "github.com/born-ml/autoexpr/expr"
//
//	func main() {
//	    x := expr.NewVar("x")
//	    // exp(1 + 2x)
//	    f := expr.NewExp(expr.NewAdd(expr.NewConst(1), expr.NewMul(expr.NewConst(2), x)))
//	    fmt.Println(expr.Format(f))
//	}
package expr

import "github.com/born-ml/autoexpr/internal/expr"

// Node is any expression node.
type Node = expr.Node

// Kind identifies a node type.
type Kind = expr.Kind

// Node kinds.
const (
	KindConst = expr.KindConst
	KindVar   = expr.KindVar
	KindAdd   = expr.KindAdd
	KindMul   = expr.KindMul
	KindExp   = expr.KindExp
)

// Node types.
type (
	Const = expr.Const
	Var   = expr.Var
	Add   = expr.Add
	Mul   = expr.Mul
	Exp   = expr.Exp
)

// Visitor receives one call per node kind.
type Visitor[T any] = expr.Visitor[T]

// NewConst creates a constant node.
func NewConst(value float64) Const {
	return expr.NewConst(value)
}

// NewVar creates a variable node.
func NewVar(name string) Var {
	return expr.NewVar(name)
}

// NewAdd creates a sum of operands.
func NewAdd(operands ...Node) Add {
	return expr.NewAdd(operands...)
}

// NewMul creates a product of operands.
func NewMul(operands ...Node) Mul {
	return expr.NewMul(operands...)
}

// NewExp creates exp(exponent).
func NewExp(exponent Node) Exp {
	return expr.NewExp(exponent)
}

// Visit dispatches n to the matching method of v.
func Visit[T any](n Node, v Visitor[T]) T {
	return expr.Visit(n, v)
}

// Format renders n as an s-expression.
func Format(n Node) string {
	return expr.Format(n)
}

// Vars returns the distinct variable names used by n, sorted.
func Vars(n Node) []string {
	return expr.Vars(n)
}
