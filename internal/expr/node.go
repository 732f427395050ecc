// Package expr defines the immutable expression trees compiled by the
// forward-mode code generator.
//
// The node set is closed: Const, Var, Add, Mul and Exp. Every consumer
// dispatches through Visit, which is the only type switch over node kinds.
//
// Example:
//
//	// exp(1 + 2x)
//	e := expr.NewExp(expr.NewAdd(expr.NewConst(1), expr.NewMul(expr.NewConst(2), expr.NewVar("x"))))
package expr

import "slices"

// Kind identifies a node case.
type Kind int

// Node kinds.
const (
	KindConst Kind = iota
	KindVar
	KindAdd
	KindMul
	KindExp
)

// String returns the lower-case node kind name.
func (k Kind) String() string {
	switch k {
	case KindConst:
		return "const"
	case KindVar:
		return "var"
	case KindAdd:
		return "add"
	case KindMul:
		return "mul"
	case KindExp:
		return "exp"
	default:
		return "unknown"
	}
}

// Node is an expression tree node. The interface is sealed: only the types
// in this package implement it.
type Node interface {
	// Kind reports which case of the sum type this node is.
	Kind() Kind

	// Children returns a copy of the node's direct operands in order.
	Children() []Node

	sealed()
}

// Const is a scalar constant broadcast to every path.
type Const struct {
	value float64
}

// NewConst creates a constant node.
func NewConst(v float64) Const {
	return Const{value: v}
}

// Value returns the constant.
func (c Const) Value() float64 { return c.value }

// Kind implements Node.
func (Const) Kind() Kind { return KindConst }

// Children implements Node. Constants are leaves.
func (Const) Children() []Node { return nil }

func (Const) sealed() {}

// Var references an input variable by name. It is resolved against the
// binding table when the tree is compiled.
type Var struct {
	name string
}

// NewVar creates a variable reference.
func NewVar(name string) Var {
	return Var{name: name}
}

// Name returns the variable name.
func (v Var) Name() string { return v.name }

// Kind implements Node.
func (Var) Kind() Kind { return KindVar }

// Children implements Node. Variables are leaves.
func (Var) Children() []Node { return nil }

func (Var) sealed() {}

// Add is an n-ary sum.
type Add struct {
	operands []Node
}

// NewAdd creates a sum of the given operands. The slice is copied.
func NewAdd(operands ...Node) Add {
	return Add{operands: slices.Clone(operands)}
}

// Len returns the number of summands.
func (a Add) Len() int { return len(a.operands) }

// Operand returns the i-th summand.
func (a Add) Operand(i int) Node { return a.operands[i] }

// Kind implements Node.
func (Add) Kind() Kind { return KindAdd }

// Children implements Node.
func (a Add) Children() []Node { return slices.Clone(a.operands) }

func (Add) sealed() {}

// Mul is an n-ary product.
type Mul struct {
	operands []Node
}

// NewMul creates a product of the given operands. The slice is copied.
func NewMul(operands ...Node) Mul {
	return Mul{operands: slices.Clone(operands)}
}

// Len returns the number of factors.
func (m Mul) Len() int { return len(m.operands) }

// Operand returns the i-th factor.
func (m Mul) Operand(i int) Node { return m.operands[i] }

// Kind implements Node.
func (Mul) Kind() Kind { return KindMul }

// Children implements Node.
func (m Mul) Children() []Node { return slices.Clone(m.operands) }

func (Mul) sealed() {}

// Exp is the natural exponential of its single operand.
type Exp struct {
	exponent Node
}

// NewExp creates exp(exponent).
func NewExp(exponent Node) Exp {
	return Exp{exponent: exponent}
}

// Exponent returns the operand.
func (e Exp) Exponent() Node { return e.exponent }

// Kind implements Node.
func (Exp) Kind() Kind { return KindExp }

// Children implements Node.
func (e Exp) Children() []Node { return []Node{e.exponent} }

func (Exp) sealed() {}
