// Package forward implements forward-mode automatic differentiation of
// expression trees over a vector backend.
//
// Generate walks an expression once and issues vector operations that leave,
// for every path p, the expression value in ctx.Value[p] and its directional
// derivative along the binding seeds in ctx.Deriv[p].
//
// Architecture:
//   - Register convention: every node rule reads its children's results from
//     ctx.Value/ctx.Deriv right after visiting them and writes its own
//     result back there before returning
//   - Scoped temporaries: rules needing scratch space acquire a single block
//     with vector.Acquire and release it with defer, so error unwinding frees
//     it too
//   - Backend agnostic: the same walk drives the eager CPU backend or the
//     program recorder
//
// Usage:
//
//	be := cpu.New()
//	ctx := forward.NewContext(n, value, deriv).Bind("x", xs, 1.0)
//	err := forward.Generate(tree, ctx, be)
package forward

import (
	"github.com/born-ml/autoexpr/internal/expr"
	"github.com/born-ml/autoexpr/internal/vector"
)

// Generate emits the value/derivative computation for root.
//
// On success ctx.Value and ctx.Deriv hold the result. On failure their
// contents are unspecified, every temporary acquired during the walk has been
// released, and the error is one of *UnboundVariableError, *OperandError,
// ErrNilNode, ErrInvalidPaths or a wrapped vector.ErrAllocation.
func Generate[B any](root expr.Node, ctx *Context[B], be vector.Backend[B]) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	g := &Generator[B]{ctx: ctx, be: be}
	return g.Visit(root)
}

// Generator holds one walk's state. It implements expr.Visitor[error].
type Generator[B any] struct {
	ctx *Context[B]
	be  vector.Backend[B]
}

// NewGenerator creates a generator bound to ctx and be.
func NewGenerator[B any](ctx *Context[B], be vector.Backend[B]) *Generator[B] {
	return &Generator[B]{ctx: ctx, be: be}
}

// Visit generates code for n, overwriting ctx.Value and ctx.Deriv.
func (g *Generator[B]) Visit(n expr.Node) error {
	if expr.IsNil(n) {
		return ErrNilNode
	}
	return expr.Visit[error](n, g)
}

// VisitConst broadcasts the constant.
//
// Forward:
//
//	value = c
//	deriv = 0
func (g *Generator[B]) VisitConst(c expr.Const) error {
	vector.Set(g.be, g.ctx.Value, c.Value(), g.ctx.N)
	g.be.Zero(g.ctx.Deriv, g.ctx.N)
	return nil
}

// VisitVar loads the variable's path data and broadcasts its seed.
//
// Forward:
//
//	value = data
//	deriv = seed
func (g *Generator[B]) VisitVar(v expr.Var) error {
	binding, err := g.ctx.Lookup(v.Name())
	if err != nil {
		return err
	}
	g.be.Copy(binding.Data, g.ctx.Value, g.ctx.N)
	vector.Set(g.be, g.ctx.Deriv, binding.Seed, g.ctx.N)
	return nil
}

// VisitAdd accumulates the summands into a two-slot temporary.
//
// Forward:
//
//	value = Σ x_i
//	deriv = Σ dx_i
func (g *Generator[B]) VisitAdd(a expr.Add) error {
	if a.Len() == 0 {
		return &OperandError{Kind: expr.KindAdd}
	}
	n := g.ctx.N

	// Value and gradient accumulators in one block.
	tmp, err := vector.Acquire(g.be, 2*n)
	if err != nil {
		return err
	}
	defer tmp.Release()

	tmpValue := tmp.Slot(0, n)
	tmpGrad := tmp.Slot(1, n)

	g.be.Zero(tmp.Buffer(), 2*n)

	for i := range a.Len() {
		if err := g.Visit(a.Operand(i)); err != nil {
			return err
		}
		g.be.AddInplace(g.ctx.Value, tmpValue, n)
		g.be.AddInplace(g.ctx.Deriv, tmpGrad, n)
	}

	g.be.Copy(tmpValue, g.ctx.Value, n)
	g.be.Copy(tmpGrad, g.ctx.Deriv, n)
	return nil
}

// VisitMul applies the n-ary product rule in a single pass over the factors.
//
// Forward:
//
//	value = Π x_m
//	deriv = Σ_i dx_i · Π_{m≠i} x_m
//
// The temporary block holds the running product followed by one partial
// per factor, all starting at 1. When factor j is visited its value is
// folded into the product and into every partial i ≠ j, and its derivative
// is folded into partial j. After the last factor partial i equals
// dx_i · Π_{m≠i} x_m. This costs k child visits and O(k²) multiplies.
func (g *Generator[B]) VisitMul(m expr.Mul) error {
	k := m.Len()
	if k == 0 {
		return &OperandError{Kind: expr.KindMul}
	}
	n := g.ctx.N

	tmp, err := vector.Acquire(g.be, (k+1)*n)
	if err != nil {
		return err
	}
	defer tmp.Release()

	tmpValue := tmp.Slot(0, n)
	tmpGrads := make([]B, k)
	for i := range tmpGrads {
		tmpGrads[i] = tmp.Slot(i+1, n)
	}

	g.be.Fill(tmp.Buffer(), 1.0, (k+1)*n)

	for j := range k {
		if err := g.Visit(m.Operand(j)); err != nil {
			return err
		}
		g.be.MulInplace(g.ctx.Value, tmpValue, n)
		g.be.MulInplace(g.ctx.Deriv, tmpGrads[j], n)

		for i := range tmpGrads {
			if i != j {
				g.be.MulInplace(g.ctx.Value, tmpGrads[i], n)
			}
		}
	}

	g.be.Copy(tmpGrads[0], g.ctx.Deriv, n)
	for i := 1; i < k; i++ {
		g.be.AddInplace(tmpGrads[i], g.ctx.Deriv, n)
	}

	g.be.Copy(tmpValue, g.ctx.Value, n)
	return nil
}

// VisitExp applies the chain rule in place.
//
// Forward:
//
//	value = exp(u)
//	deriv = exp(u) · du
//
// The multiply must follow the exponential: it reads the updated value.
func (g *Generator[B]) VisitExp(e expr.Exp) error {
	if err := g.Visit(e.Exponent()); err != nil {
		return err
	}
	g.be.ExpInplace(g.ctx.Value, g.ctx.N)
	g.be.MulInplace(g.ctx.Value, g.ctx.Deriv, g.ctx.N)
	return nil
}
