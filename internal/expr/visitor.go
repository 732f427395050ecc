package expr

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Visitor handles each node kind. T is the per-visit result; use error for
// visitors that only produce side effects.
type Visitor[T any] interface {
	VisitConst(c Const) T
	VisitVar(v Var) T
	VisitAdd(a Add) T
	VisitMul(m Mul) T
	VisitExp(e Exp) T
}

// Visit dispatches n to the matching Visitor method.
//
// Pointers to node values are accepted as well so that callers holding
// *Add etc. do not have to dereference. A nil node or a foreign type panics:
// the node set is closed.
func Visit[T any](n Node, v Visitor[T]) T {
	switch n := n.(type) {
	case Const:
		return v.VisitConst(n)
	case *Const:
		return v.VisitConst(*n)
	case Var:
		return v.VisitVar(n)
	case *Var:
		return v.VisitVar(*n)
	case Add:
		return v.VisitAdd(n)
	case *Add:
		return v.VisitAdd(*n)
	case Mul:
		return v.VisitMul(n)
	case *Mul:
		return v.VisitMul(*n)
	case Exp:
		return v.VisitExp(n)
	case *Exp:
		return v.VisitExp(*n)
	default:
		panic(fmt.Sprintf("expr: unknown node type %T", n))
	}
}

// Format renders n as an s-expression, e.g. (exp (add 1 (mul 2 x))).
func Format(n Node) string {
	var sb strings.Builder
	Visit[struct{}](n, formatter{sb: &sb})
	return sb.String()
}

type formatter struct {
	sb *strings.Builder
}

func (f formatter) VisitConst(c Const) struct{} {
	f.sb.WriteString(strconv.FormatFloat(c.value, 'g', -1, 64))
	return struct{}{}
}

func (f formatter) VisitVar(v Var) struct{} {
	f.sb.WriteString(v.name)
	return struct{}{}
}

func (f formatter) VisitAdd(a Add) struct{} {
	f.list("add", a.operands)
	return struct{}{}
}

func (f formatter) VisitMul(m Mul) struct{} {
	f.list("mul", m.operands)
	return struct{}{}
}

func (f formatter) VisitExp(e Exp) struct{} {
	f.list("exp", []Node{e.exponent})
	return struct{}{}
}

func (f formatter) list(head string, operands []Node) {
	f.sb.WriteByte('(')
	f.sb.WriteString(head)
	for _, op := range operands {
		f.sb.WriteByte(' ')
		Visit[struct{}](op, f)
	}
	f.sb.WriteByte(')')
}

// Vars returns the distinct variable names referenced by n, sorted.
func Vars(n Node) []string {
	seen := make(map[string]struct{})
	Visit[struct{}](n, varCollector{seen: seen})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

type varCollector struct {
	seen map[string]struct{}
}

func (c varCollector) VisitConst(Const) struct{} { return struct{}{} }

func (c varCollector) VisitVar(v Var) struct{} {
	c.seen[v.name] = struct{}{}
	return struct{}{}
}

func (c varCollector) VisitAdd(a Add) struct{} { return c.each(a.operands) }

func (c varCollector) VisitMul(m Mul) struct{} { return c.each(m.operands) }

func (c varCollector) VisitExp(e Exp) struct{} { return Visit[struct{}](e.exponent, c) }

func (c varCollector) each(operands []Node) struct{} {
	for _, op := range operands {
		Visit[struct{}](op, c)
	}
	return struct{}{}
}

// Size returns the number of nodes in the tree, counting re-used subtrees
// once per occurrence.
func Size(n Node) int {
	total := 1
	for _, child := range n.Children() {
		total += Size(child)
	}
	return total
}
