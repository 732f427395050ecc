package expr

import (
	"errors"
	"fmt"
	"strconv"
)

// Structural errors reported by Validate.
var (
	ErrNilNode    = errors.New("nil expression node")
	ErrNoOperands = errors.New("n-ary node has no operands")
)

// IsNil reports whether n is nil or a nil pointer to a node value.
func IsNil(n Node) bool {
	switch n := n.(type) {
	case nil:
		return true
	case *Const:
		return n == nil
	case *Var:
		return n == nil
	case *Add:
		return n == nil
	case *Mul:
		return n == nil
	case *Exp:
		return n == nil
	default:
		return false
	}
}

// Validate walks n and reports the first nil node or operand-less sum or
// product. The error names the node by its operand path from the root,
// e.g. "root.1.0".
func Validate(n Node) error {
	return validate(n, "root")
}

func validate(n Node, at string) error {
	if IsNil(n) {
		return fmt.Errorf("%w at %s", ErrNilNode, at)
	}
	children := n.Children()
	if k := n.Kind(); (k == KindAdd || k == KindMul) && len(children) == 0 {
		return fmt.Errorf("%s at %s: %w", k, at, ErrNoOperands)
	}
	for i, child := range children {
		if err := validate(child, at+"."+strconv.Itoa(i)); err != nil {
			return err
		}
	}
	return nil
}
