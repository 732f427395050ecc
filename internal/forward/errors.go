package forward

import (
	"errors"
	"fmt"

	"github.com/born-ml/autoexpr/internal/expr"
)

// Common errors.
var (
	ErrUnboundVariable = errors.New("unbound variable")
	ErrNoOperands      = expr.ErrNoOperands
	ErrNilNode         = expr.ErrNilNode
	ErrInvalidPaths    = errors.New("path count must be positive")
)

// UnboundVariableError reports a Var whose name has no binding.
type UnboundVariableError struct {
	Name string
}

// Error implements the error interface.
func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnboundVariable, e.Name)
}

// Unwrap returns ErrUnboundVariable.
func (e *UnboundVariableError) Unwrap() error {
	return ErrUnboundVariable
}

// OperandError reports an Add or Mul without operands.
type OperandError struct {
	Kind expr.Kind
}

// Error implements the error interface.
func (e *OperandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, ErrNoOperands)
}

// Unwrap returns ErrNoOperands.
func (e *OperandError) Unwrap() error {
	return ErrNoOperands
}
