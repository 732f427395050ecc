package forward

import (
	"fmt"
	"maps"
	"slices"
)

// Binding attaches a variable name to its per-path data and its seed.
//
// Seed is the component of the differentiation direction along this
// variable. A one-hot seed vector yields a partial derivative.
type Binding[B any] struct {
	Data B
	Seed float64
}

// Context is the state threaded through one code generation walk.
//
// Value and Deriv are the result registers: after any node is visited they
// hold that node's per-path value and directional derivative. The next
// visit overwrites both, so a parent consumes them before visiting another
// child. A Context must not be used by two walks at the same time.
type Context[B any] struct {
	// N is the number of paths. Every buffer holds at least N elements.
	N int

	Value B
	Deriv B

	Bindings map[string]Binding[B]
}

// NewContext creates a context with an empty binding table.
func NewContext[B any](n int, value, deriv B) *Context[B] {
	return &Context[B]{
		N:        n,
		Value:    value,
		Deriv:    deriv,
		Bindings: make(map[string]Binding[B]),
	}
}

// Bind adds or replaces a variable binding and returns the context for
// chaining.
func (c *Context[B]) Bind(name string, data B, seed float64) *Context[B] {
	if c.Bindings == nil {
		c.Bindings = make(map[string]Binding[B])
	}
	c.Bindings[name] = Binding[B]{Data: data, Seed: seed}
	return c
}

// Lookup resolves a variable.
func (c *Context[B]) Lookup(name string) (Binding[B], error) {
	b, ok := c.Bindings[name]
	if !ok {
		return Binding[B]{}, &UnboundVariableError{Name: name}
	}
	return b, nil
}

// Names returns the bound variable names, sorted.
func (c *Context[B]) Names() []string {
	return slices.Sorted(maps.Keys(c.Bindings))
}

// Validate checks the path count.
func (c *Context[B]) Validate() error {
	if c.N <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPaths, c.N)
	}
	return nil
}
