package forward

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/born-ml/autoexpr/internal/expr"
	"github.com/born-ml/autoexpr/internal/vector"
)

// ErrLengthMismatch reports host buffers shorter than the path count.
var ErrLengthMismatch = errors.New("buffer length does not match path count")

// Input is one variable's per-path samples and derivative seed.
type Input struct {
	Data []float64
	Seed float64
}

// Evaluate runs the forward-mode walk for root directly on a host-memory
// backend. The path count is len(value); deriv and every input must be at
// least that long.
func Evaluate(root expr.Node, inputs map[string]Input, value, deriv []float64, be vector.Backend[[]float64]) error {
	n := len(value)
	if len(deriv) < n {
		return fmt.Errorf("%w: deriv has %d elements, need %d", ErrLengthMismatch, len(deriv), n)
	}

	ctx := NewContext(n, value, deriv)
	for _, name := range slices.Sorted(maps.Keys(inputs)) {
		in := inputs[name]
		if len(in.Data) < n {
			return fmt.Errorf("%w: variable %q has %d elements, need %d", ErrLengthMismatch, name, len(in.Data), n)
		}
		ctx.Bind(name, in.Data, in.Seed)
	}

	return Generate(root, ctx, be)
}
