// Package exec links a recorded program against vector kernels and runs it.
//
// Linking resolves every kernel symbol the program may call to a typed entry
// point; running binds the program's symbolic buffers to caller memory and
// executes the instructions once, in emission order.
package exec

import (
	"errors"
	"fmt"

	"github.com/born-ml/autoexpr/internal/vector"
)

// Common errors.
var (
	ErrUnresolvedSymbol = errors.New("unresolved symbol")
	ErrOutOfBounds      = errors.New("buffer access out of bounds")
	ErrMemory           = errors.New("memory does not match program")
)

// Kernels holds resolved kernel entry points.
type Kernels struct {
	Alloc vector.AllocFunc
	Free  vector.FreeFunc
	Set   vector.SetFunc
	Zero  vector.ZeroFunc
	Copy  vector.CopyFunc
	Add   vector.BinaryFunc
	Mul   vector.BinaryFunc
	Exp   vector.UnaryFunc
}

// Resolve looks up every kernel symbol in table. All missing or mistyped
// symbols are reported together.
func Resolve(table map[string]any) (*Kernels, error) {
	k := &Kernels{}
	var errs []error

	for _, name := range vector.Symbols {
		sym, ok := table[name]
		if !ok || sym == nil {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnresolvedSymbol, name))
			continue
		}
		if !k.bind(name, sym) {
			errs = append(errs, fmt.Errorf("%w: %s has incompatible type %T", ErrUnresolvedSymbol, name, sym))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return k, nil
}

// bind stores sym under name. Plain func values with the right signature
// are accepted as well as the named vector kernel types.
func (k *Kernels) bind(name string, sym any) bool {
	switch name {
	case vector.SymAlloc:
		switch f := sym.(type) {
		case vector.AllocFunc:
			k.Alloc = f
		case func(int) ([]float64, error):
			k.Alloc = f
		default:
			return false
		}
	case vector.SymFree:
		switch f := sym.(type) {
		case vector.FreeFunc:
			k.Free = f
		case func([]float64):
			k.Free = f
		default:
			return false
		}
	case vector.SymSet:
		switch f := sym.(type) {
		case vector.SetFunc:
			k.Set = f
		case func(float64, []float64, int):
			k.Set = f
		default:
			return false
		}
	case vector.SymZero:
		switch f := sym.(type) {
		case vector.ZeroFunc:
			k.Zero = f
		case vector.UnaryFunc:
			k.Zero = vector.ZeroFunc(f)
		case func([]float64, int):
			k.Zero = f
		default:
			return false
		}
	case vector.SymCopy:
		switch f := sym.(type) {
		case vector.CopyFunc:
			k.Copy = f
		case vector.BinaryFunc:
			k.Copy = vector.CopyFunc(f)
		case func([]float64, []float64, int):
			k.Copy = f
		default:
			return false
		}
	case vector.SymAdd, vector.SymMul:
		var fn vector.BinaryFunc
		switch f := sym.(type) {
		case vector.BinaryFunc:
			fn = f
		case vector.CopyFunc:
			fn = vector.BinaryFunc(f)
		case func([]float64, []float64, int):
			fn = f
		default:
			return false
		}
		if name == vector.SymAdd {
			k.Add = fn
		} else {
			k.Mul = fn
		}
	case vector.SymExp:
		switch f := sym.(type) {
		case vector.UnaryFunc:
			k.Exp = f
		case vector.ZeroFunc:
			k.Exp = vector.UnaryFunc(f)
		case func([]float64, int):
			k.Exp = f
		default:
			return false
		}
	default:
		return false
	}
	return true
}
