// Package program records the vector operations emitted by the forward-mode
// generator as a linear instruction list that an executor can link against
// native kernels and run later.
//
// Buffers are symbolic: a Ref names the value register, the derivative
// register, an input variable or a temporary, plus an element offset. The
// executor binds them to memory at run time.
package program

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/born-ml/autoexpr/internal/vector"
)

// ErrInvalidProgram reports a malformed instruction list.
var ErrInvalidProgram = errors.New("invalid program")

// Space identifies which memory region a Ref points into.
type Space uint8

// Memory spaces.
const (
	SpaceValue Space = iota
	SpaceDeriv
	SpaceVar
	SpaceTemp
)

// String returns the space name.
func (s Space) String() string {
	switch s {
	case SpaceValue:
		return "value"
	case SpaceDeriv:
		return "deriv"
	case SpaceVar:
		return "var"
	case SpaceTemp:
		return "temp"
	default:
		return "unknown"
	}
}

// Ref is a symbolic buffer handle.
type Ref struct {
	Space  Space
	Index  int // variable index or temp id
	Offset int // element offset
}

// Register and variable references.
var (
	ValueRef = Ref{Space: SpaceValue}
	DerivRef = Ref{Space: SpaceDeriv}
)

// VarRef references input variable i.
func VarRef(i int) Ref {
	return Ref{Space: SpaceVar, Index: i}
}

// String renders the reference as %value, %deriv, %v1 or %t2+100.
func (r Ref) String() string {
	var s string
	switch r.Space {
	case SpaceValue:
		s = "%value"
	case SpaceDeriv:
		s = "%deriv"
	case SpaceVar:
		s = "%v" + strconv.Itoa(r.Index)
	case SpaceTemp:
		s = "%t" + strconv.Itoa(r.Index)
	default:
		s = "%?"
	}
	if r.Offset != 0 {
		s += "+" + strconv.Itoa(r.Offset)
	}
	return s
}

// Instr is one recorded operation.
//
// Operand use by op:
//
//	alloc  Dst=temp, Len
//	free   Dst=temp
//	set    Dst, Scalar, Len
//	zero   Dst, Len
//	copy   Src, Dst, Len
//	add    Src, Dst, Len   (Dst += Src)
//	mul    Src, Dst, Len   (Dst *= Src)
//	exp    Dst, Len        (Dst = exp(Dst))
type Instr struct {
	Op     vector.Op
	Dst    Ref
	Src    Ref
	Scalar float64
	Len    int
}

// String renders the instruction in the listing syntax used by Dump.
func (in Instr) String() string {
	switch in.Op {
	case vector.OpAlloc:
		return fmt.Sprintf("%s = alloc %d", in.Dst, in.Len)
	case vector.OpFree:
		return fmt.Sprintf("free %s", in.Dst)
	case vector.OpFill:
		return fmt.Sprintf("set %s, %s, %d", in.Dst, strconv.FormatFloat(in.Scalar, 'g', -1, 64), in.Len)
	case vector.OpZero, vector.OpExp:
		return fmt.Sprintf("%s %s, %d", in.Op, in.Dst, in.Len)
	default:
		return fmt.Sprintf("%s %s, %s, %d", in.Op, in.Src, in.Dst, in.Len)
	}
}

// Program is a compiled, linear sequence of vector operations.
type Program struct {
	// Paths is the number of elements in the register and variable buffers.
	Paths int

	// Vars maps variable index to name.
	Vars []string

	// Seeds holds the seed baked in for each variable, by index.
	Seeds []float64

	// Source is the formatted expression the program was compiled from.
	Source string

	Instrs []Instr

	// PeakTempElements is the largest number of temp elements live at once.
	PeakTempElements int
}

// Count returns the number of instructions with the given op.
func (p *Program) Count(op vector.Op) int {
	n := 0
	for _, in := range p.Instrs {
		if in.Op == op {
			n++
		}
	}
	return n
}

// Dump writes a human-readable listing.
func (p *Program) Dump(w io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "; paths=%d temps.peak=%d instrs=%d\n", p.Paths, p.PeakTempElements, len(p.Instrs))
	if p.Source != "" {
		fmt.Fprintf(&sb, "; source: %s\n", p.Source)
	}
	for i, name := range p.Vars {
		seed := 0.0
		if i < len(p.Seeds) {
			seed = p.Seeds[i]
		}
		fmt.Fprintf(&sb, "; %s = %s seed=%s\n", VarRef(i), name, strconv.FormatFloat(seed, 'g', -1, 64))
	}
	for _, in := range p.Instrs {
		sb.WriteString("  ")
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// Validate checks that every temp is allocated before use and freed exactly
// once, and that every access stays inside its buffer.
func (p *Program) Validate() error {
	if p.Paths <= 0 {
		return fmt.Errorf("%w: paths %d", ErrInvalidProgram, p.Paths)
	}

	live := make(map[int]int) // temp id -> size
	seen := make(map[int]bool)

	check := func(pc int, r Ref, n int) error {
		size := p.Paths
		switch r.Space {
		case SpaceValue, SpaceDeriv:
		case SpaceVar:
			if r.Index < 0 || r.Index >= len(p.Vars) {
				return fmt.Errorf("%w: instr %d: variable index %d out of range", ErrInvalidProgram, pc, r.Index)
			}
		case SpaceTemp:
			sz, ok := live[r.Index]
			if !ok {
				return fmt.Errorf("%w: instr %d: %s used while not live", ErrInvalidProgram, pc, r)
			}
			size = sz
		default:
			return fmt.Errorf("%w: instr %d: unknown space %d", ErrInvalidProgram, pc, r.Space)
		}
		if r.Offset < 0 || n < 0 || r.Offset+n > size {
			return fmt.Errorf("%w: instr %d: %s with length %d exceeds %d elements",
				ErrInvalidProgram, pc, r, n, size)
		}
		return nil
	}

	for pc, in := range p.Instrs {
		switch in.Op {
		case vector.OpAlloc:
			if in.Dst.Space != SpaceTemp || in.Dst.Offset != 0 || in.Len <= 0 {
				return fmt.Errorf("%w: instr %d: bad alloc %s", ErrInvalidProgram, pc, in)
			}
			if seen[in.Dst.Index] {
				return fmt.Errorf("%w: instr %d: temp %d allocated twice", ErrInvalidProgram, pc, in.Dst.Index)
			}
			seen[in.Dst.Index] = true
			live[in.Dst.Index] = in.Len
		case vector.OpFree:
			if in.Dst.Space != SpaceTemp || in.Dst.Offset != 0 {
				return fmt.Errorf("%w: instr %d: bad free %s", ErrInvalidProgram, pc, in)
			}
			if _, ok := live[in.Dst.Index]; !ok {
				return fmt.Errorf("%w: instr %d: %v", ErrInvalidProgram, pc, vector.ErrDoubleFree)
			}
			delete(live, in.Dst.Index)
		case vector.OpFill, vector.OpZero, vector.OpExp:
			if err := check(pc, in.Dst, in.Len); err != nil {
				return err
			}
		case vector.OpCopy, vector.OpAdd, vector.OpMul:
			if err := check(pc, in.Src, in.Len); err != nil {
				return err
			}
			if err := check(pc, in.Dst, in.Len); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: instr %d: unknown op %q", ErrInvalidProgram, pc, in.Op)
		}
	}

	if len(live) != 0 {
		return fmt.Errorf("%w: %d temp(s) never freed", ErrInvalidProgram, len(live))
	}
	return nil
}
