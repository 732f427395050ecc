package program

import (
	"fmt"
	"maps"
	"slices"

	"github.com/born-ml/autoexpr/internal/expr"
	"github.com/born-ml/autoexpr/internal/forward"
	"github.com/born-ml/autoexpr/internal/vector"
)

// Compile-time check.
var _ vector.Backend[Ref] = (*Builder)(nil)

// Option configures a Builder.
type Option func(*Builder)

// WithMaxTempElements caps the number of temp elements live at once.
// Compilation fails with vector.ErrAllocation if the tree needs more.
// Zero means unlimited.
func WithMaxTempElements(n int) Option {
	return func(b *Builder) {
		b.maxElems = n
	}
}

// Builder records vector operations instead of executing them.
// It implements vector.Backend[Ref].
type Builder struct {
	paths int
	vars  []string
	seeds []float64

	instrs   []Instr
	nextTemp int
	live     map[int]int // temp id -> size

	liveElems int
	peakElems int
	maxElems  int
}

// NewBuilder creates a recorder for buffers of the given path count.
func NewBuilder(paths int, opts ...Option) *Builder {
	b := &Builder{
		paths: paths,
		live:  make(map[int]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DeclareVar registers an input variable and returns its reference.
func (b *Builder) DeclareVar(name string, seed float64) Ref {
	b.vars = append(b.vars, name)
	b.seeds = append(b.seeds, seed)
	return VarRef(len(b.vars) - 1)
}

// Alloc implements vector.Backend.
func (b *Builder) Alloc(n int) (Ref, error) {
	if n <= 0 {
		return Ref{}, fmt.Errorf("%w: size %d", vector.ErrAllocation, n)
	}
	if b.maxElems > 0 && b.liveElems+n > b.maxElems {
		return Ref{}, fmt.Errorf("%w: %d temp elements requested, %d of %d in use",
			vector.ErrAllocation, n, b.liveElems, b.maxElems)
	}

	ref := Ref{Space: SpaceTemp, Index: b.nextTemp}
	b.nextTemp++
	b.live[ref.Index] = n
	b.liveElems += n
	b.peakElems = max(b.peakElems, b.liveElems)

	b.emit(Instr{Op: vector.OpAlloc, Dst: ref, Len: n})
	return ref, nil
}

// Free implements vector.Backend. Panics on a view, an unknown temp or a
// second free.
func (b *Builder) Free(ref Ref) {
	if ref.Space != SpaceTemp || ref.Offset != 0 {
		panic(fmt.Sprintf("free: %v: %s is not an allocation", vector.ErrDoubleFree, ref))
	}
	n, ok := b.live[ref.Index]
	if !ok {
		panic(fmt.Sprintf("free: %v: %s", vector.ErrDoubleFree, ref))
	}
	delete(b.live, ref.Index)
	b.liveElems -= n

	b.emit(Instr{Op: vector.OpFree, Dst: ref})
}

// Offset implements vector.Backend.
func (b *Builder) Offset(ref Ref, off int) Ref {
	ref.Offset += off
	return ref
}

// Fill implements vector.Backend.
func (b *Builder) Fill(dst Ref, v float64, n int) {
	b.use(dst)
	b.emit(Instr{Op: vector.OpFill, Dst: dst, Scalar: v, Len: n})
}

// Zero implements vector.Backend.
func (b *Builder) Zero(dst Ref, n int) {
	b.use(dst)
	b.emit(Instr{Op: vector.OpZero, Dst: dst, Len: n})
}

// Copy implements vector.Backend.
func (b *Builder) Copy(src, dst Ref, n int) {
	b.use(src)
	b.use(dst)
	b.emit(Instr{Op: vector.OpCopy, Src: src, Dst: dst, Len: n})
}

// AddInplace implements vector.Backend.
func (b *Builder) AddInplace(src, dst Ref, n int) {
	b.use(src)
	b.use(dst)
	b.emit(Instr{Op: vector.OpAdd, Src: src, Dst: dst, Len: n})
}

// MulInplace implements vector.Backend.
func (b *Builder) MulInplace(src, dst Ref, n int) {
	b.use(src)
	b.use(dst)
	b.emit(Instr{Op: vector.OpMul, Src: src, Dst: dst, Len: n})
}

// ExpInplace implements vector.Backend.
func (b *Builder) ExpInplace(buf Ref, n int) {
	b.use(buf)
	b.emit(Instr{Op: vector.OpExp, Dst: buf, Len: n})
}

// Build returns the recorded program. It fails if temps are still live.
func (b *Builder) Build() (*Program, error) {
	if len(b.live) != 0 {
		return nil, fmt.Errorf("%w: %d temp(s) still live", ErrInvalidProgram, len(b.live))
	}
	return &Program{
		Paths:            b.paths,
		Vars:             slices.Clone(b.vars),
		Seeds:            slices.Clone(b.seeds),
		Instrs:           slices.Clone(b.instrs),
		PeakTempElements: b.peakElems,
	}, nil
}

func (b *Builder) emit(in Instr) {
	b.instrs = append(b.instrs, in)
}

func (b *Builder) use(ref Ref) {
	if ref.Space != SpaceTemp {
		return
	}
	if _, ok := b.live[ref.Index]; !ok {
		panic(fmt.Sprintf("program: use of temp %s after free", ref))
	}
}

// Compile records the forward-mode program for root over paths elements.
// Variables are declared in sorted name order with the given seeds; every
// variable referenced by root must have a seed (use 0 for no sensitivity).
func Compile(root expr.Node, paths int, seeds map[string]float64, opts ...Option) (*Program, error) {
	b := NewBuilder(paths, opts...)

	ctx := forward.NewContext(paths, ValueRef, DerivRef)
	for _, name := range slices.Sorted(maps.Keys(seeds)) {
		ctx.Bind(name, b.DeclareVar(name, seeds[name]), seeds[name])
	}

	if err := forward.Generate(root, ctx, b); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	prog, err := b.Build()
	if err != nil {
		return nil, err
	}
	prog.Source = expr.Format(root)
	return prog, nil
}
