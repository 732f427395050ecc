package exec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/born-ml/autoexpr/internal/metrics"
	"github.com/born-ml/autoexpr/internal/program"
	"github.com/born-ml/autoexpr/internal/vector"
)

// Memory is the caller-owned storage a program runs against. Value and
// Deriv receive the results; Vars holds each input variable's samples by
// name. Every slice needs at least Paths elements.
type Memory struct {
	Value []float64
	Deriv []float64
	Vars  map[string][]float64
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithMetrics records kernel and temp usage on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Executor) {
		e.metrics = c
	}
}

// Executor runs programs on resolved kernels. It is safe for concurrent use
// as long as concurrent runs use disjoint Memory.
type Executor struct {
	kernels *Kernels
	logger  *slog.Logger
	metrics *metrics.Collector
}

// New creates an executor for the given kernels.
func New(k *Kernels, opts ...Option) *Executor {
	e := &Executor{
		kernels: k,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Link resolves table and returns an executor bound to it.
func Link(table map[string]any, opts ...Option) (*Executor, error) {
	k, err := Resolve(table)
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}
	return New(k, opts...), nil
}

// Run executes prog once against mem.
//
// The context is checked between instructions; a single kernel call is not
// interrupted. If Run fails part way, temps it allocated are freed before it
// returns and mem.Value/mem.Deriv hold partial results.
func (e *Executor) Run(ctx context.Context, prog *program.Program, mem Memory) (err error) {
	if err := prog.Validate(); err != nil {
		return err
	}

	vars, err := bindVars(prog, mem)
	if err != nil {
		return err
	}

	r := &run{
		exec:  e,
		prog:  prog,
		value: mem.Value,
		deriv: mem.Deriv,
		vars:  vars,
		temps: make(map[int][]float64),
	}
	defer r.releaseAll()

	e.logger.Debug("program start",
		"paths", prog.Paths,
		"instrs", len(prog.Instrs),
		"temp_peak", prog.PeakTempElements)

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		e.metrics.Run(elapsed.Seconds(), err)
		e.logger.Debug("program finished", "elapsed", elapsed, "error", err)
	}()

	for pc, in := range prog.Instrs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("instr %d: %w", pc, err)
		}
		if err := r.step(in); err != nil {
			return fmt.Errorf("instr %d (%s): %w", pc, in, err)
		}
	}
	return nil
}

func bindVars(prog *program.Program, mem Memory) ([][]float64, error) {
	if len(mem.Value) < prog.Paths || len(mem.Deriv) < prog.Paths {
		return nil, fmt.Errorf("%w: registers have %d/%d elements, program needs %d",
			ErrMemory, len(mem.Value), len(mem.Deriv), prog.Paths)
	}

	vars := make([][]float64, len(prog.Vars))
	for i, name := range prog.Vars {
		data, ok := mem.Vars[name]
		if !ok {
			return nil, fmt.Errorf("%w: no data for variable %q", ErrMemory, name)
		}
		if len(data) < prog.Paths {
			return nil, fmt.Errorf("%w: variable %q has %d elements, program needs %d",
				ErrMemory, name, len(data), prog.Paths)
		}
		vars[i] = data
	}
	return vars, nil
}

// run is the state of one execution.
type run struct {
	exec  *Executor
	prog  *program.Program
	value []float64
	deriv []float64
	vars  [][]float64
	temps map[int][]float64
}

func (r *run) step(in program.Instr) error {
	k := r.exec.kernels
	m := r.exec.metrics

	switch in.Op {
	case vector.OpAlloc:
		buf, err := k.Alloc(in.Len)
		if err != nil {
			return err
		}
		m.Kernel(vector.SymAlloc)
		m.Alloc(in.Len)
		r.temps[in.Dst.Index] = buf
		return nil

	case vector.OpFree:
		buf := r.temps[in.Dst.Index]
		delete(r.temps, in.Dst.Index)
		k.Free(buf)
		m.Kernel(vector.SymFree)
		m.Release(len(buf))
		return nil
	}

	dst, err := r.resolve(in.Dst, in.Len)
	if err != nil {
		return err
	}

	switch in.Op {
	case vector.OpFill:
		k.Set(in.Scalar, dst, in.Len)
	case vector.OpZero:
		k.Zero(dst, in.Len)
	case vector.OpExp:
		k.Exp(dst, in.Len)
	case vector.OpCopy, vector.OpAdd, vector.OpMul:
		src, err := r.resolve(in.Src, in.Len)
		if err != nil {
			return err
		}
		switch in.Op {
		case vector.OpCopy:
			k.Copy(src, dst, in.Len)
		case vector.OpAdd:
			k.Add(src, dst, in.Len)
		default:
			k.Mul(src, dst, in.Len)
		}
	default:
		return fmt.Errorf("%w: unknown op %q", program.ErrInvalidProgram, in.Op)
	}
	m.Kernel(vector.SymbolFor(in.Op))
	return nil
}

// resolve maps a symbolic reference to the n-element slice it denotes.
func (r *run) resolve(ref program.Ref, n int) ([]float64, error) {
	var base []float64
	switch ref.Space {
	case program.SpaceValue:
		base = r.value
	case program.SpaceDeriv:
		base = r.deriv
	case program.SpaceVar:
		base = r.vars[ref.Index]
	case program.SpaceTemp:
		buf, ok := r.temps[ref.Index]
		if !ok {
			return nil, fmt.Errorf("%w: %s is not live", ErrOutOfBounds, ref)
		}
		base = buf
	default:
		return nil, fmt.Errorf("%w: unknown space %s", ErrOutOfBounds, ref.Space)
	}

	if ref.Offset < 0 || ref.Offset+n > len(base) {
		return nil, fmt.Errorf("%w: %s length %d in %d-element buffer", ErrOutOfBounds, ref, n, len(base))
	}
	return base[ref.Offset : ref.Offset+n], nil
}

// releaseAll frees temps left live by an aborted run.
func (r *run) releaseAll() {
	for id, buf := range r.temps {
		r.exec.kernels.Free(buf)
		r.exec.metrics.Release(len(buf))
		delete(r.temps, id)
	}
}
