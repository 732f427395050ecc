package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/autoexpr/internal/backend/cpu"
	"github.com/born-ml/autoexpr/internal/config"
	"github.com/born-ml/autoexpr/internal/exec"
	"github.com/born-ml/autoexpr/internal/expr"
	"github.com/born-ml/autoexpr/internal/forward"
	"github.com/born-ml/autoexpr/internal/metrics"
	"github.com/born-ml/autoexpr/internal/parallel"
	"github.com/born-ml/autoexpr/internal/program"
	"github.com/born-ml/autoexpr/internal/sample"
	"github.com/born-ml/autoexpr/internal/serialization"
	"github.com/born-ml/autoexpr/internal/vector"
)

// driver runs one configured evaluation.
type driver struct {
	cfg    config.Config
	out    io.Writer
	logger *slog.Logger

	dump       bool
	metricsOut string
	registry   *prometheus.Registry
	metrics    *metrics.Collector

	// prog, when set, is a saved program run in place of compiling the
	// configured expression.
	prog *program.Program

	// data holds each variable's sampled paths. It is read-only once
	// sampled and shared by concurrent passes.
	data map[string][]float64
}

func newDriver(cmd *cobra.Command, opts *options) (*driver, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd, cfg.Runtime.LogLevel)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	d := &driver{
		cfg:        cfg,
		out:        cmd.OutOrStdout(),
		logger:     logger,
		dump:       opts.dump,
		metricsOut: opts.metricsOut,
		registry:   reg,
		metrics:    metrics.New(reg),
	}
	if opts.programPath != "" {
		if err := d.loadProgram(opts.programPath, cmd.Flags().Changed("paths")); err != nil {
			return nil, err
		}
	}
	d.data = sampleInputs(d.cfg)
	return d, nil
}

// loadProgram reads a saved program. Its path count replaces the
// configured one and every variable it reads must be declared. An explicit
// --paths must agree with the program.
func (d *driver) loadProgram(path string, pathsFlag bool) error {
	if d.cfg.Runtime.Eager {
		return fmt.Errorf("%w: a saved program cannot run eagerly", config.ErrInvalidConfig)
	}
	prog, err := serialization.ReadFile(path)
	if err != nil {
		return err
	}
	for _, name := range prog.Vars {
		if _, ok := d.cfg.Variables[name]; !ok {
			return fmt.Errorf("%w: program reads undeclared variable %q", config.ErrInvalidConfig, name)
		}
	}
	if d.cfg.Paths != prog.Paths {
		if pathsFlag {
			return fmt.Errorf("%w: program was compiled for %d paths, --paths asks for %d",
				config.ErrInvalidConfig, prog.Paths, d.cfg.Paths)
		}
		d.logger.Warn("program path count replaces configured paths",
			"program", prog.Paths, "configured", d.cfg.Paths)
	}
	d.cfg.Paths = prog.Paths
	d.prog = prog
	d.logger.Debug("program loaded", "path", path, "instrs", len(prog.Instrs))
	return nil
}

func (d *driver) source() string {
	if d.prog != nil {
		return d.prog.Source
	}
	return expr.Format(d.cfg.Expression.Node)
}

// sampleInputs draws every declared variable in name order from one
// generator, so a given random seed always yields the same data.
func sampleInputs(cfg config.Config) map[string][]float64 {
	rng := sample.NewRand(cfg.RandomSeed)
	data := make(map[string][]float64, len(cfg.Variables))
	for _, name := range cfg.VariableNames() {
		v := cfg.Variables[name]
		switch v.Dist {
		case config.DistNormal:
			data[name] = sample.Normal(rng, cfg.Paths)
		case config.DistConstant:
			data[name] = sample.Constant(v.Value, cfg.Paths)
		default:
			data[name] = sample.Uniform(rng, cfg.Paths)
		}
	}
	return data
}

func (d *driver) backend() *cpu.CPUBackend {
	par := parallel.DefaultConfig()
	if w := d.cfg.Runtime.Workers; w > 0 {
		par.NumWorkers = w
	}
	return cpu.New(
		cpu.WithParallel(par),
		cpu.WithMaxElements(d.cfg.Runtime.MaxTempElements),
	)
}

// pass evaluates the expression once along seeds and returns the per-path
// value and derivative. dump, if non-nil, receives the program listing.
func (d *driver) pass(ctx context.Context, seeds map[string]float64, dump io.Writer) (value, deriv []float64, err error) {
	n := d.cfg.Paths
	root := d.cfg.Expression.Node
	value = make([]float64, n)
	deriv = make([]float64, n)
	host := d.backend()

	if d.cfg.Runtime.Eager {
		be := vector.NewCounting[[]float64](metrics.NewBackend(host, d.metrics))
		inputs := make(map[string]forward.Input, len(d.data))
		for name, xs := range d.data {
			inputs[name] = forward.Input{Data: xs, Seed: seeds[name]}
		}
		start := time.Now()
		err := forward.Evaluate(root, inputs, value, deriv, be)
		d.metrics.Run(time.Since(start).Seconds(), err)
		if err != nil {
			return nil, nil, err
		}
		d.logger.Debug("eager evaluation",
			"allocs", be.Calls(vector.OpAlloc),
			"temp_peak", be.PeakElements())
		return value, deriv, nil
	}

	prog := d.prog
	if prog == nil {
		prog, err = d.compileProgram(seeds)
		if err != nil {
			return nil, nil, err
		}
	}
	if dump != nil {
		if err := prog.Dump(dump); err != nil {
			return nil, nil, err
		}
	}

	ex, err := exec.Link(host.Symbols(), exec.WithLogger(d.logger), exec.WithMetrics(d.metrics))
	if err != nil {
		return nil, nil, err
	}
	mem := exec.Memory{Value: value, Deriv: deriv, Vars: d.data}
	if err := ex.Run(ctx, prog, mem); err != nil {
		return nil, nil, err
	}
	return value, deriv, nil
}

func (d *driver) compileProgram(seeds map[string]float64) (*program.Program, error) {
	return program.Compile(d.cfg.Expression.Node, d.cfg.Paths, seeds,
		program.WithMaxTempElements(d.cfg.Runtime.MaxTempElements))
}

// compile saves the program for the configured seeds to path.
func (d *driver) compile(path string) error {
	prog, err := d.compileProgram(d.cfg.Seeds())
	if err != nil {
		return err
	}
	if d.dump {
		if err := prog.Dump(d.out); err != nil {
			return err
		}
	}
	if err := serialization.WriteFile(path, prog); err != nil {
		return err
	}
	fmt.Fprintf(d.out, "wrote %s: %d instructions, %d peak temp elements\n",
		path, len(prog.Instrs), prog.PeakTempElements)
	return nil
}

func (d *driver) run(ctx context.Context) error {
	if d.dump && d.cfg.Runtime.Eager {
		return fmt.Errorf("%w: --dump prints a compiled program and cannot be combined with eager evaluation",
			config.ErrInvalidConfig)
	}
	start := time.Now()
	d.logger.Info("evaluating",
		"expression", d.source(),
		"paths", d.cfg.Paths,
		"eager", d.cfg.Runtime.Eager)

	var dump io.Writer
	if d.dump {
		dump = d.out
	}
	value, deriv, err := d.pass(ctx, d.cfg.Seeds(), dump)
	if err != nil {
		return err
	}

	d.logger.Info("evaluation finished", "elapsed", time.Since(start))
	fmt.Fprintf(d.out, "expression: %s\n", d.source())
	fmt.Fprintf(d.out, "paths:      %d\n", d.cfg.Paths)
	printSummary(d.out, "value", sample.Summarize(value))
	printSummary(d.out, "derivative", sample.Summarize(deriv))
	return d.writeMetrics()
}

// gradient runs one pass per variable with a one-hot seed. Passes run
// concurrently, each with its own backend and result buffers.
func (d *driver) gradient(ctx context.Context) error {
	if d.dump {
		return fmt.Errorf("%w: --dump is not supported by gradient; use run or compile", config.ErrInvalidConfig)
	}
	names := expr.Vars(d.cfg.Expression.Node)
	if len(names) == 0 {
		return d.run(ctx)
	}

	values := make([]sample.Summary, len(names))
	partials := make([]sample.Summary, len(names))

	g, gctx := errgroup.WithContext(ctx)
	if c := d.cfg.Runtime.Concurrency; c > 0 {
		g.SetLimit(c)
	}
	for i, name := range names {
		g.Go(func() error {
			seeds := make(map[string]float64, len(d.data))
			for v := range d.data {
				seeds[v] = 0
			}
			seeds[name] = 1

			value, deriv, err := d.pass(gctx, seeds, nil)
			if err != nil {
				return fmt.Errorf("d/d%s: %w", name, err)
			}
			values[i] = sample.Summarize(value)
			partials[i] = sample.Summarize(deriv)
			d.logger.Debug("pass finished", "variable", name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(d.out, "expression: %s\n", expr.Format(d.cfg.Expression.Node))
	fmt.Fprintf(d.out, "paths:      %d\n", d.cfg.Paths)
	width := len("value")
	for _, name := range names {
		width = max(width, len("d/d")+len(name))
	}
	printSummaryWidth(d.out, "value", values[0], width)
	for i, name := range names {
		printSummaryWidth(d.out, "d/d"+name, partials[i], width)
	}
	return d.writeMetrics()
}

func (d *driver) writeMetrics() error {
	if d.metricsOut == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(d.metricsOut, d.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	d.logger.Info("metrics written", "path", d.metricsOut)
	return nil
}

func printSummary(w io.Writer, label string, s sample.Summary) {
	printSummaryWidth(w, label, s, len("derivative"))
}

func printSummaryWidth(w io.Writer, label string, s sample.Summary, width int) {
	fmt.Fprintf(w, "%-*s  mean=%.6g  stderr=%.3g  min=%.6g  max=%.6g\n",
		width, label, s.Mean, s.StdErr, s.Min, s.Max)
}
