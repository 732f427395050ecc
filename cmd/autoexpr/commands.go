package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/autoexpr/internal/config"
)

// options holds the global flags.
type options struct {
	configPath string
	paths      int
	seed       uint64
	dump       bool
	eager      bool
	metricsOut string
	logLevel   string

	programPath string // run: execute a saved program
	outPath     string // compile: destination file
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "autoexpr",
		Short: "Batched forward-mode derivatives of Monte Carlo expressions",
		Long: `autoexpr evaluates an expression tree over many independent sample
paths at once and computes its directional derivative along the
configured variable seeds with forward-mode automatic differentiation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "YAML run configuration (default: built-in demo)")
	pf.IntVarP(&opts.paths, "paths", "n", 0, "number of sample paths (overrides config)")
	pf.Uint64Var(&opts.seed, "seed", 0, "random seed for input sampling (overrides config)")
	pf.BoolVar(&opts.dump, "dump", false, "print the compiled program listing")
	pf.BoolVar(&opts.eager, "eager", false, "evaluate directly on the CPU backend without compiling")
	pf.StringVar(&opts.metricsOut, "metrics-out", "", "write Prometheus metrics to this file after the run")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")

	root.AddCommand(
		newRunCmd(opts),
		newGradientCmd(opts),
		newCompileCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate the expression and its derivative along the configured seeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDriver(cmd, opts)
			if err != nil {
				return err
			}
			return d.run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&opts.programPath, "program", "p", "", "run a program saved by compile instead of the configured expression")
	return cmd
}

func newCompileCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the configured expression and save the program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDriver(cmd, opts)
			if err != nil {
				return err
			}
			return d.compile(opts.outPath)
		},
	}
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "program.axp", "output file")
	return cmd
}

func newGradientCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "gradient",
		Short: "Compute every partial derivative with one concurrent pass per variable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDriver(cmd, opts)
			if err != nil {
				return err
			}
			return d.gradient(cmd.Context())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "autoexpr %s\n", version)
		},
	}
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return config.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("paths") {
		cfg.Paths = opts.paths
	}
	if flags.Changed("seed") {
		cfg.RandomSeed = opts.seed
	}
	if flags.Changed("eager") {
		cfg.Runtime.Eager = opts.eager
	}
	if flags.Changed("log-level") {
		cfg.Runtime.LogLevel = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("%w: log level: %w", config.ErrInvalidConfig, err)
		}
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl})), nil
}
