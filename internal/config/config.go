// Package config loads run configurations for the autoexpr driver.
//
// A configuration names the path count, how each input variable is sampled
// and seeded, and the expression tree itself as a structured YAML mapping:
//
//	paths: 10000
//	random_seed: 1
//	variables:
//	  x: {dist: uniform, seed: 1}
//	expression:
//	  add:
//	    - const: 1.5
//	    - exp:
//	        add: [{const: 1}, {mul: [{const: 2}, {var: x}]}]
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/autoexpr/internal/expr"
)

// Common errors.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrInvalidExpr   = errors.New("invalid expression")
)

// MaxPaths bounds the path count so every buffer stays allocatable.
const MaxPaths = 1 << 26

// Distributions supported for input variables.
const (
	DistUniform  = "uniform"
	DistNormal   = "normal"
	DistConstant = "constant"
)

// Config is a complete run description.
type Config struct {
	// Paths is the number of independent evaluation paths.
	Paths int `yaml:"paths"`

	// RandomSeed seeds the sample generator.
	RandomSeed uint64 `yaml:"random_seed"`

	// Variables describes how each input is sampled and its derivative seed.
	Variables map[string]Variable `yaml:"variables"`

	// Expression is the tree to evaluate.
	Expression Expression `yaml:"expression"`

	// Runtime contains execution settings.
	Runtime RuntimeConfig `yaml:"runtime"`
}

// Variable describes one input.
type Variable struct {
	Dist  string  `yaml:"dist"`
	Value float64 `yaml:"value"` // used by the constant distribution
	Seed  float64 `yaml:"seed"`
}

// RuntimeConfig contains execution settings.
type RuntimeConfig struct {
	// Eager runs the generator directly on the CPU backend instead of
	// compiling a program first.
	Eager bool `yaml:"eager"`

	// Workers bounds kernel goroutines; 0 uses the CPU count.
	Workers int `yaml:"workers"`

	// MaxTempElements caps live temporary elements; 0 is unlimited.
	MaxTempElements int `yaml:"max_temp_elements"`

	// Concurrency bounds parallel passes of the gradient command.
	Concurrency int `yaml:"concurrency"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the demo configuration: s + exp(1 + 2x) with x ~ U(0, 1)
// and s = 0. Its mean value is E[exp(1+2x)] ≈ 8.68 and its mean derivative
// along x is ≈ 17.36.
func Default() Config {
	return Config{
		Paths:      10000,
		RandomSeed: 1,
		Variables: map[string]Variable{
			"x": {Dist: DistUniform, Seed: 1},
		},
		Expression: Expression{Node: expr.NewAdd(
			expr.NewConst(0),
			expr.NewExp(expr.NewAdd(
				expr.NewConst(1),
				expr.NewMul(expr.NewConst(2), expr.NewVar("x")),
			)),
		)},
		Runtime: RuntimeConfig{
			Concurrency: 4,
			LogLevel:    "info",
		},
	}
}

// Load reads a YAML file. Fields absent from the file keep their Default
// values, except that a file providing variables replaces the default set.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	cfg.Variables = nil

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.Variables == nil {
		cfg.Variables = Default().Variables
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Paths <= 0 || c.Paths > MaxPaths {
		return fmt.Errorf("%w: paths must be in [1, %d], got %d", ErrInvalidConfig, MaxPaths, c.Paths)
	}
	if c.Expression.Node == nil {
		return fmt.Errorf("%w: expression is required", ErrInvalidConfig)
	}
	if err := expr.Validate(c.Expression.Node); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExpr, err)
	}
	if c.Runtime.Workers < 0 || c.Runtime.MaxTempElements < 0 || c.Runtime.Concurrency < 0 {
		return fmt.Errorf("%w: runtime limits must not be negative", ErrInvalidConfig)
	}
	for name, v := range c.Variables {
		switch v.Dist {
		case DistUniform, DistNormal, DistConstant:
		default:
			return fmt.Errorf("%w: variable %q: unknown dist %q", ErrInvalidConfig, name, v.Dist)
		}
	}
	for _, name := range expr.Vars(c.Expression.Node) {
		if _, ok := c.Variables[name]; !ok {
			return fmt.Errorf("%w: expression uses undeclared variable %q", ErrInvalidConfig, name)
		}
	}
	return nil
}

// Seeds returns the configured seed of every variable.
func (c Config) Seeds() map[string]float64 {
	seeds := make(map[string]float64, len(c.Variables))
	for name, v := range c.Variables {
		seeds[name] = v.Seed
	}
	return seeds
}

// VariableNames returns the declared variables, sorted.
func (c Config) VariableNames() []string {
	names := make([]string, 0, len(c.Variables))
	for name := range c.Variables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
