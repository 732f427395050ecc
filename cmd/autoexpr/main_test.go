package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/autoexpr/internal/config"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "autoexpr "+version+"\n", out)
}

// TestRun_Default tests the demo run.
func TestRun_Default(t *testing.T) {
	out, _, err := execute(t, "run", "--paths", "2000")
	require.NoError(t, err)
	assert.Contains(t, out, "expression: (add 0 (exp (add 1 (mul 2 x))))\n")
	assert.Contains(t, out, "paths:      2000\n")
	assert.Contains(t, out, "value ")
	assert.Contains(t, out, "derivative ")
}

// The eager walk and the linked program issue the same operations in the
// same order, so their output is identical.
func TestRun_EagerMatchesCompiled(t *testing.T) {
	compiled, _, err := execute(t, "run", "--paths", "500", "--seed", "7")
	require.NoError(t, err)
	eager, _, err := execute(t, "run", "--paths", "500", "--seed", "7", "--eager")
	require.NoError(t, err)
	assert.Equal(t, compiled, eager)

	other, _, err := execute(t, "run", "--paths", "500", "--seed", "8")
	require.NoError(t, err)
	assert.NotEqual(t, compiled, other)
}

// TestRun_Dump tests printing the program listing.
func TestRun_Dump(t *testing.T) {
	out, _, err := execute(t, "run", "--paths", "4", "--dump")
	require.NoError(t, err)
	assert.Contains(t, out, "; paths=4")
	assert.Contains(t, out, "; %v0 = x seed=1")
	assert.Contains(t, out, "exp %value, 4")
}

// TestRun_DebugLogging tests that debug logging reaches stderr.
func TestRun_DebugLogging(t *testing.T) {
	_, logs, err := execute(t, "run", "--paths", "8", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, logs, "program start")
	assert.Contains(t, logs, "level=INFO msg=evaluating")
}

// TestGradient tests one partial derivative per variable.
func TestGradient(t *testing.T) {
	// f = x·y + exp(0·z) with constant inputs, so every partial is exact.
	path := writeConfig(t, `
paths: 16
variables:
  x: {dist: constant, value: 2}
  y: {dist: constant, value: 3}
  z: {dist: normal}
expression:
  add:
    - mul: [{var: x}, {var: y}]
    - exp: {mul: [0, {var: z}]}
runtime:
  concurrency: 2
`)
	for _, mode := range [][]string{nil, {"--eager"}} {
		args := append([]string{"gradient", "--config", path}, mode...)
		out, _, err := execute(t, args...)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 6, out)
		assert.True(t, strings.HasPrefix(lines[2], "value  mean=7  stderr=0"), lines[2])
		assert.True(t, strings.HasPrefix(lines[3], "d/dx   mean=3  stderr=0"), lines[3])
		assert.True(t, strings.HasPrefix(lines[4], "d/dy   mean=2  stderr=0"), lines[4])
		assert.True(t, strings.HasPrefix(lines[5], "d/dz   mean=0  stderr=0"), lines[5])
	}
}

// TestGradient_ConstantExpression tests gradient of an expression without variables.
func TestGradient_ConstantExpression(t *testing.T) {
	path := writeConfig(t, "paths: 3\nexpression: {add: [1, 2]}\n")
	out, _, err := execute(t, "gradient", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "mean=3  stderr=0")
}

// TestRun_MetricsOut tests writing metrics after a compiled run.
func TestRun_MetricsOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.prom")
	_, _, err := execute(t, "run", "--paths", "16", "--metrics-out", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `autoexpr_runs_total{outcome="ok"} 1`)
	assert.Contains(t, text, `autoexpr_kernel_calls_total{op="vExp_64f_I"} 1`)
	assert.Contains(t, text, "autoexpr_temp_live_elements 0")
}

// TestRun_EagerMetrics tests that eager evaluation reports the same kernel
// and temp series as running the compiled program.
func TestRun_EagerMetrics(t *testing.T) {
	series := func(mode ...string) []string {
		path := filepath.Join(t.TempDir(), "metrics.prom")
		args := append([]string{"run", "--paths", "10", "--metrics-out", path}, mode...)
		_, _, err := execute(t, args...)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var lines []string
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(line, "autoexpr_kernel_calls_total") || strings.HasPrefix(line, "autoexpr_temp_") {
				lines = append(lines, line)
			}
		}
		text := string(data)
		assert.Contains(t, text, `autoexpr_runs_total{outcome="ok"} 1`)
		assert.Contains(t, text, "autoexpr_run_duration_seconds_count 1")
		return lines
	}

	eager := series("--eager")
	assert.Contains(t, eager, "autoexpr_temp_allocations_total 3")
	assert.Contains(t, eager, "autoexpr_temp_releases_total 3")
	assert.Contains(t, eager, "autoexpr_temp_live_elements 0")
	assert.Contains(t, eager, `autoexpr_kernel_calls_total{op="vExp_64f_I"} 1`)
	assert.Equal(t, series(), eager)
}

// TestRun_FlagConflicts tests that flags which would be ignored are rejected.
func TestRun_FlagConflicts(t *testing.T) {
	_, _, err := execute(t, "run", "--paths", "4", "--dump", "--eager")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, _, err = execute(t, "gradient", "--paths", "4", "--dump")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// TestRun_TempLimit tests the temp element cap in both modes.
func TestRun_TempLimit(t *testing.T) {
	// The demo nests two sums and a product: 2N + 2N + 3N live elements.
	path := writeConfig(t, "paths: 10\nruntime: {max_temp_elements: 69}\n")
	for _, mode := range [][]string{nil, {"--eager"}} {
		args := append([]string{"run", "--config", path}, mode...)
		_, _, err := execute(t, args...)
		assert.Error(t, err)
	}

	path = writeConfig(t, "paths: 10\nruntime: {max_temp_elements: 70}\n")
	_, _, err := execute(t, "run", "--config", path)
	assert.NoError(t, err)
}

// TestCompileThenRun tests running a saved program.
func TestCompileThenRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.axp")
	out, _, err := execute(t, "compile", "--paths", "300", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path+": ")
	assert.Contains(t, out, "2100 peak temp elements")

	direct, _, err := execute(t, "run", "--paths", "300")
	require.NoError(t, err)
	saved, _, err := execute(t, "run", "--program", path)
	require.NoError(t, err)
	assert.Equal(t, direct, saved, "the saved program takes its path count from the file")

	_, logs, err := execute(t, "run", "--program", path, "--config", writeConfig(t, "paths: 50\n"))
	require.NoError(t, err)
	assert.Contains(t, logs, "program path count replaces configured paths")

	_, _, err = execute(t, "run", "--program", path, "--paths", "300")
	require.NoError(t, err)
	_, _, err = execute(t, "run", "--program", path, "--paths", "301")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, _, err = execute(t, "run", "--program", path, "--eager")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	other := writeConfig(t, "variables: {y: {dist: uniform}}\nexpression: {var: y}\n")
	_, _, err = execute(t, "run", "--program", path, "--config", other)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// TestErrors tests invalid flags and missing files.
func TestErrors(t *testing.T) {
	t.Run("BadPaths", func(t *testing.T) {
		_, _, err := execute(t, "run", "--paths", "-5")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("BadLogLevel", func(t *testing.T) {
		_, _, err := execute(t, "run", "--log-level", "loud")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("MissingConfig", func(t *testing.T) {
		_, _, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("ExtraArgs", func(t *testing.T) {
		_, _, err := execute(t, "run", "extra")
		assert.Error(t, err)
	})
}

// TestSampleInputs tests deterministic input sampling.
func TestSampleInputs(t *testing.T) {
	cfg := config.Default()
	cfg.Paths = 100
	cfg.Variables = map[string]config.Variable{
		"a": {Dist: config.DistNormal},
		"b": {Dist: config.DistUniform},
		"c": {Dist: config.DistConstant, Value: 4},
	}

	first := sampleInputs(cfg)
	second := sampleInputs(cfg)
	assert.Equal(t, first, second, "sampling is deterministic")

	for _, x := range first["b"] {
		assert.True(t, x >= 0 && x < 1)
	}
	assert.Equal(t, 4.0, first["c"][99])
}
