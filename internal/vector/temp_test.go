package vector_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/autoexpr/internal/backend/cpu"
	"github.com/born-ml/autoexpr/internal/vector"
)

// TestAcquireRelease tests that a temp is freed once even when released twice.
func TestAcquireRelease(t *testing.T) {
	host := cpu.New()
	be := vector.NewCounting[[]float64](host)

	tmp, err := vector.Acquire[[]float64](be, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, tmp.Len())
	assert.Len(t, tmp.Buffer(), 6)
	assert.Equal(t, 1, host.LiveBuffers())

	tmp.Release()
	tmp.Release()
	assert.Equal(t, 1, be.Calls(vector.OpFree), "second release is a no-op")
	assert.Zero(t, host.LiveBuffers())
}

func TestRelease_Nil(t *testing.T) {
	var tmp *vector.Temp[[]float64]
	assert.NotPanics(t, tmp.Release)
}

// TestAcquire_Failure tests that a failed allocation yields no temp.
func TestAcquire_Failure(t *testing.T) {
	host := cpu.New(cpu.WithMaxElements(4))

	tmp, err := vector.Acquire[[]float64](host, 5)
	require.Error(t, err)
	assert.Nil(t, tmp)
	assert.True(t, errors.Is(err, vector.ErrAllocation))
	assert.Contains(t, err.Error(), "acquire 5 elements")
}

// TestTemp_Slot tests slot views into a temp block.
func TestTemp_Slot(t *testing.T) {
	host := cpu.New()
	tmp, err := vector.Acquire[[]float64](host, 6)
	require.NoError(t, err)
	defer tmp.Release()

	for i := range 3 {
		host.Fill(tmp.Slot(i, 2), float64(i+1), 2)
	}
	assert.Equal(t, []float64{1, 1, 2, 2, 3, 3}, tmp.Buffer())

	assert.Panics(t, func() { tmp.Slot(3, 2) })
	assert.Panics(t, func() { tmp.Slot(-1, 2) })
	assert.Panics(t, func() { tmp.Slot(1, 4) })
}

// Release must run even when the rule that acquired the temp panics.
func TestTemp_ReleasedOnPanic(t *testing.T) {
	host := cpu.New()

	assert.Panics(t, func() {
		tmp, err := vector.Acquire[[]float64](host, 3)
		require.NoError(t, err)
		defer tmp.Release()
		host.Fill(tmp.Buffer(), 1, 4)
	})
	assert.Zero(t, host.LiveBuffers())
}

// TestSet tests that Set dispatches zero to Zero.
func TestSet(t *testing.T) {
	be := vector.NewCounting[[]float64](cpu.New())
	dst := []float64{9, 9}

	vector.Set[[]float64](be, dst, 0, 2)
	assert.Equal(t, []float64{0, 0}, dst)
	vector.Set[[]float64](be, dst, -1.5, 2)
	assert.Equal(t, []float64{-1.5, -1.5}, dst)

	assert.Equal(t, 1, be.Calls(vector.OpZero))
	assert.Equal(t, 1, be.Calls(vector.OpFill))
}

// TestSymbolFor tests the kernel symbol of each operation.
func TestSymbolFor(t *testing.T) {
	seen := make(map[string]bool)
	for _, op := range vector.Ops {
		sym := vector.SymbolFor(op)
		require.NotEmpty(t, sym, "op %s", op)
		assert.False(t, seen[sym], "symbol %s reused", sym)
		seen[sym] = true
	}
	assert.Len(t, seen, len(vector.Symbols))
	assert.Empty(t, vector.SymbolFor("log"))
}
