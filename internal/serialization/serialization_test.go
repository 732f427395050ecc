package serialization

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/autoexpr/internal/expr"
	"github.com/born-ml/autoexpr/internal/program"
	"github.com/born-ml/autoexpr/internal/vector"
)

func compileDemo(t *testing.T) *program.Program {
	t.Helper()
	x, y := expr.NewVar("x"), expr.NewVar("y")
	tree := expr.NewAdd(
		expr.NewConst(-0.25),
		expr.NewExp(expr.NewMul(expr.NewConst(2), x, y)),
	)
	prog, err := program.Compile(tree, 16, map[string]float64{"x": 1, "y": 0.5})
	require.NoError(t, err)
	return prog
}

func encode(t *testing.T, prog *program.Program) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, prog))
	return buf.Bytes()
}

// TestRoundTrip tests encoding and decoding a compiled program.
func TestRoundTrip(t *testing.T) {
	prog := compileDemo(t)
	data := encode(t, prog)

	assert.Equal(t, MagicBytes, string(data[:4]))
	assert.Equal(t, uint32(FormatVersion), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, FlagHasSource, binary.LittleEndian.Uint32(data[8:12]))

	got, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, prog, got)
}

// TestRoundTrip_File tests saving and loading a program file.
func TestRoundTrip_File(t *testing.T) {
	prog := compileDemo(t)
	path := filepath.Join(t.TempDir(), "demo.axp")

	require.NoError(t, WriteFile(path, prog))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, prog.Instrs, got.Instrs)
	assert.Equal(t, prog.Source, got.Source)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.axp"))
	assert.Error(t, err)
}

func TestRecordSize(t *testing.T) {
	assert.Equal(t, RecordSize, binary.Size(record{}))
}

// TestDecode_Corruption tests that damaged or oversized files are rejected.
func TestDecode_Corruption(t *testing.T) {
	data := encode(t, compileDemo(t))

	t.Run("Checksum", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)-ChecksumSize-5] ^= 0xff
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("Magic", func(t *testing.T) {
		bad := bytes.Clone(data)
		copy(bad, "BORN")
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("Short", func(t *testing.T) {
		_, err := Decode(data[:10])
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("Truncated", func(t *testing.T) {
		body := bytes.Clone(data[:len(data)-ChecksumSize-RecordSize])
		sum := ComputeChecksum(body)
		_, err := Decode(append(body, sum[:]...))
		assert.ErrorIs(t, err, ErrTooManyInstructions)
	})

	t.Run("TooManyPaths", func(t *testing.T) {
		huge := &program.Program{Paths: 1 << 60}
		require.NoError(t, huge.Validate())
		raw, err := marshal(huge)
		require.NoError(t, err)

		_, err = Decode(raw)
		assert.ErrorIs(t, err, program.ErrInvalidProgram)
	})

	t.Run("TempTooLarge", func(t *testing.T) {
		tmp := program.Ref{Space: program.SpaceTemp}
		huge := &program.Program{
			Paths: 8,
			Instrs: []program.Instr{
				{Op: vector.OpAlloc, Dst: tmp, Len: MaxTempElements + 1},
				{Op: vector.OpFree, Dst: tmp},
			},
		}
		require.NoError(t, huge.Validate())
		raw, err := marshal(huge)
		require.NoError(t, err)

		_, err = Decode(raw)
		assert.ErrorIs(t, err, program.ErrInvalidProgram)
	})
}

// resign replaces the trailing checksum after a deliberate edit.
func resign(data []byte) []byte {
	body := data[:len(data)-ChecksumSize]
	sum := ComputeChecksum(body)
	return append(bytes.Clone(body), sum[:]...)
}

// TestDecode_Semantics tests files with a valid checksum but invalid contents.
func TestDecode_Semantics(t *testing.T) {
	data := encode(t, compileDemo(t))

	t.Run("Version", func(t *testing.T) {
		bad := bytes.Clone(data)
		binary.LittleEndian.PutUint32(bad[4:8], 9)
		_, err := Decode(resign(bad))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("UnknownOp", func(t *testing.T) {
		bad := bytes.Clone(data)
		// First byte of the last record.
		bad[len(bad)-ChecksumSize-RecordSize] = 0xee
		_, err := Decode(resign(bad))
		var recErr *RecordError
		require.ErrorAs(t, err, &recErr)
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("InvalidProgram", func(t *testing.T) {
		prog := compileDemo(t)
		// Dropping the final free leaves the outer temp live.
		require.Equal(t, "free %t0", prog.Instrs[len(prog.Instrs)-1].String())

		bad := bytes.Clone(data[:len(data)-ChecksumSize-RecordSize])
		countAt := len(bad) - len(prog.Instrs[:len(prog.Instrs)-1])*RecordSize - 8
		binary.LittleEndian.PutUint64(bad[countAt:], uint64(len(prog.Instrs)-1))
		sum := ComputeChecksum(bad)
		_, err := Decode(append(bad, sum[:]...))
		assert.ErrorIs(t, err, program.ErrInvalidProgram)
	})
}

// TestWrite_RejectsInvalidProgram tests that an invalid program is never written.
func TestWrite_RejectsInvalidProgram(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, &program.Program{Paths: 0})
	assert.ErrorIs(t, err, program.ErrInvalidProgram)
	assert.Zero(t, buf.Len())
}

// TestWrite_RejectsOversizedProgram tests that a program whose buffers
// exceed the format limits is never written.
func TestWrite_RejectsOversizedProgram(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, &program.Program{Paths: MaxPaths + 1})
	assert.ErrorIs(t, err, program.ErrInvalidProgram)
	assert.Zero(t, buf.Len())
}
