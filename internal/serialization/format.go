package serialization

import (
	"fmt"
	"time"

	"github.com/born-ml/autoexpr/internal/program"
	"github.com/born-ml/autoexpr/internal/vector"
)

// Format constants.
const (
	MagicBytes    = "AXPR"
	FormatVersion = 1
	RecordSize    = 48 // bytes per instruction record
	ChecksumSize  = 32 // SHA-256 checksum size
)

// Validation limits for resource protection.
const (
	MaxHeaderSize       = 16 * 1024 * 1024
	MaxInstructionCount = 1 << 24
	MaxPaths            = 1 << 26 // elements per register and variable buffer
	MaxTempElements     = 1 << 30 // temp elements live at once
)

// Flags for the .axp format.
const (
	FlagHasSource uint32 = 1 << 0 // bit 0: header carries the source expression
)

// Header is the JSON metadata of an .axp file.
type Header struct {
	FormatVersion    int       `json:"format_version"`
	Version          string    `json:"autoexpr_version"`
	CreatedAt        time.Time `json:"created_at"`
	Paths            int       `json:"paths"`
	Vars             []string  `json:"vars"`
	Seeds            []float64 `json:"seeds"`
	Source           string    `json:"source,omitempty"`
	PeakTempElements int       `json:"peak_temp_elements"`
}

// record is the fixed-size binary form of a program.Instr.
type record struct {
	Op        uint8
	DstSpace  uint8
	SrcSpace  uint8
	_         uint8
	DstIndex  uint32
	DstOffset uint64
	SrcIndex  uint32
	_         uint32
	SrcOffset uint64
	Scalar    float64
	Len       uint64
}

// checkLimits rejects programs whose buffers could not be allocated. prog
// must already be valid, so every free matches a live alloc.
func checkLimits(prog *program.Program) error {
	if prog.Paths > MaxPaths {
		return fmt.Errorf("%w: %d paths exceeds limit %d", program.ErrInvalidProgram, prog.Paths, MaxPaths)
	}
	sizes := make(map[int]int)
	live := 0
	for pc, in := range prog.Instrs {
		switch in.Op {
		case vector.OpAlloc:
			sizes[in.Dst.Index] = in.Len
			live += in.Len
			if live > MaxTempElements {
				return fmt.Errorf("%w: instr %d: %d live temp elements exceeds limit %d",
					program.ErrInvalidProgram, pc, live, MaxTempElements)
			}
		case vector.OpFree:
			live -= sizes[in.Dst.Index]
		}
	}
	return nil
}

// opCode maps an operation to its position in vector.Ops.
func opCode(op vector.Op) (uint8, bool) {
	for i, o := range vector.Ops {
		if o == op {
			return uint8(i), true //nolint:gosec // G115: len(vector.Ops) is small
		}
	}
	return 0, false
}

func toRecord(in program.Instr) (record, bool) {
	code, ok := opCode(in.Op)
	if !ok || in.Dst.Index < 0 || in.Src.Index < 0 || in.Dst.Offset < 0 || in.Src.Offset < 0 || in.Len < 0 {
		return record{}, false
	}
	//nolint:gosec // G115: indices, offsets and lengths were checked non-negative
	return record{
		Op:        code,
		DstSpace:  uint8(in.Dst.Space),
		SrcSpace:  uint8(in.Src.Space),
		DstIndex:  uint32(in.Dst.Index),
		DstOffset: uint64(in.Dst.Offset),
		SrcIndex:  uint32(in.Src.Index),
		SrcOffset: uint64(in.Src.Offset),
		Scalar:    in.Scalar,
		Len:       uint64(in.Len),
	}, true
}

func fromRecord(i int, r record) (program.Instr, error) {
	if int(r.Op) >= len(vector.Ops) {
		return program.Instr{}, &RecordError{Index: i, Details: "unknown op code"}
	}
	if r.DstSpace > uint8(program.SpaceTemp) || r.SrcSpace > uint8(program.SpaceTemp) {
		return program.Instr{}, &RecordError{Index: i, Details: "unknown memory space"}
	}
	const limit = 1 << 48
	if r.DstOffset > limit || r.SrcOffset > limit || r.Len > limit {
		return program.Instr{}, &RecordError{Index: i, Details: "offset or length out of range"}
	}
	//nolint:gosec // G115: values were range checked above
	return program.Instr{
		Op:     vector.Ops[r.Op],
		Dst:    program.Ref{Space: program.Space(r.DstSpace), Index: int(r.DstIndex), Offset: int(r.DstOffset)},
		Src:    program.Ref{Space: program.Space(r.SrcSpace), Index: int(r.SrcIndex), Offset: int(r.SrcOffset)},
		Scalar: r.Scalar,
		Len:    int(r.Len),
	}, nil
}
