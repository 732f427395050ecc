package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/born-ml/autoexpr/internal/program"
)

const toolVersion = "0.1.0" // Current autoexpr version

// Write encodes prog in .axp format. The program is validated first so
// that only runnable programs are ever written.
func Write(w io.Writer, prog *program.Program) error {
	if err := prog.Validate(); err != nil {
		return err
	}
	if err := checkLimits(prog); err != nil {
		return err
	}
	if len(prog.Instrs) > MaxInstructionCount {
		return fmt.Errorf("%w: %d", ErrTooManyInstructions, len(prog.Instrs))
	}

	data, err := marshal(prog)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write program: %w", err)
	}
	return nil
}

// marshal lays out the file bytes without checking the program.
func marshal(prog *program.Program) ([]byte, error) {

	header := Header{
		FormatVersion:    FormatVersion,
		Version:          toolVersion,
		CreatedAt:        time.Now().UTC(),
		Paths:            prog.Paths,
		Vars:             prog.Vars,
		Seeds:            prog.Seeds,
		Source:           prog.Source,
		PeakTempElements: prog.PeakTempElements,
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal header: %w", err)
	}

	flags := uint32(0)
	if prog.Source != "" {
		flags |= FlagHasSource
	}

	var buf bytes.Buffer
	buf.WriteString(MagicBytes)
	le := binary.LittleEndian
	_ = binary.Write(&buf, le, uint32(FormatVersion))
	_ = binary.Write(&buf, le, flags)
	_ = binary.Write(&buf, le, uint64(len(headerJSON)))
	buf.Write(headerJSON)
	_ = binary.Write(&buf, le, uint64(len(prog.Instrs)))

	for i, in := range prog.Instrs {
		rec, ok := toRecord(in)
		if !ok {
			return nil, &RecordError{Index: i, Details: fmt.Sprintf("cannot encode %s", in)}
		}
		if err := binary.Write(&buf, le, rec); err != nil {
			return nil, fmt.Errorf("failed to encode record %d: %w", i, err)
		}
	}

	sum := ComputeChecksum(buf.Bytes())
	buf.Write(sum[:])
	return buf.Bytes(), nil
}

// WriteFile saves prog to path.
func WriteFile(path string, prog *program.Program) error {
	//nolint:gosec // G304: File path comes from user input, which is expected for saving programs
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Write(file, prog); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
