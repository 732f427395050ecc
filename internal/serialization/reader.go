package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/autoexpr/internal/program"
)

// Read decodes an .axp stream, verifies its checksum and validates the
// resulting program.
func Read(r io.Reader) (*program.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}
	return Decode(data)
}

// Decode parses an in-memory .axp file.
func Decode(data []byte) (*program.Program, error) {
	if len(data) < len(MagicBytes)+4+4+8+8+ChecksumSize {
		return nil, fmt.Errorf("%w: file too short", ErrInvalidMagic)
	}
	if string(data[:len(MagicBytes)]) != MagicBytes {
		return nil, ErrInvalidMagic
	}

	body := data[:len(data)-ChecksumSize]
	var stored [32]byte
	copy(stored[:], data[len(data)-ChecksumSize:])
	if err := ValidateChecksum(ComputeChecksum(body), stored); err != nil {
		return nil, err
	}

	rd := bytes.NewReader(body[len(MagicBytes):])
	le := binary.LittleEndian

	var version, flags uint32
	if err := binary.Read(rd, le, &version); err != nil {
		return nil, fmt.Errorf("failed to read version: %w", err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}
	if err := binary.Read(rd, le, &flags); err != nil {
		return nil, fmt.Errorf("failed to read flags: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(rd, le, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize || headerSize > uint64(rd.Len()) {
		return nil, ErrHeaderTooLarge
	}
	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(rd, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	var count uint64
	if err := binary.Read(rd, le, &count); err != nil {
		return nil, fmt.Errorf("failed to read instruction count: %w", err)
	}
	if count > MaxInstructionCount || count*RecordSize != uint64(rd.Len()) {
		return nil, fmt.Errorf("%w: %d records in %d bytes", ErrTooManyInstructions, count, rd.Len())
	}

	instrs := make([]program.Instr, count)
	for i := range instrs {
		var rec record
		if err := binary.Read(rd, le, &rec); err != nil {
			return nil, fmt.Errorf("failed to read record %d: %w", i, err)
		}
		in, err := fromRecord(i, rec)
		if err != nil {
			return nil, err
		}
		instrs[i] = in
	}

	prog := &program.Program{
		Paths:            header.Paths,
		Vars:             header.Vars,
		Seeds:            header.Seeds,
		Instrs:           instrs,
		PeakTempElements: header.PeakTempElements,
	}
	if flags&FlagHasSource != 0 {
		prog.Source = header.Source
	}
	if len(prog.Seeds) != len(prog.Vars) {
		return nil, fmt.Errorf("%w: %d seeds for %d variables", program.ErrInvalidProgram, len(prog.Seeds), len(prog.Vars))
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	if err := checkLimits(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

// ReadFile loads a program saved with WriteFile.
func ReadFile(path string) (*program.Program, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for loading programs
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return Decode(data)
}
