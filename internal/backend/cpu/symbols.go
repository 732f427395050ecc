package cpu

import "github.com/born-ml/autoexpr/internal/vector"

// Symbols exports the backend's kernels under their native symbol names so
// that a recorded program can be linked against this backend.
func (cpu *CPUBackend) Symbols() map[string]any {
	return map[string]any{
		vector.SymAlloc: vector.AllocFunc(cpu.Alloc),
		vector.SymFree:  vector.FreeFunc(cpu.Free),
		vector.SymSet: vector.SetFunc(func(v float64, dst []float64, n int) {
			cpu.Fill(dst, v, n)
		}),
		vector.SymZero: vector.ZeroFunc(cpu.Zero),
		vector.SymCopy: vector.CopyFunc(cpu.Copy),
		vector.SymAdd:  vector.BinaryFunc(cpu.AddInplace),
		vector.SymMul:  vector.BinaryFunc(cpu.MulInplace),
		vector.SymExp:  vector.UnaryFunc(cpu.ExpInplace),
	}
}
