package vector

// Symbol names of the native kernels a recorded program links against.
// They follow the vendor naming of the vector-math libraries the engine
// was first built on: a type suffix (_64f) and _I for in-place variants.
const (
	SymAlloc = "vMalloc_64f"
	SymFree  = "vFree"
	SymSet   = "vSet_64f"
	SymZero  = "vZero_64f"
	SymCopy  = "vCopy_64f"
	SymAdd   = "vAdd_64f_I"
	SymMul   = "vMul_64f_I"
	SymExp   = "vExp_64f_I"
)

// Symbols lists every symbol a program may reference.
var Symbols = []string{SymAlloc, SymFree, SymSet, SymZero, SymCopy, SymAdd, SymMul, SymExp}

// Kernel entry point signatures over host memory. Argument order follows
// the native convention: source before destination, length last.
type (
	AllocFunc  func(n int) ([]float64, error)
	FreeFunc   func(buf []float64)
	SetFunc    func(v float64, dst []float64, n int)
	ZeroFunc   func(dst []float64, n int)
	CopyFunc   func(src, dst []float64, n int)
	BinaryFunc func(src, srcDst []float64, n int)
	UnaryFunc  func(srcDst []float64, n int)
)

// SymbolFor maps a backend operation to its kernel symbol.
func SymbolFor(op Op) string {
	switch op {
	case OpAlloc:
		return SymAlloc
	case OpFree:
		return SymFree
	case OpFill:
		return SymSet
	case OpZero:
		return SymZero
	case OpCopy:
		return SymCopy
	case OpAdd:
		return SymAdd
	case OpMul:
		return SymMul
	case OpExp:
		return SymExp
	default:
		return ""
	}
}
