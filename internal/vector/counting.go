package vector

import "sync"

// Op names an operation of the Backend contract.
type Op string

// Backend operations.
const (
	OpAlloc Op = "alloc"
	OpFree  Op = "free"
	OpFill  Op = "set"
	OpZero  Op = "zero"
	OpCopy  Op = "copy"
	OpAdd   Op = "add"
	OpMul   Op = "mul"
	OpExp   Op = "exp"
)

// Ops lists every operation in a stable order.
var Ops = []Op{OpAlloc, OpFree, OpFill, OpZero, OpCopy, OpAdd, OpMul, OpExp}

// Counting wraps a Backend and counts every call made through it.
//
// Counting is a decorator: it forwards each call to the inner backend
// unchanged, so it can be stacked on the CPU backend or the program
// recorder alike.
type Counting[B any] struct {
	inner Backend[B]

	mu        sync.Mutex
	calls     map[Op]int
	failed    int
	liveElems int
	peakElems int
	handles   []allocRecord[B]
}

type allocRecord[B any] struct {
	buf B
	n   int
}

// NewCounting wraps inner.
func NewCounting[B any](inner Backend[B]) *Counting[B] {
	return &Counting[B]{
		inner: inner,
		calls: make(map[Op]int),
	}
}

// Inner returns the wrapped backend.
func (c *Counting[B]) Inner() Backend[B] {
	return c.inner
}

// Calls returns how many times op was invoked. For OpAlloc only successful
// allocations are counted; see Failed.
func (c *Counting[B]) Calls(op Op) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// Failed returns the number of allocations the inner backend rejected.
func (c *Counting[B]) Failed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// Live returns successful allocations minus frees.
func (c *Counting[B]) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[OpAlloc] - c.calls[OpFree]
}

// PeakElements returns the largest number of temp elements live at once.
func (c *Counting[B]) PeakElements() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peakElems
}

// Alloc implements Backend.
func (c *Counting[B]) Alloc(n int) (B, error) {
	buf, err := c.inner.Alloc(n)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.failed++
		return buf, err
	}
	c.calls[OpAlloc]++
	c.handles = append(c.handles, allocRecord[B]{buf: buf, n: n})
	c.liveElems += n
	c.peakElems = max(c.peakElems, c.liveElems)
	return buf, nil
}

// Free implements Backend.
func (c *Counting[B]) Free(buf B) {
	c.mu.Lock()
	c.calls[OpFree]++
	// Temps are released in LIFO order, so search from the top.
	for i := len(c.handles) - 1; i >= 0; i-- {
		if sameHandle(c.handles[i].buf, buf) {
			c.liveElems -= c.handles[i].n
			c.handles = append(c.handles[:i], c.handles[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.inner.Free(buf)
}

// Offset implements Backend.
func (c *Counting[B]) Offset(buf B, off int) B {
	return c.inner.Offset(buf, off)
}

// Fill implements Backend.
func (c *Counting[B]) Fill(dst B, v float64, n int) {
	c.count(OpFill)
	c.inner.Fill(dst, v, n)
}

// Zero implements Backend.
func (c *Counting[B]) Zero(dst B, n int) {
	c.count(OpZero)
	c.inner.Zero(dst, n)
}

// Copy implements Backend.
func (c *Counting[B]) Copy(src, dst B, n int) {
	c.count(OpCopy)
	c.inner.Copy(src, dst, n)
}

// AddInplace implements Backend.
func (c *Counting[B]) AddInplace(src, dst B, n int) {
	c.count(OpAdd)
	c.inner.AddInplace(src, dst, n)
}

// MulInplace implements Backend.
func (c *Counting[B]) MulInplace(src, dst B, n int) {
	c.count(OpMul)
	c.inner.MulInplace(src, dst, n)
}

// ExpInplace implements Backend.
func (c *Counting[B]) ExpInplace(buf B, n int) {
	c.count(OpExp)
	c.inner.ExpInplace(buf, n)
}

func (c *Counting[B]) count(op Op) {
	c.mu.Lock()
	c.calls[op]++
	c.mu.Unlock()
}

// sameHandle compares handles of an arbitrary type. Slices are compared by
// the address of their first element; comparable types by value.
func sameHandle[B any](a, b B) bool {
	switch av := any(a).(type) {
	case []float64:
		bv := any(b).([]float64)
		if len(av) == 0 || len(bv) == 0 {
			return len(av) == len(bv)
		}
		return &av[0] == &bv[0]
	default:
		return any(a) == any(b)
	}
}
