package vector

import "fmt"

// Temp is a scoped temporary buffer. Acquire it at the start of a node rule
// and defer Release; Release frees the storage exactly once no matter how
// often it is called.
//
//	tmp, err := vector.Acquire(be, 2*n)
//	if err != nil {
//		return err
//	}
//	defer tmp.Release()
type Temp[B any] struct {
	be       Backend[B]
	buf      B
	n        int
	released bool
}

// Acquire allocates n elements from be.
func Acquire[B any](be Backend[B], n int) (*Temp[B], error) {
	buf, err := be.Alloc(n)
	if err != nil {
		return nil, fmt.Errorf("acquire %d elements: %w", n, err)
	}
	return &Temp[B]{be: be, buf: buf, n: n}, nil
}

// Buffer returns the whole allocation.
func (t *Temp[B]) Buffer() B {
	return t.buf
}

// Slot returns the view starting at element i*stride, for carving one block
// into several equally sized buffers.
func (t *Temp[B]) Slot(i, stride int) B {
	if i < 0 || (i+1)*stride > t.n {
		panic(fmt.Sprintf("vector: slot %d of stride %d outside %d-element temp", i, stride, t.n))
	}
	return t.be.Offset(t.buf, i*stride)
}

// Len returns the number of allocated elements.
func (t *Temp[B]) Len() int {
	return t.n
}

// Release frees the buffer. Subsequent calls are no-ops.
func (t *Temp[B]) Release() {
	if t == nil || t.released {
		return
	}
	t.released = true
	t.be.Free(t.buf)
}
