package rb

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// commonBuffer holds the two monotonic cursors of a ring.
// head is the write cursor, tail the read cursor: both count
// transferred items and never wrap, so head-tail is always the length.
type commonBuffer struct {
	head atomic.Uint64

	_ cpu.CacheLinePad

	tail atomic.Uint64

	_ cpu.CacheLinePad

	capacity uint64
	capMask  uint64

	_ cpu.CacheLinePad
}

func newCommonBuffer(capacity uint64) *commonBuffer {
	return &commonBuffer{
		capacity: capacity,
		capMask:  capacity - 1,
	}
}

func (cb *commonBuffer) len() uint64 {
	tail := cb.tail.Load()
	head := cb.head.Load()

	if head < tail {
		return 0
	}

	return head - tail
}

func (cb *commonBuffer) free() uint64 {
	return cb.capacity - cb.len()
}

// roundToPowerOf2 returns the smallest power of 2 greater than or equal to n.
func roundToPowerOf2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}

	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32

	return n + 1
}
