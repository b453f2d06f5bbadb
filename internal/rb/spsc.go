package rb

type spscBuffer[T any] struct {
	*commonBuffer

	buffer []T
}

func newSPSCBuffer[T any](capacity uint64) *spscBuffer[T] {
	return &spscBuffer[T]{
		commonBuffer: newCommonBuffer(capacity),

		buffer: make([]T, capacity),
	}
}

// push copies as many items as fit and returns how many were copied.
func (b *spscBuffer[T]) push(items []T) int {
	// Get head and tail
	head := b.head.Load()
	tail := b.tail.Load()

	free := b.capacity - (head - tail)
	n := min(uint64(len(items)), free)
	if n == 0 {
		return 0
	}

	// Copy in one or two segments depending on wrap-around
	pos := head & b.capMask
	first := min(n, b.capacity-pos)
	copy(b.buffer[pos:pos+first], items[:first])
	copy(b.buffer[:n-first], items[first:n])

	// Publish the items by advancing the head
	b.head.Store(head + n)

	return int(n)
}

// pop copies up to len(dst) items and returns how many were copied.
func (b *spscBuffer[T]) pop(dst []T) int {
	// Get head and tail
	tail := b.tail.Load()
	head := b.head.Load()

	available := head - tail
	n := min(uint64(len(dst)), available)
	if n == 0 {
		return 0
	}

	pos := tail & b.capMask
	first := min(n, b.capacity-pos)
	copy(dst[:first], b.buffer[pos:pos+first])
	copy(dst[first:n], b.buffer[:n-first])

	// Release the slots by advancing the tail
	b.tail.Store(tail + n)

	return int(n)
}
