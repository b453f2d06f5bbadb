// Package rb provides a generic block ring buffer with independent
// write and read cursors, without any pacing. Transfers can be
// partial: cursors advance by the number of items actually moved.
package rb

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// ErrClosed is returned when the buffer is closed.
var ErrClosed = errors.New("ring buffer: buffer is closed")

// BufferKind is the type of the internal buffer implementation.
type BufferKind uint8

const (
	//BufferKindSPSC is the single producer/single consumer ring buffer implementation.
	BufferKindSPSC BufferKind = iota
	//BufferKindMPMC is the multiple producer/multiple consumer ring buffer implementation.
	// Producers and consumers are serialized among themselves, so a block
	// written by one producer is never interleaved with another one.
	// A blocked producer/consumer keeps its turn until it is done, the others
	// wait for it but still honor their own context.
	BufferKindMPMC
)

func (bk BufferKind) String() string {
	switch bk {
	case BufferKindSPSC:
		return "SPSC"
	case BufferKindMPMC:
		return "MPMC"
	default:
		return "unknown"
	}
}

// RingBuffer is a generic block ring buffer.
type RingBuffer[T any] struct {
	// kind is the type of the internal buffer
	kind BufferKind

	_ cpu.CacheLinePad

	// spsc is the lock-free single producer/single consumer core
	spsc *spscBuffer[T]

	_ cpu.CacheLinePad

	// writeTurn and readTurn serialize the producers and the consumers
	// of the MPMC kind. Holding the token means holding the turn.
	writeTurn chan struct{}
	readTurn  chan struct{}

	_ cpu.CacheLinePad

	// isClosed states whether the buffer is closed.
	isClosed atomic.Bool

	// notEmpty and notFull carry a wake-up token for a blocked consumer/producer
	notEmpty chan struct{}
	notFull  chan struct{}

	closed chan struct{}
}

// NewRingBuffer returns a new block ring buffer.
// The capacity is rounded up to the next power of 2.
func NewRingBuffer[T any](capacity uint64, kind BufferKind) *RingBuffer[T] {
	return &RingBuffer[T]{
		kind: kind,

		spsc: newSPSCBuffer[T](roundToPowerOf2(capacity)),

		writeTurn: make(chan struct{}, 1),
		readTurn:  make(chan struct{}, 1),

		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func noop() {}

// acquire waits for the turn, or for the context to be done.
func (rb *RingBuffer[T]) acquire(ctx context.Context, turn chan struct{}) (func(), error) {
	if rb.kind != BufferKindMPMC {
		return noop, nil
	}

	select {
	case turn <- struct{}{}:
		return func() { <-turn }, nil
	case <-ctx.Done():
		return noop, ctx.Err()
	}
}

// tryAcquire takes the turn only if it is free.
func (rb *RingBuffer[T]) tryAcquire(turn chan struct{}) (func(), bool) {
	if rb.kind != BufferKindMPMC {
		return noop, true
	}

	select {
	case turn <- struct{}{}:
		return func() { <-turn }, true
	default:
		return noop, false
	}
}

func (rb *RingBuffer[T]) push(items []T) int {
	n := rb.spsc.push(items)
	if n > 0 {
		signal(rb.notEmpty)
	}
	return n
}

func (rb *RingBuffer[T]) pop(dst []T) int {
	n := rb.spsc.pop(dst)
	if n > 0 {
		signal(rb.notFull)
	}
	return n
}

// TryWrite writes as many items as there is room for, without blocking.
// It returns the number of items written, which is zero also when
// another producer of a MPMC buffer is writing.
func (rb *RingBuffer[T]) TryWrite(items []T) (int, error) {
	if rb.isClosed.Load() {
		return 0, ErrClosed
	}

	release, ok := rb.tryAcquire(rb.writeTurn)
	if !ok {
		return 0, nil
	}
	defer release()

	return rb.push(items), nil
}

// TryRead reads up to len(dst) items, without blocking.
// It returns the number of items read. Once the buffer is closed
// the remaining items can still be read, after that [ErrClosed] is returned.
// It returns zero items also when another consumer of a MPMC buffer is reading.
func (rb *RingBuffer[T]) TryRead(dst []T) (int, error) {
	release, ok := rb.tryAcquire(rb.readTurn)
	if !ok {
		return 0, nil
	}
	defer release()

	n := rb.pop(dst)
	if n == 0 && len(dst) > 0 && rb.isClosed.Load() {
		return 0, ErrClosed
	}

	return n, nil
}

// Write writes all the items, blocking while the buffer is full.
// It returns when every item is written, the context is done
// or the buffer is closed. In the last two cases a part of the
// items may have been written.
func (rb *RingBuffer[T]) Write(ctx context.Context, items []T) error {
	// Check if buffer is closed
	if rb.isClosed.Load() {
		return ErrClosed
	}

	release, err := rb.acquire(ctx, rb.writeTurn)
	if err != nil {
		return err
	}
	defer release()

	// Closed while waiting for the turn
	if rb.isClosed.Load() {
		return ErrClosed
	}

	for {
		n := rb.push(items)
		items = items[n:]

		if len(items) == 0 {
			return nil
		}

		// Buffer is full, wait for space
		select {
		case <-rb.notFull:
		case <-ctx.Done():
			return ctx.Err()
		case <-rb.closed:
			return ErrClosed
		}
	}
}

// Read fills dst entirely, blocking while the buffer is empty.
// It returns the number of items read, which is smaller than len(dst)
// only when the context is done or the buffer is closed and drained.
func (rb *RingBuffer[T]) Read(ctx context.Context, dst []T) (int, error) {
	release, err := rb.acquire(ctx, rb.readTurn)
	if err != nil {
		return 0, err
	}
	defer release()

	read := 0
	for {
		read += rb.pop(dst[read:])

		if read == len(dst) {
			return read, nil
		}

		// Buffer is empty, wait for data
		select {
		case <-rb.notEmpty:
		case <-ctx.Done():
			return read, ctx.Err()
		case <-rb.closed:
			// Drain what the producer managed to write before closing
			read += rb.pop(dst[read:])
			if read == len(dst) {
				return read, nil
			}
			return read, ErrClosed
		}
	}
}

// Len returns the number of items in the buffer.
func (rb *RingBuffer[T]) Len() uint64 {
	return rb.spsc.len()
}

// Free returns the number of items that can be written without blocking.
func (rb *RingBuffer[T]) Free() uint64 {
	return rb.spsc.free()
}

// Cap returns the capacity of the buffer.
func (rb *RingBuffer[T]) Cap() uint64 {
	return rb.spsc.capacity
}

// Kind returns the kind of the buffer.
func (rb *RingBuffer[T]) Kind() BufferKind {
	return rb.kind
}

// Close closes the buffer, waking up any blocked producer or consumer.
func (rb *RingBuffer[T]) Close() {
	if !rb.isClosed.CompareAndSwap(false, true) {
		return
	}

	close(rb.closed)
}
