// Package slot implements the storage of the fixed-length frames
// held by a ring. Every backend replaces a slot wholesale and hands
// out independent copies, so a reader never observes a torn frame.
package slot

import (
	"errors"
	"fmt"
)

// ErrDataSizeMismatch is returned when a frame does not have the length
// expected by the store.
var ErrDataSizeMismatch = errors.New("the size of data provided does not match buffer size")

// Kind is the concurrency backend of a [Store].
type Kind uint8

const (
	// KindLocked guards all the slots with a single reader/writer lock.
	KindLocked Kind = iota
	// KindAtomic publishes every frame through an atomic pointer swap.
	// Displaced frames are left to the garbage collector, which only
	// reclaims them once no reader can still reach them.
	KindAtomic
	// KindUnsynchronized does not protect the slots at all.
	// It is only valid when every Replace and Snapshot call is made
	// from the same goroutine (or is otherwise externally serialized).
	KindUnsynchronized
)

func (k Kind) String() string {
	switch k {
	case KindLocked:
		return "locked"
	case KindAtomic:
		return "atomic"
	case KindUnsynchronized:
		return "unsynchronized"
	default:
		return "unknown"
	}
}

// CanRecycle states whether a frame displaced by Replace can be reused
// right away by the caller. It is false for [KindAtomic], because a
// concurrent reader may still be copying it.
func (k Kind) CanRecycle() bool {
	return k != KindAtomic
}

// Store holds a fixed number of fixed-length frames.
type Store[T any] interface {
	// Replace swaps the frame at index with frame and returns the displaced one.
	// The store takes ownership of frame: the caller must not modify it afterwards.
	Replace(index int, frame []T) ([]T, error)

	// Snapshot copies the frame at index into dst and returns it.
	// If dst does not have the frame length a new slice is allocated.
	Snapshot(index int, dst []T) []T

	// Kind returns the backend kind.
	Kind() Kind

	// Capacity returns the number of slots.
	Capacity() int

	// FrameLength returns the length of every frame.
	FrameLength() int
}

// New returns a store of the given kind with capacity zero-filled frames
// of frameLength elements each.
func New[T any](kind Kind, capacity, frameLength int) (Store[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("slot: invalid capacity %d", capacity)
	}

	if frameLength <= 0 {
		return nil, fmt.Errorf("slot: invalid frame length %d", frameLength)
	}

	switch kind {
	case KindLocked:
		return newLockedStore[T](capacity, frameLength), nil
	case KindAtomic:
		return newAtomicStore[T](capacity, frameLength), nil
	case KindUnsynchronized:
		return newUnsyncStore[T](capacity, frameLength), nil
	default:
		return nil, fmt.Errorf("slot: unknown kind %d", kind)
	}
}

type baseStore struct {
	capacity    int
	frameLength int
}

func (bs *baseStore) Capacity() int {
	return bs.capacity
}

func (bs *baseStore) FrameLength() int {
	return bs.frameLength
}

func (bs *baseStore) checkLength(length int) error {
	if length != bs.frameLength {
		return fmt.Errorf("%w: got %d, expected %d", ErrDataSizeMismatch, length, bs.frameLength)
	}
	return nil
}

func snapshotInto[T any](frameLength int, src, dst []T) []T {
	if len(dst) != frameLength {
		dst = make([]T, frameLength)
	}
	copy(dst, src)
	return dst
}
