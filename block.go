package framering

import (
	"github.com/FerroO2000/framering/internal/rb"
)

// ErrClosed is returned by a [BlockRing] when it is closed.
var ErrClosed = rb.ErrClosed

// BlockRing is a generic ring buffer for block-at-a-time exchange.
// It has independent write and read cursors that advance by the
// number of items transferred, without pacing nor catch-up.
type BlockRing[T any] = rb.RingBuffer[T]

// BlockRingKind is the concurrency kind of a [BlockRing].
type BlockRingKind = rb.BufferKind

const (
	// BlockRingSPSC is a lock-free single producer/single consumer block ring.
	BlockRingSPSC = rb.BufferKindSPSC
	// BlockRingMPMC is a block ring that serializes multiple producers
	// and multiple consumers.
	BlockRingMPMC = rb.BufferKindMPMC
)

// NewBlockRing returns a new block ring.
// The capacity is rounded up to the next power of 2.
func NewBlockRing[T any](capacity uint64, kind BlockRingKind) *BlockRing[T] {
	return rb.NewRingBuffer[T](capacity, kind)
}
