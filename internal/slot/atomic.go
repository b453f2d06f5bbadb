package slot

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

type atomicSlot[T any] struct {
	frame atomic.Pointer[[]T]

	// used to avoid false sharing between neighbouring slots
	_ cpu.CacheLinePad
}

// atomicStore never writes into a frame once it has been published,
// so a reader that loaded a pointer can copy it safely even if the
// slot has been replaced in the meantime.
type atomicStore[T any] struct {
	baseStore

	slots []atomicSlot[T]
}

func newAtomicStore[T any](capacity, frameLength int) *atomicStore[T] {
	slots := make([]atomicSlot[T], capacity)
	for idx := range slots {
		frame := make([]T, frameLength)
		slots[idx].frame.Store(&frame)
	}

	return &atomicStore[T]{
		baseStore: baseStore{
			capacity:    capacity,
			frameLength: frameLength,
		},

		slots: slots,
	}
}

func (as *atomicStore[T]) Replace(index int, frame []T) ([]T, error) {
	if err := as.checkLength(len(frame)); err != nil {
		return nil, err
	}

	old := as.slots[index].frame.Swap(&frame)
	return *old, nil
}

func (as *atomicStore[T]) Snapshot(index int, dst []T) []T {
	frame := as.slots[index].frame.Load()
	return snapshotInto(as.frameLength, *frame, dst)
}

func (as *atomicStore[T]) Kind() Kind {
	return KindAtomic
}
