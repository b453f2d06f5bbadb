package slot

import "sync"

type lockedStore[T any] struct {
	baseStore

	mux   sync.RWMutex
	slots [][]T
}

func newLockedStore[T any](capacity, frameLength int) *lockedStore[T] {
	slots := make([][]T, capacity)
	for idx := range slots {
		slots[idx] = make([]T, frameLength)
	}

	return &lockedStore[T]{
		baseStore: baseStore{
			capacity:    capacity,
			frameLength: frameLength,
		},

		slots: slots,
	}
}

func (ls *lockedStore[T]) Replace(index int, frame []T) ([]T, error) {
	if err := ls.checkLength(len(frame)); err != nil {
		return nil, err
	}

	ls.mux.Lock()
	old := ls.slots[index]
	ls.slots[index] = frame
	ls.mux.Unlock()

	return old, nil
}

func (ls *lockedStore[T]) Snapshot(index int, dst []T) []T {
	ls.mux.RLock()
	defer ls.mux.RUnlock()

	return snapshotInto(ls.frameLength, ls.slots[index], dst)
}

func (ls *lockedStore[T]) Kind() Kind {
	return KindLocked
}
