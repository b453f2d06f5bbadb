package slot

// unsyncStore has no synchronization at all.
// Concurrent use from different goroutines is a data race.
type unsyncStore[T any] struct {
	baseStore

	slots [][]T
}

func newUnsyncStore[T any](capacity, frameLength int) *unsyncStore[T] {
	slots := make([][]T, capacity)
	for idx := range slots {
		slots[idx] = make([]T, frameLength)
	}

	return &unsyncStore[T]{
		baseStore: baseStore{
			capacity:    capacity,
			frameLength: frameLength,
		},

		slots: slots,
	}
}

func (us *unsyncStore[T]) Replace(index int, frame []T) ([]T, error) {
	if err := us.checkLength(len(frame)); err != nil {
		return nil, err
	}

	old := us.slots[index]
	us.slots[index] = frame

	return old, nil
}

func (us *unsyncStore[T]) Snapshot(index int, dst []T) []T {
	return snapshotInto(us.frameLength, us.slots[index], dst)
}

func (us *unsyncStore[T]) Kind() Kind {
	return KindUnsynchronized
}
