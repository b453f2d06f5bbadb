package slot

import "sync"

// FramePool recycles frames of a fixed length.
type FramePool[T any] struct {
	frameLength int
	pool        sync.Pool
}

// NewFramePool returns a new frame pool for frames of frameLength elements.
func NewFramePool[T any](frameLength int) *FramePool[T] {
	return &FramePool[T]{
		frameLength: frameLength,
		pool: sync.Pool{
			New: func() any {
				frame := make([]T, frameLength)
				return &frame
			},
		},
	}
}

// Get returns a frame of the pool length. Its content is undefined.
func (fp *FramePool[T]) Get() []T {
	return *fp.pool.Get().(*[]T)
}

// Put gives the frame back to the pool.
// Frames of the wrong length are dropped.
func (fp *FramePool[T]) Put(frame []T) {
	if len(frame) != fp.frameLength {
		return
	}
	fp.pool.Put(&frame)
}

// Clone returns a pooled copy of src.
func (fp *FramePool[T]) Clone(src []T) []T {
	frame := fp.Get()
	copy(frame, src)
	return frame
}
