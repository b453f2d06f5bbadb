package slot

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kinds = []Kind{KindLocked, KindAtomic, KindUnsynchronized}

func filledFrame(length int, val float32) []float32 {
	frame := make([]float32, length)
	for idx := range frame {
		frame[idx] = val
	}
	return frame
}

func Test_New(t *testing.T) {
	_, err := New[float32](KindLocked, 0, 10)
	assert.Error(t, err)

	_, err = New[float32](KindLocked, 4, 0)
	assert.Error(t, err)

	_, err = New[float32](Kind(42), 4, 10)
	assert.Error(t, err)
}

func Test_Store(t *testing.T) {
	const (
		capacity    = 4
		frameLength = 8
	)

	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			assert := assert.New(t)

			store, err := New[float32](kind, capacity, frameLength)
			require.NoError(t, err)

			assert.Equal(kind, store.Kind())
			assert.Equal(capacity, store.Capacity())
			assert.Equal(frameLength, store.FrameLength())

			// Fresh slots are zero-filled
			for idx := range capacity {
				assert.Equal(make([]float32, frameLength), store.Snapshot(idx, nil))
			}

			// Wrong length is rejected and the slot is untouched
			_, err = store.Replace(0, filledFrame(frameLength+1, 1))
			assert.ErrorIs(err, ErrDataSizeMismatch)
			assert.Equal(make([]float32, frameLength), store.Snapshot(0, nil))

			// Replace returns the displaced frame
			first := filledFrame(frameLength, 1)
			old, err := store.Replace(1, first)
			assert.NoError(err)
			assert.Equal(make([]float32, frameLength), old)

			old, err = store.Replace(1, filledFrame(frameLength, 2))
			assert.NoError(err)
			assert.Equal(first, old)

			// Snapshots are independent copies
			snap := store.Snapshot(1, nil)
			assert.Equal(filledFrame(frameLength, 2), snap)
			snap[0] = 99
			assert.Equal(filledFrame(frameLength, 2), store.Snapshot(1, nil))

			// A correctly sized destination is reused
			dst := make([]float32, frameLength)
			out := store.Snapshot(1, dst)
			assert.Equal(&dst[0], &out[0])
		})
	}
}

func Test_Kind_CanRecycle(t *testing.T) {
	assert := assert.New(t)

	assert.True(KindLocked.CanRecycle())
	assert.True(KindUnsynchronized.CanRecycle())
	assert.False(KindAtomic.CanRecycle())
}

func Test_Store_concurrentSnapshot(t *testing.T) {
	const (
		capacity    = 4
		frameLength = 256
		writes      = 20_000
		readers     = 4
	)

	for _, kind := range []Kind{KindLocked, KindAtomic} {
		t.Run(fmt.Sprintf("%s-R%d", kind, readers), func(t *testing.T) {
			store, err := New[float32](kind, capacity, frameLength)
			require.NoError(t, err)

			pool := NewFramePool[float32](frameLength)

			done := make(chan struct{})

			wg := &sync.WaitGroup{}
			wg.Add(readers)

			for range readers {
				go func() {
					defer wg.Done()

					dst := make([]float32, frameLength)
					for idx := 0; ; idx++ {
						select {
						case <-done:
							return
						default:
						}

						frame := store.Snapshot(idx%capacity, dst)
						for _, sample := range frame {
							if sample != frame[0] {
								t.Errorf("torn frame: %v != %v", sample, frame[0])
								return
							}
						}
					}
				}()
			}

			for idx := range writes {
				frame := pool.Get()
				for sIdx := range frame {
					frame[sIdx] = float32(idx)
				}

				old, err := store.Replace(idx%capacity, frame)
				if !assert.NoError(t, err) {
					break
				}

				if kind.CanRecycle() {
					pool.Put(old)
				}
			}

			close(done)
			wg.Wait()
		})
	}
}

func Test_FramePool(t *testing.T) {
	assert := assert.New(t)

	pool := NewFramePool[int16](4)

	frame := pool.Get()
	assert.Len(frame, 4)

	clone := pool.Clone([]int16{1, 2, 3, 4})
	assert.Equal([]int16{1, 2, 3, 4}, clone)

	// Wrong sized frames are silently dropped
	pool.Put(make([]int16, 3))
	assert.Len(pool.Get(), 4)
}
