// Package framering provides a fixed-capacity ring of audio frames that
// decouples a producer emitting equal-length frames from a consumer that
// reads them at the nominal playback cadence.
//
// The read cursor of a [RingBuffer] only advances once a fraction of the
// frame duration has elapsed since the previous advance (the pacing window),
// so repeated reads within a window return the same frame. When the reader
// falls behind by more than the catch-up bound, the read cursor is snapped
// to the write cursor: skipped frames are lost in exchange for a bounded
// latency.
//
// The frame slots can be backed by a reader/writer lock ([BackendLocked]),
// by atomic pointer swaps ([BackendAtomic]) or by no synchronization at all
// ([BackendUnsynchronized], single goroutine only).
//
// [BlockRing] is a non-paced generic ring for block-at-a-time exchange,
// supporting partial transfers.
package framering
