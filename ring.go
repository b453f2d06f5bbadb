package framering

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/FerroO2000/framering/internal"
	"github.com/FerroO2000/framering/internal/backlog"
	"github.com/FerroO2000/framering/internal/config"
	"github.com/FerroO2000/framering/internal/pacing"
	"github.com/FerroO2000/framering/internal/slot"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sys/cpu"
)

// ErrDataSizeMismatch is returned when a frame does not have
// the length of the ring frames. The ring is left untouched.
var ErrDataSizeMismatch = slot.ErrDataSizeMismatch

// ErrNilConfig is returned when no configuration is given.
var ErrNilConfig = errors.New("nil config")

// Sample is the type of a single audio sample.
type Sample interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~float32 | ~float64
}

// State is the state of a ring derived from its backlog.
type State = backlog.State

const (
	// StateEmpty means the reader is caught up with the writer.
	StateEmpty = backlog.StateEmpty
	// StateNominal means the backlog is within the catch-up bound.
	StateNominal = backlog.StateNominal
	// StateCatchingUp means the backlog exceeds the catch-up bound.
	StateCatchingUp = backlog.StateCatchingUp
)

// SetLogLevel sets the minimum level of the console logs.
func SetLogLevel(level slog.Level) {
	internal.SetLogLevel(level)
}

// Stats is a point in time snapshot of the counters of a [RingBuffer].
type Stats struct {
	// FramesWritten is the value of the write counter.
	FramesWritten uint64
	// ReadCounter is the value of the read counter.
	ReadCounter uint64
	// Reads is the number of Read/ReadInto calls.
	Reads uint64
	// Advances is the number of read cursor advances accepted by the pacing.
	Advances uint64
	// CatchUps is the number of times the read cursor has been snapped forward.
	CatchUps uint64
	// SkippedFrames is the total number of frames skipped by the catch-ups.
	SkippedFrames uint64
	// SizeMismatches is the number of rejected writes.
	SizeMismatches uint64
	// Backlog is the number of frames the reader is behind the writer.
	Backlog uint64
	// State is derived from the backlog.
	State State
	// ProducerInterval is the smoothed interval between two writes.
	ProducerInterval time.Duration
}

// RingBuffer decouples a producer writing fixed-length frames from a
// consumer reading them at the nominal playback cadence.
//
// Write must be called by a single producer goroutine.
// Read and ReadInto can be called by any number of consumers.
// Neither operation blocks on the other, except for the short
// critical section of the [BackendLocked] backend.
type RingBuffer[T Sample] struct {
	tel *internal.Telemetry

	frameLength int
	capacity    uint64
	backend     Backend

	store     slot.Store[T]
	framePool *slot.FramePool[T]

	writeCounter atomic.Uint64

	// used to avoid false sharing between the producer and the consumers
	_ cpu.CacheLinePad

	readCounter atomic.Uint64
	advances    atomic.Uint64

	_ cpu.CacheLinePad

	// readMux serializes the consumers advancing the read side
	readMux  sync.Mutex
	pacer    *pacing.Controller
	governor *backlog.Governor

	estimator *pacing.IntervalEstimator

	now func() time.Time

	// Metrics
	reads          atomic.Int64
	catchUps       atomic.Int64
	skippedFrames  atomic.Int64
	sizeMismatches atomic.Int64
}

// New returns a new ring buffer with zero-filled slots.
// Invalid optional parameters are replaced by their defaults
// and reported as warnings. The given configuration is not modified.
func New[T Sample](cfg *Config) (*RingBuffer[T], error) {
	return newRingBuffer[T](cfg, time.Now)
}

func newRingBuffer[T Sample](cfg *Config, now func() time.Time) (*RingBuffer[T], error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if err := cfg.check(); err != nil {
		return nil, err
	}

	parsedCfg := *cfg

	tel := internal.NewTelemetry("ring", cmp.Or(parsedCfg.Name, DefaultName))
	config.NewValidator(tel).Validate(&parsedCfg)

	store, err := slot.New[T](parsedCfg.Backend, parsedCfg.Capacity, parsedCfg.FrameLength)
	if err != nil {
		return nil, err
	}

	frameDuration := pacing.FrameDuration(parsedCfg.FrameLength, parsedCfg.NominalRate)

	r := &RingBuffer[T]{
		tel: tel,

		frameLength: parsedCfg.FrameLength,
		capacity:    uint64(parsedCfg.Capacity),
		backend:     parsedCfg.Backend,

		store:     store,
		framePool: slot.NewFramePool[T](parsedCfg.FrameLength),

		pacer:    pacing.NewController(frameDuration, parsedCfg.PacingThreshold, now()),
		governor: backlog.NewGovernor(parsedCfg.WarmUp, parsedCfg.CatchUpBound),

		estimator: pacing.NewIntervalEstimator(parsedCfg.EstimatorAlpha, parsedCfg.EstimatorBeta),

		now: now,
	}

	r.initMetrics()

	tel.LogInfo("created",
		"backend", parsedCfg.Backend.String(),
		"frame_length", parsedCfg.FrameLength,
		"capacity", parsedCfg.Capacity,
		"nominal_rate", parsedCfg.NominalRate,
		"frame_duration", frameDuration,
		"pacing_window", r.pacer.Window(),
	)

	return r, nil
}

// initMetrics registers the ring metrics. The callbacks only hold a weak
// reference to the ring, so the meter does not keep a dropped ring alive.
// The registration is released by Close or once the ring is collected.
func (r *RingBuffer[T]) initMetrics() {
	ref := weak.Make(r)

	observe := func(read func(r *RingBuffer[T]) int64) func() int64 {
		return func() int64 {
			if r := ref.Value(); r != nil {
				return read(r)
			}
			return 0
		}
	}

	r.tel.NewCounter("frames_written", observe(func(r *RingBuffer[T]) int64 { return int64(r.writeCounter.Load()) }))
	r.tel.NewCounter("frames_read", observe(func(r *RingBuffer[T]) int64 { return r.reads.Load() }))
	r.tel.NewCounter("cursor_advances", observe(func(r *RingBuffer[T]) int64 { return int64(r.advances.Load()) }))
	r.tel.NewCounter("catch_ups", observe(func(r *RingBuffer[T]) int64 { return r.catchUps.Load() }))
	r.tel.NewCounter("skipped_frames", observe(func(r *RingBuffer[T]) int64 { return r.skippedFrames.Load() }))
	r.tel.NewCounter("size_mismatches", observe(func(r *RingBuffer[T]) int64 { return r.sizeMismatches.Load() }))

	r.tel.NewGauge("backlog", observe(func(r *RingBuffer[T]) int64 { return int64(r.Backlog()) }))

	r.tel.RegisterMetrics()

	runtime.AddCleanup(r, func(tel *internal.Telemetry) { tel.UnregisterMetrics() }, r.tel)
}

// Close stops exporting the metrics of the ring.
// The ring can still be written and read after Close.
// A ring that is no longer referenced is released even without Close.
func (r *RingBuffer[T]) Close() {
	r.tel.UnregisterMetrics()
	r.tel.LogInfo("closed")
}

// Write stores a copy of frame into the next slot, replacing the oldest frame.
// It returns [ErrDataSizeMismatch] if the frame length is wrong.
// It must be called by a single producer goroutine.
func (r *RingBuffer[T]) Write(frame []T) error {
	if len(frame) != r.frameLength {
		r.sizeMismatches.Add(1)
		r.tel.LogDebug("rejected frame", "length", len(frame), "frame_length", r.frameLength)
		return fmt.Errorf("%w: got %d, expected %d", ErrDataSizeMismatch, len(frame), r.frameLength)
	}

	writeCounter := r.writeCounter.Load()
	index := int(writeCounter % r.capacity)

	old, err := r.store.Replace(index, r.framePool.Clone(frame))
	if err != nil {
		return err
	}
	r.release(old)

	r.estimator.Observe(r.now())

	r.writeCounter.Add(1)

	return nil
}

// release hands a displaced frame back to the pool when no reader
// can still be copying it. Otherwise the garbage collector reclaims it.
func (r *RingBuffer[T]) release(frame []T) {
	if r.backend.CanRecycle() {
		r.framePool.Put(frame)
	}
}

// Read returns a copy of the frame at the read cursor, after letting
// the pacing advance the cursor and the catch-up bound the backlog.
// Repeated reads within a pacing window return the same frame.
// A fresh ring returns a zero-filled frame.
func (r *RingBuffer[T]) Read() []T {
	frame := make([]T, r.frameLength)
	r.read(frame)
	return frame
}

// ReadInto works like Read but copies the frame into dst.
// It returns [ErrDataSizeMismatch] if dst has the wrong length,
// in that case the read cursor is not touched.
func (r *RingBuffer[T]) ReadInto(dst []T) error {
	if len(dst) != r.frameLength {
		return fmt.Errorf("%w: got %d, expected %d", ErrDataSizeMismatch, len(dst), r.frameLength)
	}

	r.read(dst)
	return nil
}

func (r *RingBuffer[T]) read(dst []T) {
	r.readMux.Lock()

	now := r.now()
	writeCounter := r.writeCounter.Load()
	readCounter := r.readCounter.Load()

	if r.pacer.TryAdvance(now, readCounter, writeCounter) {
		readCounter++
		r.advances.Add(1)
	}

	caughtUp, skipped := r.governor.Check(r.advances.Load(), readCounter, writeCounter)
	if skipped > 0 {
		r.catchUp(readCounter, caughtUp, skipped)
		readCounter = caughtUp
	}

	r.readCounter.Store(readCounter)

	r.readMux.Unlock()

	r.store.Snapshot(r.readIndex(readCounter, writeCounter), dst)
	r.reads.Add(1)
}

// readIndex returns the slot addressed by the read counter.
// A reader caught up with the writer gets the newest frame instead
// of the slot the writer is about to overwrite.
func (r *RingBuffer[T]) readIndex(readCounter, writeCounter uint64) int {
	if writeCounter > 0 && readCounter >= writeCounter {
		readCounter = writeCounter - 1
	}
	return int(readCounter % r.capacity)
}

func (r *RingBuffer[T]) catchUp(from, to, skipped uint64) {
	r.catchUps.Add(1)
	r.skippedFrames.Add(int64(skipped))

	_, span := r.tel.NewTrace(context.Background(), "catch up read cursor")
	span.SetAttributes(
		attribute.Int64("from_read_counter", int64(from)),
		attribute.Int64("to_read_counter", int64(to)),
		attribute.Int64("skipped_frames", int64(skipped)),
	)
	span.End()

	r.tel.LogWarn("read cursor caught up", "skipped_frames", skipped, "read_counter", to)
}

// Backlog returns the number of frames the reader is behind the writer.
func (r *RingBuffer[T]) Backlog() uint64 {
	readCounter := r.readCounter.Load()
	return backlog.Of(r.writeCounter.Load(), readCounter)
}

// State returns the state derived from the current backlog.
func (r *RingBuffer[T]) State() State {
	return backlog.Classify(r.Backlog(), r.governor.Bound())
}

// Stats returns a snapshot of the ring counters.
func (r *RingBuffer[T]) Stats() Stats {
	readCounter := r.readCounter.Load()
	writeCounter := r.writeCounter.Load()
	lag := backlog.Of(writeCounter, readCounter)

	return Stats{
		FramesWritten:    writeCounter,
		ReadCounter:      readCounter,
		Reads:            uint64(r.reads.Load()),
		Advances:         r.advances.Load(),
		CatchUps:         uint64(r.catchUps.Load()),
		SkippedFrames:    uint64(r.skippedFrames.Load()),
		SizeMismatches:   uint64(r.sizeMismatches.Load()),
		Backlog:          lag,
		State:            backlog.Classify(lag, r.governor.Bound()),
		ProducerInterval: r.estimator.Interval(),
	}
}

// FrameLength returns the number of samples of every frame.
func (r *RingBuffer[T]) FrameLength() int {
	return r.store.FrameLength()
}

// Capacity returns the number of slots.
func (r *RingBuffer[T]) Capacity() int {
	return r.store.Capacity()
}

// FrameDuration returns the nominal playback duration of a frame.
func (r *RingBuffer[T]) FrameDuration() time.Duration {
	return r.pacer.FrameDuration()
}

// PacingWindow returns the minimum time between two read cursor advances.
func (r *RingBuffer[T]) PacingWindow() time.Duration {
	return r.pacer.Window()
}

// Backend returns the concurrency backend of the slots.
func (r *RingBuffer[T]) Backend() Backend {
	return r.backend
}
