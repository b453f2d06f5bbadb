package framering

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/FerroO2000/framering/internal/config"
	"github.com/FerroO2000/framering/internal/slot"
)

// Backend is the concurrency backend of the frame slots.
type Backend = slot.Kind

const (
	// BackendLocked guards the slots with a single reader/writer lock.
	// Displaced frames are recycled, so writes do not allocate.
	BackendLocked = slot.KindLocked
	// BackendAtomic swaps every slot through an atomic pointer.
	// Readers never block the writer, but every write allocates a new frame
	// since a displaced frame may still be copied by a reader.
	BackendAtomic = slot.KindAtomic
	// BackendUnsynchronized does not protect the slots.
	// Write and Read must never run concurrently: use it only when the
	// producer and the consumer are the same goroutine.
	BackendUnsynchronized = slot.KindUnsynchronized
)

// Default configuration values for the ring buffer.
const (
	DefaultName            = "framering"
	DefaultBackend         = BackendLocked
	DefaultPacingThreshold = 0.75
	DefaultCatchUpBound    = 6
	DefaultWarmUp          = 10
	DefaultEstimatorAlpha  = 0.8
	DefaultEstimatorBeta   = 0.5
)

var (
	// ErrInvalidFrameLength is returned when the frame length is not positive.
	ErrInvalidFrameLength = errors.New("frame length must be greater than zero")
	// ErrInvalidCapacity is returned when the capacity is not positive.
	ErrInvalidCapacity = errors.New("capacity must be greater than zero")
	// ErrInvalidNominalRate is returned when the nominal rate is not positive
	// or when it is so low that the frame duration overflows a [time.Duration].
	ErrInvalidNominalRate = errors.New("invalid nominal rate")
	// ErrInvalidBackend is returned when the backend is unknown.
	ErrInvalidBackend = errors.New("unknown backend")
)

// Config is the configuration of a [RingBuffer].
type Config struct {
	// Name identifies the ring in logs, metrics and traces.
	Name string

	// FrameLength is the number of samples of every frame.
	FrameLength int

	// Capacity is the number of frame slots of the ring.
	Capacity int

	// NominalRate is the playback rate in samples per second.
	// The nominal duration of a frame is FrameLength/NominalRate seconds.
	NominalRate float64

	// Backend is the concurrency backend of the slots.
	Backend Backend

	// PacingThreshold is the fraction of the frame duration that must
	// elapse before the read cursor can advance again.
	// Values between 0.7 and 0.9 trade responsiveness for jitter tolerance.
	// It must be greater than 0 and not greater than 1.
	PacingThreshold float64

	// CatchUpBound is the backlog (in frames) over which the read cursor
	// is snapped to the write cursor. It cannot be greater than Capacity-1,
	// otherwise the reader would address slots already overwritten.
	// [NewConfig] already lowers the default for small rings.
	CatchUpBound uint64

	// WarmUp is the number of read cursor advances accepted before
	// the catch-up is enabled.
	WarmUp uint64

	// EstimatorAlpha is the data smoothing factor of the producer
	// interval estimator. It must be between 0 and 1.
	EstimatorAlpha float64

	// EstimatorBeta is the trend smoothing factor of the producer
	// interval estimator. It must be between 0 and 1.
	EstimatorBeta float64
}

// NewConfig returns a new configuration with the required parameters
// and the default values for the others.
// The default catch-up bound is lowered to capacity-1 for small rings.
func NewConfig(frameLength, capacity int, nominalRate float64) *Config {
	catchUpBound := uint64(DefaultCatchUpBound)
	if capacity > 1 {
		catchUpBound = min(catchUpBound, uint64(capacity-1))
	}

	return &Config{
		Name: DefaultName,

		FrameLength: frameLength,
		Capacity:    capacity,
		NominalRate: nominalRate,

		Backend: DefaultBackend,

		PacingThreshold: DefaultPacingThreshold,
		CatchUpBound:    catchUpBound,
		WarmUp:          DefaultWarmUp,

		EstimatorAlpha: DefaultEstimatorAlpha,
		EstimatorBeta:  DefaultEstimatorBeta,
	}
}

// check returns an error if a required parameter is invalid.
// These parameters have no sensible fallback.
func (c *Config) check() error {
	if c.FrameLength <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFrameLength, c.FrameLength)
	}

	if c.Capacity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, c.Capacity)
	}

	if !(c.NominalRate > 0) || math.IsInf(c.NominalRate, 1) {
		return fmt.Errorf("%w: %v, it must be a positive number", ErrInvalidNominalRate, c.NominalRate)
	}

	frameSeconds := float64(c.FrameLength) / c.NominalRate
	if frameSeconds*float64(time.Second) >= math.MaxInt64 {
		return fmt.Errorf("%w: %v, the frame duration of %g seconds is too long", ErrInvalidNominalRate, c.NominalRate, frameSeconds)
	}

	switch c.Backend {
	case BackendLocked, BackendAtomic, BackendUnsynchronized:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidBackend, c.Backend)
	}

	return nil
}

// Validate checks the optional parameters of the configuration.
func (c *Config) Validate(ac *config.AnomalyCollector) {
	config.CheckNotEmpty(ac, "Name", &c.Name, DefaultName)

	config.CheckNotNaN(ac, "PacingThreshold", &c.PacingThreshold, DefaultPacingThreshold)
	config.CheckNotNegative(ac, "PacingThreshold", &c.PacingThreshold, DefaultPacingThreshold)
	config.CheckNotZero(ac, "PacingThreshold", &c.PacingThreshold, DefaultPacingThreshold)
	config.CheckNotGreaterThan(ac, "PacingThreshold", "1", &c.PacingThreshold, 1.0)

	config.CheckNotZero(ac, "CatchUpBound", &c.CatchUpBound, DefaultCatchUpBound)
	if c.Capacity > 1 {
		config.CheckNotGreaterThan(ac, "CatchUpBound", "Capacity - 1", &c.CatchUpBound, uint64(c.Capacity-1))
	}

	config.CheckNotNaN(ac, "EstimatorAlpha", &c.EstimatorAlpha, DefaultEstimatorAlpha)
	config.CheckNotNegative(ac, "EstimatorAlpha", &c.EstimatorAlpha, DefaultEstimatorAlpha)
	config.CheckNotZero(ac, "EstimatorAlpha", &c.EstimatorAlpha, DefaultEstimatorAlpha)
	config.CheckNotGreaterThan(ac, "EstimatorAlpha", "1", &c.EstimatorAlpha, 1.0)

	config.CheckNotNaN(ac, "EstimatorBeta", &c.EstimatorBeta, DefaultEstimatorBeta)
	config.CheckNotNegative(ac, "EstimatorBeta", &c.EstimatorBeta, DefaultEstimatorBeta)
	config.CheckNotZero(ac, "EstimatorBeta", &c.EstimatorBeta, DefaultEstimatorBeta)
	config.CheckNotGreaterThan(ac, "EstimatorBeta", "1", &c.EstimatorBeta, 1.0)
}
