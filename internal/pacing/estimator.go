package pacing

import (
	"math"
	"sync/atomic"
	"time"
)

// IntervalEstimator smooths the interval between consecutive
// producer writes. Observe must be called by a single goroutine,
// Interval is safe for concurrent use.
type IntervalEstimator struct {
	estimator *doubleExponentialEstimator

	prevTime time.Time

	interval atomic.Int64
}

// NewIntervalEstimator returns a new interval estimator.
// Alpha is the data smoothing factor, beta the trend smoothing factor.
// Both must be between 0 and 1.
func NewIntervalEstimator(alpha, beta float64) *IntervalEstimator {
	return &IntervalEstimator{
		estimator: newDoubleExponentialEstimator(alpha, beta),
	}
}

// Observe records an event happened at now.
func (ie *IntervalEstimator) Observe(now time.Time) {
	if ie.prevTime.IsZero() {
		ie.prevTime = now
		return
	}

	elapsed := now.Sub(ie.prevTime)
	ie.prevTime = now

	estimated := ie.estimator.estimate(float64(elapsed))
	if estimated < 0 {
		estimated = 0
	}

	ie.interval.Store(int64(math.Round(estimated)))
}

// Interval returns the smoothed interval.
// It is zero until at least two events are observed.
func (ie *IntervalEstimator) Interval() time.Duration {
	return time.Duration(ie.interval.Load())
}

// doubleExponentialEstimator is a double exponential (Holt) estimator
// used to smooth a series and follow its trend.
type doubleExponentialEstimator struct {
	alpha float64
	beta  float64

	prevLevel float64
	prevTrend float64

	estimateCount int
}

func newDoubleExponentialEstimator(alpha, beta float64) *doubleExponentialEstimator {
	return &doubleExponentialEstimator{
		alpha: alpha,
		beta:  beta,
	}
}

func (dee *doubleExponentialEstimator) estimate(value float64) float64 {
	// The first value initializes the level
	if dee.estimateCount == 0 {
		dee.prevLevel = value
		dee.prevTrend = 0

		dee.estimateCount++
		return value
	}

	// The second one initializes the trend
	if dee.estimateCount == 1 {
		dee.prevTrend = value - dee.prevLevel
	}

	prevForecasted := dee.prevLevel + dee.prevTrend

	currLevel := dee.alpha*value + (1-dee.alpha)*prevForecasted
	currTrend := dee.beta*(currLevel-dee.prevLevel) + (1-dee.beta)*dee.prevTrend

	dee.prevLevel = currLevel
	dee.prevTrend = currTrend

	dee.estimateCount++
	return prevForecasted
}
