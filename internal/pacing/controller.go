// Package pacing gates the advancement of a read cursor to the nominal
// playback cadence of the frames.
package pacing

import (
	"time"
)

// FrameDuration returns the playback duration of a frame of frameLength
// samples at the given nominal rate (samples per second).
func FrameDuration(frameLength int, nominalRate float64) time.Duration {
	return time.Duration(float64(frameLength) / nominalRate * float64(time.Second))
}

// Controller decides when the read cursor may advance.
// It is not safe for concurrent use: the caller must serialize
// the read side.
type Controller struct {
	frameDuration time.Duration
	threshold     float64

	// window is the minimum time between two advances
	window time.Duration

	lastAdvance time.Time
}

// NewController returns a new pacing controller.
// The read cursor may advance once threshold*frameDuration
// has elapsed since start or since the last advance.
func NewController(frameDuration time.Duration, threshold float64, start time.Time) *Controller {
	return &Controller{
		frameDuration: frameDuration,
		threshold:     threshold,

		window: time.Duration(float64(frameDuration) * threshold),

		lastAdvance: start,
	}
}

// ShouldAdvance states whether the read cursor may move forward at now.
// The cursor never goes past the write cursor.
func (c *Controller) ShouldAdvance(now time.Time, readCounter, writeCounter uint64) bool {
	if readCounter >= writeCounter {
		return false
	}

	return now.Sub(c.lastAdvance) >= c.window
}

// Advance records an accepted advance at now, opening a new pacing window.
func (c *Controller) Advance(now time.Time) {
	c.lastAdvance = now
}

// TryAdvance combines ShouldAdvance and Advance.
func (c *Controller) TryAdvance(now time.Time, readCounter, writeCounter uint64) bool {
	if !c.ShouldAdvance(now, readCounter, writeCounter) {
		return false
	}

	c.Advance(now)
	return true
}

// Window returns the pacing window.
func (c *Controller) Window() time.Duration {
	return c.window
}

// FrameDuration returns the nominal duration of a frame.
func (c *Controller) FrameDuration() time.Duration {
	return c.frameDuration
}
