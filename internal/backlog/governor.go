// Package backlog bounds the lag of a read cursor behind a write cursor.
package backlog

// Of returns how many frames the reader is behind the writer.
// It saturates at zero, so a read counter ahead of the write
// counter never wraps around.
func Of(writeCounter, readCounter uint64) uint64 {
	if readCounter >= writeCounter {
		return 0
	}
	return writeCounter - readCounter
}

// State is the state of a ring derived from its backlog.
type State uint8

const (
	// StateEmpty means the reader is caught up with the writer.
	StateEmpty State = iota
	// StateNominal means the backlog is within the catch-up bound.
	StateNominal
	// StateCatchingUp means the backlog exceeds the catch-up bound
	// and the next read will snap the read cursor forward.
	StateCatchingUp
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateNominal:
		return "nominal"
	case StateCatchingUp:
		return "catching-up"
	default:
		return "unknown"
	}
}

// Classify returns the state for the given backlog and catch-up bound.
func Classify(backlog, bound uint64) State {
	switch {
	case backlog == 0:
		return StateEmpty
	case backlog > bound:
		return StateCatchingUp
	default:
		return StateNominal
	}
}

// Governor snaps the read cursor to the write cursor when
// the backlog grows over the bound. It sacrifices continuity
// for bounded latency.
type Governor struct {
	warmUp uint64
	bound  uint64
}

// NewGovernor returns a new backlog governor.
// It stays inactive until warmUp cursor advances have been accepted.
func NewGovernor(warmUp, bound uint64) *Governor {
	return &Governor{
		warmUp: warmUp,
		bound:  bound,
	}
}

// Bound returns the catch-up bound.
func (g *Governor) Bound() uint64 {
	return g.bound
}

// Check returns the read counter to use and the number of skipped frames.
// The read counter is returned untouched when no catch-up is needed.
func (g *Governor) Check(advances, readCounter, writeCounter uint64) (uint64, uint64) {
	if advances < g.warmUp {
		return readCounter, 0
	}

	lag := Of(writeCounter, readCounter)
	if lag <= g.bound {
		return readCounter, 0
	}

	return writeCounter, lag
}
