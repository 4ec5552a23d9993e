// Package playback steps a cursor through a dataset on a fixed cadence,
// interpolating between bracketing trials to feed the band analysis.
//
// The cursor arithmetic is a set of pure functions over a Cursor value so it
// can be tested without a scheduler. Player owns one cursor together with the
// dataset and per-subject ranges, and Scheduler drives a Player from a ticker.
package playback

import (
	"fmt"
	"time"
)

// StepDuration is the wall-clock time it takes to move from one trial to the
// next.
const StepDuration = 1200 * time.Millisecond

// State is the playback state machine position.
type State int

const (
	Playing State = iota
	Paused
	Finished
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "playing":
		*s = Playing
	case "paused":
		*s = Paused
	case "finished":
		*s = Finished
	default:
		return fmt.Errorf("unknown playback state %q", b)
	}
	return nil
}

// Cursor is the position within a dataset. LastFrame is the zero time when
// no frame-timing reference has been taken yet.
type Cursor struct {
	SubjectPosition int       `json:"subject_position"`
	TrialPosition   int       `json:"trial_position"`
	Fraction        float64   `json:"fraction"`
	State           State     `json:"state"`
	LastFrame       time.Time `json:"-"`
}

// NewCursor returns the cursor a freshly loaded dataset starts from.
func NewCursor() Cursor {
	return Cursor{State: Playing}
}

// Playing reports whether ticks advance the cursor.
func (c Cursor) Playing() bool { return c.State == Playing }
