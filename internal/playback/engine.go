package playback

import (
	"time"

	"github.com/banshee-data/eeg.report/internal/bands"
	"github.com/banshee-data/eeg.report/internal/eeg"
)

// Tick advances c by the time elapsed since its last frame. The first tick
// after the frame-timing reference was cleared only takes a new reference.
func Tick(c Cursor, ds *eeg.Dataset, now time.Time) Cursor {
	if !c.Playing() || !ds.Ready() {
		return c
	}
	var elapsed time.Duration
	if !c.LastFrame.IsZero() && now.After(c.LastFrame) {
		elapsed = now.Sub(c.LastFrame)
	}
	c.LastFrame = now
	return Advance(c, ds, elapsed)
}

// Advance accumulates elapsed playback time into the interpolation fraction
// and handles at most one trial or subject boundary.
func Advance(c Cursor, ds *eeg.Dataset, elapsed time.Duration) Cursor {
	if !c.Playing() || !ds.Ready() {
		return c
	}
	series, ok := ds.Series(c.SubjectPosition)
	if !ok {
		return c
	}

	if elapsed > 0 {
		c.Fraction = bands.Clamp(c.Fraction+float64(elapsed)/float64(StepDuration), 0, 1)
	}
	if c.Fraction < 1 {
		return c
	}

	switch {
	case c.TrialPosition < series.LastIndex():
		c.TrialPosition++
		c.Fraction = 0
	case c.SubjectPosition < ds.SubjectCount()-1:
		c.SubjectPosition++
		c.TrialPosition = 0
		c.Fraction = 0
		c.LastFrame = time.Time{}
	default:
		c.Fraction = 1
		c.State = Finished
	}
	return c
}

// TogglePlay flips between Playing and Paused. A finished cursor resumes
// playing and finishes again on its next tick.
func TogglePlay(c Cursor, ds *eeg.Dataset) Cursor {
	if !ds.Ready() {
		return c
	}
	if c.State == Playing {
		c.State = Paused
	} else {
		c.State = Playing
	}
	c.LastFrame = time.Time{}
	return c
}

// Reset rewinds the current subject to its first trial and resumes playing.
func Reset(c Cursor, ds *eeg.Dataset) Cursor {
	if !ds.Ready() {
		return c
	}
	return Cursor{SubjectPosition: c.SubjectPosition, State: Playing}
}

// PrevSubject moves to the previous subject, wrapping to the last.
func PrevSubject(c Cursor, ds *eeg.Dataset) Cursor {
	return jumpSubject(c, ds, -1)
}

// NextSubject moves to the next subject, wrapping to the first.
func NextSubject(c Cursor, ds *eeg.Dataset) Cursor {
	return jumpSubject(c, ds, 1)
}

func jumpSubject(c Cursor, ds *eeg.Dataset, delta int) Cursor {
	n := ds.SubjectCount()
	if n == 0 {
		return c
	}
	pos := ((c.SubjectPosition+delta)%n + n) % n
	return Cursor{SubjectPosition: pos, State: Playing}
}

// Sample interpolates between the trial at the cursor and the one after it.
// Non-finite source values are treated as 0. It reports false when the cursor
// does not point into ds.
func Sample(c Cursor, ds *eeg.Dataset) (eeg.Reading, bool) {
	series, ok := ds.Series(c.SubjectPosition)
	if !ok || c.TrialPosition < 0 || c.TrialPosition > series.LastIndex() {
		return eeg.Reading{}, false
	}
	a := series.Trials[c.TrialPosition]
	b := series.Trials[min(c.TrialPosition+1, series.LastIndex())]
	f := bands.Clamp(c.Fraction, 0, 1)

	r := eeg.Reading{
		Alpha: lerp(a.Alpha, b.Alpha, f),
		Beta:  lerp(a.Beta, b.Beta, f),
		Theta: lerp(a.Theta, b.Theta, f),
		Delta: lerp(a.Delta, b.Delta, f),
	}
	if ds.HasSlope {
		v := lerp(a.Slope, b.Slope, f)
		r.Slope = &v
	}
	if ds.HasBSI {
		v := lerp(a.BSI, b.BSI, f)
		r.BSI = &v
	}
	return r, true
}

// lerp blends a and b without forming b-a, which overflows for finite
// values of opposite sign near the float64 limits.
func lerp(a, b, f float64) float64 {
	a, b = bands.Finite(a), bands.Finite(b)
	if a == b {
		return a
	}
	return bands.Finite(a*(1-f) + b*f)
}
