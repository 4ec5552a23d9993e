package playback

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/eeg.report/internal/eeg"
)

const tolerance = 1e-9

func trial(subject string, idx int, alpha, beta, theta, delta float64) eeg.TrialSample {
	return eeg.TrialSample{
		Subject: subject, TrialIndex: idx,
		Alpha: alpha, Beta: beta, Theta: theta, Delta: delta,
		Slope: math.NaN(), BSI: math.NaN(),
	}
}

// twoSubjects has three trials for S1 and two for S2.
func twoSubjects() *eeg.Dataset {
	return eeg.Group([]eeg.TrialSample{
		trial("S1", 1, 2, 1, 4, 3),
		trial("S1", 2, 4, 2, 6, 5),
		trial("S1", 3, 6, 3, 8, 7),
		trial("S2", 1, 10, 5, 3, 2),
		trial("S2", 2, 8, 5, 4, 3),
	}, false, false)
}

func oneSubject() *eeg.Dataset {
	return eeg.Group([]eeg.TrialSample{
		trial("S1", 1, 2, 1, 4, 3),
		trial("S1", 2, 4, 2, 6, 5),
		trial("S1", 3, 6, 3, 8, 7),
	}, false, false)
}

func TestNewCursor(t *testing.T) {
	want := Cursor{SubjectPosition: 0, TrialPosition: 0, Fraction: 0, State: Playing}
	if diff := cmp.Diff(want, NewCursor()); diff != "" {
		t.Errorf("NewCursor() mismatch (-want +got):\n%s", diff)
	}
}

func TestSample_Interpolation(t *testing.T) {
	ds := oneSubject()

	r, ok := Sample(Cursor{}, ds)
	require.True(t, ok)
	assert.Equal(t, eeg.Reading{Alpha: 2, Beta: 1, Theta: 4, Delta: 3}, r)

	r, _ = Sample(Cursor{Fraction: 1}, ds)
	assert.InDelta(t, 4, r.Alpha, tolerance)
	assert.InDelta(t, 2, r.Beta, tolerance)
	assert.InDelta(t, 6, r.Theta, tolerance)
	assert.InDelta(t, 5, r.Delta, tolerance)

	r, _ = Sample(Cursor{Fraction: 0.5}, ds)
	assert.Equal(t, 3.0, r.Alpha)
	assert.Nil(t, r.Slope)
	assert.Nil(t, r.BSI)
}

func TestSample_FinalTrialIsConstant(t *testing.T) {
	ds := oneSubject()
	for _, f := range []float64{0, 0.3, 1} {
		r, ok := Sample(Cursor{TrialPosition: 2, Fraction: f}, ds)
		require.True(t, ok)
		assert.Equal(t, 6.0, r.Alpha, "fraction %v", f)
		assert.Equal(t, 7.0, r.Delta, "fraction %v", f)
	}
}

func TestSample_NonFiniteCoercedToZero(t *testing.T) {
	ds := eeg.Group([]eeg.TrialSample{
		{Subject: "A", TrialIndex: 1, Alpha: math.NaN(), Beta: 2, Theta: math.Inf(1), Delta: 1, Slope: math.NaN(), BSI: 0.2},
		{Subject: "A", TrialIndex: 2, Alpha: 4, Beta: math.NaN(), Theta: 2, Delta: 1, Slope: -2, BSI: math.NaN()},
	}, true, true)

	r, ok := Sample(Cursor{Fraction: 0.5}, ds)
	require.True(t, ok)
	assert.Equal(t, 2.0, r.Alpha)
	assert.Equal(t, 1.0, r.Beta)
	assert.Equal(t, 1.0, r.Theta)
	require.NotNil(t, r.Slope)
	require.NotNil(t, r.BSI)
	assert.Equal(t, -1.0, *r.Slope)
	assert.InDelta(t, 0.1, *r.BSI, tolerance)
}

func TestSample_ExtremeValuesStayFinite(t *testing.T) {
	ds := eeg.Group([]eeg.TrialSample{
		{Subject: "A", TrialIndex: 1, Alpha: 1e308, Beta: -1e308, Theta: 1, Delta: 1, Slope: 1e308, BSI: 0},
		{Subject: "A", TrialIndex: 2, Alpha: -1e308, Beta: 1e308, Theta: 1, Delta: 1, Slope: -1e308, BSI: 0},
	}, true, true)

	for _, f := range []float64{0, 0.25, 0.5, 1} {
		r, ok := Sample(Cursor{Fraction: f}, ds)
		require.True(t, ok)
		bandValues := r.Bands()
		for i, v := range append(bandValues[:], *r.Slope) {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "fraction %v field %d = %v", f, i, v)
		}
	}

	r, _ := Sample(Cursor{}, ds)
	assert.Equal(t, 1e308, r.Alpha)
	r, _ = Sample(Cursor{Fraction: 1}, ds)
	assert.Equal(t, -1e308, r.Alpha)
}

func TestSample_OutOfRange(t *testing.T) {
	ds := oneSubject()
	if _, ok := Sample(Cursor{SubjectPosition: 1}, ds); ok {
		t.Error("expected Sample to fail for a missing subject")
	}
	if _, ok := Sample(Cursor{TrialPosition: 3}, ds); ok {
		t.Error("expected Sample to fail for a missing trial")
	}
	if _, ok := Sample(Cursor{}, nil); ok {
		t.Error("expected Sample to fail for a nil dataset")
	}
}

func TestAdvance_AccumulatesFraction(t *testing.T) {
	ds := oneSubject()
	c := Advance(NewCursor(), ds, 600*time.Millisecond)
	assert.InDelta(t, 0.5, c.Fraction, tolerance)
	assert.Equal(t, 0, c.TrialPosition)

	c = Advance(c, ds, 300*time.Millisecond)
	assert.InDelta(t, 0.75, c.Fraction, tolerance)
}

func TestAdvance_BoundaryCrossing(t *testing.T) {
	ds := oneSubject()
	c := NewCursor()

	c = Advance(c, ds, StepDuration)
	assert.Equal(t, 1, c.TrialPosition)
	assert.Equal(t, 0.0, c.Fraction)

	c = Advance(c, ds, StepDuration)
	assert.Equal(t, 2, c.TrialPosition)
	assert.Equal(t, 0.0, c.Fraction)
	assert.Equal(t, Playing, c.State)

	c = Advance(c, ds, StepDuration)
	assert.Equal(t, 2, c.TrialPosition)
	assert.Equal(t, Finished, c.State)
	assert.Equal(t, 1.0, c.Fraction)
}

func TestAdvance_LongElapsedCrossesOnce(t *testing.T) {
	c := Advance(NewCursor(), oneSubject(), 10*StepDuration)
	assert.Equal(t, 1, c.TrialPosition)
	assert.Equal(t, 0.0, c.Fraction)
}

func TestAdvance_SubjectCrossingClearsFrameReference(t *testing.T) {
	ds := twoSubjects()
	c := Cursor{TrialPosition: 2, Fraction: 0.9, State: Playing, LastFrame: time.Unix(100, 0)}

	c = Advance(c, ds, StepDuration)
	want := Cursor{SubjectPosition: 1, TrialPosition: 0, Fraction: 0, State: Playing}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("cursor mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvance_EndOfDatasetIsTerminal(t *testing.T) {
	ds := twoSubjects()
	c := Cursor{SubjectPosition: 1, TrialPosition: 1, Fraction: 0.5, State: Playing}

	c = Advance(c, ds, StepDuration)
	require.Equal(t, Finished, c.State)

	frozen := c
	now := time.Unix(500, 0)
	for i := 0; i < 5; i++ {
		c = Advance(c, ds, StepDuration)
		now = now.Add(StepDuration)
		c = Tick(c, ds, now)
	}
	if diff := cmp.Diff(frozen, c); diff != "" {
		t.Errorf("finished cursor moved (-want +got):\n%s", diff)
	}
}

func TestTick_UsesFrameReference(t *testing.T) {
	ds := oneSubject()
	start := time.Unix(1000, 0)

	c := Tick(NewCursor(), ds, start)
	assert.Equal(t, 0.0, c.Fraction, "first tick only takes a reference")
	assert.Equal(t, start, c.LastFrame)

	c = Tick(c, ds, start.Add(300*time.Millisecond))
	assert.InDelta(t, 0.25, c.Fraction, tolerance)

	c = Tick(c, ds, start.Add(1500*time.Millisecond))
	assert.Equal(t, 1, c.TrialPosition)
	assert.Equal(t, 0.0, c.Fraction)
}

func TestTick_ThreeTrialsOverThreeSteps(t *testing.T) {
	ds := oneSubject()
	now := time.Unix(0, 0)
	c := Tick(NewCursor(), ds, now)

	frame := 50 * time.Millisecond
	// A few spare frames absorb floating-point drift in the accumulated fraction.
	for elapsed := time.Duration(0); elapsed < 3*StepDuration+5*frame; elapsed += frame {
		now = now.Add(frame)
		c = Tick(c, ds, now)
	}
	assert.Equal(t, 2, c.TrialPosition)
	assert.Equal(t, Finished, c.State)
}

func TestTick_NoopWhenPaused(t *testing.T) {
	ds := oneSubject()
	c := Cursor{Fraction: 0.4, State: Paused}
	assert.Equal(t, c, Tick(c, ds, time.Unix(10, 0)))
}

func TestTick_NoopOnEmptyDataset(t *testing.T) {
	c := NewCursor()
	assert.Equal(t, c, Tick(c, &eeg.Dataset{}, time.Unix(10, 0)))
	assert.Equal(t, c, Tick(c, nil, time.Unix(10, 0)))
}

func TestTogglePlay(t *testing.T) {
	ds := oneSubject()
	c := Cursor{Fraction: 0.3, State: Playing, LastFrame: time.Unix(1, 0)}

	c = TogglePlay(c, ds)
	assert.Equal(t, Paused, c.State)
	assert.True(t, c.LastFrame.IsZero())
	assert.Equal(t, 0.3, c.Fraction)

	c = TogglePlay(c, ds)
	assert.Equal(t, Playing, c.State)
}

func TestTogglePlay_FromFinishedRefinishes(t *testing.T) {
	ds := oneSubject()
	c := Cursor{TrialPosition: 2, Fraction: 1, State: Finished}

	c = TogglePlay(c, ds)
	require.Equal(t, Playing, c.State)

	c = Advance(c, ds, time.Millisecond)
	assert.Equal(t, Finished, c.State)
	assert.Equal(t, 2, c.TrialPosition)
	assert.Equal(t, 0, c.SubjectPosition)
}

func TestReset(t *testing.T) {
	ds := twoSubjects()
	c := Cursor{SubjectPosition: 1, TrialPosition: 1, Fraction: 0.7, State: Paused, LastFrame: time.Unix(9, 0)}

	got := Reset(c, ds)
	want := Cursor{SubjectPosition: 1, State: Playing}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Reset mismatch (-want +got):\n%s", diff)
	}
}

func TestSubjectNavigation_Wraps(t *testing.T) {
	ds := twoSubjects()
	c := Cursor{SubjectPosition: 1, TrialPosition: 1, Fraction: 0.2, State: Finished}

	next := NextSubject(c, ds)
	assert.Equal(t, Cursor{SubjectPosition: 0, State: Playing}, next)

	prev := PrevSubject(next, ds)
	assert.Equal(t, Cursor{SubjectPosition: 1, State: Playing}, prev)

	prev = PrevSubject(prev, ds)
	assert.Equal(t, 0, prev.SubjectPosition)
}

func TestCommands_NoopOnEmptyDataset(t *testing.T) {
	c := Cursor{Fraction: 0.5, State: Paused}
	empty := &eeg.Dataset{}
	for name, fn := range map[string]func(Cursor, *eeg.Dataset) Cursor{
		"toggle": TogglePlay,
		"reset":  Reset,
		"prev":   PrevSubject,
		"next":   NextSubject,
	} {
		if got := fn(c, empty); got != c {
			t.Errorf("%s changed cursor on empty dataset: %+v", name, got)
		}
	}
}

func TestState_Text(t *testing.T) {
	for _, s := range []State{Playing, Paused, Finished} {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var back State
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, s, back)
	}
	var s State
	assert.Error(t, s.UnmarshalText([]byte("rewinding")))
	assert.Equal(t, "State(7)", State(7).String())
}
