package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/eeg.report/internal/bands"
	"github.com/banshee-data/eeg.report/internal/eeg"
	"github.com/banshee-data/eeg.report/internal/monitoring"
)

var (
	// ErrNotReady is returned for commands issued before a non-empty dataset
	// has been loaded.
	ErrNotReady = errors.New("playback: no dataset loaded")
	// ErrStopped is returned once the scheduler has been stopped.
	ErrStopped = errors.New("playback: scheduler stopped")
	// ErrUnknownCommand is returned for a command name that does not exist.
	ErrUnknownCommand = errors.New("playback: unknown command")
)

// Command is a user-issued playback control.
type Command string

const (
	CmdToggle Command = "toggle"
	CmdReset  Command = "reset"
	CmdPrev   Command = "prev"
	CmdNext   Command = "next"
)

// Commands lists every valid command.
var Commands = []Command{CmdToggle, CmdReset, CmdPrev, CmdNext}

// ParseCommand validates a command name.
func ParseCommand(s string) (Command, error) {
	for _, c := range Commands {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Options configures the analysis a Player runs on each frame.
type Options struct {
	TrendWindow int
	ADRGauge    bands.GaugeSpec
	TARGauge    bands.GaugeSpec
}

// DefaultOptions returns the stock trend window and gauge policies.
func DefaultOptions() Options {
	return Options{
		TrendWindow: bands.DefaultTrendWindow,
		ADRGauge:    bands.DefaultADRGauge,
		TARGauge:    bands.DefaultTARGauge,
	}
}

// Player is the single owner of a cursor, the dataset it points into and the
// gauge ranges of the active subject. It is not safe for concurrent use;
// Scheduler serialises access to it.
type Player struct {
	opts    Options
	clock   func() time.Time
	ds      *eeg.Dataset
	cursor  Cursor
	seq     uint64
	bandMax float64

	rangeSubject int
	adrRange     bands.Range
	tarRange     bands.Range
	slopes       []float64

	last  Frame
	fresh bool
}

// NewPlayer creates a player with no dataset.
func NewPlayer(opts Options) *Player {
	if opts.TrendWindow <= 0 {
		opts.TrendWindow = bands.DefaultTrendWindow
	}
	if opts.ADRGauge.Validate() != nil {
		opts.ADRGauge = bands.DefaultADRGauge
	}
	if opts.TARGauge.Validate() != nil {
		opts.TARGauge = bands.DefaultTARGauge
	}
	return &Player{opts: opts, clock: time.Now, cursor: NewCursor(), rangeSubject: -1}
}

// Load replaces the dataset wholesale and rewinds the cursor.
func (p *Player) Load(ds *eeg.Dataset) {
	p.ds = ds
	p.cursor = NewCursor()
	p.bandMax = ds.BandMax()
	p.rangeSubject = -1
	p.fresh = false
	p.refreshRanges()
	monitoring.Logf("[Playback] loaded %d subjects, %d trials", ds.SubjectCount(), ds.TrialCount())
}

// Dataset returns the loaded dataset, which may be nil.
func (p *Player) Dataset() *eeg.Dataset { return p.ds }

// Ready reports whether there is anything to play.
func (p *Player) Ready() bool { return p.ds.Ready() }

// Cursor returns a copy of the current cursor.
func (p *Player) Cursor() Cursor { return p.cursor }

// Tick advances playback to now. It reports whether the cursor moved, so
// idle ticks while paused or finished can be skipped by consumers. An idle
// tick returns the last frame built instead of rebuilding it.
func (p *Player) Tick(now time.Time) (Frame, bool) {
	before := p.cursor
	p.cursor = Tick(p.cursor, p.ds, now)
	changed := p.cursor.SubjectPosition != before.SubjectPosition ||
		p.cursor.TrialPosition != before.TrialPosition ||
		p.cursor.Fraction != before.Fraction ||
		p.cursor.State != before.State
	if p.cursor.State == Finished && before.State != Finished {
		monitoring.Logf("[Playback] finished at subject %d trial %d",
			p.cursor.SubjectPosition, p.cursor.TrialPosition)
	}
	if !changed && p.fresh {
		return p.last, false
	}
	p.refreshRanges()
	return p.frameAt(now, changed), changed
}

// Apply runs a command against the cursor. Commands on an empty dataset leave
// the cursor untouched and return ErrNotReady.
func (p *Player) Apply(cmd Command) (Frame, error) {
	if !p.Ready() {
		return p.frameAt(p.clock(), false), ErrNotReady
	}
	switch cmd {
	case CmdToggle:
		p.cursor = TogglePlay(p.cursor, p.ds)
	case CmdReset:
		p.cursor = Reset(p.cursor, p.ds)
	case CmdPrev:
		p.cursor = PrevSubject(p.cursor, p.ds)
	case CmdNext:
		p.cursor = NextSubject(p.cursor, p.ds)
	default:
		return p.frameAt(p.clock(), false), fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	p.refreshRanges()
	return p.frameAt(p.clock(), true), nil
}

// Frame renders the current cursor without advancing it.
func (p *Player) Frame() Frame {
	return p.frameAt(p.clock(), false)
}

func (p *Player) frameAt(now time.Time, bump bool) Frame {
	if bump {
		p.seq++
	}
	p.last = p.buildFrame(now)
	p.fresh = true
	return p.last
}

func (p *Player) buildFrame(now time.Time) Frame {
	f := Frame{
		Seq:             p.seq,
		Timestamp:       now,
		Ready:           p.Ready(),
		State:           p.cursor.State,
		SubjectPosition: p.cursor.SubjectPosition,
		SubjectCount:    p.ds.SubjectCount(),
		TrialPosition:   p.cursor.TrialPosition,
		Fraction:        p.cursor.Fraction,
		BandMax:         p.bandMax,
	}
	series, ok := p.ds.Series(p.cursor.SubjectPosition)
	if !ok {
		return f
	}
	f.Subject = series.Subject
	f.TrialCount = series.Len()
	if p.cursor.TrialPosition < series.Len() {
		f.TrialIndex = series.Trials[p.cursor.TrialPosition].TrialIndex
	}

	reading, ok := Sample(p.cursor, p.ds)
	if !ok {
		return f
	}
	f.Reading = reading
	f.Analysis = bands.Analyze(toInput(reading), p.slopes, p.cursor.TrialPosition, p.opts.TrendWindow)
	f.ADR = bands.Gauge(f.Analysis.Ratios.ADR, p.adrRange, p.opts.ADRGauge)
	f.TAR = bands.Gauge(f.Analysis.Ratios.TAR, p.tarRange, p.opts.TARGauge)
	if p.ds.HasSlope && len(p.slopes) > 0 {
		end := min(p.cursor.TrialPosition+1, len(p.slopes))
		f.Slopes = append([]float64(nil), p.slopes[:end]...)
	}
	return f
}

// refreshRanges recomputes the per-subject ratio ranges and slope history
// when the active subject has changed.
func (p *Player) refreshRanges() {
	if p.rangeSubject == p.cursor.SubjectPosition && p.rangeSubject >= 0 {
		return
	}
	series, ok := p.ds.Series(p.cursor.SubjectPosition)
	if !ok {
		p.rangeSubject = -1
		p.adrRange, p.tarRange, p.slopes = bands.Range{}, bands.Range{}, nil
		return
	}
	p.rangeSubject = p.cursor.SubjectPosition
	p.adrRange, p.tarRange = SubjectRanges(series)
	p.slopes = SlopeHistory(series)
}

// SubjectRanges returns the ADR and TAR gauge ranges of one subject.
func SubjectRanges(series eeg.SubjectSeries) (adr, tar bands.Range) {
	adrs := make([]float64, 0, series.Len())
	tars := make([]float64, 0, series.Len())
	for _, t := range series.Trials {
		adrs = append(adrs, bands.ADR(t.Alpha, t.Delta))
		tars = append(tars, bands.TAR(t.Theta, t.Alpha))
	}
	return bands.SubjectRange(adrs), bands.SubjectRange(tars)
}

// SlopeHistory returns the finite slope of every trial of series.
func SlopeHistory(series eeg.SubjectSeries) []float64 {
	out := make([]float64, series.Len())
	for i, t := range series.Trials {
		out[i] = bands.Finite(t.Slope)
	}
	return out
}

func toInput(r eeg.Reading) bands.Input {
	return bands.Input{
		Alpha: r.Alpha,
		Beta:  r.Beta,
		Theta: r.Theta,
		Delta: r.Delta,
		Slope: r.Slope,
		BSI:   r.BSI,
	}
}
