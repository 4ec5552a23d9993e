package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/eeg.report/internal/eeg"
	"github.com/banshee-data/eeg.report/internal/monitoring"
	"github.com/banshee-data/eeg.report/internal/timeutil"
)

// DefaultFrameInterval is the scheduler cadence when none is configured.
const DefaultFrameInterval = 50 * time.Millisecond

// Controller is the playback surface exposed to transports.
type Controller interface {
	// Do applies a command and returns the resulting frame.
	Do(ctx context.Context, cmd Command) (Frame, error)
	// Load replaces the dataset and rewinds playback.
	Load(ctx context.Context, ds *eeg.Dataset) error
	// Snapshot returns the current frame without advancing playback.
	Snapshot(ctx context.Context) (Frame, error)
	// Dataset returns the dataset currently being played, or nil.
	Dataset() *eeg.Dataset
}

type request struct {
	cmd   Command
	load  *eeg.Dataset
	reply chan response
}

type response struct {
	frame Frame
	err   error
}

// Scheduler runs a Player on a single goroutine. Ticks, commands and dataset
// loads are applied one at a time from the same loop, so none of them overlap.
type Scheduler struct {
	clock    timeutil.Clock
	interval time.Duration
	player   *Player
	onFrame  func(Frame)

	requests chan request
	stopCh   chan struct{}
	doneCh   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	running   atomic.Bool

	dataset atomic.Pointer[eeg.Dataset]
	latest  atomic.Pointer[Frame]
}

// NewScheduler wraps player. A nil clock uses the wall clock and a
// non-positive interval uses DefaultFrameInterval.
func NewScheduler(player *Player, clock timeutil.Clock, interval time.Duration) *Scheduler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	player.clock = clock.Now
	return &Scheduler{
		clock:    clock,
		interval: interval,
		player:   player,
		requests: make(chan request),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// OnFrame registers fn to receive every frame that differs from the previous
// one. It must be called before Start and fn must not block.
func (s *Scheduler) OnFrame(fn func(Frame)) {
	s.onFrame = fn
}

// Start launches the loop. It returns immediately; the loop runs until Stop
// is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.running.Store(true)
		ticker := s.clock.NewTicker(s.interval)
		go s.run(ctx, ticker)
		monitoring.Logf("[Playback] scheduler started, frame interval %s", s.interval)
	})
}

// Stop deregisters the ticker and waits for the loop to exit. It is safe to
// call more than once, and before Start.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	if s.running.Load() {
		<-s.doneCh
	}
}

// Done is closed when the loop has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.doneCh
}

func (s *Scheduler) run(ctx context.Context, ticker timeutil.Ticker) {
	defer close(s.doneCh)
	defer ticker.Stop()
	defer monitoring.Logf("[Playback] scheduler stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case now := <-ticker.C():
			if f, changed := s.player.Tick(now); changed {
				s.publish(f)
			}
		case req := <-s.requests:
			req.reply <- s.handle(req)
		}
	}
}

func (s *Scheduler) handle(req request) response {
	switch {
	case req.load != nil:
		s.player.Load(req.load)
		s.dataset.Store(req.load)
		f := s.player.frameAt(s.clock.Now(), true)
		s.publish(f)
		return response{frame: f}
	case req.cmd == "":
		return response{frame: s.player.Frame()}
	default:
		f, err := s.player.Apply(req.cmd)
		if err == nil {
			s.publish(f)
		}
		return response{frame: f, err: err}
	}
}

func (s *Scheduler) publish(f Frame) {
	s.latest.Store(&f)
	if s.onFrame != nil {
		s.onFrame(f)
	}
}

func (s *Scheduler) send(ctx context.Context, req request) (Frame, error) {
	select {
	case <-s.doneCh:
		return Frame{}, ErrStopped
	case <-s.stopCh:
		return Frame{}, ErrStopped
	default:
	}
	if !s.running.Load() {
		return Frame{}, ErrStopped
	}

	req.reply = make(chan response, 1)
	select {
	case s.requests <- req:
	case <-s.doneCh:
		return Frame{}, ErrStopped
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.frame, resp.err
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Do applies cmd between ticks.
func (s *Scheduler) Do(ctx context.Context, cmd Command) (Frame, error) {
	if cmd == "" {
		return Frame{}, ErrUnknownCommand
	}
	return s.send(ctx, request{cmd: cmd})
}

// Load swaps in ds. A nil dataset is replaced by an empty one, leaving the
// scheduler not ready.
func (s *Scheduler) Load(ctx context.Context, ds *eeg.Dataset) error {
	if ds == nil {
		ds = &eeg.Dataset{}
	}
	_, err := s.send(ctx, request{load: ds})
	return err
}

// Snapshot returns the current frame as seen by the loop.
func (s *Scheduler) Snapshot(ctx context.Context) (Frame, error) {
	return s.send(ctx, request{})
}

// Dataset returns the most recently loaded dataset.
func (s *Scheduler) Dataset() *eeg.Dataset {
	return s.dataset.Load()
}

// Latest returns the last published frame without going through the loop.
func (s *Scheduler) Latest() (Frame, bool) {
	f := s.latest.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

var _ Controller = (*Scheduler)(nil)
