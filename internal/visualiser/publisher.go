// Package visualiser fans playback frames out to streaming clients and
// exposes playback control over gRPC.
package visualiser

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/eeg.report/internal/monitoring"
	"github.com/banshee-data/eeg.report/internal/playback"
)

// Config holds publisher sizing.
type Config struct {
	// QueueSize is the depth of the shared broadcast queue.
	QueueSize int
	// ClientBuffer is the per-subscriber channel depth. A subscriber whose
	// buffer is full misses frames instead of stalling the others.
	ClientBuffer int
	// MaxClients caps concurrent subscribers; 0 means unlimited.
	MaxClients int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize:    100,
		ClientBuffer: 10,
		MaxClients:   32,
	}
}

// ErrTooManyClients is returned by Subscribe when MaxClients is reached.
var ErrTooManyClients = errors.New("visualiser: too many clients")

// ErrPublisherStopped is returned by Subscribe after Stop.
var ErrPublisherStopped = errors.New("visualiser: publisher stopped")

// Subscription is one client's view of the frame stream. C is closed when
// the subscription ends.
type Subscription struct {
	ID string
	C  <-chan playback.Frame

	ch chan playback.Frame
}

// Publisher broadcasts frames from the scheduler to any number of
// subscribers.
type Publisher struct {
	config Config

	frameChan chan playback.Frame
	clients   map[string]*Subscription
	clientsMu sync.RWMutex
	latest    atomic.Pointer[playback.Frame]

	frameCount     atomic.Uint64
	droppedFrames  atomic.Uint64
	clientCount    atomic.Int32
	lastStatsTime  time.Time
	lastFrameCount uint64
	lastStatsMu    sync.Mutex

	running atomic.Bool
	stopped atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPublisher creates a Publisher. Zero config fields take their defaults.
func NewPublisher(cfg Config) *Publisher {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = def.ClientBuffer
	}
	return &Publisher{
		config:    cfg,
		frameChan: make(chan playback.Frame, cfg.QueueSize),
		clients:   make(map[string]*Subscription),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the broadcast loop.
func (p *Publisher) Start() {
	if p.stopped.Load() || !p.running.CompareAndSwap(false, true) {
		return
	}
	p.wg.Add(1)
	go p.broadcastLoop()
}

// Stop ends the broadcast loop and closes every subscription.
func (p *Publisher) Stop() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}
	p.running.Store(false)
	close(p.stopCh)
	p.wg.Wait()

	p.clientsMu.Lock()
	for id, sub := range p.clients {
		close(sub.ch)
		delete(p.clients, id)
	}
	p.clientsMu.Unlock()
	p.clientCount.Store(0)
	monitoring.Logf("[Publisher] stopped after %d frames (%d dropped)", p.frameCount.Load(), p.droppedFrames.Load())
}

// Publish queues f for broadcast. It never blocks: when the queue is full
// the frame is dropped.
func (p *Publisher) Publish(f playback.Frame) {
	p.latest.Store(&f)
	if !p.running.Load() {
		return
	}

	select {
	case p.frameChan <- f:
		count := p.frameCount.Add(1)
		p.logPeriodicStats(count)
	default:
		dropped := p.droppedFrames.Add(1)
		monitoring.Logf("[Publisher] dropped frame %d (total dropped: %d), queue full", f.Seq, dropped)
	}
}

// Latest returns the most recently published frame.
func (p *Publisher) Latest() (playback.Frame, bool) {
	f := p.latest.Load()
	if f == nil {
		return playback.Frame{}, false
	}
	return *f, true
}

// Subscribe registers a new client. The latest frame, if any, is delivered
// first so a new client never starts blank.
func (p *Publisher) Subscribe() (*Subscription, error) {
	if p.stopped.Load() {
		return nil, ErrPublisherStopped
	}

	ch := make(chan playback.Frame, p.config.ClientBuffer)
	sub := &Subscription{ID: uuid.NewString(), C: ch, ch: ch}
	if f, ok := p.Latest(); ok {
		ch <- f
	}

	p.clientsMu.Lock()
	if p.stopped.Load() {
		p.clientsMu.Unlock()
		return nil, ErrPublisherStopped
	}
	if p.config.MaxClients > 0 && len(p.clients) >= p.config.MaxClients {
		p.clientsMu.Unlock()
		return nil, ErrTooManyClients
	}
	p.clients[sub.ID] = sub
	p.clientsMu.Unlock()

	n := p.clientCount.Add(1)
	monitoring.Logf("[Publisher] client connected: %s (total: %d)", sub.ID, n)
	return sub, nil
}

// Unsubscribe removes a client and closes its channel. Unknown IDs are
// ignored.
func (p *Publisher) Unsubscribe(id string) {
	p.clientsMu.Lock()
	sub, ok := p.clients[id]
	if ok {
		delete(p.clients, id)
		close(sub.ch)
	}
	p.clientsMu.Unlock()

	if ok {
		n := p.clientCount.Add(-1)
		monitoring.Logf("[Publisher] client disconnected: %s (remaining: %d)", id, n)
	}
}

func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case f := <-p.frameChan:
			p.clientsMu.RLock()
			for _, sub := range p.clients {
				select {
				case sub.ch <- f:
				default:
					// Slow client: it misses this frame.
					p.droppedFrames.Add(1)
				}
			}
			p.clientsMu.RUnlock()
		}
	}
}

// logPeriodicStats logs throughput every 5 seconds.
func (p *Publisher) logPeriodicStats(frameCount uint64) {
	p.lastStatsMu.Lock()
	defer p.lastStatsMu.Unlock()

	now := time.Now()
	if p.lastStatsTime.IsZero() {
		p.lastStatsTime = now
		p.lastFrameCount = frameCount
		return
	}

	elapsed := now.Sub(p.lastStatsTime)
	if elapsed >= 5*time.Second {
		frames := frameCount - p.lastFrameCount
		monitoring.Logf("[Publisher] Stats: fps=%.1f frames=%d dropped=%d clients=%d queue=%d/%d",
			float64(frames)/elapsed.Seconds(), frames, p.droppedFrames.Load(),
			p.clientCount.Load(), len(p.frameChan), cap(p.frameChan))
		p.lastStatsTime = now
		p.lastFrameCount = frameCount
	}
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		FrameCount:    p.frameCount.Load(),
		DroppedFrames: p.droppedFrames.Load(),
		ClientCount:   p.clientCount.Load(),
		Running:       p.running.Load(),
	}
}

// PublisherStats contains publisher statistics.
type PublisherStats struct {
	FrameCount    uint64 `json:"frame_count"`
	DroppedFrames uint64 `json:"dropped_frames"`
	ClientCount   int32  `json:"client_count"`
	Running       bool   `json:"running"`
}
