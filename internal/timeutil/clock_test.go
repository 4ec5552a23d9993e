package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Ticker(t *testing.T) {
	clock := RealClock{}
	ticker := clock.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire within 1s")
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Advance(1200 * time.Millisecond)
	if got := clock.Now().Sub(start); got != 1200*time.Millisecond {
		t.Errorf("Now advanced by %v, want 1.2s", got)
	}
}

func TestMockTicker_DeliversSynchronously(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	ticker := clock.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	received := make(chan time.Time, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2; i++ {
			received <- <-ticker.C()
		}
	}()

	// Not yet due: returns without delivering.
	clock.Advance(20 * time.Millisecond)
	if len(received) != 0 {
		t.Fatalf("tick delivered before deadline")
	}

	clock.Advance(30 * time.Millisecond)
	clock.Advance(50 * time.Millisecond)
	<-done

	first, second := <-received, <-received
	if first != start.Add(50*time.Millisecond) || second != start.Add(100*time.Millisecond) {
		t.Errorf("ticks = %v, %v", first, second)
	}
}

func TestMockTicker_StopUnblocksAdvance(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(time.Millisecond)
	if clock.Tickers() != 1 {
		t.Fatalf("Tickers() = %d, want 1", clock.Tickers())
	}

	ticker.Stop()
	ticker.Stop()

	// No receiver: must not block once stopped.
	clock.Advance(time.Second)
	if clock.Tickers() != 0 {
		t.Errorf("Tickers() = %d after Stop, want 0", clock.Tickers())
	}
}
