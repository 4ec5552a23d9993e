package eeg

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bands.csv")
	require.NoError(t, os.WriteFile(path, []byte(basicCSV), 0o644))

	var mu sync.Mutex
	var loaded []*Dataset
	w, err := NewWatcher(path, func(ds *Dataset, _ LoadStats) {
		mu.Lock()
		loaded = append(loaded, ds)
		mu.Unlock()
	})
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// A sibling file must not trigger a reload.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte(basicCSV), 0o644))

	updated := basicCSV + "S3,1,1,1,1,1\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(loaded) > 0
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	last := loaded[len(loaded)-1]
	mu.Unlock()
	assert.Equal(t, 3, last.SubjectCount())
	assert.GreaterOrEqual(t, w.Reloads(), 1)
}

func TestWatcher_KeepsDatasetOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bands.csv")
	require.NoError(t, os.WriteFile(path, []byte(basicCSV), 0o644))

	calls := make(chan struct{}, 8)
	w, err := NewWatcher(path, func(*Dataset, LoadStats) { calls <- struct{}{} })
	require.NoError(t, err)
	w.SetDebounce(10 * time.Millisecond)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("not,a,valid,header\n"), 0o644))

	select {
	case <-calls:
		t.Fatal("callback should not run for an unparseable file")
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, 0, w.Reloads())
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "bands.csv"), nil)
	require.NoError(t, err)
	w.Stop()
}

func TestWatcher_StopAfterFailedStart(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "missing", "bands.csv"), nil)
	require.NoError(t, err)
	require.Error(t, w.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}
	assert.Zero(t, w.Reloads())
}
