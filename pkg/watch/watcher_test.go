package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcher_FiresOnceForBurstOfWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.csv")
	require.NoError(t, os.WriteFile(path, []byte("License Number\n"), 0o644))

	w, err := NewWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Watch(path))

	var calls atomic.Int32
	fired := make(chan string, 4)
	w.OnChange = func(_ context.Context, p string) error {
		calls.Add(1)
		fired <- p
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the fsnotify backend a moment to register the directory.
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString("ROC1,Acme\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	select {
	case p := <-fired:
		abs, _ := filepath.Abs(path)
		assert.Equal(t, abs, p)
	case <-time.After(5 * time.Second):
		t.Fatal("change was never reported")
	}

	// Debounce window passes without another callback.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.csv")
	require.NoError(t, os.WriteFile(path, []byte("License Number\n"), 0o644))

	w, err := NewWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Watch(path))

	var calls atomic.Int32
	w.OnChange = func(context.Context, string) error {
		calls.Add(1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(150 * time.Millisecond)

	cancel()
	<-done
	assert.Zero(t, calls.Load())
}

func TestWatcher_MissingFile(t *testing.T) {
	w, err := NewWatcher(0, nil)
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "missing.csv")))
	assert.Equal(t, DefaultDebounce, w.debounce)
}
