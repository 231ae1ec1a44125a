package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pygpt-net/msibuild/internal/logging"
	"github.com/stretchr/testify/require"
)

// startWatcher runs the event pump and returns a cancel that waits for
// it to wind down.
func startWatcher(t *testing.T, w *Watcher) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	return func() {
		cancel()
		<-done
	}
}

func expectTrigger(t *testing.T, w *Watcher, within time.Duration, msg string) {
	t.Helper()

	select {
	case <-w.Builds():
	case <-time.After(within):
		t.Fatal(msg)
	}
}

func expectNoTrigger(t *testing.T, w *Watcher, within time.Duration, msg string) {
	t.Helper()

	select {
	case <-w.Builds():
		t.Fatal(msg)
	case <-time.After(within):
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()

	w, err := New(logging.NewNop(), 100*time.Millisecond, 2*time.Second)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Add(dir))

	stop := startWatcher(t, w)
	defer stop()

	// A burst of writes, as an extract would produce
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("f%d.txt", i)), []byte("x"), 0o644))
	}

	expectTrigger(t, w, 3*time.Second, "expected a build trigger after the burst settled")
	expectNoTrigger(t, w, 300*time.Millisecond, "a single burst should coalesce into one trigger")

	// A later change triggers again
	require.NoError(t, os.WriteFile(filepath.Join(dir, "later.txt"), []byte("y"), 0o644))
	expectTrigger(t, w, 3*time.Second, "expected a trigger for the later change")
}

func TestWatcher_MaxDelayCapsPostponement(t *testing.T) {
	dir := t.TempDir()

	w, err := New(logging.NewNop(), 300*time.Millisecond, 600*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Add(dir))

	stop := startWatcher(t, w)
	defer stop()

	// A sustained stream keeps resetting the quiet window; the
	// deadline must force a trigger anyway
	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		for i := 0; i < 15; i++ {
			_ = os.WriteFile(filepath.Join(dir, "hot.txt"), []byte(fmt.Sprintf("%d", i)), 0o644)
			time.Sleep(50 * time.Millisecond)
		}
	}()

	expectTrigger(t, w, 1200*time.Millisecond, "deadline should force a trigger during a sustained stream")
	<-streamDone
}

func TestWatcher_SkipsExcludedPaths(t *testing.T) {
	root := t.TempDir()
	workDir := filepath.Join(root, "wix")
	require.NoError(t, os.MkdirAll(workDir, 0o755))

	w, err := New(logging.NewNop(), 100*time.Millisecond, 2*time.Second)
	require.NoError(t, err)
	defer w.Close()

	w.Skip(workDir)
	require.NoError(t, w.Add(root))

	stop := startWatcher(t, w)
	defer stop()

	// Our own intermediates never retrigger builds
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "Components.wxs"), []byte("<Wix/>"), 0o644))
	expectNoTrigger(t, w, 400*time.Millisecond, "work directory changes must not trigger builds")

	// Real source changes still do
	require.NoError(t, os.WriteFile(filepath.Join(root, "pygpt.exe"), []byte("bin"), 0o644))
	expectTrigger(t, w, 3*time.Second, "source changes should still trigger")
}

func TestWatcher_WatchesCreatedDirs(t *testing.T) {
	root := t.TempDir()

	w, err := New(logging.NewNop(), 100*time.Millisecond, 2*time.Second)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Add(root))

	stop := startWatcher(t, w)
	defer stop()

	newDir := filepath.Join(root, "plugins")
	require.NoError(t, os.Mkdir(newDir, 0o755))
	expectTrigger(t, w, 3*time.Second, "directory creation should trigger")

	// The new directory joined the watch set
	require.NoError(t, os.WriteFile(filepath.Join(newDir, "inner.dll"), []byte("lib"), 0o644))
	expectTrigger(t, w, 3*time.Second, "changes inside a created directory should trigger")
}

func TestWatcher_AddFile(t *testing.T) {
	dir := t.TempDir()
	wxs := filepath.Join(dir, "product.wxs")
	require.NoError(t, os.WriteFile(wxs, []byte("<Wix/>"), 0o644))

	w, err := New(logging.NewNop(), 100*time.Millisecond, 2*time.Second)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.AddFile(wxs))

	stop := startWatcher(t, w)
	defer stop()

	require.NoError(t, os.WriteFile(wxs, []byte("<Wix><Product/></Wix>"), 0o644))
	expectTrigger(t, w, 3*time.Second, "authoring file edits should trigger")
}

func TestWatcher_AddMissingRoot(t *testing.T) {
	w, err := New(logging.NewNop(), 100*time.Millisecond, time.Second)
	require.NoError(t, err)
	defer w.Close()

	err = w.Add(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	w, err := New(logging.NewNop(), 0, 0)
	require.NoError(t, err)
	defer w.Close()

	require.Equal(t, DefaultQuietWindow, w.quiet)
	require.Equal(t, DefaultMaxDelay, w.max)
}
