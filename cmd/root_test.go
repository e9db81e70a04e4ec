package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRootReturnsOnInterrupt pins the stdio console's signal path: an
// interrupt must unwind through RunE's defers (terminal restore, store and
// state close) instead of killing the process mid-raw-mode.
func TestRootReturnsOnInterrupt(t *testing.T) {
	configDir = t.TempDir()
	dataDir = t.TempDir()
	t.Cleanup(func() { configDir, dataDir = "", "" })

	// Feed the console from a pipe that stays open, so the run only ends
	// via the signal.
	r, w, err := os.Pipe()
	require.NoError(t, err)
	oldStdin := os.Stdin
	os.Stdin = r
	t.Cleanup(func() {
		os.Stdin = oldStdin
		_ = w.Close()
		_ = r.Close()
	})

	// Guard channel: absorbs the default interrupt action in case the
	// signal lands before RunE has installed its own notifier.
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, os.Interrupt)
	defer signal.Stop(guard)

	done := make(chan error, 1)
	go func() { done <- rootCmd.RunE(rootCmd, nil) }()

	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			return
		case <-tick.C:
			require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
		case <-deadline:
			t.Fatal("interrupt did not stop the console run")
		}
	}
}
