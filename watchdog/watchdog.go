// Package watchdog is a software rendition of the hardware watchdog the
// gauge firmware relies on: the host loop must call Service before the
// configured timeout elapses or the process is reset. Because there is no
// reset-cause register to read after a restart, the fired watchdog records
// the cause through a Recorder the application supplies (the gauge persists
// it in its state file) and CausedReset reports it on the next start.
package watchdog

import (
	"os"
	"sync"
	"time"

	"sagitta/log"
)

// Recorder persists the reset cause across process restarts.
type Recorder interface {
	// MarkReset records that the watchdog fired.
	MarkReset()
	// WasReset reports whether the previous run ended by watchdog and
	// clears the marker.
	WasReset() bool
}

// ResetFunc performs the "reset". The default terminates the process the
// way a hardware watchdog would yank the core.
type ResetFunc func()

// Watchdog must be serviced periodically once configured. Servicing and
// stopping may only happen from the host loop; the expiry callback runs on
// a timer goroutine, so the internal state is mutex-guarded.
type Watchdog struct {
	mu       sync.Mutex
	timeout  time.Duration
	timer    *time.Timer
	recorder Recorder
	reset    ResetFunc
	wdreset  bool
}

// New captures the cause of the previous reset from the recorder. reset may
// be nil, in which case expiry exits the process.
func New(recorder Recorder, reset ResetFunc) *Watchdog {
	if reset == nil {
		reset = func() {
			log.ErrorLog.Printf("watchdog expired, resetting")
			os.Exit(1)
		}
	}
	w := &Watchdog{
		recorder: recorder,
		reset:    reset,
	}
	if recorder != nil {
		w.wdreset = recorder.WasReset()
	}
	return w
}

// Configure arms the watchdog with the given timeout and services it once.
func (w *Watchdog) Configure(timeout time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timeout = timeout
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(timeout, w.fire)
}

// Service resets the expiry deadline. Calling it before Configure is a
// no-op, matching hardware where feeding an unarmed watchdog does nothing.
func (w *Watchdog) Service() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Reset(w.timeout)
	}
}

// Stop disarms the watchdog. Hardware watchdogs cannot be stopped once
// configured; this exists so hosts can shut down cleanly and tests can
// clean up.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// CausedReset reports whether the previous run was ended by the watchdog.
func (w *Watchdog) CausedReset() bool {
	return w.wdreset
}

func (w *Watchdog) fire() {
	if w.recorder != nil {
		w.recorder.MarkReset()
	}
	w.reset()
}
