package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"sagitta/log"
)

const (
	StateFileName = "state.json"

	// lockTimeout bounds how long a process waits for another process to
	// release the state file.
	lockTimeout = 5 * time.Second
)

// State is the gauge's runtime state that persists between restarts: the
// active log name, the run mode, and whether the previous run was ended by
// the watchdog. Access across processes is coordinated with a lock file
// next to the JSON.
type State struct {
	// Filename is the active sample log name.
	Filename string `json:"filename"`
	// Mode records the last selected run mode (0 idle, 1 logging).
	Mode int `json:"mode"`
	// WatchdogFired marks that the watchdog ended the previous run.
	WatchdogFired bool `json:"watchdog_fired"`

	path string       `json:"-"`
	lock *flock.Flock `json:"-"`
}

// DefaultState mirrors the firmware's power-on defaults.
func DefaultState(path string) *State {
	return &State{
		Filename: "default.csv",
		path:     path,
		lock:     flock.New(path + ".lock"),
	}
}

// LoadState reads the state file from dir, returning defaults (and logging
// a warning) when the file is missing or unreadable.
func LoadState(dir string) *State {
	if dir == "" {
		var err error
		dir, err = Dir()
		if err != nil {
			log.ErrorLog.Printf("failed to resolve state directory: %v", err)
			return DefaultState(filepath.Join(os.TempDir(), StateFileName))
		}
	}
	path := filepath.Join(dir, StateFileName)

	state := DefaultState(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WarningLog.Printf("failed to read state file: %v", err)
		}
		return state
	}
	if err := json.Unmarshal(data, state); err != nil {
		log.WarningLog.Printf("failed to parse state file: %v", err)
		return DefaultState(path)
	}
	return state
}

// Save writes the state under the file lock.
func (s *State) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to lock state file: %w", err)
	}
	if !locked {
		return fmt.Errorf("timed out waiting for state file lock")
	}
	defer func() { _ = s.lock.Unlock() }()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return os.WriteFile(s.path, data, 0644)
}

// MarkReset records that the watchdog fired, persisting immediately so the
// marker survives the process being killed right after.
func (s *State) MarkReset() {
	s.WatchdogFired = true
	if err := s.Save(); err != nil {
		log.ErrorLog.Printf("failed to persist watchdog marker: %v", err)
	}
}

// WasReset reports and clears the watchdog marker from the previous run.
func (s *State) WasReset() bool {
	fired := s.WatchdogFired
	if fired {
		s.WatchdogFired = false
		if err := s.Save(); err != nil {
			log.ErrorLog.Printf("failed to clear watchdog marker: %v", err)
		}
	}
	return fired
}

// Close releases the lock file handle.
func (s *State) Close() error {
	if s.lock != nil {
		return s.lock.Unlock()
	}
	return nil
}
