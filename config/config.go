// Package config persists the gauge's settings and runtime state as JSON
// files under ~/.sagitta. Settings are read at startup (and hot-reloaded by
// the gauge loop when the file changes); state survives restarts and is
// guarded with a file lock so an interactive process and a console server
// don't trample each other.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const ConfigFileName = "config.json"

// Config holds the user-tunable settings of the gauge.
type Config struct {
	// ListenAddr is the TCP console address used by `sagitta serve`.
	ListenAddr string `json:"listen_addr"`
	// PollIntervalMS is the idle sleep between host loop passes.
	PollIntervalMS int `json:"poll_interval_ms"`
	// MeasureIntervalMS is the sampling period while logging mode is on.
	MeasureIntervalMS int `json:"measure_interval_ms"`
	// WatchdogTimeoutS is the watchdog expiry in seconds.
	WatchdogTimeoutS float64 `json:"watchdog_timeout_s"`
	// MaxLineLen is the command buffer capacity in characters.
	MaxLineLen int `json:"max_line_len"`
	// HistoryDepth is the number of command lines retained for recall.
	HistoryDepth int `json:"history_depth"`
	// EchoOn starts the console with input echo enabled.
	EchoOn bool `json:"echo_on"`
	// CaseInsensitive makes command matching ignore letter case.
	CaseInsensitive bool `json:"case_insensitive"`
	// DataDir overrides where the sample store and state live.
	DataDir string `json:"data_dir"`
}

// DefaultConfig mirrors the firmware defaults: an 80 character command
// buffer, five lines of history, 0.33 s sampling and a 10 s watchdog.
func DefaultConfig() Config {
	return Config{
		ListenAddr:        "localhost:2323",
		PollIntervalMS:    5,
		MeasureIntervalMS: 330,
		WatchdogTimeoutS:  10.0,
		MaxLineLen:        80,
		HistoryDepth:      5,
		EchoOn:            true,
		CaseInsensitive:   true,
	}
}

// Dir returns the path to the application's configuration directory.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".sagitta"), nil
}

// ConfigPath returns the location of the config file inside dir, falling
// back to the default directory when dir is empty.
func ConfigPath(dir string) (string, error) {
	if dir == "" {
		var err error
		dir, err = Dir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// Load reads the config file from dir, writing the defaults there first if
// no file exists yet.
func Load(dir string) (Config, error) {
	path, err := ConfigPath(dir)
	if err != nil {
		return DefaultConfig(), err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if saveErr := Save(dir, cfg); saveErr != nil {
			return cfg, fmt.Errorf("failed to write default config: %w", saveErr)
		}
		return cfg, nil
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to dir, creating the directory when needed.
func Save(dir string, cfg Config) error {
	path, err := ConfigPath(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
