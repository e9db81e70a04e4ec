// Package log provides the gauge's leveled file loggers. Log output goes to
// a rotating file under the data directory rather than the console, because
// the console is owned by the command processor.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	InfoLog    *log.Logger
	WarningLog *log.Logger
	ErrorLog   *log.Logger
)

// Config holds logging configuration.
type Config struct {
	Enabled  bool
	Dir      string
	MaxSize  int // megabytes per file
	MaxFiles int
	MaxAge   int // days
	Compress bool
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:  true,
		MaxSize:  10,
		MaxFiles: 5,
		MaxAge:   30,
		Compress: true,
	}
}

var logFilePath = filepath.Join(os.TempDir(), "sagitta.log")

var globalLogFile io.WriteCloser

func init() {
	// Default loggers so that log calls in tests don't panic before
	// Initialize runs.
	InfoLog = log.New(os.Stderr, "INFO: ", log.Ldate|log.Ltime)
	WarningLog = log.New(os.Stderr, "WARNING: ", log.Ldate|log.Ltime)
	ErrorLog = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime)
}

// dir resolves the directory log files are written to, creating it when
// needed. Falls back to the temp dir when the home dir is unavailable or
// logging is disabled.
func dir(cfg *Config) (string, error) {
	if cfg != nil && !cfg.Enabled {
		return os.TempDir(), nil
	}
	if cfg != nil && cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return os.TempDir(), fmt.Errorf("failed to create log directory: %w", err)
		}
		return cfg.Dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir(), fmt.Errorf("failed to get home directory: %w", err)
	}
	logDir := filepath.Join(homeDir, ".sagitta", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return os.TempDir(), fmt.Errorf("failed to create log directory: %w", err)
	}
	return logDir, nil
}

// Initialize should be called once at the beginning of the program to set
// up logging; defer Close after calling it. Pass serve=true when running as
// the TCP console server so log lines are distinguishable from the
// interactive process.
func Initialize(serve bool) {
	InitializeWithConfig(serve, DefaultConfig())
}

// InitializeWithConfig sets up logging with the provided configuration.
func InitializeWithConfig(serve bool, cfg *Config) {
	logDir, err := dir(cfg)
	if err != nil {
		fmt.Printf("Warning: using default log location: %v\n", err)
	}
	logFilePath = filepath.Join(logDir, "sagitta.log")

	writer := rotatingWriter(logFilePath, cfg)

	prefix := "%s"
	if serve {
		prefix = "[SERVE] %s"
	}
	InfoLog = log.New(writer, fmt.Sprintf(prefix, "INFO: "), log.Ldate|log.Ltime|log.Lshortfile)
	WarningLog = log.New(writer, fmt.Sprintf(prefix, "WARNING: "), log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLog = log.New(writer, fmt.Sprintf(prefix, "ERROR: "), log.Ldate|log.Ltime|log.Lshortfile)

	if closer, ok := writer.(io.WriteCloser); ok {
		globalLogFile = closer
	}
}

// rotatingWriter builds the log sink, rotating through lumberjack when a
// max size is configured.
func rotatingWriter(path string, cfg *Config) io.Writer {
	if cfg == nil || cfg.MaxSize <= 0 {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			panic(fmt.Sprintf("could not open log file: %s", err))
		}
		return f
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxFiles,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}

func Close() {
	if globalLogFile != nil {
		_ = globalLogFile.Close()
	}
}

// Every is used to log at most once every timeout duration.
type Every struct {
	timeout time.Duration
	timer   *time.Timer
}

func NewEvery(timeout time.Duration) *Every {
	return &Every{timeout: timeout}
}

// ShouldLog returns true if the timeout has passed since the last log.
func (e *Every) ShouldLog() bool {
	if e.timer == nil {
		e.timer = time.NewTimer(e.timeout)
		e.timer.Reset(e.timeout)
		return true
	}

	select {
	case <-e.timer.C:
		e.timer.Reset(e.timeout)
		return true
	default:
		return false
	}
}
