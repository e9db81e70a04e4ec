package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeWritesToConfiguredDir(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Dir = dir
	InitializeWithConfig(false, cfg)
	defer Close()

	InfoLog.Printf("hello from the gauge")

	data, err := os.ReadFile(filepath.Join(dir, "sagitta.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "INFO: ")
	assert.Contains(t, string(data), "hello from the gauge")
}

func TestInitializeServePrefix(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Dir = dir
	InitializeWithConfig(true, cfg)
	defer Close()

	WarningLog.Printf("serving")

	data, err := os.ReadFile(filepath.Join(dir, "sagitta.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[SERVE] WARNING: ")
}

func TestEveryThrottles(t *testing.T) {
	e := NewEvery(time.Hour)
	assert.True(t, e.ShouldLog(), "first call always logs")
	assert.False(t, e.ShouldLog())
	assert.False(t, e.ShouldLog())
}

func TestEveryAllowsAfterTimeout(t *testing.T) {
	e := NewEvery(10 * time.Millisecond)
	require.True(t, e.ShouldLog())
	require.Eventually(t, e.ShouldLog, 2*time.Second, 5*time.Millisecond)
}
