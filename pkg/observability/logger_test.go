package observability

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBuildsUsableLogger(t *testing.T) {
	log := New(DefaultConfig())
	require.NotNil(t, log)
	log.Info("hello")
}

func TestNewFallsBackOnBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "shouting"
	log := New(cfg)
	require.NotNil(t, log)
	require.False(t, log.Core().Enabled(-1), "debug must stay off at the info fallback")
}

func TestNewWithFileSink(t *testing.T) {
	cfg := DefaultConfig()
	cfg.File = filepath.Join(t.TempDir(), "defog.log")
	log := New(cfg)
	require.NotNil(t, log)
	log.Info("to file")
	// Stderr sync can fail on some platforms; only the call matters.
	_ = log.Sync()
}

func TestJSONFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "json"
	log := New(cfg)
	require.NotNil(t, log)
}
