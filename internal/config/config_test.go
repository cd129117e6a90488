package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8787", cfg.HTTPListenAddr)
	assert.Equal(t, 500*time.Millisecond, cfg.SwitchPollInterval)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	cfg := Default()
	cfg.DefaultWorkspace = "Home Office"
	cfg.MonitorAliases = map[string]string{"ABCD:1234:0": "Left monitor"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Home Office", loaded.DefaultWorkspace)
	assert.Equal(t, "Left monitor", loaded.MonitorAliases["ABCD:1234:0"])
}

func TestEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	t.Setenv("WINDOWANCHOR_HTTP_LISTEN_ADDR", "0.0.0.0:9999")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.HTTPListenAddr)
}
