package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DWS7612_CONFIG_DIR", dir)
	return dir
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	dir := withConfigDir(t)

	require.NoError(t, LoadLoggerConfig())

	// A default file is written for the operator to edit.
	_, err := os.Stat(filepath.Join(dir, "logger.toml"))
	assert.NoError(t, err)

	cfg := ActiveLoggerConfig
	require.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyUSB0", cfg.SerialDevice)
	assert.Equal(t, 60, cfg.CycleSeconds)
	assert.True(t, cfg.PersistenceEnabled)
	require.Len(t, cfg.Registers, 2)
	assert.Equal(t, "1-0:1.8.0", cfg.Registers[0].Obis)
	assert.Equal(t, int64(2), cfg.Registers[0].EntityID)
	assert.Equal(t, "1-0:2.8.0", cfg.Registers[1].Obis)
	assert.Equal(t, int64(3), cfg.Registers[1].EntityID)
}

func TestLoadExistingConfig(t *testing.T) {
	dir := withConfigDir(t)

	content := `
serial_device = "/dev/ttyUSB1"
cycle_seconds = 30
read_timeout_seconds = 5
persistence_enabled = false
api_listen = "0.0.0.0:9039"

[[registers]]
obis = "1-0:1.8.0"
entity_id = 12
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logger.toml"), []byte(content), 0644))

	require.NoError(t, LoadLoggerConfig())
	cfg := ActiveLoggerConfig
	assert.Equal(t, "/dev/ttyUSB1", cfg.SerialDevice)
	assert.Equal(t, 30, cfg.CycleSeconds)
	assert.Equal(t, 5, cfg.ReadTimeoutSeconds)
	assert.False(t, cfg.PersistenceEnabled)
	assert.Equal(t, "0.0.0.0:9039", cfg.ApiListen)
	require.Len(t, cfg.Registers, 1)
	assert.Equal(t, int64(12), cfg.Registers[0].EntityID)
}

func TestLoadClampsShortCycle(t *testing.T) {
	dir := withConfigDir(t)

	content := `
serial_device = "/dev/ttyUSB0"
cycle_seconds = 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logger.toml"), []byte(content), 0644))

	require.NoError(t, LoadLoggerConfig())
	assert.Equal(t, 60, ActiveLoggerConfig.CycleSeconds)
	assert.Equal(t, 3, ActiveLoggerConfig.ReadTimeoutSeconds)
}
