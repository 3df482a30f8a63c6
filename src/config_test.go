package borzoi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write_config(t *testing.T, content string) string {
	t.Helper()
	var path = filepath.Join(t.TempDir(), "borzoi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	var path = write_config(t, `
device_path: /dev/rtdm/audio_test
param_root: /tmp/params
frames: 128
stats_dir: /var/log/borzoi
sidecar:
  transport: socket
  socket: /run/supervisor.sock
gate_mirror:
  chip: gpiochip0
  lines: [4, 5, 6]
`)

	var cfg, err = LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/rtdm/audio_test", cfg.DevicePath)
	assert.Equal(t, "/tmp/params", cfg.ParamRoot)
	assert.Equal(t, 128, cfg.Frames)
	assert.Equal(t, "/var/log/borzoi", cfg.StatsDir)
	assert.Equal(t, "socket", cfg.Sidecar.Transport)
	assert.Equal(t, []int{4, 5, 6}, cfg.GateMirror.Lines)

	require.NotNil(t, cfg.Transport())

	var e = new_engine_with(&fake_driver{}, "")
	cfg.Apply(e)
	assert.Equal(t, "/dev/rtdm/audio_test", e.device_path)
	assert.Equal(t, "/tmp/params", e.params.root)
}

func TestLoadConfigSerialTransport(t *testing.T) {
	var path = write_config(t, `
sidecar:
  transport: serial
  device: /dev/ttyS1
  baud: 115200
`)

	var cfg, err = LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Transport())
}

func TestLoadConfigNoSidecar(t *testing.T) {
	var cfg, err = LoadConfig(write_config(t, "frames: 64\n"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Transport())
}

func TestLoadConfigBadTransport(t *testing.T) {
	var _, err = LoadConfig(write_config(t, "sidecar:\n  transport: carrier-pigeon\n"))
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	var _, err = LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigBadYaml(t *testing.T) {
	var _, err = LoadConfig(write_config(t, "frames: [64, 128\n"))
	assert.Error(t, err)
}
