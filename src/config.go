package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Optional configuration file for the pieces around the
 *		engine core: device and parameter-root overrides, the
 *		sidecar transport, the stats log, the CV gate mirror.
 *
 *		The engine itself needs none of this; the borzoi-sine
 *		example loads it so a board definition can live in one
 *		file instead of a pile of flags.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type SidecarConfig struct {
	// "socket" or "serial".  Empty disables the sidecar.
	Transport string `yaml:"transport"`
	Socket    string `yaml:"socket"`
	Device    string `yaml:"device"`
	Baud      int    `yaml:"baud"`
}

type GateMirrorConfig struct {
	Chip  string `yaml:"chip"`
	Lines []int  `yaml:"lines"`
}

type Config struct {
	DevicePath string `yaml:"device_path"`
	ParamRoot  string `yaml:"param_root"`
	Frames     int    `yaml:"frames"`

	StatsDir string `yaml:"stats_dir"`

	Sidecar    SidecarConfig    `yaml:"sidecar"`
	GateMirror GateMirrorConfig `yaml:"gate_mirror"`
}

func LoadConfig(path string) (*Config, error) {
	var data, readErr = os.ReadFile(path)
	if readErr != nil {
		return nil, readErr
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("bad config %s: %w", path, err)
	}

	if cfg.Sidecar.Transport != "" &&
		cfg.Sidecar.Transport != "socket" && cfg.Sidecar.Transport != "serial" {
		return nil, fmt.Errorf("bad config %s: unknown sidecar transport %q", path, cfg.Sidecar.Transport)
	}

	return &cfg, nil
}

// Apply pushes the engine-relevant overrides onto an engine that has not
// been opened yet.
func (c *Config) Apply(e *Engine) {
	if c.DevicePath != "" {
		e.device_path = c.DevicePath
	}
	if c.ParamRoot != "" {
		e.params = new_param_reader(c.ParamRoot)
	}
}

// Transport builds the configured sidecar transport, nil if disabled.
func (c *Config) Transport() sidecar_transport {
	switch c.Sidecar.Transport {
	case "socket":
		return NewSocketTransport(c.Sidecar.Socket)
	case "serial":
		return NewSerialTransport(c.Sidecar.Device, c.Sidecar.Baud)
	}
	return nil
}
