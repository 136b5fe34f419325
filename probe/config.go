package probe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/probe/logsink"
	"github.com/tailored-agentic-units/probe/server"
)

const (
	defaultDutyCycle       = 100 * time.Millisecond
	defaultShutdownTimeout = 5 * time.Second
	defaultObserver        = "slog"
)

// SyncConfig holds defaults for the synchronizers created by AddDebugProbe.
type SyncConfig struct {
	DutyCycle Duration `json:"duty_cycle,omitempty" yaml:"duty_cycle,omitempty"`
}

// Merge applies non-zero values from source into c.
func (c *SyncConfig) Merge(source *SyncConfig) {
	if source.DutyCycle > 0 {
		c.DutyCycle = source.DutyCycle
	}
}

// Config holds initialization parameters for a Probe. Each section
// delegates to the matching package's Config.
type Config struct {
	Server          server.Config  `json:"server" yaml:"server"`
	Logs            logsink.Config `json:"logs" yaml:"logs"`
	Sync            SyncConfig     `json:"sync" yaml:"sync"`
	ShutdownTimeout Duration       `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
	Observer        string         `json:"observer,omitempty" yaml:"observer,omitempty"` // Name registered with observability.RegisterObserver.
}

// DefaultConfig returns a Config with defaults for every section.
func DefaultConfig() Config {
	return Config{
		Server:          server.DefaultConfig(),
		Logs:            logsink.DefaultConfig(),
		Sync:            SyncConfig{DutyCycle: Duration(defaultDutyCycle)},
		ShutdownTimeout: Duration(defaultShutdownTimeout),
		Observer:        defaultObserver,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	c.Server.Merge(&source.Server)
	c.Logs.Merge(&source.Logs)
	c.Sync.Merge(&source.Sync)

	if source.ShutdownTimeout > 0 {
		c.ShutdownTimeout = source.ShutdownTimeout
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a config file, merges it with defaults, and returns the
// resulting Config. Files ending in .yaml or .yml are parsed as YAML; any
// other file as JSON, where comments and trailing commas are allowed.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := parseConfig(filename, data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

func parseConfig(filename string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		std, err := hujson.Standardize(data)
		if err != nil {
			return err
		}
		return json.Unmarshal(std, cfg)
	}
}
