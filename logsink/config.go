package logsink

import "github.com/tailored-agentic-units/probe/observability"

const (
	defaultCapacity = 10000
	defaultLevel    = observability.LevelWarning
)

// Config holds log sink parameters.
type Config struct {
	// Capacity bounds the number of retained entries; the oldest are
	// evicted first. Zero keeps every entry.
	Capacity int `json:"capacity,omitempty" yaml:"capacity,omitempty"`

	// Level is the lowest event severity recorded by the sink's observer,
	// written by name ("info", "warning").
	Level observability.Level `json:"level,omitempty" yaml:"level,omitempty"`
}

// DefaultConfig returns the default log sink configuration.
func DefaultConfig() Config {
	return Config{Capacity: defaultCapacity, Level: defaultLevel}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Capacity > 0 {
		c.Capacity = source.Capacity
	}
	if source.Level != 0 {
		c.Level = source.Level
	}
}
