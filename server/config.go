package server

const (
	defaultAddr  = "localhost:8080"
	defaultTitle = "probe"
)

// Config holds HTTP server parameters.
type Config struct {
	Addr       string `json:"addr,omitempty" yaml:"addr,omitempty"`               // Listen address, host:port.
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`             // Dashboard page title.
	StaticRoot string `json:"static_root,omitempty" yaml:"static_root,omitempty"` // Directory served under /static/ instead of the embedded assets.
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:  defaultAddr,
		Title: defaultTitle,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.Title != "" {
		c.Title = source.Title
	}
	if source.StaticRoot != "" {
		c.StaticRoot = source.StaticRoot
	}
}
