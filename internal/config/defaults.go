package config

import "time"

// Default configuration values.
const (
	DefaultWorkspace       = "workspace.yaml"
	DefaultStateFile       = ".leapcalc/state.db"
	DefaultOutput          = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel        = "warn"
	DefaultPort            = 8766
	DefaultMaxConnections  = 64
	DefaultShutdownTimeout = 5 * time.Second
	DefaultConcurrency     = 4
)

// ApplyDefaults applies default values to a ServerConfig.
func (c *ServerConfig) ApplyDefaults() {
	if c == nil {
		return
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// ApplyDefaults applies default values to an EngineConfig.
func (c *EngineConfig) ApplyDefaults() {
	if c == nil {
		return
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
}
