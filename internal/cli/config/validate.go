package config

import (
	"fmt"
	"log/slog"
	"os"
)

var validOutputs = map[string]bool{"auto": true, "text": true, "markdown": true, "json": true}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Workspace == "" {
		return fmt.Errorf("workspace is required")
	}
	if c.OutputFormat != "" && !validOutputs[c.OutputFormat] {
		return fmt.Errorf("invalid output format %q (expected auto, text, markdown or json)", c.OutputFormat)
	}
	if c.LogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return fmt.Errorf("invalid log_level %q", c.LogLevel)
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Engine.Concurrency < 0 {
		return fmt.Errorf("engine.concurrency must not be negative")
	}
	if _, err := c.Lint.ToLintConfig(); err != nil {
		return fmt.Errorf("invalid lint configuration: %w", err)
	}
	return nil
}

// ValidateWorkspace checks that the workspace file exists.
func (c *Config) ValidateWorkspace() error {
	if _, err := os.Stat(c.Workspace); os.IsNotExist(err) {
		return fmt.Errorf("workspace file does not exist: %s\nHint: Create it or use --workspace to specify a different path", c.Workspace)
	}
	return nil
}
