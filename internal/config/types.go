// Package config provides shared configuration types for LeapCalc.
// This package is decoupled from CLI concerns and can be used by the preview
// server and other tools that need workspace-level settings.
package config

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/lint"
)

// ServerConfig holds configuration for the preview server.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Watch           bool          `koanf:"watch"`
	MaxConnections  int           `koanf:"max_connections"`
	SessionSecret   string        `koanf:"session_secret"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// EngineConfig holds configuration for quote evaluation.
type EngineConfig struct {
	// Concurrency bounds how many quote lines are evaluated at once.
	Concurrency int `koanf:"concurrency"`
}

// LintConfig holds validator rule configuration.
type LintConfig struct {
	// Disabled contains rule IDs to disable
	Disabled []string `koanf:"disabled"`

	// Severity maps rule ID to severity override (error, warning, info)
	Severity map[string]string `koanf:"severity"`
}

// ToLintConfig converts the file-level settings into a validator config.
func (c *LintConfig) ToLintConfig() (*lint.Config, error) {
	cfg := lint.NewConfig()
	if c == nil {
		return cfg, nil
	}
	for _, id := range c.Disabled {
		if _, ok := lint.GetByID(id); !ok {
			return nil, fmt.Errorf("unknown lint rule %q", id)
		}
		cfg.Disable(id)
	}
	for id, name := range c.Severity {
		if _, ok := lint.GetByID(id); !ok {
			return nil, fmt.Errorf("unknown lint rule %q", id)
		}
		sev, ok := core.ParseSeverity(name)
		if !ok {
			return nil, fmt.Errorf("invalid severity %q for rule %s", name, id)
		}
		cfg.SetSeverity(id, sev)
	}
	return cfg, nil
}
