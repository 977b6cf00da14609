// Package config provides configuration management for the LeapCalc CLI.
//
// This package layers CLI-specific fields on top of the shared types in
// internal/config. The shared types are re-exported here via type aliases
// for convenience.
package config

import (
	intconfig "github.com/leapstack-labs/leapcalc/internal/config"
)

// ServerConfig is an alias for the shared preview server configuration.
type ServerConfig = intconfig.ServerConfig

// EngineConfig is an alias for the shared engine configuration.
type EngineConfig = intconfig.EngineConfig

// LintConfig is an alias for the shared validator configuration.
type LintConfig = intconfig.LintConfig

// Config holds all CLI configuration options.
type Config struct {
	Workspace    string       `koanf:"workspace"`
	StatePath    string       `koanf:"state_path"`
	OutputFormat string       `koanf:"output"`
	Verbose      bool         `koanf:"verbose"`
	LogLevel     string       `koanf:"log_level"`
	Server       ServerConfig `koanf:"server"`
	Engine       EngineConfig `koanf:"engine"`
	Lint         *LintConfig  `koanf:"lint"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultWorkspace = intconfig.DefaultWorkspace
	DefaultStateFile = intconfig.DefaultStateFile
	DefaultOutput    = intconfig.DefaultOutput
	DefaultLogLevel  = intconfig.DefaultLogLevel
)

// Default returns a Config populated with defaults and no file or
// environment overrides.
func Default() *Config {
	cfg := &Config{
		Workspace:    DefaultWorkspace,
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
	}
	cfg.Server.ApplyDefaults()
	cfg.Engine.ApplyDefaults()
	return cfg
}
