package commands

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcalc/internal/cli/config"
	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/internal/engine"
	"github.com/leapstack-labs/leapcalc/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an engine over the
// configured workspace. Runs are not recorded.
// The returned cleanup function must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	return newCommandContext(cmd, false)
}

// NewCommandContextWithState is NewCommandContext with the run history
// store opened, so quote evaluations are recorded.
func NewCommandContextWithState(cmd *cobra.Command) (*CommandContext, func(), error) {
	return newCommandContext(cmd, true)
}

func newCommandContext(cmd *cobra.Command, withState bool) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	if err := cmdCtx.Cfg.ValidateWorkspace(); err != nil {
		return nil, nil, err
	}
	eng, err := createEngine(cmdCtx.Cfg, cmdCtx.Logger, withState)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Engine = eng

	cleanup := func() {
		_ = eng.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need a workspace.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig(cmd)
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the config from the command context, the last loaded
// config, or the defaults.
func getConfig(cmd *cobra.Command) *config.Config {
	if cfg := config.FromContext(cmd.Context()); cfg != nil {
		return cfg
	}
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

func createEngine(cfg *config.Config, logger *slog.Logger, withState bool) (*engine.Engine, error) {
	lintCfg, err := cfg.Lint.ToLintConfig()
	if err != nil {
		return nil, err
	}

	engineCfg := engine.Config{
		WorkspacePath: cfg.Workspace,
		Concurrency:   cfg.Engine.Concurrency,
		Lint:          lintCfg,
		Logger:        logger,
	}
	if withState {
		engineCfg.StatePath = cfg.StatePath
	}

	return engine.New(engineCfg)
}

// parseAssignments parses name=value pairs from --set flags. Values are
// typed the same way as workspace documents: numbers, booleans or text.
func parseAssignments(pairs []string) (map[string]core.Value, error) {
	values := make(map[string]core.Value, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || !core.ValidVariableName(name) {
			return nil, fmt.Errorf("invalid assignment %q: expected name=value", pair)
		}
		values[name] = core.ParseValue(strings.TrimSpace(raw))
	}
	return values, nil
}

// sortedNames returns the keys of values in order.
func sortedNames(values map[string]core.Value) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
