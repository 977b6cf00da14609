package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcalc/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port  int
	Watch bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP preview API",
		Long: `Start a local HTTP server exposing expression evaluation, validation,
quote totals and link checks as JSON endpoints.

With --watch the workspace file is reloaded when it changes and /events
streams the selected quote's totals to connected browsers.`,
		Example: `  # Default port from config (8766)
  leapcalc serve

  # Custom port, reload on change
  leapcalc serve --port 3000 --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default from config)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Reload the workspace when it changes")
	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx, cleanup, err := NewCommandContextWithState(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	srvCfg := cmdCtx.Cfg.Server
	if cmd.Flags().Changed("port") {
		srvCfg.Port = opts.Port
	}
	if cmd.Flags().Changed("watch") {
		srvCfg.Watch = opts.Watch
	}

	srv := server.New(server.Config{
		Engine:          cmdCtx.Engine,
		Port:            srvCfg.Port,
		Watch:           srvCfg.Watch,
		MaxConnections:  srvCfg.MaxConnections,
		SessionSecret:   srvCfg.SessionSecret,
		ShutdownTimeout: srvCfg.ShutdownTimeout,
		Logger:          cmdCtx.Logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		addr, err := srv.Addr(ctx)
		if err != nil {
			return
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", cmdCtx.Cfg.Workspace, addr)
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")
	}()

	return srv.Serve(ctx)
}

