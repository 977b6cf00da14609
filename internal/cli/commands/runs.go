package commands

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/pkg/core"
)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	Quote string
	Limit int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded quote runs",
		Long: `List recorded quote evaluations, newest first. With a run ID the line
results of that run are shown.`,
		Example: `  leapcalc runs
  leapcalc runs --quote q1 --limit 5
  leapcalc runs 6f1c...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runShowRun(cmd, args[0])
			}
			return runListRuns(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Quote, "quote", "q", "", "Only runs of this quote")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs")
	return cmd
}

func runListRuns(cmd *cobra.Command, opts *RunsOptions) error {
	cmdCtx, cleanup, err := NewCommandContextWithState(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := cmdCtx.Engine.Store().ListRuns(cmd.Context(), opts.Quote, opts.Limit)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*core.QuoteRun{}
		}
		return r.JSON(runs)
	}
	if len(runs) == 0 {
		r.Muted("no runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.QuoteID,
			string(run.Status),
			output.FormatAmount(run.Total),
			run.StartedAt.Local().Format(time.DateTime),
			runDuration(run),
		})
	}
	r.Header(1, "Runs")
	r.Table([]string{"ID", "Quote", "Status", "Total", "Started", "Duration"}, rows)
	return nil
}

func runDuration(run *core.QuoteRun) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}

func runShowRun(cmd *cobra.Command, id string) error {
	cmdCtx, cleanup, err := NewCommandContextWithState(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	store := cmdCtx.Engine.Store()
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	lines, err := store.GetLineResults(cmd.Context(), id)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			*core.QuoteRun
			Lines []*core.LineResult `json:"lines"`
		}{run, lines})
	}

	r.Header(1, "Run "+run.ID)
	r.Println(output.FormatKeyValue("Quote", run.QuoteID))
	r.Println(output.FormatKeyValue("Status", string(run.Status)))
	r.Println(output.FormatKeyValue("Total", output.FormatAmount(run.Total)))
	r.Println()

	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{l.InstanceID, l.ModuleID, output.FormatAmount(l.Value), strings.Join(sortedOutputs(l.Outputs), " "), l.Error})
	}
	r.Table([]string{"Line", "Module", "Value", "Outputs", "Error"}, rows)
	return nil
}
