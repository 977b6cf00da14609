package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/internal/engine"
	"github.com/leapstack-labs/leapcalc/pkg/core"
)

// NewQuoteCommand creates the quote command.
func NewQuoteCommand() *cobra.Command {
	var noRecord bool
	cmd := &cobra.Command{
		Use:   "quote <id>",
		Short: "Evaluate a quote",
		Long: `Evaluate every line of a quote and print the line values, computed
outputs and total. Linked fields read their resolved values.

A failing line is reported with its error and contributes 0 to the total.
The evaluation is recorded in the run history unless --no-record is given.`,
		Example: `  leapcalc quote q1
  leapcalc quote q1 -o json --no-record`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return quoteIDs(cmd), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(cmd, args[0], noRecord)
		},
	}
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not record the run")
	return cmd
}

func quoteIDs(cmd *cobra.Command) []string {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return nil
	}
	defer cleanup()
	var ids []string
	for _, q := range cmdCtx.Engine.Workspace().Quotes {
		ids = append(ids, q.ID)
	}
	return ids
}

func runQuote(cmd *cobra.Command, id string, noRecord bool) error {
	open := NewCommandContextWithState
	if noRecord {
		open = NewCommandContext
	}
	cmdCtx, cleanup, err := open(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := cmdCtx.Engine.EvaluateQuote(cmd.Context(), id)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(res); err != nil {
			return err
		}
	} else {
		renderQuote(r, res)
	}

	if failed := res.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d lines failed", len(failed), len(res.Lines))
	}
	return nil
}

func renderQuote(r *output.Renderer, res *engine.QuoteResult) {
	title := "Quote " + res.QuoteID
	if res.Name != "" {
		title += ": " + res.Name
	}
	r.Header(1, title)

	rows := make([][]string, 0, len(res.Lines))
	for _, line := range res.Lines {
		value := output.FormatAmount(line.Value)
		if !line.OK() {
			value = "-"
		}
		rows = append(rows, []string{line.InstanceID, line.Label, value, formatOutputs(line), line.Error})
	}
	r.Table([]string{"Line", "Module", "Value", "Outputs", "Error"}, rows)

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Total", output.FormatAmount(res.Total)))
		r.Println(output.FormatKeyValue("Status", string(res.Status)))
		if res.RunID != "" {
			r.Println(output.FormatKeyValue("Run", res.RunID))
		}
		return
	}
	r.Printf("%s %s\n", r.Styles().Bold.Render("Total:"), r.Styles().Value.Render(output.FormatAmount(res.Total)))
	status := "success"
	switch res.Status {
	case core.RunStatusPartial:
		status = "warning"
	case core.RunStatusFailed:
		status = "error"
	}
	detail := ""
	if res.RunID != "" {
		detail = "run " + res.RunID
	}
	r.StatusLine(string(res.Status), status, detail)
}

// formatOutputs renders computed outputs as "name=value" pairs in
// declaration order, followed by failed outputs.
func formatOutputs(line engine.LineResult) string {
	failed := make(map[string]bool, len(line.Outputs.Errors))
	for _, e := range line.Outputs.Errors {
		failed[e.OutputID] = true
	}
	parts := make([]string, 0, len(line.Outputs.Values))
	for _, v := range line.Outputs.Values {
		if failed[v.ID] {
			parts = append(parts, v.VariableName+"=!")
			continue
		}
		parts = append(parts, v.VariableName+"="+output.FormatNumber(v.Value))
	}
	return strings.Join(parts, " ")
}

// sortedOutputs returns output values keyed by name, in name order.
func sortedOutputs(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + output.FormatNumber(m[name])
	}
	return parts
}
