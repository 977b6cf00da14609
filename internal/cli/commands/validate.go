package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/internal/engine"
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/lint"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Expr   string   // Single expression to check instead of modules
	Module string   // Module for --expr
	Known  []string // Extra variable names accepted with --expr
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}
	cmd := &cobra.Command{
		Use:   "validate [module...]",
		Short: "Validate module formulas and computed outputs",
		Long: `Statically check module formulas and computed outputs without evaluating
them: syntax, unknown names, material properties and unit compatibility.

Without arguments every module is checked and quotes are scanned for broken
links. With --expr a single expression is checked and every finding is listed.
The command fails when anything is invalid.`,
		Example: `  # Whole workspace
  leapcalc validate

  # Selected modules
  leapcalc validate wall trim

  # One expression
  leapcalc validate --expr "width * board.depth" --module wall`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Expr != "" {
				return runValidateExpr(cmd, opts)
			}
			return runValidate(cmd, args)
		},
	}
	cmd.Flags().StringVar(&opts.Expr, "expr", "", "Validate this expression")
	cmd.Flags().StringVarP(&opts.Module, "module", "m", "", "Module for --expr")
	cmd.Flags().StringSliceVar(&opts.Known, "var", nil, "Extra variable names accepted with --expr")
	return cmd
}

func runValidate(cmd *cobra.Command, ids []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	report := &engine.Report{}
	if len(ids) == 0 {
		report, err = eng.ValidateWorkspace()
	} else {
		report.Modules, err = eng.ValidateModules(ids...)
	}
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(report); err != nil {
			return err
		}
	} else {
		renderReport(r, report)
	}

	if !report.OK() {
		return errors.New("validation failed")
	}
	return nil
}

func renderReport(r *output.Renderer, report *engine.Report) {
	r.Header(1, "Modules")
	for _, m := range report.Modules {
		switch {
		case m.OK():
			r.StatusLine(m.ModuleID, "success", "")
		case !m.Formula.Valid:
			r.StatusLine(m.ModuleID, "error", describeResult("formula", m.Formula))
		default:
			r.StatusLine(m.ModuleID, "error", describeResult("outputs", m.Outputs))
		}
	}

	if len(report.Quotes) == 0 {
		return
	}
	r.Println()
	r.Header(2, "Broken links")
	for _, q := range report.Quotes {
		for _, l := range q.BrokenLinks {
			r.StatusLine(q.QuoteID+": "+l.Source.String(), "warning", "→ "+l.Target.String())
		}
	}
}

func describeResult(what string, res lint.Result) string {
	return fmt.Sprintf("%s: %s [%s]", what, res.Error, res.RuleID)
}

func runValidateExpr(cmd *cobra.Command, opts *ValidateOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	diags, err := cmdCtx.Engine.Diagnostics(opts.Expr, opts.Module, opts.Known...)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if diags == nil {
			diags = []lint.Diagnostic{}
		}
		if err := r.JSON(diags); err != nil {
			return err
		}
	} else if len(diags) == 0 {
		r.Success("valid")
	} else {
		rows := make([][]string, 0, len(diags))
		for _, d := range diags {
			rows = append(rows, []string{d.RuleID, d.Severity.String(), string(d.Kind()), d.Message})
		}
		r.Table([]string{"Rule", "Severity", "Kind", "Message"}, rows)
	}

	for _, d := range diags {
		if d.Severity == core.SeverityError {
			return fmt.Errorf("expression is invalid: %s", d.Message)
		}
	}
	return nil
}
