package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
)

// EvalOptions holds options for the eval command.
type EvalOptions struct {
	Module string   // Module whose fields the expression reads
	Set    []string // name=value assignments
}

// evalOutput is the JSON form of an evaluation.
type evalOutput struct {
	Expression string       `json:"expression"`
	Module     string       `json:"module,omitempty"`
	Value      *float64     `json:"value,omitempty"`
	Error      string       `json:"error,omitempty"`
	Kind       formula.Kind `json:"kind,omitempty"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand() *cobra.Command {
	opts := &EvalOptions{}
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression",
		Long: `Evaluate an arithmetic expression against a module's fields and the
material catalog.

Fields take their values from --set or from their defaults. Bare material
names evaluate to their price; material.property and field.property read
catalog properties.`,
		Example: `  # Plain arithmetic
  leapcalc eval "round(10 / 3, 2)"

  # Against a module
  leapcalc eval "width * height * board.price" --module wall \
    --set width=4 --set height=2.5 --set board=mat_board`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Module, "module", "m", "", "Module whose fields the expression reads")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "Assign a value (name=value), repeatable")

	return cmd
}

func runEval(cmd *cobra.Command, expr string, opts *EvalOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	values, err := parseAssignments(opts.Set)
	if err != nil {
		return err
	}
	if opts.Module != "" {
		if _, err := cmdCtx.Engine.Module(opts.Module); err != nil {
			return err
		}
	}

	v, evalErr := cmdCtx.Engine.Evaluate(expr, opts.Module, values)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		out := evalOutput{Expression: expr, Module: opts.Module}
		if evalErr != nil {
			out.Error = evalErr.Error()
			out.Kind = formula.KindOf(evalErr)
		} else {
			out.Value = &v
		}
		if err := r.JSON(out); err != nil {
			return err
		}
	case output.ModeMarkdown:
		r.Println(output.FormatCodeBlock("", expr))
		if evalErr == nil {
			r.Println(output.FormatKeyValue("Value", output.FormatNumber(v)))
		}
	default:
		if evalErr == nil {
			r.Println(r.Styles().Value.Render(output.FormatNumber(v)))
		}
	}

	if evalErr != nil {
		return fmt.Errorf("%s (%s)", evalErr.Error(), formula.KindOf(evalErr))
	}
	return nil
}
