package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
)

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	var module string
	cmd := &cobra.Command{
		Use:   "analyze <expression>",
		Short: "Show the names an expression refers to",
		Long: `List the fields, materials, properties and functions an expression uses
without evaluating it. Names that refer to nothing are listed as unknown.`,
		Example: `  leapcalc analyze "ceil(width * height / board.width)" --module wall`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], module)
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "Module whose fields the expression reads")
	return cmd
}

func runAnalyze(cmd *cobra.Command, expr, module string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	an, err := cmdCtx.Engine.Analyze(expr, module)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(an)
	}

	r.Header(1, "Detected variables")
	rows := [][]string{
		{"Variables", joinOrNone(an.Variables)},
		{"Unknown", joinOrNone(an.UnknownVariables)},
		{"Field properties", joinOrNone(refStrings(an.FieldPropertyRefs))},
		{"Material properties", joinOrNone(refStrings(an.MaterialPropertyRefs))},
		{"Functions", joinOrNone(an.MathFunctions)},
	}
	r.Table([]string{"Kind", "Names"}, rows)
	if len(an.UnknownVariables) > 0 {
		r.Warning("unknown names: " + strings.Join(an.UnknownVariables, ", "))
	}
	return nil
}

func refStrings(refs []formula.PropertyRef) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.String()
	}
	return out
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
