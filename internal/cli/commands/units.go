package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/pkg/units"
)

type unitInfo struct {
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Category units.Category `json:"category"`
	Factor   float64        `json:"factor"`
	Alias    bool           `json:"alias,omitempty"`
}

// NewUnitsCommand creates the units command.
func NewUnitsCommand() *cobra.Command {
	var (
		category string
		aliases  bool
	)
	cmd := &cobra.Command{
		Use:   "units",
		Short: "List the unit registry",
		Long: `List every unit with its category and its factor to the category's base
unit. Units of the same category can be linked and compared.`,
		Example: `  leapcalc units
  leapcalc units --category area --aliases`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUnits(cmd, category, aliases)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only list units of this category")
	cmd.Flags().BoolVar(&aliases, "aliases", false, "Include alternative spellings")
	_ = cmd.RegisterFlagCompletionFunc("category", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(units.Categories))
		for i, c := range units.Categories {
			names[i] = string(c)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runUnits(cmd *cobra.Command, category string, aliases bool) error {
	r := NewCommandContextWithoutEngine(cmd).Renderer

	var list []unitInfo
	for _, u := range units.Units(aliases) {
		if category != "" && string(u.Category) != category {
			continue
		}
		list = append(list, unitInfo{Symbol: u.Symbol, Name: u.Name, Category: u.Category, Factor: u.Factor, Alias: u.Alias})
	}
	if category != "" && len(list) == 0 {
		return fmt.Errorf("unknown unit category: %s", category)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(list)
	}

	rows := make([][]string, 0, len(list))
	for _, u := range list {
		name := u.Name
		if u.Alias {
			name += " (alias)"
		}
		rows = append(rows, []string{u.Symbol, name, output.Title(string(u.Category)), strconv.FormatFloat(u.Factor, 'g', -1, 64)})
	}
	r.Header(1, "Units")
	r.Table([]string{"Symbol", "Name", "Category", "Factor"}, rows)
	return nil
}
