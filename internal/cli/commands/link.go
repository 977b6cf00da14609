package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/pkg/links"
)

// linkInfo is the JSON form of a link.
type linkInfo struct {
	Source string `json:"source"`
	Target string `json:"target"`
	State  string `json:"state"`
}

// NewLinkCommand creates the link command group.
func NewLinkCommand() *cobra.Command {
	var quote string
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Check, add, remove and resolve field links",
		Long: `Field links make a field on one quote line read its value from a field on
another line. Endpoints are written instance.field.

A link is rejected when either side is missing, the field types or unit
categories are incompatible, or it would create a cycle.`,
		Example: `  leapcalc link check t1.length w1.width --quote q1
  leapcalc link add t1.length w1.width --quote q1
  leapcalc link resolve t1.length --quote q1
  leapcalc link remove t1.length --quote q1`,
	}
	cmd.PersistentFlags().StringVarP(&quote, "quote", "q", "", "Quote containing the instances")
	_ = cmd.MarkPersistentFlagRequired("quote")

	cmd.AddCommand(
		newLinkCheckCommand(&quote),
		newLinkAddCommand(&quote),
		newLinkRemoveCommand(&quote),
		newLinkResolveCommand(&quote),
		newLinkListCommand(&quote),
	)
	return cmd
}

func parseEndpoints(args []string) ([]links.Endpoint, error) {
	out := make([]links.Endpoint, len(args))
	for i, arg := range args {
		ep, err := links.ParseEndpoint(arg)
		if err != nil {
			return nil, err
		}
		out[i] = ep
	}
	return out, nil
}

func newLinkCheckCommand(quote *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check <source> <target>",
		Short: "Report whether a link may be created",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eps, err := parseEndpoints(args)
			if err != nil {
				return err
			}
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := cmdCtx.Engine.CanLink(*quote, eps[0], eps[1])
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				if err := r.JSON(res); err != nil {
					return err
				}
			} else if res.Valid {
				r.Success(args[0] + " → " + args[1] + " can be linked")
			}
			return res.Err()
		},
	}
}

func newLinkAddCommand(quote *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add <source> <target>",
		Short: "Link source to read from target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eps, err := parseEndpoints(args)
			if err != nil {
				return err
			}
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Engine.Link(cmd.Context(), *quote, eps[0], eps[1]); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("linked " + args[0] + " → " + args[1])
			return nil
		},
	}
}

func newLinkRemoveCommand(quote *string) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <source>",
		Aliases: []string{"rm"},
		Short:   "Remove the link on a field",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eps, err := parseEndpoints(args)
			if err != nil {
				return err
			}
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Engine.Unlink(cmd.Context(), *quote, eps[0]); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("unlinked " + args[0])
			return nil
		},
	}
}

func newLinkResolveCommand(quote *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <field>",
		Short: "Show the effective value of a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eps, err := parseEndpoints(args)
			if err != nil {
				return err
			}
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			v, from, err := cmdCtx.Engine.ResolveLink(*quote, eps[0])
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer
			switch r.EffectiveMode() {
			case output.ModeJSON:
				return r.JSON(map[string]any{"field": args[0], "value": v, "from": from.String()})
			case output.ModeMarkdown:
				r.Println(output.FormatKeyValue("Value", v.String()))
				r.Println(output.FormatKeyValue("From", from.String()))
			default:
				r.Printf("%s %s\n", r.Styles().Value.Render(v.String()), r.Styles().Muted.Render("from "+from.String()))
			}
			return nil
		},
	}
}

func newLinkListCommand(quote *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the links of a quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ls, err := cmdCtx.Engine.Links(*quote)
			if err != nil {
				return err
			}
			infos := make([]linkInfo, 0, len(ls))
			broken := 0
			for _, l := range ls {
				infos = append(infos, linkInfo{Source: l.Source.String(), Target: l.Target.String(), State: l.State.String()})
				if l.State == links.Broken {
					broken++
				}
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				if err := r.JSON(infos); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(infos))
				for _, l := range infos {
					rows = append(rows, []string{l.Source, l.Target, l.State})
				}
				r.Table([]string{"Source", "Target", "State"}, rows)
			}
			if broken > 0 {
				return errors.New("quote has broken links")
			}
			return nil
		},
	}
}
