package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/internal/engine"
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
)

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	var (
		module string
		set    []string
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Edit an expression with a live result",
		Long: `Open a terminal editor that evaluates and validates the expression on
every keystroke, showing the result, the first validation error and the
names the expression uses. Press Esc or Ctrl+C to leave; Enter prints the
final expression.`,
		Example: `  leapcalc preview --module wall --set width=4 --set height=2.5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPreview(cmd, module, set)
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "Module whose fields the expression reads")
	cmd.Flags().StringArrayVar(&set, "set", nil, "Assign a value (name=value), repeatable")
	return cmd
}

func runPreview(cmd *cobra.Command, module string, set []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	values, err := parseAssignments(set)
	if err != nil {
		return err
	}
	if module != "" {
		if _, err := cmdCtx.Engine.Module(module); err != nil {
			return err
		}
	}

	m := newPreviewModel(cmdCtx.Engine, module, values)
	final, err := tea.NewProgram(m, tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout())).Run()
	if err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}
	if pm, ok := final.(previewModel); ok && pm.submitted {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), pm.input.Value())
	}
	return nil
}

var (
	previewTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	previewValue = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	previewError = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	previewMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// previewModel is the bubbletea model of the preview editor.
type previewModel struct {
	eng    *engine.Engine
	module string
	values map[string]core.Value
	input  textinput.Model

	// Derived from the current input.
	result     string
	evalErr    string
	lintErr    string
	variables  []string
	unknown    []string
	submitted  bool
	lastSource string
}

func newPreviewModel(eng *engine.Engine, module string, values map[string]core.Value) previewModel {
	ti := textinput.New()
	ti.Placeholder = "width * height * board.price"
	ti.Prompt = "ƒ "
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()

	m := previewModel{eng: eng, module: module, values: values, input: ti}
	m.recompute()
	return m
}

// Init implements tea.Model.
func (m previewModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.submitted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.recompute()
	return m, cmd
}

// recompute evaluates, validates and analyzes the input when it changed.
func (m *previewModel) recompute() {
	expr := strings.TrimSpace(m.input.Value())
	if expr == m.lastSource && m.lastSource != "" {
		return
	}
	m.lastSource = expr
	m.result, m.evalErr, m.lintErr = "", "", ""
	m.variables, m.unknown = nil, nil
	if expr == "" {
		return
	}

	if v, err := m.eng.Evaluate(expr, m.module, m.values); err != nil {
		m.evalErr = fmt.Sprintf("%s (%s)", err, formula.KindOf(err))
	} else {
		m.result = output.FormatNumber(v)
	}
	if res, err := m.eng.Validate(expr, m.module, sortedNames(m.values)...); err == nil && !res.Valid {
		m.lintErr = fmt.Sprintf("%s [%s]", res.Error, res.RuleID)
	}
	if an, err := m.eng.Analyze(expr, m.module); err == nil {
		m.variables = an.Variables
		m.unknown = an.UnknownVariables
	}
}

// View implements tea.Model.
func (m previewModel) View() string {
	var b strings.Builder
	title := "LeapCalc preview"
	if m.module != "" {
		title += " · " + m.module
	}
	b.WriteString(previewTitle.Render(title) + "\n\n")
	b.WriteString(m.input.View() + "\n\n")

	switch {
	case m.result != "":
		b.WriteString(previewValue.Render("= "+m.result) + "\n")
	case m.evalErr != "":
		b.WriteString(previewError.Render(m.evalErr) + "\n")
	default:
		b.WriteString(previewMuted.Render("type an expression") + "\n")
	}
	if m.lintErr != "" {
		b.WriteString(previewError.Render("validation: "+m.lintErr) + "\n")
	}
	if len(m.variables) > 0 {
		b.WriteString(previewMuted.Render("variables: "+strings.Join(m.variables, ", ")) + "\n")
	}
	if len(m.unknown) > 0 {
		b.WriteString(previewError.Render("unknown: "+strings.Join(m.unknown, ", ")) + "\n")
	}
	b.WriteString("\n" + previewMuted.Render("enter: print · esc: quit") + "\n")
	return b.String()
}
