package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/internal/engine"
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
)

const replPrompt = "leapcalc> "

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var module string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Evaluate expressions interactively",
		Long: `Start an interactive session that evaluates each line as an expression.

Lines starting with a colon are session commands; type :help to list them.
Tab completes field, material and function names.`,
		Example: `  leapcalc repl --module wall`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, module)
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "Module whose fields expressions read")
	return cmd
}

func runREPL(cmd *cobra.Command, module string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	session := newREPLSession(cmdCtx.Engine, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if module != "" {
		if err := session.setModule(module); err != nil {
			return err
		}
	}

	historyDir := filepath.Dir(cmdCtx.Cfg.StatePath)
	if err := os.MkdirAll(historyDir, 0o750); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     filepath.Join(historyDir, "repl_history"),
		AutoComplete:    &nameCompleter{names: session.names},
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "LeapCalc REPL (workspace: %s)\n", cmdCtx.Cfg.Workspace)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type :help for commands, :quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if session.handle(line) {
			return nil
		}
	}
}

// replSession holds the state of an interactive session: the selected
// module and the assigned values.
type replSession struct {
	eng    *engine.Engine
	module string
	values map[string]core.Value
	out    io.Writer
	errOut io.Writer
}

func newREPLSession(eng *engine.Engine, out, errOut io.Writer) *replSession {
	return &replSession{
		eng:    eng,
		values: make(map[string]core.Value),
		out:    out,
		errOut: errOut,
	}
}

func (s *replSession) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *replSession) errorf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.errOut, "Error: "+format+"\n", a...)
}

func (s *replSession) setModule(id string) error {
	if id == "" {
		s.module = ""
		return nil
	}
	if _, err := s.eng.Module(id); err != nil {
		return err
	}
	s.module = id
	return nil
}

// names returns the completion candidates for the current module.
func (s *replSession) names() []string {
	return s.eng.KnownNames(s.module)
}

// handle processes one input line and reports whether the session ends.
func (s *replSession) handle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, ":") {
		s.evaluate(line)
		return false
	}

	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(command) {
	case ":quit", ":exit", ":q":
		return true
	case ":help":
		printREPLHelp(s.out)
	case ":module":
		if err := s.setModule(rest); err != nil {
			s.errorf("%v", err)
			return false
		}
		if s.module == "" {
			s.printf("module cleared\n")
		} else {
			s.printf("module %s\n", s.module)
		}
	case ":set":
		values, err := parseAssignments(strings.Fields(rest))
		if err != nil || len(values) == 0 {
			s.errorf("usage: :set name=value [name=value...]")
			return false
		}
		for name, v := range values {
			s.values[name] = v
		}
	case ":unset":
		for _, name := range strings.Fields(rest) {
			delete(s.values, name)
		}
	case ":vars":
		s.printVars()
	case ":analyze":
		s.analyze(rest)
	default:
		s.errorf("unknown command %s (type :help for commands)", command)
	}
	return false
}

func (s *replSession) evaluate(expr string) {
	v, err := s.eng.Evaluate(expr, s.module, s.values)
	if err != nil {
		s.errorf("%v (%s)", err, formula.KindOf(err))
		return
	}
	s.printf("= %s\n", output.FormatNumber(v))
}

func (s *replSession) analyze(expr string) {
	if expr == "" {
		s.errorf("usage: :analyze <expression>")
		return
	}
	an, err := s.eng.Analyze(expr, s.module)
	if err != nil {
		s.errorf("%v", err)
		return
	}
	s.printf("variables:  %s\n", joinOrNone(an.Variables))
	s.printf("unknown:    %s\n", joinOrNone(an.UnknownVariables))
	s.printf("properties: %s\n", joinOrNone(append(refStrings(an.FieldPropertyRefs), refStrings(an.MaterialPropertyRefs)...)))
	s.printf("functions:  %s\n", joinOrNone(an.MathFunctions))
}

func (s *replSession) printVars() {
	if s.module != "" {
		m, err := s.eng.Module(s.module)
		if err == nil {
			for _, f := range m.Fields {
				if _, set := s.values[f.VariableName]; set {
					continue
				}
				desc := string(f.Type)
				if f.UnitSymbol != "" {
					desc += " " + f.UnitSymbol
				}
				if !f.DefaultValue.IsNone() {
					s.printf("%s = %s (default, %s)\n", f.VariableName, f.DefaultValue, desc)
				} else {
					s.printf("%s unset (%s)\n", f.VariableName, desc)
				}
			}
		}
	}
	for _, name := range sortedNames(s.values) {
		s.printf("%s = %s\n", name, s.values[name])
	}
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  :help                   Show this help message
  :module [id]            Select a module, or clear it
  :set name=value ...     Assign values
  :unset name ...         Remove values
  :vars                   Show fields and assigned values
  :analyze <expression>   Show the names an expression uses
  :quit / :exit           Exit the REPL

Anything else is evaluated as an expression.
`
	_, _ = fmt.Fprintln(w, help)
}

// nameCompleter completes the identifier before the cursor.
type nameCompleter struct {
	names func() []string
}

// Do implements readline.AutoCompleter.
func (c *nameCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 && isIdentRune(line[start-1]) {
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}
	if start > 0 && line[start-1] == ':' && start == 1 {
		return completeCommands(prefix), len(prefix)
	}

	var out [][]rune
	for _, name := range c.names() {
		if strings.HasPrefix(name, prefix) && name != prefix {
			out = append(out, []rune(name[len(prefix):]))
		}
	}
	return out, len(prefix)
}

var replCommands = []string{"help", "module", "set", "unset", "vars", "analyze", "quit", "exit"}

func completeCommands(prefix string) [][]rune {
	var out [][]rune
	for _, c := range replCommands {
		if strings.HasPrefix(c, prefix) && c != prefix {
			out = append(out, []rune(c[len(prefix):]))
		}
	}
	return out
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
