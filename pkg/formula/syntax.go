package formula

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/arith"
	"github.com/leapstack-labs/leapcalc/pkg/parser"
	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// DescribeSyntaxError explains why expr cannot be evaluated in terms of the
// expression as the user wrote it. cause is the interpreter's failure and is
// used only when no common mistake is recognized.
func DescribeSyntaxError(expr string, in *arith.Interpreter, cause error) string {
	if in == nil {
		in = arith.Default()
	}
	toks := parser.Significant(parser.Tokenize(expr))
	if len(toks) == 0 {
		return "Expression is empty"
	}

	for _, t := range toks {
		if t.Type == token.ILLEGAL {
			return fmt.Sprintf("Unexpected character '%s' at position %d", t.Text, t.Pos.Offset+1)
		}
	}

	depth := 0
	for _, t := range toks {
		switch t.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth < 0 {
				return fmt.Sprintf("Unbalanced parentheses: unexpected ')' at position %d", t.Pos.Offset+1)
			}
		}
	}
	if depth > 0 {
		return "Unbalanced parentheses: missing ')'"
	}

	last := toks[len(toks)-1]
	if last.Type.IsOperator() || last.Type == token.COMMA {
		return fmt.Sprintf("Incomplete expression: ends with '%s'", last.Text)
	}
	if first := toks[0]; isBinaryOnly(first.Type) || first.Type == token.COMMA {
		return fmt.Sprintf("Incomplete expression: starts with '%s'", first.Text)
	}

	for i, t := range toks {
		var next token.Token
		if i+1 < len(toks) {
			next = toks[i+1]
		}
		if t.Type == token.IDENT && next.Type == token.LPAREN && !in.IsFunction(t.Text) {
			return fmt.Sprintf("Unknown function '%s'", t.Text)
		}
		if i+1 == len(toks) {
			break
		}
		switch {
		case endsOperand(t.Type) && startsOperand(next.Type) && !(t.Type == token.IDENT && next.Type == token.LPAREN):
			return fmt.Sprintf("Missing operator between '%s' and '%s'", t.Text, next.Text)
		case t.Type.IsOperator() && isBinaryOnly(next.Type):
			return fmt.Sprintf("Unexpected operator '%s' after '%s'", next.Text, t.Text)
		case t.Type == token.LPAREN && next.Type == token.RPAREN && (i == 0 || toks[i-1].Type != token.IDENT):
			return "Empty parentheses"
		case (t.Type == token.LPAREN || t.Type == token.COMMA) && (isBinaryOnly(next.Type) || next.Type == token.COMMA):
			return fmt.Sprintf("Unexpected '%s' after '%s'", next.Text, t.Text)
		case t.Type.IsOperator() && (next.Type == token.RPAREN || next.Type == token.COMMA):
			return fmt.Sprintf("Incomplete expression: '%s' is missing its right operand", t.Text)
		}
	}

	if chain, ok := chainedComparison(expr, toks); ok {
		return fmt.Sprintf("Chained comparison '%s': compare one pair at a time, e.g. (a < b) * (b < c)", chain)
	}

	return "Invalid expression: " + rawMessage(cause)
}

// chainedComparison finds two comparisons in the same operand list, such as
// "1 < qty < 20", and returns the source text of that list.
func chainedComparison(expr string, toks []token.Token) (string, bool) {
	type level struct{ start, cmp int }
	stack := []level{{start: 0, cmp: -1}}
	for i, t := range toks {
		top := &stack[len(stack)-1]
		switch {
		case t.Type == token.LPAREN:
			stack = append(stack, level{start: i + 1, cmp: -1})
		case t.Type == token.RPAREN && len(stack) > 1:
			stack = stack[:len(stack)-1]
		case t.Type == token.COMMA:
			*top = level{start: i + 1, cmp: -1}
		case isComparison(t.Type) && top.cmp >= 0:
			end := listEnd(toks, i+1)
			span := token.SpanOf(toks[top.start], toks[end])
			return expr[span.Start.Offset:span.End.Offset], true
		case isComparison(t.Type):
			top.cmp = i
		}
	}
	return "", false
}

// listEnd returns the index of the last token of the operand list that
// contains toks[from].
func listEnd(toks []token.Token, from int) int {
	depth := 0
	for j := from; j < len(toks); j++ {
		switch toks[j].Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			if depth == 0 {
				return j - 1
			}
			depth--
		case token.COMMA:
			if depth == 0 {
				return j - 1
			}
		}
	}
	return len(toks) - 1
}

func isComparison(t token.TokenType) bool {
	switch t {
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		return true
	}
	return false
}

// isBinaryOnly reports whether t can only appear between two operands.
// '+' and '-' double as unary signs.
func isBinaryOnly(t token.TokenType) bool {
	return t.IsOperator() && t != token.PLUS && t != token.MINUS
}

func endsOperand(t token.TokenType) bool {
	return t.IsOperand() || t == token.RPAREN
}

func startsOperand(t token.TokenType) bool {
	return t.IsOperand() || t == token.LPAREN
}

func rawMessage(err error) string {
	if err == nil {
		return "could not be evaluated"
	}
	var evalErr *arith.EvalError
	if errors.As(err, &evalErr) {
		return strings.TrimSpace(evalErr.Message)
	}
	return err.Error()
}
