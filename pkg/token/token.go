// Package token defines the token types of the formula language.
//
// A formula is a flat arithmetic expression over numbers, plain identifiers
// (field and material variable names, math functions and constants) and
// dotted property references such as mat_board.width.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int

//nolint:revive // ALL_CAPS names mirror the lexical categories
const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL
	SPACE

	// Operands
	IDENT  // width
	DOTTED // mat_board.width
	NUMBER // 2, 3.5, 1e3

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	EQ      // ==
	NE      // !=
	LT      // <
	GT      // >
	LE      // <=
	GE      // >=

	// Delimiters
	LPAREN // (
	RPAREN // )
	COMMA  // ,
)

var names = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",
	SPACE:   "SPACE",
	IDENT:   "IDENT",
	DOTTED:  "DOTTED",
	NUMBER:  "NUMBER",
	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	EQ:      "==",
	NE:      "!=",
	LT:      "<",
	GT:      ">",
	LE:      "<=",
	GE:      ">=",
	LPAREN:  "(",
	RPAREN:  ")",
	COMMA:   ",",
}

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// IsOperator reports whether t is a binary or unary operator.
func (t TokenType) IsOperator() bool {
	return t >= PLUS && t <= GE
}

// IsOperand reports whether t can stand on its own as a value.
func (t TokenType) IsOperand() bool {
	return t == IDENT || t == DOTTED || t == NUMBER
}

// Token is a single lexical token. Text is the exact source text, so joining
// the Text of every token reproduces the input.
type Token struct {
	Type TokenType
	Text string
	Pos  Position

	// Base and Property are set for DOTTED tokens.
	Base     string
	Property string
}

// String returns a debug representation of the token.
func (t Token) String() string {
	if t.Type == DOTTED {
		return fmt.Sprintf("%s(%s.%s)@%d", t.Type, t.Base, t.Property, t.Pos.Offset)
	}
	return fmt.Sprintf("%s(%q)@%d", t.Type, t.Text, t.Pos.Offset)
}
