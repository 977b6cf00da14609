// Package parser tokenizes formulas and classifies the references they
// contain. The evaluator, the validator and the analyzer all read formulas
// through this package.
package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// Lexer tokenizes formula input. Whitespace is kept as SPACE tokens so the
// token stream can be rendered back to the exact input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// Tokenize returns every token of input except the trailing EOF.
func Tokenize(input string) []token.Token {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.pos > 0 && l.pos <= len(l.input) && l.input[l.pos-1] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	return l.peekAt(0)
}

func (l *Lexer) peekAt(n int) byte {
	if l.readPos+n >= len(l.input) {
		return 0
	}
	return l.input[l.readPos+n]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	pos := l.currentPos()
	start := l.pos

	if l.pos >= len(l.input) {
		return token.Token{Type: token.EOF, Pos: pos}
	}

	switch {
	case isSpace(l.ch):
		for l.pos < len(l.input) && isSpace(l.ch) {
			l.readChar()
		}
		return l.emit(token.SPACE, start, pos)
	case isIdentStart(l.ch):
		return l.readIdentifier(start, pos)
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		l.readNumber()
		return l.emit(token.NUMBER, start, pos)
	}

	typ := token.ILLEGAL
	switch l.ch {
	case '+':
		typ = token.PLUS
	case '-':
		typ = token.MINUS
	case '*':
		typ = token.STAR
	case '/':
		typ = token.SLASH
	case '%':
		typ = token.PERCENT
	case '(':
		typ = token.LPAREN
	case ')':
		typ = token.RPAREN
	case ',':
		typ = token.COMMA
	case '<':
		typ = token.LT
		if l.peekChar() == '=' {
			l.readChar()
			typ = token.LE
		}
	case '>':
		typ = token.GT
		if l.peekChar() == '=' {
			l.readChar()
			typ = token.GE
		}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			typ = token.EQ
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			typ = token.NE
		}
	default:
		// consume a whole rune so multi-byte characters stay intact
		if l.ch >= utf8.RuneSelf {
			_, size := utf8.DecodeRuneInString(l.input[l.pos:])
			for i := 1; i < size; i++ {
				l.readChar()
			}
		}
	}
	l.readChar()
	return l.emit(typ, start, pos)
}

func (l *Lexer) emit(typ token.TokenType, start int, pos token.Position) token.Token {
	end := l.pos
	if end > len(l.input) {
		end = len(l.input)
	}
	return token.Token{Type: typ, Text: l.input[start:end], Pos: pos}
}

// readIdentifier reads a plain identifier, or a dotted reference when the
// identifier is immediately followed by '.' and another identifier.
func (l *Lexer) readIdentifier(start int, pos token.Position) token.Token {
	for isIdentPart(l.ch) && l.pos < len(l.input) {
		l.readChar()
	}
	base := l.input[start:l.pos]

	if l.ch != '.' || !isIdentStart(l.peekChar()) {
		return l.emit(token.IDENT, start, pos)
	}

	l.readChar() // '.'
	propStart := l.pos
	for isIdentPart(l.ch) && l.pos < len(l.input) {
		l.readChar()
	}
	tok := l.emit(token.DOTTED, start, pos)
	tok.Base = base
	tok.Property = l.input[propStart:l.pos]
	return tok
}

// readNumber reads digits, an optional fraction and an optional exponent.
func (l *Lexer) readNumber() {
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekAt(1))) {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Render joins token texts back into source text.
func Render(tokens []token.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// RenderWith joins replacement texts, one per token. Operands that touch in
// the source are separated by a space so "2width" cannot become one number
// once width is replaced.
func RenderWith(tokens []token.Token, texts []string) string {
	var b strings.Builder
	for i, text := range texts {
		if i > 0 && tokens[i-1].Type.IsOperand() && tokens[i].Type.IsOperand() {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String()
}

// Significant returns the tokens that are not whitespace.
func Significant(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Type != token.SPACE {
			out = append(out, t)
		}
	}
	return out
}
