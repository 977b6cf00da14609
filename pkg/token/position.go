package token

import "fmt"

// Position is a location inside a formula.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number, counted in runes
	Offset int // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is the source range covered by one or more tokens.
type Span struct {
	Start Position
	End   Position
}

// SpanOf returns the span from the start of first to the end of last.
func SpanOf(first, last Token) Span {
	end := last.Pos
	end.Offset += len(last.Text)
	end.Column += len([]rune(last.Text))
	return Span{Start: first.Pos, End: end}
}

// Contains returns true if the span contains the given offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}
