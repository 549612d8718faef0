package ast

import "fmt"

// Position is a location in source text. Line and Column are 1-based,
// Column counts bytes. Offset is the 0-based byte offset.
type Position struct {
	Line   int
	Column int
	Offset int
}

// IsValid reports whether the position points into source.
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is the half-open source range [Start, End).
type Span struct {
	Start Position
	End   Position
}

func (s Span) String() string {
	return s.Start.String()
}

// Join returns the smallest span covering both s and other.
func (s Span) Join(other Span) Span {
	out := s
	if other.Start.Offset < out.Start.Offset {
		out.Start = other.Start
	}
	if other.End.Offset > out.End.Offset {
		out.End = other.End
	}
	return out
}
