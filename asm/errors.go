package asm

import "fmt"

// Error is one accumulated assembler diagnostic. Line is 1-based source
// line number, or 0 when the error isn't tied to a single line (e.g. a
// layout failure discovered during code generation).
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}
