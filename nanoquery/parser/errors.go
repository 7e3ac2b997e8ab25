package parser

import (
	"errors"
	"fmt"
)

// ErrSyntax is matched by every SyntaxError
var ErrSyntax = errors.New("syntax error")

// SyntaxError reports malformed query text
type SyntaxError struct {
	// Pos is the byte offset of the offending input
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}
