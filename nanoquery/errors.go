package nanoquery

import (
	"github.com/arthur-debert/nanoquery/nanoquery/connection"
	"github.com/arthur-debert/nanoquery/nanoquery/parser"
	"github.com/arthur-debert/nanoquery/types"
)

// Error kinds, for use with errors.Is
var (
	// ErrSyntax marks malformed query text; only returned in strict mode
	ErrSyntax = parser.ErrSyntax

	// ErrUnknownField marks a reference to an undeclared, non-filterable or
	// non-sortable field
	ErrUnknownField = types.ErrUnknownField

	// ErrPagingDirection marks paging arguments asking for both directions
	ErrPagingDirection = connection.ErrPagingDirection

	// ErrCursorDecode marks an undecodable cursor; Find treats such cursors
	// as absent and never returns it
	ErrCursorDecode = connection.ErrCursorDecode

	// ErrInvalidLimit marks a negative first or last
	ErrInvalidLimit = connection.ErrInvalidLimit
)

// Typed errors, for use with errors.As
type (
	SyntaxError          = parser.SyntaxError
	UnknownFieldError    = types.UnknownFieldError
	PagingDirectionError = connection.PagingDirectionError
	CursorDecodeError    = connection.CursorDecodeError
)
