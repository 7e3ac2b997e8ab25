package connection

import (
	"errors"
	"fmt"
)

var (
	// ErrPagingDirection is matched by every PagingDirectionError
	ErrPagingDirection = errors.New("invalid paging direction")

	// ErrCursorDecode is matched by every CursorDecodeError
	ErrCursorDecode = errors.New("invalid cursor")

	// ErrInvalidLimit is returned for negative first/last values
	ErrInvalidLimit = errors.New("invalid page size")
)

// PagingDirectionError reports paging arguments that ask for both directions
type PagingDirectionError struct {
	Msg string
}

func (e *PagingDirectionError) Error() string {
	return e.Msg
}

func (e *PagingDirectionError) Is(target error) bool {
	return target == ErrPagingDirection
}

// CursorDecodeError reports an opaque cursor that could not be decoded.
// The builder treats it as an absent cursor.
type CursorDecodeError struct {
	Cursor string
	Err    error
}

func (e *CursorDecodeError) Error() string {
	return fmt.Sprintf("invalid cursor %q: %v", e.Cursor, e.Err)
}

func (e *CursorDecodeError) Unwrap() error {
	return e.Err
}

func (e *CursorDecodeError) Is(target error) bool {
	return target == ErrCursorDecode
}
