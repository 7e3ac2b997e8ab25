package types

import (
	"errors"
	"fmt"
)

// ErrUnknownField is matched by every UnknownFieldError
var ErrUnknownField = errors.New("unknown field")

// UnknownFieldError reports a reference to a field the schema does not
// declare, or declares without the needed capability
type UnknownFieldError struct {
	Field  string
	Reason string
}

func (e *UnknownFieldError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unknown field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("unknown field %q", e.Field)
}

// Is reports whether target is ErrUnknownField
func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}
