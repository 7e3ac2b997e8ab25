package connection

import "github.com/arthur-debert/nanoquery/types"

// OrderBy selects the field a connection is ordered by
type OrderBy struct {
	Field     string          `json:"field" yaml:"field"`
	Direction types.Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Args are the paging arguments of a connection request. First/After page
// forwards, Last/Before page backwards; the two groups are exclusive.
type Args struct {
	First   *int     `json:"first,omitempty" yaml:"first,omitempty"`
	After   *string  `json:"after,omitempty" yaml:"after,omitempty"`
	Last    *int     `json:"last,omitempty" yaml:"last,omitempty"`
	Before  *string  `json:"before,omitempty" yaml:"before,omitempty"`
	OrderBy *OrderBy `json:"orderBy,omitempty" yaml:"orderBy,omitempty"`

	// Filter holds equality constraints keyed by field name
	Filter map[string]any `json:"filter,omitempty" yaml:"filter,omitempty"`

	// Query is filter query text
	Query string `json:"query,omitempty" yaml:"query,omitempty"`
}

// Ptr returns a pointer to v, for filling optional Args fields
func Ptr[T any](v T) *T {
	return &v
}

// PagingDirection is the direction a request walks the ordered set
type PagingDirection int

const (
	Forward PagingDirection = iota
	Backward
)

func (d PagingDirection) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// direction classifies the paging arguments
func (a Args) direction() (PagingDirection, error) {
	if (a.First != nil && a.Last != nil) || (a.After != nil && a.Before != nil) {
		return Forward, &PagingDirectionError{Msg: "cannot paginate forwards AND backwards"}
	}
	forward := a.First != nil || a.After != nil
	backward := a.Last != nil || a.Before != nil
	if forward && backward {
		return Forward, &PagingDirectionError{Msg: "must use either first/after or last/before"}
	}
	if backward {
		return Backward, nil
	}
	return Forward, nil
}
