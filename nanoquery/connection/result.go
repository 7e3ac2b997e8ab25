package connection

import "github.com/arthur-debert/nanoquery/types"

// Edge is a row together with the cursor pointing at it
type Edge struct {
	Node   types.Record `json:"node" yaml:"node"`
	Cursor string       `json:"cursor" yaml:"cursor"`
}

// PageInfo describes the position of a page within the whole set.
// StartCursor and EndCursor are nil for an empty page.
type PageInfo struct {
	HasNextPage     bool    `json:"hasNextPage" yaml:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage" yaml:"hasPreviousPage"`
	StartCursor     *string `json:"startCursor" yaml:"startCursor"`
	EndCursor       *string `json:"endCursor" yaml:"endCursor"`
}

// Connection is one page of a paginated read. TotalCount counts the whole
// filtered set regardless of the cursor.
type Connection struct {
	Edges      []Edge   `json:"edges" yaml:"edges"`
	PageInfo   PageInfo `json:"pageInfo" yaml:"pageInfo"`
	TotalCount int      `json:"totalCount" yaml:"totalCount"`
}

// Nodes returns the rows of the page in display order
func (c *Connection) Nodes() []types.Record {
	out := make([]types.Record, len(c.Edges))
	for i, e := range c.Edges {
		out[i] = e.Node
	}
	return out
}
