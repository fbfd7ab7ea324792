// Package query implements the boolean query language used to search
// the index. A query is a tree of words combined with AND, OR and
// parentheses, e.g. `rust AND (go OR zig)`.
package query

import "fmt"

// Query is one node of a parsed query tree.
type Query interface {
	fmt.Stringer

	queryNode()
}

// Word matches documents whose title contains the word as a token.
type Word string

// And matches documents that satisfy both sub-queries.
type And struct {
	LHS Query
	RHS Query
}

// Or matches documents that satisfy at least one of the sub-queries.
type Or struct {
	LHS Query
	RHS Query
}

func (Word) queryNode() {}
func (And) queryNode()  {}
func (Or) queryNode()   {}

func (w Word) String() string {
	return fmt.Sprintf("Word(%q)", string(w))
}

func (q And) String() string {
	return fmt.Sprintf("And(%s, %s)", q.LHS, q.RHS)
}

func (q Or) String() string {
	return fmt.Sprintf("Or(%s, %s)", q.LHS, q.RHS)
}
