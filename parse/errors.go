// Package parse turns guest source text into the prepared AST package eval
// walks: a hand-written recursive-descent lexer/parser (parser.go,
// lexer.go), adapted from the teacher's base_parser.go backtracking idiom,
// followed by a scope-resolution pass (prepare.go) that assigns every
// ast.Identifier its namespace slot (spec.md §3.2, §3.4, §3.6).
package parse

import (
	"fmt"

	"github.com/montylang/monty/ast"
)

// ParseError is returned by Compile for any lexical, syntactic, or
// scope-resolution failure; it is terminal for compilation and never
// raisable by guest code (spec.md §7 stratum 1), mirroring the teacher's
// ParsingError (a concrete struct carrying a position, not a bare string).
type ParseError struct {
	Offset   int
	Loc      ast.Location
	Message  string
	FileName string
}

func (e *ParseError) Error() string {
	if e.FileName != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.FileName, e.Loc.Line, e.Loc.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Loc.Line, e.Loc.Column, e.Message)
}
