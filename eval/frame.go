package eval

import (
	"github.com/montylang/monty/ast"
	"github.com/montylang/monty/core"
)

// Frame is one function activation (spec.md §3.7, §4.7), grounded on the
// teacher's vm_stack.go frame/stack shape (a frameType discriminant, pc,
// and position-recovery fields over a []frame stack) generalized from a
// PEG VM's opcode program counter to a tree-walker's statement-index/
// clause-state resume position.
type Frame struct {
	FuncName string
	NS       NamespaceID
	Pos      ast.Span

	// Resume is the position path left by a prior suspension, outermost
	// nesting level first. Resume[0] says where this frame's top-level
	// body should pick up; if that statement is itself a compound
	// statement, Resume[0].Clause carries its resumed sub-state and the
	// rest of the path, Resume[1:], is handed to the block nested inside
	// it, one entry per nesting level. Cleared once consumed.
	Resume []CodePosition

	// Pinned holds values that must stay GC-reachable for the duration of
	// a nested evaluation that has no namespace slot of its own to anchor
	// them (e.g. a for-loop's source container, held live across
	// statement-boundary GC checks in the loop body).
	Pinned []core.Value

	// CurrentException is the exception being handled by the innermost
	// active except block in this frame, consulted by a bare `raise`.
	CurrentException *GuestException
}

// TraceEntry is one (function_name, source_position) pair in a guest
// exception traceback (spec.md §7).
type TraceEntry struct {
	FuncName string
	Pos      ast.Span
}

// Stack is the active call stack, innermost frame last, used to build
// guest exception tracebacks and to check recursion depth.
type Stack struct {
	frames []*Frame
}

func (s *Stack) Push(f *Frame) { s.frames = append(s.frames, f) }
func (s *Stack) Pop()          { s.frames = s.frames[:len(s.frames)-1] }
func (s *Stack) Top() *Frame   { return s.frames[len(s.frames)-1] }
func (s *Stack) Depth() int    { return len(s.frames) }

// Traceback renders the stack innermost-frame-first, per spec.md §7.
func (s *Stack) Traceback() []TraceEntry {
	out := make([]TraceEntry, len(s.frames))
	for i, f := range s.frames {
		out[len(s.frames)-1-i] = TraceEntry{FuncName: f.FuncName, Pos: f.Pos}
	}
	return out
}
