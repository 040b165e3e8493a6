package eval

import (
	"github.com/montylang/monty/ast"
	"github.com/montylang/monty/core"
	"github.com/montylang/monty/intern"
	"github.com/montylang/monty/resource"
)

// Builtins is implemented by the builtin package's dispatch table. It is
// declared here (rather than eval importing builtin) so that builtin may
// import eval for *Evaluator/GuestException/etc without a cycle; the
// façade package wires a concrete Builtins into an Evaluator.
type Builtins interface {
	Call(ev *Evaluator, id int, args []core.Value) (core.Value, error)
	CallMethod(ev *Evaluator, recv core.Value, method intern.ID, args []core.Value) (core.Value, error)
}

// Evaluator is the tree walker over a compiled program's prepared AST
// (spec.md §4.6), grounded on the teacher's gen_go_eval.go (a node-kind
// switch dispatch over a closed AST) and original_source/src/evaluate.rs
// for exact control-flow/exception semantics.
type Evaluator struct {
	Heap      *core.Heap
	NS        *Namespaces
	Stack     Stack
	Strings   *intern.Table
	Tracker   resource.Tracker
	Builtins  Builtins
	Functions []*ast.Function // compiled function table, index = Value.Function/ExtFunction-adjacent function id
	Externals []string        // external function names, index = ExtFunction id
	Print     PrintWriter
	Snapshot  SnapshotMode

	statementsSinceGC int

	// resumeQueue holds the frames a Resume walk has not yet reattached
	// to ev.Stack, outermost first; non-empty only for the duration of a
	// single Resume call. See call.go's Resume/resumeFunction.
	resumeQueue []*Frame
}

// NewEvaluator wires a fresh evaluator around a shared heap/namespace
// stack (spec.md §3.7 "Run").
func NewEvaluator(h *core.Heap, ns *Namespaces, strs *intern.Table, tracker resource.Tracker, b Builtins, functions []*ast.Function, externals []string, out PrintWriter, snap SnapshotMode) *Evaluator {
	ev := &Evaluator{
		Heap: h, NS: ns, Strings: strs, Tracker: tracker,
		Builtins: b, Functions: functions, Externals: externals,
		Print: out, Snapshot: snap,
	}
	h.SetRoots(ev.Roots)
	return ev
}

// checkGC runs garbage collection at a statement boundary if the
// tracker's should_gc() says to (spec.md §4.3 "GC runs... checked at
// statement boundaries").
func (ev *Evaluator) checkGC() {
	if ev.Tracker.ShouldGC() {
		ev.Heap.Collect()
	}
}

// Roots enumerates every Value reachable from namespace slots, the
// pending external-return-value buffer, and each active frame's pinned
// temporaries — the GC root set (spec.md §4.3).
func (ev *Evaluator) Roots(yield func(core.Value)) {
	ev.NS.All(func(_ NamespaceID, slots []core.Value) {
		for _, v := range slots {
			yield(v)
		}
	})
	for _, v := range ev.NS.PendingExtReturnValues() {
		yield(v)
	}
	for _, f := range ev.Stack.frames {
		for _, v := range f.Pinned {
			yield(v)
		}
	}
}

// own grants the caller a fresh owned reference to v, bumping its
// refcount if it's a Ref (spec.md "Ownership discipline": every
// evaluation produces an owned value).
func (ev *Evaluator) own(v core.Value) core.Value { return ev.Heap.Own(v) }

// drop releases a temporary's owned reference (spec.md "Temporaries
// produced during an expression are dropped before the next
// statement").
func (ev *Evaluator) drop(v core.Value) {
	if v.IsRef() {
		ev.Heap.DecRef(v.HeapID())
	}
}

func (ev *Evaluator) raise(t ExcType, format string, args ...interface{}) error {
	exc := NewGuestException(t, format, args...)
	exc.Traceback = ev.Stack.Traceback()
	return exc
}

// Own, Drop, DropAll and Raise expose the ownership and exception
// helpers above to a Builtins implementation living outside this
// package (builtin.Table), which needs the same discipline as the
// evaluator itself when accepting, rejecting or passing through
// argument values.
func (ev *Evaluator) Own(v core.Value) core.Value { return ev.own(v) }
func (ev *Evaluator) Drop(v core.Value)            { ev.drop(v) }
func (ev *Evaluator) DropAll(vs []core.Value)       { ev.dropAll(vs) }
func (ev *Evaluator) Raise(t ExcType, format string, args ...interface{}) error {
	return ev.raise(t, format, args...)
}
