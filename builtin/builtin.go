// Package builtin implements the fixed global-builtin and container/string
// method dispatch tables that plug into eval.Evaluator as its Builtins
// collaborator (spec.md §1 scopes "the concrete builtins beyond their
// dispatch contract" out as a host concern, but leaves the dispatch
// contract itself, and the handful of builtins exercising it end to end,
// squarely in scope).
package builtin

import (
	"github.com/montylang/monty/core"
	"github.com/montylang/monty/eval"
	"github.com/montylang/monty/intern"
)

// Names is the fixed, order-significant table of global builtin
// functions. A Name's index is the Builtin(id) a Call expression resolves
// to at parse time (spec.md §3.1 "Builtin(id) - index into a small fixed
// table of builtin callables"). print/range/len are grounded on
// original_source/src/builtins.rs's Builtins enum; sorted/map are
// grounded on crates/monty/src/builtins/{sorted,map}.rs, chosen because
// together they exercise every iterator source the iterator protocol
// supports (spec.md component D) where print/range/len alone would not.
var Names = []string{"print", "range", "len", "sorted", "map"}

// Builtin IDs, hardcoded against the Names order above, mirroring the
// Method* constants in package intern.
const (
	Print = iota
	Range
	Len
	Sorted
	Map
)

// Find returns the builtin id for name, or ok=false if name does not
// name a builtin.
func Find(name string) (int, bool) {
	for i, n := range Names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Table is the concrete eval.Builtins implementation wired into an
// Evaluator by the façade package.
type Table struct{}

func New() *Table { return &Table{} }

// Call dispatches a resolved Builtin(id) call (spec.md §4.6 eval_call,
// Builtin case).
func (t *Table) Call(ev *eval.Evaluator, id int, args []core.Value) (core.Value, error) {
	switch id {
	case Print:
		return callPrint(ev, args)
	case Range:
		return callRange(ev, args)
	case Len:
		return callLen(ev, args)
	case Sorted:
		return callSorted(ev, args)
	case Map:
		return callMap(ev, args)
	default:
		ev.DropAll(args)
		return core.Value{}, ev.Raise(eval.ExcRuntimeError, "unknown builtin id %d", id)
	}
}

// CallMethod dispatches an AttrCall (spec.md §4.6 "Attribute call") by
// receiver type and interned method id. Every method here is a thin
// adapter onto the container operation already implemented in package
// core; per spec.md line 307 ("Method and builtin dispatch should always
// drop all argument references before returning an error"), every path
// below that raises drops recv and args first.
func (t *Table) CallMethod(ev *eval.Evaluator, recv core.Value, method intern.ID, args []core.Value) (core.Value, error) {
	if !recv.IsRef() {
		ev.Drop(recv)
		ev.DropAll(args)
		return core.Value{}, ev.Raise(eval.ExcAttributeError, "'%s' object has no attribute %q", recv.TypeName(ev.Heap), methodName(method))
	}
	switch ev.Heap.Payload(recv.HeapID()).(type) {
	case *core.List:
		return callListMethod(ev, recv, method, args)
	case *core.Dict:
		return callDictMethod(ev, recv, method, args)
	case *core.Set:
		return callSetMethod(ev, recv, method, args)
	case *core.Str:
		return callStrMethod(ev, recv, method, args)
	// *core.Bytes has no entry: intern.MethodNames names no bytes-specific
	// methods, so a bytes receiver always falls to the "no attribute"
	// rejection below, the same as any other concrete type.
	default:
		ev.Drop(recv)
		ev.DropAll(args)
		return core.Value{}, ev.Raise(eval.ExcAttributeError, "'%s' object has no attribute %q", recv.TypeName(ev.Heap), methodName(method))
	}
}

func methodName(id intern.ID) string {
	i := int(id) - 1
	if i >= 0 && i < len(intern.MethodNames) {
		return intern.MethodNames[i]
	}
	return "?"
}

// noSuchMethod is the common "object has no attribute" rejection for a
// method id that isn't defined for the receiver's concrete type.
func noSuchMethod(ev *eval.Evaluator, recv core.Value, method intern.ID, args []core.Value) (core.Value, error) {
	typeName := recv.TypeName(ev.Heap)
	ev.Drop(recv)
	ev.DropAll(args)
	return core.Value{}, ev.Raise(eval.ExcAttributeError, "'%s' object has no attribute %q", typeName, methodName(method))
}

// wrongArgCount rejects a method call with the wrong argument count.
func wrongArgCount(ev *eval.Evaluator, recv core.Value, args []core.Value, method string, want string) (core.Value, error) {
	ev.Drop(recv)
	ev.DropAll(args)
	return core.Value{}, ev.Raise(eval.ExcTypeError, "%s() takes %s argument(s)", method, want)
}
