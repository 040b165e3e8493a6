package builtin

import (
	"github.com/montylang/monty/core"
	"github.com/montylang/monty/eval"
)

// callPrint implements the print() builtin: str()-renders each argument,
// joined by a single space and followed by a newline, written to the
// evaluator's PrintWriter (spec.md §6.2). Grounded on
// original_source/src/builtins.rs's Builtins::Print.
func callPrint(ev *eval.Evaluator, args []core.Value) (core.Value, error) {
	for i, a := range args {
		if i > 0 {
			ev.Print.Write(" ")
		}
		ev.Print.Write(core.Str(ev.Heap, a))
	}
	ev.Print.Push('\n')
	ev.DropAll(args)
	return core.None, nil
}

// callLen implements the len() builtin (spec.md §4.2 "len").
func callLen(ev *eval.Evaluator, args []core.Value) (core.Value, error) {
	if len(args) != 1 {
		return wrongArgCountFn(ev, args, "len", "exactly 1")
	}
	v := args[0]
	n, ok := v.Len(ev.Heap)
	ev.Drop(v)
	if !ok {
		return core.Value{}, ev.Raise(eval.ExcTypeError, "object of type '%s' has no len()", v.TypeName(ev.Heap))
	}
	return core.Int(int64(n)), nil
}

// callRange implements the range() builtin. Only the single-argument
// form (range(stop)) is supported, matching the guest value model's
// Range(n) representation (spec.md §3.1: a plain element count, not a
// start/stop/step triple).
func callRange(ev *eval.Evaluator, args []core.Value) (core.Value, error) {
	if len(args) != 1 {
		return wrongArgCountFn(ev, args, "range", "exactly 1")
	}
	n := args[0]
	if n.Tag() != core.TagInt {
		t := n.TypeName(ev.Heap)
		ev.Drop(n)
		return core.Value{}, ev.Raise(eval.ExcTypeError, "'%s' object cannot be interpreted as an integer", t)
	}
	stop := n.AsInt()
	if stop < 0 {
		stop = 0
	}
	return core.Range(stop), nil
}

func wrongArgCountFn(ev *eval.Evaluator, args []core.Value, name, want string) (core.Value, error) {
	ev.DropAll(args)
	return core.Value{}, ev.Raise(eval.ExcTypeError, "%s() takes %s argument(s)", name, want)
}
