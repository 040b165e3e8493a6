package builtin

import (
	"github.com/montylang/monty/core"
	"github.com/montylang/monty/eval"
)

// callMap implements the map() builtin: applies a function to every item
// of one or more iterables in lockstep, stopping at the shortest, and
// collects the results into a list (spec.md's guest language has no lazy
// iterator return value to hand back, so — as
// crates/monty/src/builtins/map.rs notes — this returns a materialized
// list rather than Python's lazy map object).
func callMap(ev *eval.Evaluator, args []core.Value) (core.Value, error) {
	if len(args) < 2 {
		return wrongArgCountFn(ev, args, "map", "at least 2")
	}
	fn := args[0]
	iterables := args[1:]

	iters := make([]*core.Iterator, len(iterables))
	for i, iterable := range iterables {
		it, err := ev.MakeIterator(iterable)
		if err != nil {
			ev.Drop(fn)
			ev.DropAll(iterables)
			return core.Value{}, err
		}
		iters[i] = it
	}

	var out []core.Value
	callArgs := make([]core.Value, len(iters))
outer:
	for {
		for i, it := range iters {
			v, ok := it.Next(ev.Heap)
			if !ok {
				// Drop whatever was already pulled this round before the
				// exhausted iterable stopped us.
				ev.DropAll(callArgs[:i])
				break outer
			}
			callArgs[i] = v
		}
		r, err := ev.Invoke(fn, append([]core.Value(nil), callArgs...))
		if err != nil {
			ev.Drop(fn)
			ev.DropAll(iterables)
			ev.DropAll(out)
			return core.Value{}, err
		}
		out = append(out, r)
	}

	ev.Drop(fn)
	ev.DropAll(iterables)

	id, aerr := ev.Heap.Allocate(core.NewList(out))
	if aerr != nil {
		ev.DropAll(out)
		return core.Value{}, aerr
	}
	return core.Ref(id), nil
}
