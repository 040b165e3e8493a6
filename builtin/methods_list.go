package builtin

import (
	"github.com/montylang/monty/core"
	"github.com/montylang/monty/eval"
	"github.com/montylang/monty/intern"
)

// callListMethod dispatches a list method call onto the operations
// already implemented by core.List (spec.md §4.4 "append transfers
// ownership; insert(i, x) clamps i >= len to len; ...").
func callListMethod(ev *eval.Evaluator, recv core.Value, method intern.ID, args []core.Value) (core.Value, error) {
	l := ev.Heap.List(recv.HeapID())
	switch method {
	case intern.MethodAppend:
		if len(args) != 1 {
			return wrongArgCount(ev, recv, args, "append", "exactly 1")
		}
		l.Append(args[0])
		ev.Drop(recv)
		return core.None, nil

	case intern.MethodInsert:
		if len(args) != 2 || args[0].Tag() != core.TagInt {
			return wrongArgCount(ev, recv, args, "insert", "exactly 2 (int, value)")
		}
		l.Insert(int(args[0].AsInt()), args[1])
		ev.Drop(recv)
		return core.None, nil

	case intern.MethodPop:
		idx := -1
		if len(args) == 1 && args[0].Tag() == core.TagInt {
			idx = int(args[0].AsInt())
		} else if len(args) != 0 {
			return wrongArgCount(ev, recv, args, "pop", "0 or 1 (int)")
		}
		v, ok := l.Pop(idx)
		ev.Drop(recv)
		if !ok {
			return core.Value{}, ev.Raise(eval.ExcIndexError, "pop from empty list")
		}
		return v, nil

	case intern.MethodClear:
		if len(args) != 0 {
			return wrongArgCount(ev, recv, args, "clear", "exactly 0")
		}
		l.Clear(ev.Heap)
		ev.Drop(recv)
		return core.None, nil

	case intern.MethodCopy:
		if len(args) != 0 {
			return wrongArgCount(ev, recv, args, "copy", "exactly 0")
		}
		cp := l.Clone(ev.Heap)
		ev.Drop(recv)
		id, err := ev.Heap.Allocate(cp)
		if err != nil {
			return core.Value{}, err
		}
		return core.Ref(id), nil

	default:
		return noSuchMethod(ev, recv, method, args)
	}
}
