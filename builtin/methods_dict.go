package builtin

import (
	"github.com/montylang/monty/core"
	"github.com/montylang/monty/eval"
	"github.com/montylang/monty/intern"
)

// callDictMethod dispatches a dict method call onto core.Dict. keys(),
// values() and items() return plain lists rather than Python's lazy view
// objects, since the guest language has no view-object type (spec.md
// §4.4 only specifies the mapping itself).
func callDictMethod(ev *eval.Evaluator, recv core.Value, method intern.ID, args []core.Value) (core.Value, error) {
	d := ev.Heap.Dict(recv.HeapID())
	switch method {
	case intern.MethodGet:
		if len(args) < 1 || len(args) > 2 {
			return wrongArgCount(ev, recv, args, "get", "1 or 2")
		}
		key := args[0]
		val, found, hashable := d.Get(ev.Heap, key)
		ev.Drop(recv)
		ev.Drop(key)
		if !hashable {
			if len(args) == 2 {
				ev.Drop(args[1])
			}
			return core.Value{}, ev.Raise(eval.ExcTypeError, "unhashable type: '%s'", key.TypeName(ev.Heap))
		}
		if found {
			if len(args) == 2 {
				ev.Drop(args[1])
			}
			return ev.Own(val), nil
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return core.None, nil

	case intern.MethodPop:
		if len(args) < 1 || len(args) > 2 {
			return wrongArgCount(ev, recv, args, "pop", "1 or 2")
		}
		key := args[0]
		val, found := d.Delete(ev.Heap, key)
		ev.Drop(recv)
		ev.Drop(key)
		if found {
			if len(args) == 2 {
				ev.Drop(args[1])
			}
			return val, nil
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return core.Value{}, ev.Raise(eval.ExcKeyError, "%s", core.Repr(ev.Heap, key))

	case intern.MethodKeys:
		if len(args) != 0 {
			return wrongArgCount(ev, recv, args, "keys", "exactly 0")
		}
		out := make([]core.Value, 0, len(d.Items()))
		for _, item := range d.Items() {
			out = append(out, ev.Own(item.Key))
		}
		ev.Drop(recv)
		return allocList(ev, out)

	case intern.MethodValues:
		if len(args) != 0 {
			return wrongArgCount(ev, recv, args, "values", "exactly 0")
		}
		out := make([]core.Value, 0, len(d.Items()))
		for _, item := range d.Items() {
			out = append(out, ev.Own(item.Val))
		}
		ev.Drop(recv)
		return allocList(ev, out)

	case intern.MethodItems:
		if len(args) != 0 {
			return wrongArgCount(ev, recv, args, "items", "exactly 0")
		}
		out := make([]core.Value, 0, len(d.Items()))
		for _, item := range d.Items() {
			id, err := ev.Heap.Allocate(core.NewTuple([]core.Value{ev.Own(item.Key), ev.Own(item.Val)}))
			if err != nil {
				ev.Drop(recv)
				ev.DropAll(out)
				return core.Value{}, err
			}
			out = append(out, core.Ref(id))
		}
		ev.Drop(recv)
		return allocList(ev, out)

	case intern.MethodClear:
		if len(args) != 0 {
			return wrongArgCount(ev, recv, args, "clear", "exactly 0")
		}
		d.Clear(ev.Heap)
		ev.Drop(recv)
		return core.None, nil

	case intern.MethodCopy:
		if len(args) != 0 {
			return wrongArgCount(ev, recv, args, "copy", "exactly 0")
		}
		cp := d.Clone(ev.Heap)
		ev.Drop(recv)
		id, err := ev.Heap.Allocate(cp)
		if err != nil {
			return core.Value{}, err
		}
		return core.Ref(id), nil

	case intern.MethodUpdate:
		if len(args) != 1 || !args[0].IsRef() {
			return wrongArgCount(ev, recv, args, "update", "exactly 1 (dict)")
		}
		other, ok := ev.Heap.Payload(args[0].HeapID()).(*core.Dict)
		if !ok {
			return wrongArgCount(ev, recv, args, "update", "exactly 1 (dict)")
		}
		for _, item := range other.Items() {
			d.Set(ev.Heap, ev.Own(item.Key), ev.Own(item.Val))
		}
		ev.Drop(recv)
		ev.Drop(args[0])
		return core.None, nil

	default:
		return noSuchMethod(ev, recv, method, args)
	}
}

func allocList(ev *eval.Evaluator, items []core.Value) (core.Value, error) {
	id, err := ev.Heap.Allocate(core.NewList(items))
	if err != nil {
		ev.DropAll(items)
		return core.Value{}, err
	}
	return core.Ref(id), nil
}
