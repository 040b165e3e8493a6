package builtin

import (
	"github.com/montylang/monty/core"
	"github.com/montylang/monty/eval"
	"github.com/montylang/monty/intern"
)

// callSetMethod dispatches a set method call onto core.Set. The
// binary-set operations (union/intersection/difference/
// symmetric_difference) and predicates (issubset/issuperset/isdisjoint)
// are not primitives on core.Set itself — they're expressed here in
// terms of Contains/Values/Add, the same primitives a guest for-loop
// over the same two sets would use.
func callSetMethod(ev *eval.Evaluator, recv core.Value, method intern.ID, args []core.Value) (core.Value, error) {
	s := ev.Heap.Set(recv.HeapID())
	switch method {
	case intern.MethodAdd:
		if len(args) != 1 {
			return wrongArgCount(ev, recv, args, "add", "exactly 1")
		}
		v := args[0]
		_, hashable := s.Add(ev.Heap, v)
		ev.Drop(recv)
		if !hashable {
			t := v.TypeName(ev.Heap)
			ev.Drop(v)
			return core.Value{}, ev.Raise(eval.ExcTypeError, "unhashable type: '%s'", t)
		}
		return core.None, nil

	case intern.MethodRemove:
		if len(args) != 1 {
			return wrongArgCount(ev, recv, args, "remove", "exactly 1")
		}
		v := args[0]
		removed := s.Discard(ev.Heap, v)
		ev.Drop(recv)
		t := v.TypeName(ev.Heap)
		ev.Drop(v)
		if !removed {
			return core.Value{}, ev.Raise(eval.ExcKeyError, "%s", t)
		}
		return core.None, nil

	case intern.MethodDiscard:
		if len(args) != 1 {
			return wrongArgCount(ev, recv, args, "discard", "exactly 1")
		}
		v := args[0]
		s.Discard(ev.Heap, v)
		ev.Drop(recv)
		ev.Drop(v)
		return core.None, nil

	case intern.MethodClear:
		if len(args) != 0 {
			return wrongArgCount(ev, recv, args, "clear", "exactly 0")
		}
		s.Clear(ev.Heap)
		ev.Drop(recv)
		return core.None, nil

	case intern.MethodCopy:
		if len(args) != 0 {
			return wrongArgCount(ev, recv, args, "copy", "exactly 0")
		}
		cp := s.Clone(ev.Heap, false)
		ev.Drop(recv)
		id, err := ev.Heap.Allocate(cp)
		if err != nil {
			return core.Value{}, err
		}
		return core.Ref(id), nil

	case intern.MethodUpdate:
		other, ok, err := otherSet(ev, recv, args)
		if !ok {
			return core.Value{}, err
		}
		for _, v := range other.Values() {
			s.Add(ev.Heap, ev.Own(v))
		}
		ev.Drop(recv)
		ev.Drop(args[0])
		return core.None, nil

	case intern.MethodUnion:
		other, ok, err := otherSet(ev, recv, args)
		if !ok {
			return core.Value{}, err
		}
		out := core.NewSet()
		for _, v := range s.Values() {
			out.Add(ev.Heap, ev.Own(v))
		}
		for _, v := range other.Values() {
			out.Add(ev.Heap, ev.Own(v))
		}
		ev.Drop(recv)
		ev.Drop(args[0])
		return allocSet(ev, out)

	case intern.MethodIntersection:
		other, ok, err := otherSet(ev, recv, args)
		if !ok {
			return core.Value{}, err
		}
		out := core.NewSet()
		for _, v := range s.Values() {
			if found, _ := other.Contains(ev.Heap, v); found {
				out.Add(ev.Heap, ev.Own(v))
			}
		}
		ev.Drop(recv)
		ev.Drop(args[0])
		return allocSet(ev, out)

	case intern.MethodDifference:
		other, ok, err := otherSet(ev, recv, args)
		if !ok {
			return core.Value{}, err
		}
		out := core.NewSet()
		for _, v := range s.Values() {
			if found, _ := other.Contains(ev.Heap, v); !found {
				out.Add(ev.Heap, ev.Own(v))
			}
		}
		ev.Drop(recv)
		ev.Drop(args[0])
		return allocSet(ev, out)

	case intern.MethodSymmetricDifference:
		other, ok, err := otherSet(ev, recv, args)
		if !ok {
			return core.Value{}, err
		}
		out := core.NewSet()
		for _, v := range s.Values() {
			if found, _ := other.Contains(ev.Heap, v); !found {
				out.Add(ev.Heap, ev.Own(v))
			}
		}
		for _, v := range other.Values() {
			if found, _ := s.Contains(ev.Heap, v); !found {
				out.Add(ev.Heap, ev.Own(v))
			}
		}
		ev.Drop(recv)
		ev.Drop(args[0])
		return allocSet(ev, out)

	case intern.MethodIssubset:
		other, ok, err := otherSet(ev, recv, args)
		if !ok {
			return core.Value{}, err
		}
		result := true
		for _, v := range s.Values() {
			if found, _ := other.Contains(ev.Heap, v); !found {
				result = false
				break
			}
		}
		ev.Drop(recv)
		ev.Drop(args[0])
		return core.Bool(result), nil

	case intern.MethodIssuperset:
		other, ok, err := otherSet(ev, recv, args)
		if !ok {
			return core.Value{}, err
		}
		result := true
		for _, v := range other.Values() {
			if found, _ := s.Contains(ev.Heap, v); !found {
				result = false
				break
			}
		}
		ev.Drop(recv)
		ev.Drop(args[0])
		return core.Bool(result), nil

	case intern.MethodIsdisjoint:
		other, ok, err := otherSet(ev, recv, args)
		if !ok {
			return core.Value{}, err
		}
		result := true
		for _, v := range s.Values() {
			if found, _ := other.Contains(ev.Heap, v); found {
				result = false
				break
			}
		}
		ev.Drop(recv)
		ev.Drop(args[0])
		return core.Bool(result), nil

	default:
		return noSuchMethod(ev, recv, method, args)
	}
}

// otherSet validates that args holds exactly one set-valued argument,
// cleaning up recv/args and raising on mismatch.
func otherSet(ev *eval.Evaluator, recv core.Value, args []core.Value) (*core.Set, bool, error) {
	if len(args) != 1 || !args[0].IsRef() {
		_, err := wrongArgCount(ev, recv, args, "set operation", "exactly 1 (set)")
		return nil, false, err
	}
	other, ok := ev.Heap.Payload(args[0].HeapID()).(*core.Set)
	if !ok {
		_, err := wrongArgCount(ev, recv, args, "set operation", "exactly 1 (set)")
		return nil, false, err
	}
	return other, true, nil
}

func allocSet(ev *eval.Evaluator, s *core.Set) (core.Value, error) {
	id, err := ev.Heap.Allocate(s)
	if err != nil {
		for _, v := range s.Values() {
			ev.Drop(v)
		}
		return core.Value{}, err
	}
	return core.Ref(id), nil
}
