package builtin

import (
	"sort"

	"github.com/montylang/monty/core"
	"github.com/montylang/monty/eval"
)

// callSorted implements the sorted() builtin: returns a new list holding
// the items of an iterable in ascending order, optionally compared by an
// applied key function and optionally reversed. Grounded on
// crates/monty/src/builtins/sorted.rs's sort_indices/apply_permutation
// approach (sort a permutation of indices, then rearrange the items by
// it) rather than sorting a slice of (key, item) pairs directly, since
// that is exactly what a permutation-index sort buys: the items move
// exactly once. The original's `key=`/`reverse=` keyword arguments are
// expressed here as optional positional arguments 2 and 3, since this
// AST's Call node carries no keyword arguments.
func callSorted(ev *eval.Evaluator, args []core.Value) (core.Value, error) {
	if len(args) < 1 || len(args) > 3 {
		return wrongArgCountFn(ev, args, "sorted", "1 to 3")
	}
	iterable := args[0]
	var keyFn core.Value
	hasKey := len(args) >= 2 && args[1].Tag() != core.TagNone
	if len(args) >= 2 {
		keyFn = args[1]
	}
	reverse := false
	if len(args) == 3 {
		reverse = args[2].Truthy(ev.Heap)
		ev.Drop(args[2])
	}
	if len(args) >= 2 && !hasKey {
		ev.Drop(args[1])
	}

	it, err := ev.MakeIterator(iterable)
	if err != nil {
		ev.Drop(iterable)
		if hasKey {
			ev.Drop(keyFn)
		}
		return core.Value{}, err
	}

	// iterable's owned reference keeps the source container (and so the
	// iterator's cursor into it) alive for the loop below; it is only
	// safe to drop once iteration has finished.
	var items []core.Value
	for {
		v, ok := it.Next(ev.Heap)
		if !ok {
			break
		}
		items = append(items, v)
	}
	ev.Drop(iterable)

	compareValues := items
	if hasKey {
		keys := make([]core.Value, 0, len(items))
		for _, item := range items {
			k, kerr := ev.Invoke(keyFn, []core.Value{ev.Own(item)})
			if kerr != nil {
				ev.Drop(keyFn)
				ev.DropAll(items)
				ev.DropAll(keys)
				return core.Value{}, kerr
			}
			keys = append(keys, k)
		}
		ev.Drop(keyFn)
		defer ev.DropAll(keys)
		compareValues = keys
	}

	indices := make([]int, len(items))
	for i := range indices {
		indices[i] = i
	}
	var cmpErr error
	sort.SliceStable(indices, func(a, b int) bool {
		if cmpErr != nil {
			return false
		}
		c, ok := core.Cmp(ev.Heap, compareValues[indices[a]], compareValues[indices[b]])
		if !ok {
			cmpErr = ev.Raise(eval.ExcTypeError, "'<' not supported between instances of '%s' and '%s'",
				compareValues[indices[a]].TypeName(ev.Heap), compareValues[indices[b]].TypeName(ev.Heap))
			return false
		}
		if reverse {
			return c > 0
		}
		return c < 0
	})
	if cmpErr != nil {
		ev.DropAll(items)
		return core.Value{}, cmpErr
	}

	out := make([]core.Value, len(items))
	for i, idx := range indices {
		out[i] = items[idx]
	}
	id, aerr := ev.Heap.Allocate(core.NewList(out))
	if aerr != nil {
		ev.DropAll(out)
		return core.Value{}, aerr
	}
	return core.Ref(id), nil
}
