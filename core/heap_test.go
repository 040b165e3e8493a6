package core

import (
	"testing"

	"github.com/montylang/monty/intern"
	"github.com/montylang/monty/resource"
	"github.com/stretchr/testify/require"
)

func newTestHeap() *Heap {
	return NewHeap(intern.New(), &resource.NoLimitTracker{})
}

func TestHeapAllocateAndDecRefVacates(t *testing.T) {
	h := newTestHeap()
	id, err := h.Allocate(NewStr("hi"))
	require.NoError(t, err)
	require.Equal(t, "hi", h.payload(id).(*Str).s)

	h.DecRef(id)
	require.Panics(t, func() { h.payload(id) })
}

func TestHeapIncRefKeepsAlive(t *testing.T) {
	h := newTestHeap()
	id, err := h.Allocate(NewStr("hi"))
	require.NoError(t, err)
	h.IncRef(id)
	h.DecRef(id)
	require.NotPanics(t, func() { h.payload(id) })
	h.DecRef(id)
	require.Panics(t, func() { h.payload(id) })
}

func TestHeapIterativeDropDeepList(t *testing.T) {
	h := newTestHeap()
	// Build a chain of singleton lists: l0 -> [l1] -> [l2] -> ... -> [].
	var cur Value = Ref(mustAlloc(t, h, NewList(nil)))
	const depth = 5000
	for i := 0; i < depth; i++ {
		id := mustAlloc(t, h, NewList([]Value{cur}))
		cur = Ref(id)
	}
	// Dropping the outermost should not blow the Go call stack, since
	// DecRef drains an explicit work stack rather than recursing.
	require.NotPanics(t, func() { h.DecRef(cur.HeapID()) })
}

func mustAlloc(t *testing.T, h *Heap, p payload) HeapID {
	t.Helper()
	id, err := h.Allocate(p)
	require.NoError(t, err)
	return id
}

func TestHeapCollectsCycle(t *testing.T) {
	h := newTestHeap()
	aID := mustAlloc(t, h, NewList(nil))
	bID := mustAlloc(t, h, NewList([]Value{Ref(aID)}))
	h.IncRef(aID) // b -> a
	// a -> b, completing the cycle; both now have refcount 2 (one root-ish
	// external ref on a, one mutual ref each way).
	h.payload(aID).(*List).Append(Ref(bID))
	h.IncRef(bID)

	h.SetRoots(func(yield func(Value)) {}) // nothing reachable from outside
	h.Collect()

	require.Panics(t, func() { h.payload(aID) })
	require.Panics(t, func() { h.payload(bID) })
}

func TestHeapCollectKeepsRoots(t *testing.T) {
	h := newTestHeap()
	id := mustAlloc(t, h, NewStr("kept"))
	h.SetRoots(func(yield func(Value)) { yield(Ref(id)) })
	h.Collect()
	require.NotPanics(t, func() { h.payload(id) })
}

func TestAllocateChargesTracker(t *testing.T) {
	h := NewHeap(intern.New(), resource.NewLimitedTracker(resource.NewLimits().MaxAllocations(1)))
	_, err := h.Allocate(NewStr("a"))
	require.NoError(t, err)
	_, err = h.Allocate(NewStr("b"))
	require.Error(t, err)
}
