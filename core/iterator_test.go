package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRangeIteratorExhausts(t *testing.T) {
	it := NewRangeIterator(3)
	var got []int64
	for {
		v, ok := it.Next(nil)
		if !ok {
			break
		}
		got = append(got, v.AsInt())
	}
	require.Equal(t, []int64{0, 1, 2}, got)
}

func TestListIteratorOwnsEachValue(t *testing.T) {
	h := newTestHeap()
	inner := mustAlloc(t, h, NewStr("x"))
	listID := mustAlloc(t, h, NewList([]Value{Ref(inner)}))
	h.IncRef(inner) // the list now owns a second reference to inner
	it := NewContainerIterator(IterList, listID)

	v, ok := it.Next(h)
	require.True(t, ok)
	require.Equal(t, inner, v.HeapID())

	_, ok = it.Next(h)
	require.False(t, ok)

	// The iterator's Next granted the caller an owned reference on top of
	// the list's own, so both can independently DecRef without a double
	// free.
	h.DecRef(inner)
	require.NotPanics(t, func() { h.payload(inner) })
	h.DecRef(listID) // drops the list's owned ref to inner too
	h.DecRef(inner)  // and the reference mustAlloc handed to this test
	require.Panics(t, func() { h.payload(inner) })
}

func TestIteratorCloneIsIndependentCursor(t *testing.T) {
	it := NewRangeIterator(5)
	it.Next(nil)
	it.Next(nil)

	clone := it.Clone()
	clone.Next(nil)

	require.Equal(t, 2, it.Cursor())
	require.Equal(t, 3, clone.Cursor())
}

func TestDictItemsIteratorYieldsPairs(t *testing.T) {
	h := newTestHeap()
	d := NewDict()
	d.Set(h, Int(1), Int(10))
	dictID := mustAlloc(t, h, d)
	it := NewContainerIterator(IterDictItems, dictID)

	v, ok := it.Next(h)
	require.True(t, ok)
	pair := h.payload(v.HeapID()).(*Tuple)
	require.Equal(t, int64(1), pair.items[0].AsInt())
	require.Equal(t, int64(10), pair.items[1].AsInt())
}
