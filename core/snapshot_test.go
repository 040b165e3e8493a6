package core

import (
	"testing"

	"github.com/montylang/monty/intern"
	"github.com/montylang/monty/resource"
	"github.com/montylang/monty/wire"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeValueScalars(t *testing.T) {
	for _, v := range []Value{None, Ellipsis, Bool(true), Int(-7), Float(2.25), Builtin(1), ExtFunction(2)} {
		e := wire.NewEncoder()
		EncodeValue(e, v)
		got, err := DecodeValue(wire.NewDecoder(e.Bytes()))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestHeapEncodeDecodeRoundTrip(t *testing.T) {
	h := newTestHeap()
	strID, err := h.Allocate(NewStr("hello"))
	require.NoError(t, err)
	listID, err := h.Allocate(NewList([]Value{Ref(strID), Int(1)}))
	require.NoError(t, err)
	h.IncRef(strID) // list holds its own reference on top of the one we keep

	e := wire.NewEncoder()
	h.Encode(e)

	decoded, err := DecodeHeap(wire.NewDecoder(e.Bytes()), intern.New(), &resource.NoLimitTracker{})
	require.NoError(t, err)

	require.Equal(t, "hello", decoded.Payload(strID).(*Str).s)
	gotList := decoded.Payload(listID).(*List)
	require.Len(t, gotList.items, 2)
	require.Equal(t, Ref(strID), gotList.items[0])
}

func TestHeapEncodeDecodePreservesVacatedSlots(t *testing.T) {
	h := newTestHeap()
	aID, err := h.Allocate(NewStr("a"))
	require.NoError(t, err)
	bID, err := h.Allocate(NewStr("b"))
	require.NoError(t, err)
	h.DecRef(aID) // vacate the first slot, leaving a gap before bID

	e := wire.NewEncoder()
	h.Encode(e)
	decoded, err := DecodeHeap(wire.NewDecoder(e.Bytes()), intern.New(), &resource.NoLimitTracker{})
	require.NoError(t, err)

	require.Panics(t, func() { decoded.Payload(aID) })
	require.Equal(t, "b", decoded.Payload(bID).(*Str).s)
}

func TestDictEncodeDecodeRoundTrip(t *testing.T) {
	h := newTestHeap()
	d := NewDict()
	require.True(t, d.Set(h, Str0(h, "a"), Int(1)))
	require.True(t, d.Set(h, Str0(h, "b"), Int(2)))
	id, err := h.Allocate(d)
	require.NoError(t, err)

	e := wire.NewEncoder()
	h.Encode(e)
	decoded, err := DecodeHeap(wire.NewDecoder(e.Bytes()), intern.New(), &resource.NoLimitTracker{})
	require.NoError(t, err)

	gotDict := decoded.Payload(id).(*Dict)
	require.Equal(t, 2, gotDict.size)
	require.Len(t, gotDict.Items(), 2)
}

// Str0 allocates a plain heap string for dict-key construction in tests;
// it intentionally leaks the allocation since these round-trip tests
// never garbage-collect.
func Str0(h *Heap, s string) Value {
	id, err := h.Allocate(NewStr(s))
	if err != nil {
		panic(err)
	}
	return Ref(id)
}
