package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqualNumericCrossTag(t *testing.T) {
	h := newTestHeap()
	require.True(t, Equal(h, Int(1), Bool(true)))
	require.True(t, Equal(h, Int(2), Float(2.0)))
	require.False(t, Equal(h, Int(2), Float(2.5)))
}

func TestEqualStrByValue(t *testing.T) {
	h := newTestHeap()
	a := Ref(mustAlloc(t, h, NewStr("ok")))
	b := Ref(mustAlloc(t, h, NewStr("ok")))
	require.True(t, Equal(h, a, b))
}

func TestHashMatchesForEqualImmutables(t *testing.T) {
	h := newTestHeap()
	a := Ref(mustAlloc(t, h, NewStr("x")))
	b := Ref(mustAlloc(t, h, NewStr("x")))
	ha, ok := h.Hash(a)
	require.True(t, ok)
	hb, ok := h.Hash(b)
	require.True(t, ok)
	require.Equal(t, ha, hb)
}

func TestHashRejectsMutableContainers(t *testing.T) {
	h := newTestHeap()
	l := Ref(mustAlloc(t, h, NewList(nil)))
	_, ok := h.Hash(l)
	require.False(t, ok)
}

func TestFrozenSetIsHashable(t *testing.T) {
	h := newTestHeap()
	s := NewSet()
	s.Add(h, Int(1))
	frozen := s.Clone(h, true)
	id := mustAlloc(t, h, frozen)
	_, ok := h.Hash(Ref(id))
	require.True(t, ok)
}

func TestCmpOrdersStrings(t *testing.T) {
	h := newTestHeap()
	a := Ref(mustAlloc(t, h, NewStr("a")))
	b := Ref(mustAlloc(t, h, NewStr("b")))
	c, ok := Cmp(h, a, b)
	require.True(t, ok)
	require.Equal(t, -1, c)
}

func TestAddConcatenatesLists(t *testing.T) {
	h := newTestHeap()
	a := Ref(mustAlloc(t, h, NewList([]Value{Int(1)})))
	b := Ref(mustAlloc(t, h, NewList([]Value{Int(2)})))
	sum, err := Add(h, a, b)
	require.NoError(t, err)
	result := h.payload(sum.HeapID()).(*List)
	require.Equal(t, []Value{Int(1), Int(2)}, result.Items())
}

func TestAddRejectsMismatchedTypes(t *testing.T) {
	h := newTestHeap()
	a := Ref(mustAlloc(t, h, NewStr("x")))
	_, err := Add(h, a, Int(1))
	require.Error(t, err)
}

func TestModMatchesPythonFloorSemantics(t *testing.T) {
	h := newTestHeap()
	v, err := Mod(h, Int(-7), Int(3))
	require.NoError(t, err)
	require.Equal(t, int64(2), v.AsInt())
}

func TestGetItemListNegativeIndex(t *testing.T) {
	h := newTestHeap()
	l := Ref(mustAlloc(t, h, NewList([]Value{Int(1), Int(2), Int(3)})))
	v, err := GetItem(h, l, Int(-1))
	require.NoError(t, err)
	require.Equal(t, int64(3), v.AsInt())
}

func TestGetItemOutOfRange(t *testing.T) {
	h := newTestHeap()
	l := Ref(mustAlloc(t, h, NewList([]Value{Int(1)})))
	_, err := GetItem(h, l, Int(5))
	require.Error(t, err)
}

func TestReprCycleSafeList(t *testing.T) {
	h := newTestHeap()
	id := mustAlloc(t, h, NewList(nil))
	h.payload(id).(*List).Append(Ref(id))
	require.Equal(t, "[[...]]", Repr(h, Ref(id)))
}

func TestReprTupleSingleton(t *testing.T) {
	h := newTestHeap()
	id := mustAlloc(t, h, NewTuple([]Value{Int(1)}))
	require.Equal(t, "(1,)", Repr(h, Ref(id)))
}

func TestStrUnquotesTopLevelString(t *testing.T) {
	h := newTestHeap()
	id := mustAlloc(t, h, NewStr("hi"))
	require.Equal(t, "hi", Str(h, Ref(id)))
	require.Equal(t, `'hi'`, Repr(h, Ref(id)))
}
