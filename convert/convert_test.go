package convert

import (
	"testing"

	"github.com/montylang/monty/core"
	"github.com/montylang/monty/eval"
	"github.com/montylang/monty/intern"
	"github.com/montylang/monty/resource"
	"github.com/stretchr/testify/require"
)

func newTestHeap() *core.Heap {
	return core.NewHeap(intern.New(), &resource.NoLimitTracker{})
}

func TestFromGuestScalars(t *testing.T) {
	h := newTestHeap()
	require.Equal(t, None(), FromGuest(h, core.None))
	require.Equal(t, Bool(true), FromGuest(h, core.Bool(true)))
	require.Equal(t, Int(42), FromGuest(h, core.Int(42)))
	require.Equal(t, Float(1.5), FromGuest(h, core.Float(1.5)))
}

func TestGuestRoundTripList(t *testing.T) {
	h := newTestHeap()
	want := List([]Value{Int(1), Str("two"), Bool(true)})
	gv, err := ToGuest(h, want)
	require.NoError(t, err)

	got := FromGuest(h, gv)
	require.Equal(t, want, got)
}

func TestGuestRoundTripDict(t *testing.T) {
	h := newTestHeap()
	want := Dict([]Pair{{Key: Str("a"), Val: Int(1)}, {Key: Str("b"), Val: Int(2)}})
	gv, err := ToGuest(h, want)
	require.NoError(t, err)

	got := FromGuest(h, gv)
	require.Equal(t, KindDict, got.Kind)
	require.Len(t, got.Pairs, 2)
}

func TestFromGuestDetectsCycle(t *testing.T) {
	h := newTestHeap()
	id, err := h.Allocate(core.NewList(nil))
	require.NoError(t, err)
	h.Payload(id).(*core.List).Append(core.Ref(id))
	h.IncRef(id) // the list now holds a ref to itself

	got := FromGuest(h, core.Ref(id))
	require.Equal(t, KindList, got.Kind)
	require.Len(t, got.Items, 1)
	require.Equal(t, KindCycle, got.Items[0].Kind)
	require.Equal(t, int64(id), got.Items[0].CycleID)
	require.Equal(t, "[...]", got.Items[0].CyclePlaceholder)
}

func TestToGuestRejectsCycleValue(t *testing.T) {
	h := newTestHeap()
	_, err := ToGuest(h, Value{Kind: KindCycle, CycleID: 1})
	require.Error(t, err)
	var guestErr *eval.GuestException
	require.ErrorAs(t, err, &guestErr)
	require.Equal(t, eval.ExcValueError, guestErr.Type)
}

func TestFromGuestFunctionIsRepr(t *testing.T) {
	h := newTestHeap()
	got := FromGuest(h, core.Builtin(1))
	require.Equal(t, KindRepr, got.Kind)
	require.NotEmpty(t, got.Str)
}

func TestToGuestRejectsReprValue(t *testing.T) {
	h := newTestHeap()
	_, err := ToGuest(h, Repr("<builtin print>"))
	require.Error(t, err)
	var guestErr *eval.GuestException
	require.ErrorAs(t, err, &guestErr)
	require.Equal(t, eval.ExcValueError, guestErr.Type)
}

func TestToGuestUnhashableSetMember(t *testing.T) {
	h := newTestHeap()
	unhashable := List([]Value{Int(1)})
	_, err := ToGuest(h, SetOf([]Value{unhashable}))
	require.Error(t, err)
}

func TestFromGuestException(t *testing.T) {
	exc := &eval.GuestException{
		Type:    eval.ExcTypeError,
		Message: "bad type",
		Traceback: []eval.TraceEntry{
			{FuncName: "<module>"},
			{FuncName: "f"},
		},
	}
	v := FromGuestException(exc)
	require.Equal(t, KindException, v.Kind)
	require.Equal(t, "TypeError", v.Exc.Type)
	require.Equal(t, "bad type", v.Exc.Message)
	require.Equal(t, []string{"<module>", "f"}, v.Exc.Traceback)
}

func TestBytesRoundTrip(t *testing.T) {
	h := newTestHeap()
	want := Bytes([]byte{1, 2, 3, 0, 255})
	gv, err := ToGuest(h, want)
	require.NoError(t, err)
	got := FromGuest(h, gv)
	require.Equal(t, want.Bytes, got.Bytes)
}
