package convert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRoundTripList(t *testing.T) {
	want := List([]Value{Int(1), Str("two"), Bool(true), None()})
	data, err := Marshal(want)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestMarshalTupleUsesReservedKey(t *testing.T) {
	data, err := Marshal(Tuple([]Value{Int(1), Int(2)}))
	require.NoError(t, err)
	require.JSONEq(t, `{"$tuple":[1,2]}`, string(data))

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, KindTuple, got.Kind)
	require.Equal(t, []Value{Int(1), Int(2)}, got.Items)
}

func TestMarshalBytesBase64(t *testing.T) {
	data, err := Marshal(Bytes([]byte{0, 1, 2}))
	require.NoError(t, err)
	require.JSONEq(t, `{"$bytes":"AAEC"}`, string(data))

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 1, 2}, got.Bytes)
}

func TestMarshalEllipsis(t *testing.T) {
	data, err := Marshal(Ellipsis())
	require.NoError(t, err)
	require.JSONEq(t, `{"$ellipsis":true}`, string(data))

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, KindEllipsis, got.Kind)
}

func TestMarshalException(t *testing.T) {
	v := Value{Kind: KindException, Exc: &Exception{Type: "ValueError", Message: "bad", Traceback: []string{"<module>"}}}
	data, err := Marshal(v)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, "ValueError", got.Exc.Type)
	require.Equal(t, "bad", got.Exc.Message)
	require.Equal(t, []string{"<module>"}, got.Exc.Traceback)
}

func TestMarshalCycle(t *testing.T) {
	v := Value{Kind: KindCycle, CycleID: 3, CyclePlaceholder: "[...]"}
	data, err := Marshal(v)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, KindCycle, got.Kind)
	require.Equal(t, int64(3), got.CycleID)
	require.Equal(t, "[...]", got.CyclePlaceholder)
}

func TestMarshalRepr(t *testing.T) {
	data, err := Marshal(Repr("<function a>"))
	require.NoError(t, err)
	require.JSONEq(t, `{"$repr":"<function a>"}`, string(data))

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, KindRepr, got.Kind)
	require.Equal(t, "<function a>", got.Str)
}

func TestToJSONRejectsNonStringDictKey(t *testing.T) {
	_, err := ToJSON(Dict([]Pair{{Key: Int(1), Val: Str("x")}}))
	require.Error(t, err)
}

func TestUnmarshalLargeIntegerExact(t *testing.T) {
	got, err := Unmarshal([]byte(`9007199254740993`))
	require.NoError(t, err)
	require.Equal(t, KindInt, got.Kind)
	require.Equal(t, int64(9007199254740993), got.Int)
}
