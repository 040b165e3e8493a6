package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripScalars(t *testing.T) {
	e := NewEncoder()
	e.U8(7)
	e.Bool(true)
	e.Bool(false)
	e.I32(-12345)
	e.I64(9223372036854775807)
	e.F64(3.5)
	e.Str("hello")
	e.Blob([]byte{1, 2, 3})

	d := NewDecoder(e.Bytes())
	u8, err := d.U8()
	require.NoError(t, err)
	require.Equal(t, uint8(7), u8)

	b1, err := d.Bool()
	require.NoError(t, err)
	require.True(t, b1)
	b2, err := d.Bool()
	require.NoError(t, err)
	require.False(t, b2)

	i32, err := d.I32()
	require.NoError(t, err)
	require.Equal(t, int32(-12345), i32)

	i64, err := d.I64()
	require.NoError(t, err)
	require.Equal(t, int64(9223372036854775807), i64)

	f64, err := d.F64()
	require.NoError(t, err)
	require.Equal(t, 3.5, f64)

	s, err := d.Str()
	require.NoError(t, err)
	require.Equal(t, "hello", s)

	blob, err := d.Blob()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, blob)

	require.True(t, d.Done())
}

func TestDecodeTruncatedInputErrors(t *testing.T) {
	e := NewEncoder()
	e.I64(1)
	buf := e.Bytes()[:4] // chop the I64 in half

	d := NewDecoder(buf)
	_, err := d.I64()
	require.Error(t, err)
}

func TestBlobEmpty(t *testing.T) {
	e := NewEncoder()
	e.Blob(nil)
	d := NewDecoder(e.Bytes())
	got, err := d.Blob()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestNegativeFloatRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.F64(-0.0001)
	d := NewDecoder(e.Bytes())
	f, err := d.F64()
	require.NoError(t, err)
	require.Equal(t, -0.0001, f)
}
