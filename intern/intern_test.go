package intern

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreseededBlock(t *testing.T) {
	tbl := New()
	require.Equal(t, "<module>", tbl.String(ModuleID))
	require.Equal(t, "append", tbl.String(MethodAppend))
	require.Equal(t, "istitle", tbl.String(MethodIstitle))
	require.Equal(t, "", tbl.String(EmptyStringID))
	require.Equal(t, "a", tbl.String(SingleByteID('a')))
	require.Equal(t, "\x00", tbl.String(SingleByteID(0)))
}

func TestInternDedup(t *testing.T) {
	tbl := New()
	a := tbl.Intern("hello")
	b := tbl.Intern("hello")
	require.Equal(t, a, b)
	c := tbl.Intern("world")
	require.NotEqual(t, a, c)
	require.Equal(t, "hello", tbl.String(a))
}

func TestInternBytesNoDedup(t *testing.T) {
	tbl := New()
	a := tbl.InternBytes([]byte("xy"))
	b := tbl.InternBytes([]byte("xy"))
	require.NotEqual(t, a, b)
	require.Equal(t, []byte("xy"), tbl.Bytes(a))
	require.Equal(t, []byte("xy"), tbl.Bytes(b))
}
