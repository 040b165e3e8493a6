package monty

import (
	"testing"

	"github.com/montylang/monty/convert"
	"github.com/montylang/monty/eval"
	"github.com/montylang/monty/resource"
	"github.com/stretchr/testify/require"
)

func TestRunNoSnapshotSimpleArithmetic(t *testing.T) {
	c, err := NewCompiled("x = 1\ny = 2\nreturn x + y\n", "<test>", nil, nil)
	require.NoError(t, err)

	result, err := c.RunNoSnapshot(nil, resource.NewLimits(), eval.DiscardWriter{})
	require.NoError(t, err)
	require.Equal(t, convert.Int(3), result)
}

func TestRunNoSnapshotUsesInputs(t *testing.T) {
	c, err := NewCompiled("return a + b\n", "<test>", []string{"a", "b"}, nil)
	require.NoError(t, err)

	result, err := c.RunNoSnapshot([]convert.Value{convert.Int(10), convert.Int(32)}, resource.NewLimits(), eval.DiscardWriter{})
	require.NoError(t, err)
	require.Equal(t, convert.Int(42), result)
}

func TestRunNoSnapshotRejectsExternals(t *testing.T) {
	c, err := NewCompiled("return ext_fn(1)\n", "<test>", nil, []string{"ext_fn"})
	require.NoError(t, err)

	_, err = c.RunNoSnapshot(nil, resource.NewLimits(), eval.DiscardWriter{})
	require.Error(t, err)
}

func TestRunSnapshotPausesAndResumes(t *testing.T) {
	c, err := NewCompiled("x = ext_fn(1)\ny = ext_fn(2)\nreturn x + y\n", "<test>", nil, []string{"ext_fn"})
	require.NoError(t, err)

	rp, err := c.RunSnapshot(nil, resource.NewLimits(), eval.DiscardWriter{})
	require.NoError(t, err)

	name, args, _, ok := rp.FunctionCall()
	require.True(t, ok)
	require.Equal(t, "ext_fn", name)
	require.Equal(t, []convert.Value{convert.Int(1)}, args)

	rp, err = rp.Run(convert.Int(10), eval.DiscardWriter{})
	require.NoError(t, err)

	name, args, _, ok = rp.FunctionCall()
	require.True(t, ok)
	require.Equal(t, "ext_fn", name)
	require.Equal(t, []convert.Value{convert.Int(2)}, args)

	rp, err = rp.Run(convert.Int(20), eval.DiscardWriter{})
	require.NoError(t, err)

	result, done := rp.Complete()
	require.True(t, done)
	require.Equal(t, convert.Int(30), result)
}

func TestRunSnapshotPausesInsideFunctionAndResumes(t *testing.T) {
	src := "def a():\n    x = ext_fn(1)\n    return x + 1\n\nresult = a()\nreturn result + 100\n"
	c, err := NewCompiled(src, "<test>", nil, []string{"ext_fn"})
	require.NoError(t, err)

	rp, err := c.RunSnapshot(nil, resource.NewLimits(), eval.DiscardWriter{})
	require.NoError(t, err)

	name, args, _, ok := rp.FunctionCall()
	require.True(t, ok)
	require.Equal(t, "ext_fn", name)
	require.Equal(t, []convert.Value{convert.Int(1)}, args)

	rp, err = rp.Run(convert.Int(9), eval.DiscardWriter{})
	require.NoError(t, err)

	result, done := rp.Complete()
	require.True(t, done)
	require.Equal(t, convert.Int(110), result)
}

func TestRunProgressDumpLoadRoundTripInsideFunction(t *testing.T) {
	src := "def a():\n    x = ext_fn(5)\n    return x + 1\n\nreturn a() + 1\n"
	c, err := NewCompiled(src, "<test>", nil, []string{"ext_fn"})
	require.NoError(t, err)

	rp, err := c.RunSnapshot(nil, resource.NewLimits(), eval.DiscardWriter{})
	require.NoError(t, err)
	_, args, _, ok := rp.FunctionCall()
	require.True(t, ok)
	require.Equal(t, []convert.Value{convert.Int(5)}, args)

	data, err := rp.Dump()
	require.NoError(t, err)

	reloaded, err := LoadRunProgress(data, resource.NewLimits(), eval.DiscardWriter{})
	require.NoError(t, err)

	reloaded, err = reloaded.Run(convert.Int(9), eval.DiscardWriter{})
	require.NoError(t, err)

	result, done := reloaded.Complete()
	require.True(t, done)
	require.Equal(t, convert.Int(11), result)
}

func TestCompiledDumpLoadRoundTrip(t *testing.T) {
	c, err := NewCompiled("return a * 2\n", "<test>", []string{"a"}, nil)
	require.NoError(t, err)

	loaded, err := LoadCompiled(c.Dump())
	require.NoError(t, err)

	result, err := loaded.RunNoSnapshot([]convert.Value{convert.Int(21)}, resource.NewLimits(), eval.DiscardWriter{})
	require.NoError(t, err)
	require.Equal(t, convert.Int(42), result)
}

func TestRunNoSnapshotLoopAccumulates(t *testing.T) {
	src := "total = 0\nfor i in range(5):\n    total = total + i\nreturn total\n"
	c, err := NewCompiled(src, "<test>", nil, nil)
	require.NoError(t, err)

	result, err := c.RunNoSnapshot(nil, resource.NewLimits(), eval.DiscardWriter{})
	require.NoError(t, err)
	require.Equal(t, convert.Int(10), result)
}

func TestRunNoSnapshotUncaughtExceptionSurfaces(t *testing.T) {
	c, err := NewCompiled("return 1 / 0\n", "<test>", nil, nil)
	require.NoError(t, err)

	_, err = c.RunNoSnapshot(nil, resource.NewLimits(), eval.DiscardWriter{})
	require.Error(t, err)
	var rerr *eval.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.NotNil(t, rerr.Guest)
	require.Equal(t, eval.ExcZeroDivisionError, rerr.Guest.Type)
}

func TestRunNoSnapshotCatchesException(t *testing.T) {
	src := "result = 0\ntry:\n    result = 1 / 0\nexcept ZeroDivisionError:\n    result = -1\nreturn result\n"
	c, err := NewCompiled(src, "<test>", nil, nil)
	require.NoError(t, err)

	result, err := c.RunNoSnapshot(nil, resource.NewLimits(), eval.DiscardWriter{})
	require.NoError(t, err)
	require.Equal(t, convert.Int(-1), result)
}

func TestRunNoSnapshotPrintsThroughWriter(t *testing.T) {
	c, err := NewCompiled("print(\"hi\")\nreturn None\n", "<test>", nil, nil)
	require.NoError(t, err)

	out := &eval.CollectorWriter{}
	_, err = c.RunNoSnapshot(nil, resource.NewLimits(), out)
	require.NoError(t, err)
	require.Equal(t, "hi\n", out.String())
}

func TestRunProgressDumpLoadRoundTrip(t *testing.T) {
	c, err := NewCompiled("x = ext_fn(5)\nreturn x + 1\n", "<test>", nil, []string{"ext_fn"})
	require.NoError(t, err)

	rp, err := c.RunSnapshot(nil, resource.NewLimits(), eval.DiscardWriter{})
	require.NoError(t, err)
	_, args, _, ok := rp.FunctionCall()
	require.True(t, ok)
	require.Equal(t, []convert.Value{convert.Int(5)}, args)

	data, err := rp.Dump()
	require.NoError(t, err)

	reloaded, err := LoadRunProgress(data, resource.NewLimits(), eval.DiscardWriter{})
	require.NoError(t, err)

	reloaded, err = reloaded.Run(convert.Int(99), eval.DiscardWriter{})
	require.NoError(t, err)

	result, done := reloaded.Complete()
	require.True(t, done)
	require.Equal(t, convert.Int(100), result)
}
