// Package monty is the public façade over the parser, evaluator and
// heap: compile a source string once, then run it to completion or, for
// programs with external functions, pause at each external call and
// resume with a host-supplied value (spec.md §6.1). Grounded on the
// teacher's api.go (GrammarFromBytes/GrammarFromFile as one-shot compile
// entry points feeding a single downstream pipeline) and vm_encoder.go
// (a dedicated binary round-trip for the compiled artifact), generalized
// from a one-shot grammar compile to a resumable program run.
package monty

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/montylang/monty/ast"
	"github.com/montylang/monty/builtin"
	"github.com/montylang/monty/convert"
	"github.com/montylang/monty/core"
	"github.com/montylang/monty/eval"
	"github.com/montylang/monty/intern"
	"github.com/montylang/monty/parse"
	"github.com/montylang/monty/resource"
	"github.com/montylang/monty/wire"
)

// Compiled is a compile-once object ready to be run any number of times
// (spec.md §6.1 Compiled::new). Strings is kept alongside Program
// because every run needs the same interner the compiler used to assign
// name slots.
type Compiled struct {
	Source        string
	FileName      string
	InputNames    []string
	ExternalNames []string

	Program *parse.Program
	Strings *intern.Table
}

// NewCompiled lexes, parses and scope-resolves source (spec.md §6.1
// Compiled::new(source, file_name, input_names, external_names)).
func NewCompiled(source, fileName string, inputNames, externalNames []string) (*Compiled, error) {
	strs := intern.New()
	program, err := parse.Compile(source, fileName, inputNames, externalNames, strs)
	if err != nil {
		return nil, err
	}
	return &Compiled{
		Source: source, FileName: fileName,
		InputNames: append([]string(nil), inputNames...),
		ExternalNames: append([]string(nil), externalNames...),
		Program: program, Strings: strs,
	}, nil
}

// runSetup wires a fresh Heap/Namespaces/Evaluator for one run, seeding
// the global slots Compile reserved for builtins, external-function
// handles and input values, in that order (spec.md §4.1/§6.1).
func (c *Compiled) runSetup(inputs []convert.Value, tracker resource.Tracker, printer eval.PrintWriter, snap eval.SnapshotMode) (*eval.Evaluator, error) {
	if len(inputs) != len(c.InputNames) {
		return nil, fmt.Errorf("monty: expected %d input(s), got %d", len(c.InputNames), len(inputs))
	}

	heap := core.NewHeap(c.Strings, tracker)
	ns := eval.NewNamespaces(tracker, c.Program.GlobalSize)
	ev := eval.NewEvaluator(heap, ns, c.Strings, tracker, builtin.New(), c.Program.Functions, c.Program.Externals, printer, snap)

	for i, slot := range c.Program.BuiltinSlots {
		ns.Set(eval.GlobalNamespaceID, heap, globalIdent(slot), core.Builtin(i))
	}
	for i, slot := range c.Program.ExternalSlots {
		ns.Set(eval.GlobalNamespaceID, heap, globalIdent(slot), core.ExtFunction(i))
	}
	for i, slot := range c.Program.InputSlots {
		v, err := convert.ToGuest(heap, inputs[i])
		if err != nil {
			return nil, err
		}
		ns.Set(eval.GlobalNamespaceID, heap, globalIdent(slot), v)
	}
	return ev, nil
}

func globalIdent(slot int) ast.Identifier {
	return ast.Identifier{Scope: ast.ScopeGlobal, Slot: slot}
}

// RunNoSnapshot is the fast path for a program that declares no external
// functions: it runs to completion or failure in one call (spec.md §6.1
// Compiled::run_no_snapshot).
func (c *Compiled) RunNoSnapshot(inputs []convert.Value, limits resource.Limits, printer eval.PrintWriter) (convert.Value, error) {
	if len(c.ExternalNames) > 0 {
		return convert.Value{}, fmt.Errorf("monty: run_no_snapshot requires no declared external functions, got %d", len(c.ExternalNames))
	}
	tracker := trackerFor(limits)
	ev, err := c.runSetup(inputs, tracker, printer, eval.NoSnapshotTracker{})
	if err != nil {
		return convert.Value{}, err
	}
	result, err := ev.Run(c.Program.Body)
	if err != nil {
		return convert.Value{}, wireRuntimeError(err)
	}
	out := convert.FromGuest(ev.Heap, result)
	ev.Drop(result)
	return out, nil
}

// RunSnapshot is the full resumable path: it returns either a completed
// RunProgress or one paused at the first external call the program makes
// (spec.md §6.1 Compiled::run_snapshot).
func (c *Compiled) RunSnapshot(inputs []convert.Value, limits resource.Limits, printer eval.PrintWriter) (*RunProgress, error) {
	tracker := trackerFor(limits)
	ev, err := c.runSetup(inputs, tracker, printer, &eval.RealSnapshotTracker{})
	if err != nil {
		return nil, err
	}
	rp := &RunProgress{compiled: c, ev: ev, runID: uuid.New()}
	result, err := ev.Run(c.Program.Body)
	rp.absorb(result, err)
	return rp, rp.err
}

func trackerFor(limits resource.Limits) resource.Tracker {
	if limits == (resource.Limits{}) {
		return &resource.NoLimitTracker{}
	}
	return resource.NewLimitedTracker(limits)
}

// wireRuntimeError adapts a Run/Resume error into the wire-level
// taxonomy of spec.md §6.4, unless it already is one.
func wireRuntimeError(err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *eval.RuntimeError:
		return err
	case *eval.GuestException:
		return &eval.RuntimeError{Guest: err.(*eval.GuestException)}
	case resource.Error:
		return &eval.RuntimeError{Resource: err.(resource.Error)}
	default:
		return &eval.RuntimeError{Internal: err}
	}
}

// RunProgress is the status of an in-flight execution: complete, or
// paused awaiting a host-supplied return value for a pending external
// call (spec.md §6.1 RunProgress::{Complete|FunctionCall}).
type RunProgress struct {
	compiled *Compiled
	ev       *eval.Evaluator
	runID    uuid.UUID

	done    bool
	result  core.Value
	pending eval.ExternalCall
	err     error
}

func (rp *RunProgress) absorb(result core.Value, err error) {
	if call, ok := eval.AsSuspension(err); ok {
		rp.pending = call
		return
	}
	if err != nil {
		rp.err = wireRuntimeError(err)
		return
	}
	rp.done = true
	rp.result = result
}

// Complete reports whether the run has finished, and its result if so.
func (rp *RunProgress) Complete() (convert.Value, bool) {
	if !rp.done {
		return convert.Value{}, false
	}
	return convert.FromGuest(rp.ev.Heap, rp.result), true
}

// FunctionCall reports the pending external call, if the run is paused
// on one (spec.md §6.1 RunProgress::FunctionCall{name, args, state}).
// monty's external-function surface is positional-only, so kwargs is
// always empty; it is still returned to mirror the host call shape
// spec.md names.
func (rp *RunProgress) FunctionCall() (name string, args []convert.Value, kwargs map[string]convert.Value, ok bool) {
	if rp.done || rp.err != nil {
		return "", nil, nil, false
	}
	out := make([]convert.Value, len(rp.pending.Args))
	for i, v := range rp.pending.Args {
		out[i] = convert.FromGuest(rp.ev.Heap, v)
	}
	return rp.pending.Name, out, nil, true
}

// Err returns the terminal error of a run that failed outright (as
// opposed to pausing on an external call), or nil.
func (rp *RunProgress) Err() error { return rp.err }

// Run supplies returnValue for the pending external call and resumes
// execution (spec.md §6.1 "state.run(return_value, print_writer)"),
// returning the same RunProgress advanced to its next pause, completion
// or failure.
func (rp *RunProgress) Run(returnValue convert.Value, printer eval.PrintWriter) (*RunProgress, error) {
	if rp.done || rp.err != nil {
		return rp, fmt.Errorf("monty: Run called on a finished RunProgress")
	}
	for _, v := range rp.pending.Args {
		rp.ev.Drop(v)
	}
	rp.ev.Print = printer
	gv, err := convert.ToGuest(rp.ev.Heap, returnValue)
	if err != nil {
		return rp, err
	}
	result, err := rp.ev.Resume(rp.compiled.Program.Body, gv)
	rp.absorb(result, err)
	return rp, rp.err
}

// artifactCompiled and artifactRunProgress distinguish a Compiled dump from a RunProgress dump at
// Load time, since both travel as opaque bytes over the same wire
// format (spec.md §6.1 "dump()/load() on Run" vs "on RunProgress").
const (
	artifactCompiled    uint8 = 1
	artifactRunProgress uint8 = 2
)

var zstdEncoder, _ = zstd.NewWriter(nil)
var zstdDecoder, _ = zstd.NewReader(nil)

// Dump serializes c to a compressed binary artifact (spec.md §6.1
// Compiled::dump). The artifact carries source + compile inputs rather
// than the resolved Program, so Load recompiles deterministically
// instead of needing to also round-trip every AST node kind.
func (c *Compiled) Dump() []byte {
	e := wire.NewEncoder()
	e.U8(artifactCompiled)
	id := uuid.New()
	idBytes, _ := id.MarshalBinary()
	e.Blob(idBytes)
	e.Str(c.Source)
	e.Str(c.FileName)
	e.I32(int32(len(c.InputNames)))
	for _, n := range c.InputNames {
		e.Str(n)
	}
	e.I32(int32(len(c.ExternalNames)))
	for _, n := range c.ExternalNames {
		e.Str(n)
	}
	return zstdEncoder.EncodeAll(e.Bytes(), nil)
}

// LoadCompiled decompresses and recompiles a Compiled from bytes written
// by Compiled.Dump (spec.md §6.1 Compiled::load).
func LoadCompiled(data []byte) (*Compiled, error) {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	d := wire.NewDecoder(raw)
	kind, err := d.U8()
	if err != nil {
		return nil, err
	}
	if kind != artifactCompiled {
		return nil, fmt.Errorf("monty: artifact is not a Compiled dump")
	}
	if _, err := d.Blob(); err != nil { // uuid, identity only
		return nil, err
	}
	source, err := d.Str()
	if err != nil {
		return nil, err
	}
	fileName, err := d.Str()
	if err != nil {
		return nil, err
	}
	inputNames, err := readStrList(d)
	if err != nil {
		return nil, err
	}
	externalNames, err := readStrList(d)
	if err != nil {
		return nil, err
	}
	return NewCompiled(source, fileName, inputNames, externalNames)
}

func readStrList(d *wire.Decoder) ([]string, error) {
	n, err := d.I32()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		out[i], err = d.Str()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Dump serializes the in-flight state of rp: the heap, the namespace
// stack, the frame stack (with its resume path) and the pending external
// call, plus the Compiled artifact needed to rebuild the function table
// on load (spec.md §6.1 "dump()/load() on RunProgress ... preserves
// execution state").
func (rp *RunProgress) Dump() ([]byte, error) {
	if rp.done || rp.err != nil {
		return nil, fmt.Errorf("monty: cannot dump a finished RunProgress")
	}
	e := wire.NewEncoder()
	e.U8(artifactRunProgress)
	idBytes, _ := rp.runID.MarshalBinary()
	e.Blob(idBytes)

	compiledBytes := rp.compiled.Dump()
	e.Blob(compiledBytes)

	rp.ev.Heap.Encode(e)
	eval.EncodeNamespaces(e, rp.ev.NS)
	eval.EncodeStack(e, &rp.ev.Stack)

	e.Str(rp.pending.Name)
	core.EncodeValueSlice(e, rp.pending.Args)

	return zstdEncoder.EncodeAll(e.Bytes(), nil), nil
}

// LoadRunProgress decompresses and rebuilds a RunProgress from bytes
// written by RunProgress.Dump, re-seeding a fresh tracker and print
// writer for the resumed run (neither is part of the binary artifact).
func LoadRunProgress(data []byte, limits resource.Limits, printer eval.PrintWriter) (*RunProgress, error) {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	d := wire.NewDecoder(raw)
	kind, err := d.U8()
	if err != nil {
		return nil, err
	}
	if kind != artifactRunProgress {
		return nil, fmt.Errorf("monty: artifact is not a RunProgress dump")
	}
	idBytes, err := d.Blob()
	if err != nil {
		return nil, err
	}
	runID, err := uuid.FromBytes(idBytes)
	if err != nil {
		return nil, err
	}
	compiledBytes, err := d.Blob()
	if err != nil {
		return nil, err
	}
	compiled, err := LoadCompiled(compiledBytes)
	if err != nil {
		return nil, err
	}

	tracker := trackerFor(limits)
	heap, err := core.DecodeHeap(d, compiled.Strings, tracker)
	if err != nil {
		return nil, err
	}
	ns, err := eval.DecodeNamespaces(d, tracker)
	if err != nil {
		return nil, err
	}
	stack, err := eval.DecodeStack(d)
	if err != nil {
		return nil, err
	}
	name, err := d.Str()
	if err != nil {
		return nil, err
	}
	args, err := core.DecodeValueSlice(d)
	if err != nil {
		return nil, err
	}

	ev := eval.NewEvaluator(heap, ns, compiled.Strings, tracker, builtin.New(), compiled.Program.Functions, compiled.Program.Externals, printer, &eval.RealSnapshotTracker{})
	ev.Stack = *stack

	return &RunProgress{
		compiled: compiled, ev: ev, runID: runID,
		pending: eval.ExternalCall{Name: name, Args: args},
	}, nil
}
