package eval

import (
	"github.com/montylang/monty/ast"
	"github.com/montylang/monty/core"
)

// dispatch resolves a Call/AttrCall callee into one of the four kinds
// named by crates/monty/src/callable.rs's Callable enum: Builtin,
// Function, Closure/FuncDefaults, or ExtFunction.

func (ev *Evaluator) evalCall(f *Frame, n *ast.Call) (core.Value, error) {
	callee, err := ev.evalUse(f, n.Callable)
	if err != nil {
		return core.Value{}, err
	}
	args, err := ev.evalExprList(f, n.Args)
	if err != nil {
		ev.drop(callee)
		return core.Value{}, err
	}
	defer ev.drop(callee)
	return ev.dispatch(f, callee, args)
}

func (ev *Evaluator) evalAttrCall(f *Frame, n *ast.AttrCall) (core.Value, error) {
	recv, err := ev.evalUse(f, n.Recv)
	if err != nil {
		return core.Value{}, err
	}
	args, err := ev.evalExprList(f, n.Args)
	if err != nil {
		ev.drop(recv)
		return core.Value{}, err
	}
	defer ev.drop(recv)
	return ev.Builtins.CallMethod(ev, recv, n.Method, args)
}

// dispatch resolves callee's kind and invokes it (spec.md §4.6
// eval_call): a Builtin id calls straight into the builtin table; a bare
// Function/Closure/FuncDefaults value calls the compiled function body,
// possibly suspending; an ExtFunction either suspends a fresh host call or
// replays a buffered return value if resuming past this call site.
func (ev *Evaluator) dispatch(f *Frame, callee core.Value, args []core.Value) (core.Value, error) {
	switch callee.Tag() {
	case core.TagBuiltin:
		return ev.Builtins.Call(ev, int(callee.AsInt()), args)
	case core.TagFunction:
		return ev.callFunction(int(callee.AsInt()), nil, nil, args)
	case core.TagExtFunction:
		return ev.callExternal(int(callee.AsInt()), args)
	case core.TagRef:
		switch p := ev.Heap.Payload(callee.HeapID()).(type) {
		case *core.Closure:
			return ev.callFunction(p.FuncID, p.Cells(), p.Defaults(), args)
		case *core.FuncDefaults:
			return ev.callFunction(p.FuncID, nil, p.Defaults(), args)
		}
	}
	ev.dropAll(args)
	return core.Value{}, ev.raise(ExcTypeError, "'%s' object is not callable", callee.TypeName(ev.Heap))
}

// Invoke calls callee with args exactly as a guest Call expression would
// (spec.md §4.6 eval_call), exposed for builtins such as map() and
// sorted(key=...) that accept a function value as an argument.
func (ev *Evaluator) Invoke(callee core.Value, args []core.Value) (core.Value, error) {
	return ev.dispatch(nil, callee, args)
}

// callExternal either suspends (fresh call) or replays the buffered
// result (resuming past a previously suspended call site), spec.md §4.7
// steps 1-3.
func (ev *Evaluator) callExternal(id int, args []core.Value) (core.Value, error) {
	if v, ok := ev.NS.TakeExtReturnValue(); ok {
		ev.dropAll(args)
		return v, nil
	}
	name := ev.Externals[id]
	return core.Value{}, &suspendSignal{Call: ExternalCall{Name: name, Args: args}}
}

// materializeFunction builds the heap/immediate Value for a freshly
// defined function: a bare Function id when it neither captures free
// variables nor has defaults, a FuncDefaults payload when it only has
// defaults, and a Closure payload (capturing the enclosing frame's cell
// slots by reference) otherwise (spec.md §3.3, §3.6).
func (ev *Evaluator) materializeFunction(f *Frame, fn *ast.Function) (core.Value, error) {
	funcID := ev.functionID(fn)

	var defaults []core.Value
	if len(fn.Defaults) > 0 {
		var err error
		defaults, err = ev.evalExprList(f, fn.Defaults)
		if err != nil {
			return core.Value{}, err
		}
	}

	if !fn.RequiresClosure() {
		if len(defaults) == 0 {
			return core.Function(funcID), nil
		}
		id, err := ev.Heap.Allocate(core.NewFuncDefaults(funcID, defaults))
		if err != nil {
			ev.dropAll(defaults)
			return core.Value{}, err
		}
		return core.Ref(id), nil
	}

	// Each entry in fn.FreeVars names the slot in *this* (enclosing)
	// frame already holding a Ref(Cell) — either a cell this frame
	// declared for itself or one it in turn received as a free
	// variable — captured by reference, not dereferenced.
	cells := make([]core.Value, 0, len(fn.FreeVars))
	for _, ident := range fn.FreeVars {
		cellRef := ev.NS.RawSlot(f.NS, ident.Slot)
		cells = append(cells, ev.own(cellRef))
	}
	id, err := ev.Heap.Allocate(core.NewClosure(funcID, cells, defaults))
	if err != nil {
		ev.dropAll(cells)
		ev.dropAll(defaults)
		return core.Value{}, err
	}
	return core.Ref(id), nil
}

// functionID finds fn's index in the evaluator's compiled function table,
// used so that repeated evaluation of the same FuncDef (e.g. inside a
// loop) always materializes a Value pointing at the same compiled body.
func (ev *Evaluator) functionID(fn *ast.Function) int {
	for i, f := range ev.Functions {
		if f == fn {
			return i
		}
	}
	ev.Functions = append(ev.Functions, fn)
	return len(ev.Functions) - 1
}

// callFunction binds args (and cells/defaults, if any) into a fresh
// namespace, pushes a frame, and runs the function body to completion or
// suspension (spec.md §4.6 call_function, §3.4 namespace layout
// [params][cell_vars][free_vars][locals]).
//
// During a Resume walk, ev.resumeQueue holds the frames left suspended
// inside nested calls (outermost first); a call reached while it is
// non-empty is not a fresh invocation but the replay of one of those
// calls, and is handed to resumeFunction instead.
func (ev *Evaluator) callFunction(funcID int, cells, defaults, args []core.Value) (core.Value, error) {
	if len(ev.resumeQueue) > 0 {
		return ev.resumeFunction(funcID, cells, defaults, args)
	}

	fn := ev.Functions[funcID]

	if err := ev.Tracker.CheckRecursionDepth(ev.Stack.Depth() + 1); err != nil {
		ev.dropAll(args)
		ev.dropAll(cells)
		return core.Value{}, err
	}

	nsID, err := ev.NS.New(fn.NamespaceSize, ev.Stack.Depth()+1)
	if err != nil {
		ev.dropAll(args)
		ev.dropAll(cells)
		return core.Value{}, err
	}
	slots := ev.NS.Slots(nsID)

	nParams := fn.NumParams()
	nDefaults := len(defaults)
	if err := ev.bindParams(slots, fn, args, defaults, nParams, nDefaults); err != nil {
		ev.NS.DropWithHeap(nsID, ev.Heap)
		return core.Value{}, err
	}

	cellBase := nParams
	for i := 0; i < fn.NumCellVars; i++ {
		id, aerr := ev.Heap.Allocate(core.NewCell())
		if aerr != nil {
			ev.NS.DropWithHeap(nsID, ev.Heap)
			return core.Value{}, aerr
		}
		slots[cellBase+i] = core.Ref(id)
	}
	freeBase := cellBase + fn.NumCellVars
	for i, c := range cells {
		slots[freeBase+i] = c // ownership transferred from the closure payload's own reference
	}

	frame := &Frame{FuncName: ev.Strings.String(fn.Name), NS: nsID, Pos: fn.Pos}
	ev.Stack.Push(frame)

	err = ev.evalStmts(frame, fn.Body, nil)
	return ev.finishFrame(frame, nsID, err)
}

// resumeFunction re-enters a frame left suspended inside a nested call
// during a Resume walk, reusing its existing namespace rather than
// binding a fresh one: params/cells were already bound when the call
// first ran, and args/cells/defaults here are only freshly (re-)computed
// because the statement that made this call is being replayed from the
// top, matching how a single-frame external call replays (spec.md §4.7).
func (ev *Evaluator) resumeFunction(funcID int, cells, defaults, args []core.Value) (core.Value, error) {
	frame := ev.resumeQueue[0]
	ev.resumeQueue = ev.resumeQueue[1:]
	ev.dropAll(args)
	ev.dropAll(cells)
	ev.dropAll(defaults)

	ev.Stack.Push(frame)
	resume := frame.Resume
	frame.Resume = nil

	fn := ev.Functions[funcID]
	err := ev.evalStmts(frame, fn.Body, resume)
	return ev.finishFrame(frame, frame.NS, err)
}

// bindParams assigns positional args to parameter slots, filling any
// trailing unsupplied params from defaults (right-aligned, matching
// Python's trailing-defaults rule), then raises TypeError on arity
// mismatch.
func (ev *Evaluator) bindParams(slots []core.Value, fn *ast.Function, args, defaults []core.Value, nParams, nDefaults int) error {
	nRequired := nParams - nDefaults
	if len(args) > nParams || len(args) < nRequired {
		ev.dropAll(args)
		ev.dropAll(defaults)
		return ev.raise(ExcTypeError, "%s() takes %d argument(s) but %d were given", ev.Strings.String(fn.Name), nParams, len(args))
	}
	for i := 0; i < len(args); i++ {
		slots[i] = args[i]
	}
	for i := len(args); i < nParams; i++ {
		slots[i] = defaults[i-nRequired]
	}
	return nil
}

// finishFrame unwinds a completed or suspended frame: on normal
// completion or an uncaught exception it pops the frame and drops its
// namespace; on suspension it leaves both in place (spec.md I-R1: "heap
// and namespace stack unchanged between suspension and resume").
//
// sig.Positions is reset once consumed into frame.Resume: it accumulates
// only within the frame currently unwinding (stmt.go's evalStmt appends
// to it at every enclosing block of that one frame), and must start
// empty again before the signal keeps propagating into the caller's own
// frame, or the caller's Resume path would end up carrying this frame's
// positions too.
func (ev *Evaluator) finishFrame(frame *Frame, nsID NamespaceID, err error) (core.Value, error) {
	if sig, ok := err.(*suspendSignal); ok {
		frame.Resume = reverseCodePositions(sig.Positions)
		sig.Positions = nil
		return core.Value{}, sig
	}

	ev.Stack.Pop()
	ev.NS.DropWithHeap(nsID, ev.Heap)

	switch e := err.(type) {
	case nil:
		return core.None, nil
	case returnSignal:
		return e.Value, nil
	default:
		return core.Value{}, err
	}
}

func reverseCodePositions(in []CodePosition) []CodePosition {
	out := make([]CodePosition, len(in))
	for i, p := range in {
		out[len(in)-1-i] = p
	}
	return out
}

// Run begins or continues evaluating the top-level program body in f
// (the module's implicit frame), returning control to the host either on
// normal completion, an uncaught guest exception, a resource error, or a
// suspension awaiting an external call's result (spec.md §3.7 run).
func (ev *Evaluator) Run(body []ast.Stmt) (core.Value, error) {
	frame := &Frame{FuncName: "<module>"}
	ev.Stack.Push(frame)
	err := ev.evalStmts(frame, body, nil)
	return ev.finishFrame(frame, GlobalNamespaceID, err)
}

// Resume continues a previously suspended Run, replaying resumeValue as
// the suspended external call's return value (spec.md §4.7 step 1: "the
// host supplies a return value and execution resumes").
//
// A suspension may have unwound through any number of nested function
// calls, each left on ev.Stack with its own Resume path and namespace
// (spec.md §5: "the suspension/resume protocol walks the whole frame
// stack"). Resume re-enters only the module frame directly; the frames
// below it are queued in ev.resumeQueue and reattached one at a time by
// callFunction/resumeFunction as the replay of the module frame's own
// suspended statement reaches the call that led to each of them, in
// order, outermost first. If resuming hits a fresh external call before
// the queue drains — or any frame re-suspends partway back down — the
// ordinary suspend path (finishFrame, stmt.go's position accumulation)
// takes back over at whatever depth that happens.
func (ev *Evaluator) Resume(body []ast.Stmt, resumeValue core.Value) (core.Value, error) {
	ev.NS.PushExtReturnValue(resumeValue)

	frame := ev.Stack.frames[0]
	ev.resumeQueue = append([]*Frame(nil), ev.Stack.frames[1:]...)
	ev.Stack.frames = ev.Stack.frames[:1]

	resume := frame.Resume
	frame.Resume = nil
	err := ev.evalStmts(frame, body, resume)
	ev.resumeQueue = nil
	ev.NS.ClearExtReturnValues()
	return ev.finishFrame(frame, GlobalNamespaceID, err)
}
