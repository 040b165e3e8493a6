package eval

import (
	"github.com/montylang/monty/ast"
	"github.com/montylang/monty/core"
)

// evalStmts runs body starting from resume's position (or from the top
// when resume is empty), checking the tracker's time limit and GC
// cadence at each statement boundary (spec.md §4.6, §4.8).
func (ev *Evaluator) evalStmts(f *Frame, body []ast.Stmt, resume []CodePosition) error {
	start := 0
	var innerResume []CodePosition
	var innerClause *ClauseState
	if len(resume) > 0 {
		start = resume[0].Index
		innerClause = resume[0].Clause
		innerResume = resume[1:]
	}
	for i := start; i < len(body); i++ {
		if i != start {
			if err := ev.Tracker.CheckTime(); err != nil {
				return err
			}
			ev.checkGC()
		}
		var sub []CodePosition
		var clause *ClauseState
		if i == start {
			sub, clause = innerResume, innerClause
		}
		if err := ev.evalStmt(f, body[i], i, sub, clause); err != nil {
			return err
		}
	}
	return nil
}

// evalStmt dispatches one statement. idx is this statement's index within
// body, used to build a CodePosition if execution suspends partway
// through (spec.md §4.7).
func (ev *Evaluator) evalStmt(f *Frame, s ast.Stmt, idx int, resume []CodePosition, resumeClause *ClauseState) error {
	var clauseOut *ClauseState
	var err error

	switch n := s.(type) {
	case *ast.ExprStmt:
		err = ev.evalDiscard(f, n.X)
	case *ast.Assign:
		err = ev.evalAssign(f, n)
	case *ast.AugAssign:
		err = ev.evalAugAssign(f, n)
	case *ast.If:
		clauseOut, err = ev.evalIf(f, n, resume, resumeClause)
	case *ast.While:
		clauseOut, err = ev.evalWhile(f, n, resume, resumeClause)
	case *ast.For:
		clauseOut, err = ev.evalFor(f, n, resume, resumeClause)
	case *ast.Try:
		clauseOut, err = ev.evalTry(f, n, resume, resumeClause)
	case *ast.Break:
		err = breakSignal{}
	case *ast.Continue:
		err = continueSignal{}
	case *ast.Return:
		err = ev.evalReturn(f, n)
	case *ast.Raise:
		err = ev.evalRaise(f, n)
	case *ast.Pass:
		// nothing
	case *ast.FuncDef:
		err = ev.evalFuncDef(f, n)
	default:
		err = ev.raise(ExcRuntimeError, "unsupported statement node")
	}

	if sig, ok := err.(*suspendSignal); ok {
		sig.Positions = append(sig.Positions, CodePosition{Index: idx, Clause: clauseOut})
	}
	return err
}

func (ev *Evaluator) evalAssign(f *Frame, n *ast.Assign) error {
	v, err := ev.evalUse(f, n.Value)
	if err != nil {
		return err
	}
	for i, t := range n.Targets {
		bind := v
		if i < len(n.Targets)-1 {
			bind = ev.own(v) // each target but the last needs its own reference
		}
		if err := ev.bindTarget(f, t, bind); err != nil {
			return err
		}
	}
	return nil
}

func (ev *Evaluator) evalAugAssign(f *Frame, n *ast.AugAssign) error {
	cur, err := ev.evalTargetRead(f, n.Target)
	if err != nil {
		return err
	}
	rhs, err := ev.evalUse(f, n.Value)
	if err != nil {
		ev.drop(cur)
		return err
	}
	result, opErr := ev.applyAug(n.Op, cur, rhs)
	ev.drop(cur)
	ev.drop(rhs)
	if opErr != nil {
		return ev.raise(arithExcType(opErr.Error()), "%s", opErr.Error())
	}
	return ev.bindTarget(f, n.Target, result)
}

// applyAug implements in-place add where supported (list/str/bytes
// concatenation, with list iadd cloning on self-aliasing per spec.md
// §4.4/§8.2), else falls back to the ordinary binary op.
func (ev *Evaluator) applyAug(op ast.BinOpKind, cur, rhs core.Value) (core.Value, error) {
	if op == ast.OpAdd && cur.IsRef() && rhs.IsRef() {
		if curList, ok := ev.Heap.Payload(cur.HeapID()).(*core.List); ok {
			if rhsList, ok := ev.Heap.Payload(rhs.HeapID()).(*core.List); ok {
				curList.Extend(ev.Heap, rhsList)
				return ev.own(cur), nil
			}
		}
	}
	switch op {
	case ast.OpAdd:
		return core.Add(ev.Heap, cur, rhs)
	case ast.OpSub:
		return core.Sub(ev.Heap, cur, rhs)
	case ast.OpMul:
		return core.Mul(ev.Heap, cur, rhs)
	case ast.OpMod:
		return core.Mod(ev.Heap, cur, rhs)
	case ast.OpDiv:
		return core.Div(ev.Heap, cur, rhs)
	default:
		return core.FloorDiv(ev.Heap, cur, rhs)
	}
}

// evalTargetRead reads a target's current value without consuming the
// slot's ownership (used by augmented assignment, which re-binds the
// same target right after).
func (ev *Evaluator) evalTargetRead(f *Frame, t ast.Target) (core.Value, error) {
	switch tt := t.(type) {
	case *ast.Name:
		return ev.evalName(f, tt)
	case *ast.Subscript:
		return ev.evalSubscript(f, tt)
	default:
		return core.Value{}, ev.raise(ExcRuntimeError, "invalid augmented-assignment target")
	}
}

func (ev *Evaluator) bindTarget(f *Frame, t ast.Target, v core.Value) error {
	switch tt := t.(type) {
	case *ast.Name:
		ev.NS.Set(f.NS, ev.Heap, tt.Ident, v)
		return nil
	case *ast.Subscript:
		recv, err := ev.evalUse(f, tt.Recv)
		if err != nil {
			ev.drop(v)
			return err
		}
		idx, err := ev.evalUse(f, tt.Index)
		if err != nil {
			ev.drop(recv)
			ev.drop(v)
			return err
		}
		serr := core.SetItem(ev.Heap, recv, idx, v)
		ev.drop(recv)
		ev.drop(idx)
		if serr != nil {
			return ev.raise(subscriptExcType(serr.Error()), "%s", serr.Error())
		}
		return nil
	default:
		ev.drop(v)
		return ev.raise(ExcRuntimeError, "invalid assignment target")
	}
}

func (ev *Evaluator) evalIf(f *Frame, n *ast.If, resume []CodePosition, rc *ClauseState) (*ClauseState, error) {
	var taken bool
	var bodyResume []CodePosition
	if rc != nil {
		taken = rc.IfTaken != nil && *rc.IfTaken
		bodyResume = resume
	} else {
		t, err := ev.evalBool(f, n.Test)
		if err != nil {
			return nil, err
		}
		taken = t
	}
	branch := n.Else
	if taken {
		branch = n.Then
	}
	err := ev.evalStmts(f, branch, bodyResume)
	if sig, ok := err.(*suspendSignal); ok {
		tv := taken
		return &ClauseState{IfTaken: &tv}, sig
	}
	return nil, err
}

func (ev *Evaluator) evalWhile(f *Frame, n *ast.While, resume []CodePosition, rc *ClauseState) (*ClauseState, error) {
	resuming := rc != nil && rc.InBody
	first := resuming
	for {
		if !first {
			t, err := ev.evalBool(f, n.Test)
			if err != nil {
				return nil, err
			}
			if !t {
				break
			}
		}
		var bodyResume []CodePosition
		if first {
			bodyResume = resume
		}
		err := ev.evalStmts(f, n.Body, bodyResume)
		first = false
		if err != nil {
			switch err.(type) {
			case breakSignal:
				return nil, nil
			case continueSignal:
				continue
			default:
				if sig, ok := err.(*suspendSignal); ok {
					return &ClauseState{InBody: true}, sig
				}
				return nil, err
			}
		}
	}
	return nil, ev.evalStmts(f, n.Else, nil)
}

func (ev *Evaluator) evalFor(f *Frame, n *ast.For, resume []CodePosition, rc *ClauseState) (*ClauseState, error) {
	resuming := rc != nil && rc.ForIter != nil
	var it *core.Iterator
	if resuming {
		it = rc.ForIter
	} else {
		iterVal, err := ev.evalUse(f, n.Iter)
		if err != nil {
			return nil, err
		}
		it, err = ev.makeIterator(iterVal)
		if err != nil {
			ev.drop(iterVal)
			return nil, err
		}
		f.Pinned = append(f.Pinned, iterVal) // keep the source container reachable for the loop's duration
	}

	first := resuming
	for {
		if !first {
			item, ok := it.Next(ev.Heap)
			if !ok {
				break
			}
			if err := ev.bindTarget(f, n.Target, item); err != nil {
				ev.unpin(f)
				return nil, err
			}
		}
		var bodyResume []CodePosition
		if first {
			bodyResume = resume
		}
		err := ev.evalStmts(f, n.Body, bodyResume)
		first = false
		if err != nil {
			switch err.(type) {
			case breakSignal:
				ev.unpin(f)
				return nil, nil
			case continueSignal:
				continue
			default:
				if sig, ok := err.(*suspendSignal); ok {
					return &ClauseState{ForIter: it}, sig
				}
				ev.unpin(f)
				return nil, err
			}
		}
	}
	ev.unpin(f)
	return nil, ev.evalStmts(f, n.Else, nil)
}

// unpin drops the for-loop's source-container pin once iteration is done
// (normally or via break); the pin was granted ownership in evalFor.
func (ev *Evaluator) unpin(f *Frame) {
	n := len(f.Pinned)
	if n == 0 {
		return
	}
	ev.drop(f.Pinned[n-1])
	f.Pinned = f.Pinned[:n-1]
}

// MakeIterator exposes makeIterator to a Builtins implementation outside
// this package (e.g. sorted()/map(), which accept any iterable).
func (ev *Evaluator) MakeIterator(v core.Value) (*core.Iterator, error) {
	return ev.makeIterator(v)
}

func (ev *Evaluator) makeIterator(v core.Value) (*core.Iterator, error) {
	if v.Tag() == core.TagRange {
		return core.NewRangeIterator(v.AsInt()), nil
	}
	if !v.IsRef() {
		return nil, ev.raise(ExcTypeError, "'%s' object is not iterable", v.TypeName(ev.Heap))
	}
	switch ev.Heap.Payload(v.HeapID()).(type) {
	case *core.List:
		return core.NewContainerIterator(core.IterList, v.HeapID()), nil
	case *core.Tuple:
		return core.NewContainerIterator(core.IterTuple, v.HeapID()), nil
	case *core.Str:
		return core.NewContainerIterator(core.IterStr, v.HeapID()), nil
	case *core.Bytes:
		return core.NewContainerIterator(core.IterBytes, v.HeapID()), nil
	case *core.Set:
		return core.NewContainerIterator(core.IterSetValues, v.HeapID()), nil
	case *core.Dict:
		return core.NewContainerIterator(core.IterDictKeys, v.HeapID()), nil
	case *core.Iterator:
		return ev.Heap.Iterator(v.HeapID()), nil
	default:
		return nil, ev.raise(ExcTypeError, "'%s' object is not iterable", v.TypeName(ev.Heap))
	}
}

func (ev *Evaluator) evalReturn(f *Frame, n *ast.Return) error {
	if n.Value == nil {
		return returnSignal{Value: core.None}
	}
	v, err := ev.evalUse(f, n.Value)
	if err != nil {
		return err
	}
	return returnSignal{Value: v}
}

func (ev *Evaluator) evalRaise(f *Frame, n *ast.Raise) error {
	if n.Exc == nil {
		if f.CurrentException != nil {
			return f.CurrentException
		}
		return ev.raise(ExcRuntimeError, "No active exception to re-raise")
	}
	v, err := ev.evalUse(f, n.Exc)
	if err != nil {
		return err
	}
	defer ev.drop(v)
	msg := core.Str(ev.Heap, v)
	return ev.raise(ExcType(v.TypeName(ev.Heap)), "%s", msg)
}

func (ev *Evaluator) evalFuncDef(f *Frame, n *ast.FuncDef) error {
	v, err := ev.materializeFunction(f, n.Fn)
	if err != nil {
		return err
	}
	ev.NS.Set(f.NS, ev.Heap, n.Target, v)
	return nil
}

func (ev *Evaluator) matchesHandler(h ast.ExceptHandler, exc *GuestException) bool {
	if len(h.Types) == 0 {
		return true
	}
	for _, id := range h.Types {
		if ev.Strings.String(id) == string(exc.Type) {
			return true
		}
	}
	return false
}

func (ev *Evaluator) evalTry(f *Frame, n *ast.Try, resume []CodePosition, rc *ClauseState) (*ClauseState, error) {
	var ts TryClauseState
	resuming := rc != nil && rc.Try != nil
	if resuming {
		ts = *rc.Try
	}

	var bodyErr error
	switch {
	case resuming && ts.Phase == PhaseHandler:
		// The active handler was already selected and entered before
		// suspension; resume straight into its body rather than
		// re-running handler selection.
		prevException := f.CurrentException
		f.CurrentException = ts.Enclosing
		herr := ev.evalStmts(f, n.Handlers[ts.HandlerIndex].Body, resume)
		f.CurrentException = prevException
		if sig, ok := herr.(*suspendSignal); ok {
			return &ClauseState{Try: &TryClauseState{Phase: PhaseHandler, HandlerIndex: ts.HandlerIndex, Enclosing: ts.Enclosing}}, sig
		}
		bodyErr = herr

	case resuming && ts.Phase > PhaseHandler:
		// Body (and any handler) already finished before suspension;
		// whatever was pending propagation through finally is carried
		// forward without re-running.
		if ts.Pending != nil {
			bodyErr = ts.Pending
		} else if ts.PendingReturn != nil {
			bodyErr = returnSignal{Value: *ts.PendingReturn}
		}

	default:
		// Fresh entry, or resuming mid-body: run/continue the body, then
		// dispatch to a matching handler if it raised.
		var bodyResume []CodePosition
		if resuming {
			bodyResume = resume
		}
		bodyErr = ev.evalStmts(f, n.Body, bodyResume)
		if sig, ok := bodyErr.(*suspendSignal); ok {
			return &ClauseState{Try: &TryClauseState{Phase: PhaseBody}}, sig
		}

		if guestExc, isGuest := bodyErr.(*GuestException); isGuest {
			prevException := f.CurrentException
			for hi, hnd := range n.Handlers {
				if !ev.matchesHandler(hnd, guestExc) {
					continue
				}
				f.CurrentException = guestExc
				herr := ev.evalStmts(f, hnd.Body, nil)
				f.CurrentException = prevException
				if sig, ok := herr.(*suspendSignal); ok {
					return &ClauseState{Try: &TryClauseState{Phase: PhaseHandler, HandlerIndex: hi, Enclosing: guestExc}}, sig
				}
				bodyErr = herr
				break
			}
		}
	}

	if bodyErr == nil && (!resuming || ts.Phase <= PhaseElse) {
		var elseResume []CodePosition
		if resuming && ts.Phase == PhaseElse {
			elseResume = resume
		}
		eerr := ev.evalStmts(f, n.Else, elseResume)
		if sig, ok := eerr.(*suspendSignal); ok {
			return &ClauseState{Try: &TryClauseState{Phase: PhaseElse}}, sig
		}
		bodyErr = eerr
	}

	var finallyResume []CodePosition
	if resuming && ts.Phase == PhaseFinally {
		finallyResume = resume
	}
	ferr := ev.evalStmts(f, n.Finally, finallyResume)
	if sig, ok := ferr.(*suspendSignal); ok {
		pendingExc, _ := bodyErr.(*GuestException)
		var pendingReturn *core.Value
		if rs, ok2 := bodyErr.(returnSignal); ok2 {
			pendingReturn = &rs.Value
		}
		return &ClauseState{Try: &TryClauseState{Phase: PhaseFinally, Pending: pendingExc, PendingReturn: pendingReturn}}, sig
	}
	if ferr != nil {
		return nil, ferr // finally's own propagation supersedes whatever was pending
	}
	return nil, bodyErr
}
