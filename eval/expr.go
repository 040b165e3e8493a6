package eval

import (
	"strconv"
	"strings"

	"github.com/montylang/monty/ast"
	"github.com/montylang/monty/core"
)

// evalUse materializes e's value as an owned Value (spec.md §4.6
// eval_use).
func (ev *Evaluator) evalUse(f *Frame, e ast.Expr) (core.Value, error) {
	switch n := e.(type) {
	case *ast.Lit:
		return ev.evalLit(n)
	case *ast.Name:
		return ev.evalName(f, n)
	case *ast.BinOp:
		return ev.evalBinOp(f, n)
	case *ast.BoolOp:
		return ev.evalBoolOp(f, n)
	case *ast.Compare:
		return ev.evalCompare(f, n)
	case *ast.UnaryOp:
		return ev.evalUnaryOp(f, n)
	case *ast.Call:
		return ev.evalCall(f, n)
	case *ast.AttrCall:
		return ev.evalAttrCall(f, n)
	case *ast.Subscript:
		return ev.evalSubscript(f, n)
	case *ast.ListLit:
		return ev.evalListLit(f, n)
	case *ast.TupleLit:
		return ev.evalTupleLit(f, n)
	case *ast.DictLit:
		return ev.evalDictLit(f, n)
	case *ast.SetLit:
		return ev.evalSetLit(f, n)
	case *ast.FString:
		return ev.evalFString(f, n)
	case *ast.CondExpr:
		return ev.evalCondExpr(f, n)
	case *ast.ListComp:
		return ev.evalListComp(f, n)
	default:
		return core.Value{}, ev.raise(ExcRuntimeError, "unsupported expression node")
	}
}

// evalDiscard evaluates e purely for side effects, immediately dropping
// the result (spec.md §4.6 eval_discard).
func (ev *Evaluator) evalDiscard(f *Frame, e ast.Expr) error {
	v, err := ev.evalUse(f, e)
	if err != nil {
		return err
	}
	ev.drop(v)
	return nil
}

// evalBool evaluates e and returns its truthiness directly, without
// retaining an intermediate boolean Value (spec.md §4.6 eval_bool).
func (ev *Evaluator) evalBool(f *Frame, e ast.Expr) (bool, error) {
	v, err := ev.evalUse(f, e)
	if err != nil {
		return false, err
	}
	t := v.Truthy(ev.Heap)
	ev.drop(v)
	return t, nil
}

func (ev *Evaluator) evalLit(n *ast.Lit) (core.Value, error) {
	switch n.Kind {
	case ast.LitNone:
		return core.None, nil
	case ast.LitEllipsis:
		return core.Ellipsis, nil
	case ast.LitBool:
		return core.Bool(n.I != 0), nil
	case ast.LitInt:
		return core.Int(n.I), nil
	case ast.LitFloat:
		return core.Float(n.F), nil
	case ast.LitStr:
		id, err := ev.Heap.Allocate(core.NewStr(ev.Strings.String(n.S)))
		if err != nil {
			return core.Value{}, err
		}
		return core.Ref(id), nil
	case ast.LitBytes:
		id, err := ev.Heap.Allocate(core.NewBytes(ev.Strings.Bytes(n.B)))
		if err != nil {
			return core.Value{}, err
		}
		return core.Ref(id), nil
	default:
		return core.Value{}, ev.raise(ExcRuntimeError, "unknown literal kind")
	}
}

func (ev *Evaluator) evalName(f *Frame, n *ast.Name) (core.Value, error) {
	v := ev.NS.Get(f.NS, ev.Heap, n.Ident)
	if v.Tag() == core.TagUndefined {
		msg := "name referenced before assignment"
		if n.Ident.Scope == ast.ScopeCell {
			msg = "free variable referenced before assignment"
		}
		return core.Value{}, ev.raise(ExcNameError, "%s: %q", msg, ev.Strings.String(n.Ident.NameID))
	}
	return ev.own(v), nil
}

func arithExcType(msg string) ExcType {
	if strings.Contains(msg, "by zero") {
		return ExcZeroDivisionError
	}
	return ExcTypeError
}

func (ev *Evaluator) evalBinOp(f *Frame, n *ast.BinOp) (core.Value, error) {
	l, err := ev.evalUse(f, n.Left)
	if err != nil {
		return core.Value{}, err
	}
	r, err := ev.evalUse(f, n.Right)
	if err != nil {
		ev.drop(l)
		return core.Value{}, err
	}
	defer ev.drop(l)
	defer ev.drop(r)

	var v core.Value
	var opErr error
	switch n.Op {
	case ast.OpAdd:
		v, opErr = core.Add(ev.Heap, l, r)
	case ast.OpSub:
		v, opErr = core.Sub(ev.Heap, l, r)
	case ast.OpMul:
		v, opErr = core.Mul(ev.Heap, l, r)
	case ast.OpMod:
		v, opErr = core.Mod(ev.Heap, l, r)
	case ast.OpDiv:
		v, opErr = core.Div(ev.Heap, l, r)
	case ast.OpFloorDiv:
		v, opErr = core.FloorDiv(ev.Heap, l, r)
	}
	if opErr != nil {
		return core.Value{}, ev.raise(arithExcType(opErr.Error()), "%s", opErr.Error())
	}
	return v, nil
}

func (ev *Evaluator) evalBoolOp(f *Frame, n *ast.BoolOp) (core.Value, error) {
	l, err := ev.evalUse(f, n.Left)
	if err != nil {
		return core.Value{}, err
	}
	truthy := l.Truthy(ev.Heap)
	if (n.Op == ast.BoolAnd && !truthy) || (n.Op == ast.BoolOr && truthy) {
		return l, nil // short-circuit: return the chosen operand, not a coerced bool
	}
	ev.drop(l)
	return ev.evalUse(f, n.Right)
}

func (ev *Evaluator) evalCompare(f *Frame, n *ast.Compare) (core.Value, error) {
	l, err := ev.evalUse(f, n.Left)
	if err != nil {
		return core.Value{}, err
	}
	r, err := ev.evalUse(f, n.Right)
	if err != nil {
		ev.drop(l)
		return core.Value{}, err
	}
	defer ev.drop(l)
	defer ev.drop(r)

	switch n.Op {
	case ast.CmpIs:
		return core.Bool(identical(l, r)), nil
	case ast.CmpIsNot:
		return core.Bool(!identical(l, r)), nil
	case ast.CmpEq:
		return core.Bool(core.Equal(ev.Heap, l, r)), nil
	case ast.CmpNe:
		return core.Bool(!core.Equal(ev.Heap, l, r)), nil
	case ast.CmpIn, ast.CmpNotIn:
		found, err := ev.contains(r, l)
		if err != nil {
			return core.Value{}, err
		}
		if n.Op == ast.CmpNotIn {
			found = !found
		}
		return core.Bool(found), nil
	default:
		c, ok := core.Cmp(ev.Heap, l, r)
		if !ok {
			return core.Value{}, ev.raise(ExcTypeError, "'%s' not supported between instances of '%s' and '%s'", cmpSymbol(n.Op), l.TypeName(ev.Heap), r.TypeName(ev.Heap))
		}
		switch n.Op {
		case ast.CmpLt:
			return core.Bool(c < 0), nil
		case ast.CmpLe:
			return core.Bool(c <= 0), nil
		case ast.CmpGt:
			return core.Bool(c > 0), nil
		default: // CmpGe
			return core.Bool(c >= 0), nil
		}
	}
}

func cmpSymbol(op ast.CmpOpKind) string {
	switch op {
	case ast.CmpLt:
		return "<"
	case ast.CmpLe:
		return "<="
	case ast.CmpGt:
		return ">"
	default:
		return ">="
	}
}

// identical implements `is`/`is not`: immediates compare by tag+bits,
// Refs compare by heap id.
func identical(a, b core.Value) bool {
	if a.Tag() != b.Tag() {
		return false
	}
	if a.IsRef() {
		return a.HeapID() == b.HeapID()
	}
	return a.AsInt() == b.AsInt() && a.AsFloat() == b.AsFloat()
}

func (ev *Evaluator) contains(container, item core.Value) (bool, error) {
	if !container.IsRef() {
		return false, ev.raise(ExcTypeError, "argument of type '%s' is not iterable", container.TypeName(ev.Heap))
	}
	switch p := ev.Heap.Payload(container.HeapID()).(type) {
	case *core.Str:
		if !item.IsRef() {
			return false, ev.raise(ExcTypeError, "'in <string>' requires string as left operand")
		}
		itemStr, ok := ev.Heap.Payload(item.HeapID()).(*core.Str)
		if !ok {
			return false, ev.raise(ExcTypeError, "'in <string>' requires string as left operand")
		}
		return strings.Contains(p.String(), itemStr.String()), nil
	case *core.List:
		for _, v := range p.Items() {
			if core.Equal(ev.Heap, v, item) {
				return true, nil
			}
		}
		return false, nil
	case *core.Tuple:
		for _, v := range p.Items() {
			if core.Equal(ev.Heap, v, item) {
				return true, nil
			}
		}
		return false, nil
	case *core.Dict:
		_, found, hashable := p.Get(ev.Heap, item)
		if !hashable {
			return false, ev.raise(ExcTypeError, "unhashable type: '%s'", item.TypeName(ev.Heap))
		}
		return found, nil
	case *core.Set:
		found, hashable := p.Contains(ev.Heap, item)
		if !hashable {
			return false, ev.raise(ExcTypeError, "unhashable type: '%s'", item.TypeName(ev.Heap))
		}
		return found, nil
	default:
		return false, ev.raise(ExcTypeError, "argument of type '%s' is not iterable", container.TypeName(ev.Heap))
	}
}

func (ev *Evaluator) evalUnaryOp(f *Frame, n *ast.UnaryOp) (core.Value, error) {
	v, err := ev.evalUse(f, n.Operand)
	if err != nil {
		return core.Value{}, err
	}
	defer ev.drop(v)
	switch n.Op {
	case ast.UnaryNot:
		return core.Bool(!v.Truthy(ev.Heap)), nil
	default: // UnaryNeg
		switch v.Tag() {
		case core.TagInt:
			return core.Int(-v.AsInt()), nil
		case core.TagFloat:
			return core.Float(-v.AsFloat()), nil
		case core.TagBool:
			if v.AsBool() {
				return core.Int(-1), nil
			}
			return core.Int(0), nil
		default:
			return core.Value{}, ev.raise(ExcTypeError, "bad operand type for unary -: '%s'", v.TypeName(ev.Heap))
		}
	}
}

func (ev *Evaluator) evalSubscript(f *Frame, n *ast.Subscript) (core.Value, error) {
	recv, err := ev.evalUse(f, n.Recv)
	if err != nil {
		return core.Value{}, err
	}
	idx, err := ev.evalUse(f, n.Index)
	if err != nil {
		ev.drop(recv)
		return core.Value{}, err
	}
	defer ev.drop(recv)
	defer ev.drop(idx)
	v, gerr := core.GetItem(ev.Heap, recv, idx)
	if gerr != nil {
		return core.Value{}, ev.raise(subscriptExcType(gerr.Error()), "%s", gerr.Error())
	}
	return v, nil
}

func subscriptExcType(msg string) ExcType {
	switch {
	case strings.Contains(msg, "out of range"):
		return ExcIndexError
	case strings.Contains(msg, "KeyError"):
		return ExcKeyError
	default:
		return ExcTypeError
	}
}

func (ev *Evaluator) evalListLit(f *Frame, n *ast.ListLit) (core.Value, error) {
	items, err := ev.evalExprList(f, n.Elems)
	if err != nil {
		return core.Value{}, err
	}
	id, err := ev.Heap.Allocate(core.NewList(items))
	if err != nil {
		ev.dropAll(items)
		return core.Value{}, err
	}
	return core.Ref(id), nil
}

func (ev *Evaluator) evalTupleLit(f *Frame, n *ast.TupleLit) (core.Value, error) {
	items, err := ev.evalExprList(f, n.Elems)
	if err != nil {
		return core.Value{}, err
	}
	id, err := ev.Heap.Allocate(core.NewTuple(items))
	if err != nil {
		ev.dropAll(items)
		return core.Value{}, err
	}
	return core.Ref(id), nil
}

func (ev *Evaluator) evalSetLit(f *Frame, n *ast.SetLit) (core.Value, error) {
	items, err := ev.evalExprList(f, n.Elems)
	if err != nil {
		return core.Value{}, err
	}
	s := core.NewSet()
	for _, v := range items {
		_, hashable := s.Add(ev.Heap, v)
		if !hashable {
			ev.dropAll(items)
			return core.Value{}, ev.raise(ExcTypeError, "unhashable type: '%s'", v.TypeName(ev.Heap))
		}
	}
	id, err := ev.Heap.Allocate(s)
	if err != nil {
		return core.Value{}, err
	}
	return core.Ref(id), nil
}

func (ev *Evaluator) evalDictLit(f *Frame, n *ast.DictLit) (core.Value, error) {
	d := core.NewDict()
	for _, pair := range n.Pairs {
		k, err := ev.evalUse(f, pair.Key)
		if err != nil {
			return core.Value{}, err
		}
		v, err := ev.evalUse(f, pair.Value)
		if err != nil {
			ev.drop(k)
			return core.Value{}, err
		}
		if !d.Set(ev.Heap, k, v) {
			ev.drop(k)
			ev.drop(v)
			return core.Value{}, ev.raise(ExcTypeError, "unhashable type: '%s'", k.TypeName(ev.Heap))
		}
	}
	id, err := ev.Heap.Allocate(d)
	if err != nil {
		return core.Value{}, err
	}
	return core.Ref(id), nil
}

func (ev *Evaluator) evalFString(f *Frame, n *ast.FString) (core.Value, error) {
	var b strings.Builder
	for _, part := range n.Parts {
		if part.Expr == nil {
			b.WriteString(part.Lit)
			continue
		}
		v, err := ev.evalUse(f, part.Expr)
		if err != nil {
			return core.Value{}, err
		}
		b.WriteString(core.Str(ev.Heap, v))
		ev.drop(v)
	}
	id, err := ev.Heap.Allocate(core.NewStr(b.String()))
	if err != nil {
		return core.Value{}, err
	}
	return core.Ref(id), nil
}

func (ev *Evaluator) evalCondExpr(f *Frame, n *ast.CondExpr) (core.Value, error) {
	t, err := ev.evalBool(f, n.Test)
	if err != nil {
		return core.Value{}, err
	}
	if t {
		return ev.evalUse(f, n.Then)
	}
	return ev.evalUse(f, n.Else)
}

func (ev *Evaluator) evalListComp(f *Frame, n *ast.ListComp) (core.Value, error) {
	iterVal, err := ev.evalUse(f, n.Iter)
	if err != nil {
		return core.Value{}, err
	}
	it, err := ev.makeIterator(iterVal)
	if err != nil {
		ev.drop(iterVal)
		return core.Value{}, err
	}

	var out []core.Value
	fail := func(err error) (core.Value, error) {
		ev.drop(iterVal)
		ev.dropAll(out)
		return core.Value{}, err
	}

	for {
		item, ok := it.Next(ev.Heap)
		if !ok {
			break
		}
		if err := ev.bindTarget(f, n.Target, item); err != nil {
			return fail(err)
		}
		if n.If != nil {
			keep, err := ev.evalBool(f, n.If)
			if err != nil {
				return fail(ev.noSuspendInComprehension(err))
			}
			if !keep {
				continue
			}
		}
		v, err := ev.evalUse(f, n.Elem)
		if err != nil {
			return fail(ev.noSuspendInComprehension(err))
		}
		out = append(out, v)
	}
	ev.drop(iterVal)

	id, aerr := ev.Heap.Allocate(core.NewList(out))
	if aerr != nil {
		ev.dropAll(out)
		return core.Value{}, aerr
	}
	return core.Ref(id), nil
}

// noSuspendInComprehension rejects an external-call suspension raised
// while evaluating a comprehension's filter or element expression: a
// ListComp has no ClauseState to resume into.
func (ev *Evaluator) noSuspendInComprehension(err error) error {
	if _, ok := err.(*suspendSignal); ok {
		return ev.raise(ExcRuntimeError, "external calls are not supported inside a comprehension")
	}
	return err
}

// evalExprList evaluates elements strictly left-to-right into a fresh
// owned slice (spec.md §4.6 "List/Tuple... left to right").
func (ev *Evaluator) evalExprList(f *Frame, exprs []ast.Expr) ([]core.Value, error) {
	out := make([]core.Value, 0, len(exprs))
	for _, e := range exprs {
		v, err := ev.evalUse(f, e)
		if err != nil {
			ev.dropAll(out)
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (ev *Evaluator) dropAll(vs []core.Value) {
	for _, v := range vs {
		ev.drop(v)
	}
}

// formatNumberTrimmed renders f in Go's shortest 'g' form, so a
// whole-valued float loses its fractional part (2.0 renders as "2", not
// "2.0").
func formatNumberTrimmed(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
