// Package convert translates between guest core.Value (heap-backed,
// refcounted) and an external, plain-data tree (ExternalValue) suitable
// for crossing the host/guest boundary as run inputs, run results, and
// resume values (spec.md §6.3). Grounded on SnellerInc-sneller's
// ion/datum.go: a tagged external-value union with a cycle-aware walk,
// generalized here from Ion's wire format to the structured-text/binary
// split the façade needs.
package convert

import (
	"github.com/montylang/monty/core"
	"github.com/montylang/monty/eval"
)

// Kind discriminates the external value union (spec.md §6.3).
type Kind uint8

const (
	KindNone Kind = iota
	KindEllipsis
	KindBool
	KindInt
	KindFloat
	KindStr
	KindBytes
	KindList
	KindTuple
	KindDict
	KindSet
	KindException
	KindCycle

	// KindRepr is a diagnostic-only textual representation of a value
	// with no external form of its own (a function, closure, or other
	// opaque payload's repr() text). It crosses host-ward but never
	// back: ToGuest rejects it like KindCycle (spec.md §6.3).
	KindRepr
)

// Pair is one (key, value) entry of an external Dict, in insertion order.
type Pair struct {
	Key Value
	Val Value
}

// Exception carries a guest exception across the boundary (the
// $exception reserved key, spec.md §6.3).
type Exception struct {
	Type      string
	Message   string
	Traceback []string
}

// Value is the external, plain-data counterpart of a guest core.Value:
// no heap, no refcounts, safe to hold indefinitely and to marshal to
// structured text or binary (spec.md §6.3).
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Bytes []byte

	// List, Tuple, Set share the flat-items representation.
	Items []Value

	// Dict only.
	Pairs []Pair

	Exc *Exception

	// Cycle only: the heap id that closes the cycle, plus which bracket
	// shape the placeholder should render as for human display.
	CycleID          int64
	CyclePlaceholder string
}

func None() Value          { return Value{Kind: KindNone} }
func Ellipsis() Value      { return Value{Kind: KindEllipsis} }
func Bool(b bool) Value    { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value    { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func Str(s string) Value   { return Value{Kind: KindStr, Str: s} }
func Bytes(b []byte) Value { return Value{Kind: KindBytes, Bytes: append([]byte(nil), b...)} }
func List(items []Value) Value  { return Value{Kind: KindList, Items: items} }
func Tuple(items []Value) Value { return Value{Kind: KindTuple, Items: items} }
func SetOf(items []Value) Value { return Value{Kind: KindSet, Items: items} }
func Dict(pairs []Pair) Value   { return Value{Kind: KindDict, Pairs: pairs} }
func Repr(s string) Value       { return Value{Kind: KindRepr, Str: s} }

// FromGuest walks v (owned by the caller; FromGuest does not consume the
// reference) into an external Value, replacing any reference cycle with
// a Cycle marker keyed by heap id (spec.md §6.3 "Cycle semantics").
func FromGuest(h *core.Heap, v core.Value) Value {
	active := map[core.HeapID]bool{}
	return fromGuest(h, v, active)
}

func fromGuest(h *core.Heap, v core.Value, active map[core.HeapID]bool) Value {
	switch v.Tag() {
	case core.TagNone, core.TagUndefined:
		return None()
	case core.TagEllipsis:
		return Ellipsis()
	case core.TagBool:
		return Bool(v.AsBool())
	case core.TagInt, core.TagRange:
		return Int(v.AsInt())
	case core.TagFloat:
		return Float(v.AsFloat())
	case core.TagBuiltin, core.TagExtFunction, core.TagFunction:
		return Repr(core.Repr(h, v))
	case core.TagRef:
		return fromRef(h, v.HeapID(), active)
	default:
		return None()
	}
}

func fromRef(h *core.Heap, id core.HeapID, active map[core.HeapID]bool) Value {
	if active[id] {
		return Value{Kind: KindCycle, CycleID: int64(id), CyclePlaceholder: cyclePlaceholder(h, id)}
	}
	switch p := h.Payload(id).(type) {
	case *core.Str:
		return Str(p.String())
	case *core.Bytes:
		return Bytes(p.Data())
	case *core.List:
		active[id] = true
		out := make([]Value, len(p.Items()))
		for i, item := range p.Items() {
			out[i] = fromGuest(h, item, active)
		}
		delete(active, id)
		return List(out)
	case *core.Tuple:
		active[id] = true
		out := make([]Value, len(p.Items()))
		for i, item := range p.Items() {
			out[i] = fromGuest(h, item, active)
		}
		delete(active, id)
		return Tuple(out)
	case *core.Dict:
		active[id] = true
		items := p.Items()
		out := make([]Pair, len(items))
		for i, kv := range items {
			out[i] = Pair{Key: fromGuest(h, kv.Key, active), Val: fromGuest(h, kv.Val, active)}
		}
		delete(active, id)
		return Dict(out)
	case *core.Set:
		active[id] = true
		vals := p.Values()
		out := make([]Value, len(vals))
		for i, v := range vals {
			out[i] = fromGuest(h, v, active)
		}
		delete(active, id)
		return SetOf(out)
	case *core.Boxed:
		return fromGuest(h, p.Inner, active)
	default:
		return Repr(core.Repr(h, core.Ref(id)))
	}
}

func cyclePlaceholder(h *core.Heap, id core.HeapID) string {
	switch h.Payload(id).(type) {
	case *core.Dict, *core.Set:
		return "{...}"
	default:
		return "[...]"
	}
}

// FromGuestException converts a caught guest exception to the $exception
// representation (spec.md §6.3, §6.4).
func FromGuestException(e *eval.GuestException) Value {
	tb := make([]string, len(e.Traceback))
	for i, entry := range e.Traceback {
		tb[i] = entry.FuncName
	}
	return Value{Kind: KindException, Exc: &Exception{
		Type: string(e.Type), Message: e.Message, Traceback: tb,
	}}
}

// ToGuest allocates v's guest representation on h, returning a freshly
// owned Value (refcount 1 for any heap payload, spec.md I-V1). Cycle
// markers cannot be reconstructed without the original heap id space
// and are rejected.
func ToGuest(h *core.Heap, v Value) (core.Value, error) {
	switch v.Kind {
	case KindNone:
		return core.None, nil
	case KindEllipsis:
		return core.Ellipsis, nil
	case KindBool:
		return core.Bool(v.Bool), nil
	case KindInt:
		return core.Int(v.Int), nil
	case KindFloat:
		return core.Float(v.Float), nil
	case KindStr:
		id, err := h.Allocate(core.NewStr(v.Str))
		return core.Ref(id), err
	case KindBytes:
		id, err := h.Allocate(core.NewBytes(v.Bytes))
		return core.Ref(id), err
	case KindList:
		items, err := toGuestSlice(h, v.Items)
		if err != nil {
			return core.Value{}, err
		}
		id, err := h.Allocate(core.NewList(items))
		return core.Ref(id), err
	case KindTuple:
		items, err := toGuestSlice(h, v.Items)
		if err != nil {
			return core.Value{}, err
		}
		id, err := h.Allocate(core.NewTuple(items))
		return core.Ref(id), err
	case KindSet:
		s := core.NewSet()
		id, err := h.Allocate(s)
		if err != nil {
			return core.Value{}, err
		}
		for _, item := range v.Items {
			gv, err := ToGuest(h, item)
			if err != nil {
				return core.Value{}, err
			}
			if _, hashable := s.Add(h, gv); !hashable {
				return core.Value{}, eval.NewGuestException(eval.ExcTypeError, "unhashable value in set")
			}
		}
		return core.Ref(id), nil
	case KindDict:
		d := core.NewDict()
		id, err := h.Allocate(d)
		if err != nil {
			return core.Value{}, err
		}
		for _, pair := range v.Pairs {
			key, err := ToGuest(h, pair.Key)
			if err != nil {
				return core.Value{}, err
			}
			val, err := ToGuest(h, pair.Val)
			if err != nil {
				return core.Value{}, err
			}
			if !d.Set(h, key, val) {
				return core.Value{}, eval.NewGuestException(eval.ExcTypeError, "unhashable key in dict")
			}
		}
		return core.Ref(id), nil
	case KindRepr:
		return core.Value{}, eval.NewGuestException(eval.ExcValueError, "a Repr value is diagnostic-only and cannot be converted back into the heap")
	case KindCycle:
		return core.Value{}, eval.NewGuestException(eval.ExcValueError, "a Cycle value cannot be reconstructed")
	default:
		return core.Value{}, eval.NewGuestException(eval.ExcValueError, "value of kind %d cannot cross the host boundary", v.Kind)
	}
}

func toGuestSlice(h *core.Heap, items []Value) ([]core.Value, error) {
	out := make([]core.Value, len(items))
	for i, item := range items {
		gv, err := ToGuest(h, item)
		if err != nil {
			return nil, err
		}
		out[i] = gv
	}
	return out, nil
}
