// Package core implements the value model and reference-counted heap: the
// tagged Value union, the heap arena that backs it, and the polymorphic
// container protocol dispatched over heap payloads. These three pieces
// (spec components B, C, D) are kept in one package because they are, by
// design, a single tightly coupled subsystem: almost no Value operation
// can be implemented without the Heap, and almost no Heap operation can be
// implemented without knowing the Value protocol.
package core

import "fmt"

// Tag discriminates the Value union. The variant set is closed and known
// at build time, so dispatch throughout this package favors a single
// tagged struct with type-switch-style dispatch over an open interface
// hierarchy (see DESIGN.md, component B).
type Tag uint8

const (
	TagNone Tag = iota
	TagEllipsis
	TagBool
	TagInt
	TagFloat
	TagRange
	TagBuiltin
	TagExtFunction
	TagFunction
	TagUndefined
	TagRef
)

func (t Tag) String() string {
	switch t {
	case TagNone:
		return "None"
	case TagEllipsis:
		return "Ellipsis"
	case TagBool:
		return "Bool"
	case TagInt:
		return "Int"
	case TagFloat:
		return "Float"
	case TagRange:
		return "Range"
	case TagBuiltin:
		return "Builtin"
	case TagExtFunction:
		return "ExtFunction"
	case TagFunction:
		return "Function"
	case TagUndefined:
		return "Undefined"
	case TagRef:
		return "Ref"
	default:
		return fmt.Sprintf("Tag(%d)", t)
	}
}

// Value is the tagged union described in spec.md §3.1. Immediate variants
// (None, Ellipsis, Bool, Int, Range, Builtin, ExtFunction, Function,
// Undefined) never touch the heap; Ref(heap_id) is the only variant that
// refers to a heap slot.
type Value struct {
	tag Tag
	i   int64
	f   float64
}

// None, Ellipsis and Undefined are immutable immediate singletons.
var (
	None      = Value{tag: TagNone}
	Ellipsis  = Value{tag: TagEllipsis}
	Undefined = Value{tag: TagUndefined}
)

func Bool(b bool) Value {
	var i int64
	if b {
		i = 1
	}
	return Value{tag: TagBool, i: i}
}

func Int(i int64) Value        { return Value{tag: TagInt, i: i} }
func Float(f float64) Value    { return Value{tag: TagFloat, f: f} }
func Range(n int64) Value      { return Value{tag: TagRange, i: n} }
func Builtin(id int) Value     { return Value{tag: TagBuiltin, i: int64(id)} }
func ExtFunction(id int) Value { return Value{tag: TagExtFunction, i: int64(id)} }
func Function(id int) Value    { return Value{tag: TagFunction, i: int64(id)} }
func Ref(id HeapID) Value      { return Value{tag: TagRef, i: int64(id)} }

func (v Value) Tag() Tag    { return v.tag }
func (v Value) IsRef() bool { return v.tag == TagRef }

func (v Value) HeapID() HeapID {
	if v.tag != TagRef {
		panic("core: HeapID() on non-Ref value")
	}
	return HeapID(v.i)
}

func (v Value) AsInt() int64     { return v.i }
func (v Value) AsFloat() float64 { return v.f }
func (v Value) AsBool() bool     { return v.i != 0 }

// TypeName returns the short type name used in error messages
// (spec.md §4.2 type_name).
func (v Value) TypeName(h *Heap) string {
	switch v.tag {
	case TagNone:
		return "NoneType"
	case TagEllipsis:
		return "ellipsis"
	case TagBool:
		return "bool"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagRange:
		return "range"
	case TagBuiltin, TagExtFunction, TagFunction:
		return "function"
	case TagUndefined:
		return "undefined"
	case TagRef:
		return h.payload(v.HeapID()).typeName()
	default:
		return "?"
	}
}

// Truthy maps v to guest boolean conversion (spec.md §4.2 truthy).
func (v Value) Truthy(h *Heap) bool {
	switch v.tag {
	case TagNone, TagUndefined:
		return false
	case TagBool, TagInt:
		return v.i != 0
	case TagFloat:
		return v.f != 0
	case TagEllipsis, TagBuiltin, TagExtFunction, TagFunction:
		return true
	case TagRange:
		return v.i > 0
	case TagRef:
		return h.payload(v.HeapID()).truthy(h)
	default:
		return false
	}
}

// Len returns (n, true) for sized values, (0, false) otherwise.
func (v Value) Len(h *Heap) (int, bool) {
	if v.tag != TagRef {
		return 0, false
	}
	return h.payload(v.HeapID()).length()
}
