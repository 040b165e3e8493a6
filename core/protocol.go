package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Equal implements guest equality (spec.md §4.2 eq). Cross-tag numeric
// comparison (bool/int/float) follows Python's numeric tower; everything
// else compares by tag and, for Refs, by payload.
func Equal(h *Heap, a, b Value) bool {
	if isNumeric(a) && isNumeric(b) {
		return numEqual(a, b)
	}
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case TagNone, TagEllipsis, TagUndefined:
		return true
	case TagRange, TagBuiltin, TagExtFunction, TagFunction:
		return a.i == b.i
	case TagRef:
		return refEqual(h, a.HeapID(), b.HeapID())
	default:
		return false
	}
}

func isNumeric(v Value) bool {
	return v.tag == TagBool || v.tag == TagInt || v.tag == TagFloat
}

func numEqual(a, b Value) bool {
	af, aIsFloat := asNum(a)
	bf, bIsFloat := asNum(b)
	_ = aIsFloat
	_ = bIsFloat
	return af == bf
}

func asNum(v Value) (float64, bool) {
	switch v.tag {
	case TagBool, TagInt:
		return float64(v.i), false
	case TagFloat:
		return v.f, true
	default:
		return 0, false
	}
}

func refEqual(h *Heap, aID, bID HeapID) bool {
	if aID == bID {
		return true
	}
	pa, pb := h.payload(aID), h.payload(bID)
	switch av := pa.(type) {
	case *Str:
		bv, ok := pb.(*Str)
		return ok && av.s == bv.s
	case *Bytes:
		bv, ok := pb.(*Bytes)
		return ok && string(av.b) == string(bv.b)
	case *List:
		bv, ok := pb.(*List)
		return ok && valueSliceEqual(h, av.items, bv.items)
	case *Tuple:
		bv, ok := pb.(*Tuple)
		return ok && valueSliceEqual(h, av.items, bv.items)
	case *Dict:
		bv, ok := pb.(*Dict)
		if !ok || av.size != bv.size {
			return false
		}
		for _, item := range av.Items() {
			other, found, _ := bv.Get(h, item.Key)
			if !found || !Equal(h, item.Val, other) {
				return false
			}
		}
		return true
	case *Set:
		bv, ok := pb.(*Set)
		if !ok || av.size != bv.size {
			return false
		}
		for _, v := range av.Values() {
			if found, _ := bv.Contains(h, v); !found {
				return false
			}
		}
		return true
	case *Boxed:
		bv, ok := pb.(*Boxed)
		return ok && Equal(h, av.Inner, bv.Inner)
	default:
		return false
	}
}

func valueSliceEqual(h *Heap, a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(h, a[i], b[i]) {
			return false
		}
	}
	return true
}

// Hash implements guest hashing (spec.md §4.4). Unhashable values
// (mutable list/dict/unfrozen set) return ok=false.
func (h *Heap) Hash(v Value) (uint64, bool) {
	switch v.tag {
	case TagNone:
		return sipHash(10, nil), true
	case TagEllipsis:
		return sipHash(11, nil), true
	case TagUndefined:
		return sipHash(12, nil), true
	case TagBool, TagInt:
		return sipHash(13, i64Bytes(v.i)), true
	case TagFloat:
		return sipHash(13, i64Bytes(int64(v.f))), true
	case TagRange:
		return sipHash(14, i64Bytes(v.i)), true
	case TagBuiltin, TagExtFunction, TagFunction:
		return sipHash(15, i64Bytes(v.i)), true
	case TagRef:
		if hv, ok := h.cachedHash(v.HeapID()); ok {
			return hv, true
		}
		return h.computeHash(h.payload(v.HeapID()))
	default:
		return 0, false
	}
}

func i64Bytes(i int64) []byte {
	b := make([]byte, 8)
	for k := 0; k < 8; k++ {
		b[k] = byte(i >> (8 * k))
	}
	return b
}

// Cmp implements guest ordering for orderable pairs (numbers, str, bytes,
// list, tuple): -1/0/1, or ok=false when the pair is not orderable
// (spec.md §4.2 cmp).
func Cmp(h *Heap, a, b Value) (int, bool) {
	if isNumeric(a) && isNumeric(b) {
		af, _ := asNum(a)
		bf, _ := asNum(b)
		return cmpFloat(af, bf), true
	}
	if a.tag != TagRef || b.tag != TagRef {
		return 0, false
	}
	pa, pb := h.payload(a.HeapID()), h.payload(b.HeapID())
	switch av := pa.(type) {
	case *Str:
		bv, ok := pb.(*Str)
		if !ok {
			return 0, false
		}
		return strings.Compare(av.s, bv.s), true
	case *Bytes:
		bv, ok := pb.(*Bytes)
		if !ok {
			return 0, false
		}
		return strings.Compare(string(av.b), string(bv.b)), true
	case *List:
		bv, ok := pb.(*List)
		if !ok {
			return 0, false
		}
		return cmpValueSlice(h, av.items, bv.items)
	case *Tuple:
		bv, ok := pb.(*Tuple)
		if !ok {
			return 0, false
		}
		return cmpValueSlice(h, av.items, bv.items)
	default:
		return 0, false
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpValueSlice(h *Heap, a, b []Value) (int, bool) {
	for i := 0; i < len(a) && i < len(b); i++ {
		c, ok := Cmp(h, a[i], b[i])
		if !ok {
			return 0, false
		}
		if c != 0 {
			return c, true
		}
	}
	return cmpFloat(float64(len(a)), float64(len(b))), true
}

// Add implements guest `+` across numbers, str/bytes concatenation and
// list/tuple concatenation (spec.md §4.2 arithmetic). list+list and
// tuple+tuple allocate a fresh container, charged against h's tracker.
func Add(h *Heap, a, b Value) (Value, error) {
	if isNumeric(a) && isNumeric(b) {
		return numAdd(a, b), nil
	}
	if a.tag == TagRef && b.tag == TagRef {
		pa, pb := h.payload(a.HeapID()), h.payload(b.HeapID())
		switch av := pa.(type) {
		case *Str:
			if bv, ok := pb.(*Str); ok {
				id, err := h.Allocate(NewStr(av.s + bv.s))
				return Ref(id), err
			}
		case *Bytes:
			if bv, ok := pb.(*Bytes); ok {
				buf := append(append([]byte(nil), av.b...), bv.b...)
				id, err := h.Allocate(NewBytes(buf))
				return Ref(id), err
			}
		case *List:
			if bv, ok := pb.(*List); ok {
				id, err := h.Allocate(av.Concat(h, bv))
				return Ref(id), err
			}
		case *Tuple:
			if bv, ok := pb.(*Tuple); ok {
				id, err := h.Allocate(av.Concat(h, bv))
				return Ref(id), err
			}
		}
	}
	return Value{}, fmt.Errorf("unsupported operand type(s) for +: '%s' and '%s'", a.TypeName(h), b.TypeName(h))
}

func numAdd(a, b Value) Value {
	if a.tag == TagFloat || b.tag == TagFloat {
		af, _ := asNum(a)
		bf, _ := asNum(b)
		return Float(af + bf)
	}
	return Int(a.i + b.i)
}

// Sub implements guest `-` across numbers only; containers have no `-`
// operator in the guest language.
func Sub(h *Heap, a, b Value) (Value, error) {
	if isNumeric(a) && isNumeric(b) {
		if a.tag == TagFloat || b.tag == TagFloat {
			af, _ := asNum(a)
			bf, _ := asNum(b)
			return Float(af - bf), nil
		}
		return Int(a.i - b.i), nil
	}
	return Value{}, fmt.Errorf("unsupported operand type(s) for -: '%s' and '%s'", a.TypeName(h), b.TypeName(h))
}

// Mul implements guest `*`, including str/list repetition by an int.
func Mul(h *Heap, a, b Value) (Value, error) {
	if isNumeric(a) && isNumeric(b) {
		if a.tag == TagFloat || b.tag == TagFloat {
			af, _ := asNum(a)
			bf, _ := asNum(b)
			return Float(af * bf), nil
		}
		return Int(a.i * b.i), nil
	}
	if a.tag == TagRef && b.tag == TagInt {
		return repeat(h, a, b.i)
	}
	if b.tag == TagRef && a.tag == TagInt {
		return repeat(h, b, a.i)
	}
	return Value{}, fmt.Errorf("unsupported operand type(s) for *: '%s' and '%s'", a.TypeName(h), b.TypeName(h))
}

func repeat(h *Heap, container Value, n int64) (Value, error) {
	if n < 0 {
		n = 0
	}
	switch p := h.payload(container.HeapID()).(type) {
	case *Str:
		id, err := h.Allocate(NewStr(strings.Repeat(p.s, int(n))))
		return Ref(id), err
	case *List:
		out := make([]Value, 0, int64(len(p.items))*n)
		for i := int64(0); i < n; i++ {
			out = append(out, p.items...)
		}
		for _, v := range out {
			h.own(v)
		}
		id, err := h.Allocate(&List{items: out})
		return Ref(id), err
	case *Tuple:
		out := make([]Value, 0, int64(len(p.items))*n)
		for i := int64(0); i < n; i++ {
			out = append(out, p.items...)
		}
		for _, v := range out {
			h.own(v)
		}
		id, err := h.Allocate(&Tuple{items: out})
		return Ref(id), err
	default:
		return Value{}, fmt.Errorf("can't multiply sequence by non-int of type '%s'", container.TypeName(h))
	}
}

// Mod implements guest `%` for numbers (string formatting is out of
// scope; spec.md Non-goals).
func Mod(h *Heap, a, b Value) (Value, error) {
	if isNumeric(a) && isNumeric(b) {
		if a.tag == TagFloat || b.tag == TagFloat {
			af, _ := asNum(a)
			bf, _ := asNum(b)
			if bf == 0 {
				return Value{}, fmt.Errorf("float modulo")
			}
			r := af - bf*float64(int64(af/bf))
			if r != 0 && (r < 0) != (bf < 0) {
				r += bf
			}
			return Float(r), nil
		}
		if b.i == 0 {
			return Value{}, fmt.Errorf("integer division or modulo by zero")
		}
		r := a.i % b.i
		if r != 0 && (r < 0) != (b.i < 0) {
			r += b.i
		}
		return Int(r), nil
	}
	return Value{}, fmt.Errorf("unsupported operand type(s) for %%: '%s' and '%s'", a.TypeName(h), b.TypeName(h))
}

// Div implements guest `/`, always producing a float (Python 3 true
// division).
func Div(h *Heap, a, b Value) (Value, error) {
	if !isNumeric(a) || !isNumeric(b) {
		return Value{}, fmt.Errorf("unsupported operand type(s) for /: '%s' and '%s'", a.TypeName(h), b.TypeName(h))
	}
	af, _ := asNum(a)
	bf, _ := asNum(b)
	if bf == 0 {
		return Value{}, fmt.Errorf("division by zero")
	}
	return Float(af / bf), nil
}

// FloorDiv implements guest `//`, producing an int when both operands
// are ints, else a float, with Python floor semantics.
func FloorDiv(h *Heap, a, b Value) (Value, error) {
	if !isNumeric(a) || !isNumeric(b) {
		return Value{}, fmt.Errorf("unsupported operand type(s) for //: '%s' and '%s'", a.TypeName(h), b.TypeName(h))
	}
	if a.tag == TagFloat || b.tag == TagFloat {
		af, _ := asNum(a)
		bf, _ := asNum(b)
		if bf == 0 {
			return Value{}, fmt.Errorf("float floor division by zero")
		}
		return Float(math.Floor(af / bf)), nil
	}
	if b.i == 0 {
		return Value{}, fmt.Errorf("integer division or modulo by zero")
	}
	q := a.i / b.i
	if (a.i%b.i != 0) && ((a.i < 0) != (b.i < 0)) {
		q--
	}
	return Int(q), nil
}

// GetItem implements guest `container[index]` for list, tuple, str,
// bytes and dict (spec.md §4.2 getitem).
func GetItem(h *Heap, container, index Value) (Value, error) {
	if container.tag != TagRef {
		return Value{}, fmt.Errorf("'%s' object is not subscriptable", container.TypeName(h))
	}
	switch p := h.payload(container.HeapID()).(type) {
	case *List:
		if index.tag != TagInt {
			return Value{}, fmt.Errorf("list indices must be integers")
		}
		v, ok := p.Get(int(index.i))
		if !ok {
			return Value{}, fmt.Errorf("list index out of range")
		}
		h.own(v)
		return v, nil
	case *Tuple:
		if index.tag != TagInt {
			return Value{}, fmt.Errorf("tuple indices must be integers")
		}
		v, ok := p.Get(int(index.i))
		if !ok {
			return Value{}, fmt.Errorf("tuple index out of range")
		}
		h.own(v)
		return v, nil
	case *Str:
		if index.tag != TagInt {
			return Value{}, fmt.Errorf("string indices must be integers")
		}
		runes := p.Runes()
		i := int(index.i)
		if i < 0 {
			i += len(runes)
		}
		if i < 0 || i >= len(runes) {
			return Value{}, fmt.Errorf("string index out of range")
		}
		id, err := h.Allocate(NewStr(string(runes[i])))
		return Ref(id), err
	case *Bytes:
		if index.tag != TagInt {
			return Value{}, fmt.Errorf("bytes indices must be integers")
		}
		i := int(index.i)
		if i < 0 {
			i += len(p.b)
		}
		if i < 0 || i >= len(p.b) {
			return Value{}, fmt.Errorf("index out of range")
		}
		return Int(int64(p.b[i])), nil
	case *Dict:
		v, found, hashable := p.Get(h, index)
		if !hashable {
			return Value{}, fmt.Errorf("unhashable type: '%s'", index.TypeName(h))
		}
		if !found {
			return Value{}, fmt.Errorf("KeyError")
		}
		h.own(v)
		return v, nil
	default:
		return Value{}, fmt.Errorf("'%s' object is not subscriptable", container.TypeName(h))
	}
}

// SetItem implements guest `container[index] = value` for list and dict.
func SetItem(h *Heap, container, index, val Value) error {
	if container.tag != TagRef {
		return fmt.Errorf("'%s' object does not support item assignment", container.TypeName(h))
	}
	switch p := h.payload(container.HeapID()).(type) {
	case *List:
		if index.tag != TagInt {
			return fmt.Errorf("list indices must be integers")
		}
		if !p.Set(int(index.i), val) {
			return fmt.Errorf("list assignment index out of range")
		}
		return nil
	case *Dict:
		if !p.Set(h, index, val) {
			return fmt.Errorf("unhashable type: '%s'", index.TypeName(h))
		}
		return nil
	default:
		return fmt.Errorf("'%s' object does not support item assignment", container.TypeName(h))
	}
}

// Repr renders v as the guest repr() would, matching cycle-safe
// placeholders ("[...]" / "{...}") for self-referential containers
// (spec.md §4.4 "Cycle-safe repr").
func Repr(h *Heap, v Value) string {
	var b strings.Builder
	writeRepr(&b, h, v, map[HeapID]bool{})
	return b.String()
}

// Str renders v as the guest str() would: identical to Repr except for
// top-level strings, which are unquoted.
func Str(h *Heap, v Value) string {
	if v.tag == TagRef {
		if s, ok := h.payload(v.HeapID()).(*Str); ok {
			return s.s
		}
	}
	return Repr(h, v)
}

func writeRepr(b *strings.Builder, h *Heap, v Value, seen map[HeapID]bool) {
	switch v.tag {
	case TagNone:
		b.WriteString("None")
	case TagEllipsis:
		b.WriteString("...")
	case TagUndefined:
		b.WriteString("<undefined>")
	case TagBool:
		if v.AsBool() {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case TagInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case TagFloat:
		b.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case TagRange:
		fmt.Fprintf(b, "range(0, %d)", v.i)
	case TagBuiltin:
		fmt.Fprintf(b, "<built-in function %d>", v.i)
	case TagExtFunction:
		fmt.Fprintf(b, "<external function %d>", v.i)
	case TagFunction:
		fmt.Fprintf(b, "<function %d>", v.i)
	case TagRef:
		writeRefRepr(b, h, v.HeapID(), seen)
	}
}

func writeRefRepr(b *strings.Builder, h *Heap, id HeapID, seen map[HeapID]bool) {
	switch p := h.payload(id).(type) {
	case *Str:
		writePyQuoted(b, p.s)
	case *Bytes:
		b.WriteByte('b')
		writePyQuoted(b, string(p.b))
	case *List:
		if seen[id] {
			b.WriteString("[...]")
			return
		}
		seen[id] = true
		b.WriteByte('[')
		for i, item := range p.items {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, h, item, seen)
		}
		b.WriteByte(']')
		delete(seen, id)
	case *Tuple:
		if seen[id] {
			b.WriteString("(...)")
			return
		}
		seen[id] = true
		b.WriteByte('(')
		for i, item := range p.items {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, h, item, seen)
		}
		if len(p.items) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
		delete(seen, id)
	case *Dict:
		if seen[id] {
			b.WriteString("{...}")
			return
		}
		seen[id] = true
		b.WriteByte('{')
		for i, item := range p.Items() {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, h, item.Key, seen)
			b.WriteString(": ")
			writeRepr(b, h, item.Val, seen)
		}
		b.WriteByte('}')
		delete(seen, id)
	case *Set:
		if seen[id] {
			b.WriteString("{...}")
			return
		}
		if p.size == 0 {
			b.WriteString("set()")
			return
		}
		seen[id] = true
		b.WriteByte('{')
		for i, v := range p.Values() {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, h, v, seen)
		}
		b.WriteByte('}')
		delete(seen, id)
	case *Cell:
		b.WriteString("<cell>")
	case *Closure:
		fmt.Fprintf(b, "<function %d>", p.FuncID)
	case *FuncDefaults:
		fmt.Fprintf(b, "<function %d>", p.FuncID)
	case *Iterator:
		b.WriteString("<iterator>")
	case *Boxed:
		writeRepr(b, h, p.Inner, seen)
	default:
		fmt.Fprintf(b, "<%s>", p.typeName())
	}
}

// writePyQuoted renders s the way Python's repr() quotes a string:
// single-quoted unless s contains a single quote but no double quote, in
// which case double-quoted instead, with backslash/quote/control-char
// escaping (spec.md §4.2 "Python-compatible escaping").
func writePyQuoted(b *strings.Builder, s string) {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
}
