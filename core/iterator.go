package core

// IterKind discriminates the small closed set of iterator sources the
// evaluator can produce (spec.md §4.4 Iterator: "a Value::Ref to an
// iterator state that returns Option<Value> per step").
type IterKind int

const (
	IterRange IterKind = iota
	IterList
	IterTuple
	IterStr
	IterBytes
	IterDictKeys
	IterDictValues
	IterDictItems
	IterSetValues
)

// Iterator is the heap-resident, steppable iterator state. It owns a Ref
// to its source container (keeping it alive for the iterator's lifetime)
// except for IterRange, which is self-contained. Cloning an Iterator
// (Clone) produces an independent cursor over the same source, which is
// exactly the snapshot primitive the resumable engine's For clause state
// needs (spec.md §4.7 "For(iterator_snapshot)").
type Iterator struct {
	kind      IterKind
	source    HeapID
	hasSource bool
	idx       int
	rangeN    int64
}

func NewRangeIterator(n int64) *Iterator {
	return &Iterator{kind: IterRange, rangeN: n}
}

func NewContainerIterator(kind IterKind, source HeapID) *Iterator {
	return &Iterator{kind: kind, source: source, hasSource: true}
}

func (it *Iterator) typeName() string    { return "iterator" }
func (it *Iterator) truthy(h *Heap) bool { return true }
func (it *Iterator) length() (int, bool) { return 0, false }
func (it *Iterator) immutable() bool     { return false }

func (it *Iterator) children(dst []HeapID) []HeapID {
	if it.hasSource {
		dst = append(dst, it.source)
	}
	return dst
}

// Clone returns an independent cursor over the same source (or the same
// range bound), used to snapshot a suspended for-loop.
func (it *Iterator) Clone() *Iterator {
	cp := *it
	return &cp
}

// Cursor/SetCursor expose the raw index for suspension dump/load.
func (it *Iterator) Cursor() int     { return it.idx }
func (it *Iterator) SetCursor(i int) { it.idx = i }

// Kind, Source and RangeN expose the remaining fields for serializing a
// suspended for-loop's iterator snapshot (spec.md §4.7).
func (it *Iterator) Kind() IterKind        { return it.kind }
func (it *Iterator) Source() (HeapID, bool) { return it.source, it.hasSource }
func (it *Iterator) RangeN() int64         { return it.rangeN }

// RestoreIterator rebuilds an Iterator from its serialized fields
// (spec.md §6.1 RunProgress.load).
func RestoreIterator(kind IterKind, source HeapID, hasSource bool, idx int, rangeN int64) *Iterator {
	return &Iterator{kind: kind, source: source, hasSource: hasSource, idx: idx, rangeN: rangeN}
}

// Next advances the iterator, returning (value, true) or (Value{}, false)
// at exhaustion. Values pulled from a container come with an extra owned
// reference (the caller becomes responsible for it), matching the
// ownership discipline of spec.md §4.6.
func (it *Iterator) Next(h *Heap) (Value, bool) {
	switch it.kind {
	case IterRange:
		if int64(it.idx) >= it.rangeN {
			return Value{}, false
		}
		v := Int(int64(it.idx))
		it.idx++
		return v, true
	case IterList:
		l := h.payload(it.source).(*List)
		if it.idx >= len(l.items) {
			return Value{}, false
		}
		v := l.items[it.idx]
		it.idx++
		h.own(v)
		return v, true
	case IterTuple:
		t := h.payload(it.source).(*Tuple)
		if it.idx >= len(t.items) {
			return Value{}, false
		}
		v := t.items[it.idx]
		it.idx++
		h.own(v)
		return v, true
	case IterStr:
		s := h.payload(it.source).(*Str)
		runes := s.Runes()
		if it.idx >= len(runes) {
			return Value{}, false
		}
		r := runes[it.idx]
		it.idx++
		sv, err := h.Allocate(NewStr(string(r)))
		if err != nil {
			return Value{}, false
		}
		return Ref(sv), true
	case IterBytes:
		b := h.payload(it.source).(*Bytes)
		if it.idx >= len(b.b) {
			return Value{}, false
		}
		v := Int(int64(b.b[it.idx]))
		it.idx++
		return v, true
	case IterDictKeys, IterDictValues, IterDictItems:
		d := h.payload(it.source).(*Dict)
		items := d.Items()
		if it.idx >= len(items) {
			return Value{}, false
		}
		kv := items[it.idx]
		it.idx++
		switch it.kind {
		case IterDictKeys:
			h.own(kv.Key)
			return kv.Key, true
		case IterDictValues:
			h.own(kv.Val)
			return kv.Val, true
		default:
			h.own(kv.Key)
			h.own(kv.Val)
			tv, err := h.Allocate(NewTuple([]Value{kv.Key, kv.Val}))
			if err != nil {
				return Value{}, false
			}
			return Ref(tv), true
		}
	case IterSetValues:
		s := h.payload(it.source).(*Set)
		vals := s.Values()
		if it.idx >= len(vals) {
			return Value{}, false
		}
		v := vals[it.idx]
		it.idx++
		h.own(v)
		return v, true
	default:
		return Value{}, false
	}
}

// own bumps the refcount of v if it is a heap reference, giving the
// caller its own owned copy.
func (h *Heap) own(v Value) {
	if v.tag == TagRef {
		h.IncRef(v.HeapID())
	}
}
