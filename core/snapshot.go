package core

import (
	"fmt"

	"github.com/montylang/monty/intern"
	"github.com/montylang/monty/resource"
	"github.com/montylang/monty/wire"
)

// Payload kind tags for the binary heap encoding (spec.md §6.3 "Binary").
const (
	payloadVacated uint8 = iota
	payloadStr
	payloadBytes
	payloadList
	payloadTuple
	payloadDict
	payloadSet
	payloadCell
	payloadClosure
	payloadFuncDefaults
	payloadIterator
	payloadBoxed
)

// EncodeValue appends v to e (spec.md §3.1 Value union).
func EncodeValue(e *wire.Encoder, v Value) {
	e.U8(uint8(v.tag))
	switch v.tag {
	case TagBool, TagInt, TagRange, TagBuiltin, TagExtFunction, TagFunction, TagRef:
		e.I64(v.i)
	case TagFloat:
		e.F64(v.f)
	}
}

// DecodeValue reads back a Value written by EncodeValue.
func DecodeValue(d *wire.Decoder) (Value, error) {
	tag, err := d.U8()
	if err != nil {
		return Value{}, err
	}
	v := Value{tag: Tag(tag)}
	switch v.tag {
	case TagBool, TagInt, TagRange, TagBuiltin, TagExtFunction, TagFunction, TagRef:
		v.i, err = d.I64()
	case TagFloat:
		v.f, err = d.F64()
	}
	return v, err
}

// EncodeValueSlice appends a length-prefixed slice of Values, used by
// callers outside this package (eval's namespace/frame snapshot) that
// need the same encoding for []core.Value.
func EncodeValueSlice(e *wire.Encoder, vs []Value) {
	e.I32(int32(len(vs)))
	for _, v := range vs {
		EncodeValue(e, v)
	}
}

// DecodeValueSlice reads back a slice written by EncodeValueSlice.
func DecodeValueSlice(d *wire.Decoder) ([]Value, error) {
	n, err := d.I32()
	if err != nil {
		return nil, err
	}
	out := make([]Value, n)
	for i := range out {
		out[i], err = DecodeValue(d)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Encode serializes the full heap (every slot, live or vacated, in id
// order so HeapIDs stay stable across a dump/load round trip, spec.md
// I-H2) into e.
func (h *Heap) Encode(e *wire.Encoder) {
	e.I32(int32(len(h.entries)))
	for _, ent := range h.entries {
		e.I64(int64(ent.refcount))
		if ent.payload == nil {
			e.U8(payloadVacated)
			continue
		}
		encodePayload(e, ent.payload)
		e.Bool(ent.hasHash)
		if ent.hasHash {
			e.I64(int64(ent.hash))
		}
	}
}

func encodePayload(e *wire.Encoder, p payload) {
	switch v := p.(type) {
	case *Str:
		e.U8(payloadStr)
		e.Str(v.s)
	case *Bytes:
		e.U8(payloadBytes)
		e.Blob(v.b)
	case *List:
		e.U8(payloadList)
		EncodeValueSlice(e, v.items)
	case *Tuple:
		e.U8(payloadTuple)
		EncodeValueSlice(e, v.items)
	case *Dict:
		e.U8(payloadDict)
		e.I32(int32(len(v.slots)))
		for _, s := range v.slots {
			e.Bool(s.tomb)
			if s.tomb {
				continue
			}
			e.I64(int64(s.hash))
			EncodeValue(e, s.key)
			EncodeValue(e, s.val)
		}
	case *Set:
		e.U8(payloadSet)
		e.Bool(v.frozen)
		e.I32(int32(len(v.slots)))
		for _, s := range v.slots {
			e.Bool(s.tomb)
			if s.tomb {
				continue
			}
			e.I64(int64(s.hash))
			EncodeValue(e, s.val)
		}
	case *Cell:
		e.U8(payloadCell)
		EncodeValue(e, v.val)
	case *Closure:
		e.U8(payloadClosure)
		e.I32(int32(v.FuncID))
		EncodeValueSlice(e, v.cells)
		EncodeValueSlice(e, v.defaults)
	case *FuncDefaults:
		e.U8(payloadFuncDefaults)
		e.I32(int32(v.FuncID))
		EncodeValueSlice(e, v.defaults)
	case *Iterator:
		e.U8(payloadIterator)
		e.U8(uint8(v.kind))
		e.Bool(v.hasSource)
		e.I64(int64(v.source))
		e.I64(int64(v.idx))
		e.I64(v.rangeN)
	case *Boxed:
		e.U8(payloadBoxed)
		EncodeValue(e, v.Inner)
	default:
		panic(fmt.Sprintf("core: unknown payload type %T in Encode", p))
	}
}

// DecodeHeap rebuilds a Heap from bytes written by Heap.Encode, wired to
// a fresh interner/tracker (the string table and resource limits are
// never part of the binary artifact; the host supplies them again at
// load time, spec.md §6.1 Compiled::load).
func DecodeHeap(d *wire.Decoder, strs *intern.Table, tracker resource.Tracker) (*Heap, error) {
	n, err := d.I32()
	if err != nil {
		return nil, err
	}
	h := &Heap{strs: strs, tracker: tracker, entries: make([]entry, n)}
	for i := range h.entries {
		refcount, err := d.I64()
		if err != nil {
			return nil, err
		}
		kind, err := d.U8()
		if err != nil {
			return nil, err
		}
		ent := entry{refcount: int(refcount)}
		if kind != payloadVacated {
			ent.payload, err = decodePayload(d, kind)
			if err != nil {
				return nil, err
			}
			ent.hasHash, err = d.Bool()
			if err != nil {
				return nil, err
			}
			if ent.hasHash {
				hv, err := d.I64()
				if err != nil {
					return nil, err
				}
				ent.hash = uint64(hv)
			}
		}
		h.entries[i] = ent
	}
	return h, nil
}

func decodePayload(d *wire.Decoder, kind uint8) (payload, error) {
	switch kind {
	case payloadStr:
		s, err := d.Str()
		return &Str{s: s}, err
	case payloadBytes:
		b, err := d.Blob()
		return &Bytes{b: b}, err
	case payloadList:
		items, err := DecodeValueSlice(d)
		return &List{items: items}, err
	case payloadTuple:
		items, err := DecodeValueSlice(d)
		return &Tuple{items: items}, err
	case payloadDict:
		return decodeDict(d)
	case payloadSet:
		return decodeSet(d)
	case payloadCell:
		v, err := DecodeValue(d)
		return &Cell{val: v}, err
	case payloadClosure:
		return decodeClosure(d)
	case payloadFuncDefaults:
		return decodeFuncDefaults(d)
	case payloadIterator:
		return decodeIterator(d)
	case payloadBoxed:
		v, err := DecodeValue(d)
		return &Boxed{Inner: v}, err
	default:
		return nil, fmt.Errorf("core: unknown payload tag %d in DecodeHeap", kind)
	}
}

func decodeDict(d *wire.Decoder) (*Dict, error) {
	n, err := d.I32()
	if err != nil {
		return nil, err
	}
	dict := &Dict{buckets: make(map[uint64][]int)}
	dict.slots = make([]dictSlot, n)
	for i := range dict.slots {
		tomb, err := d.Bool()
		if err != nil {
			return nil, err
		}
		if tomb {
			dict.slots[i] = dictSlot{tomb: true}
			continue
		}
		hv, err := d.I64()
		if err != nil {
			return nil, err
		}
		key, err := DecodeValue(d)
		if err != nil {
			return nil, err
		}
		val, err := DecodeValue(d)
		if err != nil {
			return nil, err
		}
		dict.slots[i] = dictSlot{hash: uint64(hv), key: key, val: val}
		dict.buckets[uint64(hv)] = append(dict.buckets[uint64(hv)], i)
		dict.size++
	}
	return dict, nil
}

func decodeSet(d *wire.Decoder) (*Set, error) {
	frozen, err := d.Bool()
	if err != nil {
		return nil, err
	}
	n, err := d.I32()
	if err != nil {
		return nil, err
	}
	s := &Set{buckets: make(map[uint64][]int), frozen: frozen}
	s.slots = make([]setSlot, n)
	for i := range s.slots {
		tomb, err := d.Bool()
		if err != nil {
			return nil, err
		}
		if tomb {
			s.slots[i] = setSlot{tomb: true}
			continue
		}
		hv, err := d.I64()
		if err != nil {
			return nil, err
		}
		val, err := DecodeValue(d)
		if err != nil {
			return nil, err
		}
		s.slots[i] = setSlot{hash: uint64(hv), val: val}
		s.buckets[uint64(hv)] = append(s.buckets[uint64(hv)], i)
		s.size++
	}
	return s, nil
}

func decodeClosure(d *wire.Decoder) (*Closure, error) {
	funcID, err := d.I32()
	if err != nil {
		return nil, err
	}
	cells, err := DecodeValueSlice(d)
	if err != nil {
		return nil, err
	}
	defaults, err := DecodeValueSlice(d)
	if err != nil {
		return nil, err
	}
	return &Closure{FuncID: int(funcID), cells: cells, defaults: defaults}, nil
}

func decodeFuncDefaults(d *wire.Decoder) (*FuncDefaults, error) {
	funcID, err := d.I32()
	if err != nil {
		return nil, err
	}
	defaults, err := DecodeValueSlice(d)
	if err != nil {
		return nil, err
	}
	return &FuncDefaults{FuncID: int(funcID), defaults: defaults}, nil
}

func decodeIterator(d *wire.Decoder) (*Iterator, error) {
	kind, err := d.U8()
	if err != nil {
		return nil, err
	}
	hasSource, err := d.Bool()
	if err != nil {
		return nil, err
	}
	source, err := d.I64()
	if err != nil {
		return nil, err
	}
	idx, err := d.I64()
	if err != nil {
		return nil, err
	}
	rangeN, err := d.I64()
	if err != nil {
		return nil, err
	}
	return &Iterator{
		kind: IterKind(kind), source: HeapID(source), hasSource: hasSource,
		idx: int(idx), rangeN: rangeN,
	}, nil
}
