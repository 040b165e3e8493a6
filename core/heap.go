package core

import (
	"github.com/dchest/siphash"
	"github.com/montylang/monty/intern"
	"github.com/montylang/monty/resource"
)

// HeapID identifies a live heap slot. Per spec.md I-H2, heap IDs are
// monotonically increasing for the lifetime of a run and are never
// reused, which is what makes id() stable and lets cycle-detecting repr
// and suspension serialization use a HeapID as a cheap identity key.
type HeapID int32

// payload is the closed set of heap-resident container kinds (spec.md
// §3.3). Grounded on original_source/src/heap.rs's HeapData enum and its
// hand-dispatched AbstractValue impl: rather than many small interfaces,
// one interface with a handful of required primitives, plus free
// functions in protocol.go that type-switch over the concrete payload
// for the rest of the value protocol (spec.md §4.2).
type payload interface {
	typeName() string
	truthy(h *Heap) bool
	length() (int, bool)
	// children enumerates owned Refs into dst, for iterative drop and GC
	// tracing (spec.md §4.2 dec_ref_children).
	children(dst []HeapID) []HeapID
	// immutable reports whether this payload is eligible for a cached
	// hash (spec.md I-H1).
	immutable() bool
}

type entry struct {
	refcount int
	payload  payload // nil when vacated
	hash     uint64
	hasHash  bool
}

// Heap is the slot arena described in spec.md §3.3/§4.3. It never reuses
// slot indices (I-H2); a refcount of 0 vacates the slot in place (I-H3).
type Heap struct {
	entries []entry
	strs    *intern.Table
	tracker resource.Tracker

	// roots, when non-nil, is consulted by GC to find reachable Values
	// beyond the ones passed explicitly to Collect (namespace slots,
	// pending external-return buffers, suspension records: spec.md §4.3
	// "Garbage collection").
	roots func(yield func(Value))
}

// NewHeap constructs an empty heap backed by the given interner (for
// string/bytes hashing and repr) and resource tracker.
func NewHeap(strs *intern.Table, tracker resource.Tracker) *Heap {
	return &Heap{strs: strs, tracker: tracker}
}

// SetRoots installs the root-enumeration callback used by Collect.
func (h *Heap) SetRoots(roots func(yield func(Value))) { h.roots = roots }

func (h *Heap) Strings() *intern.Table { return h.strs }
func (h *Heap) Tracker() resource.Tracker { return h.tracker }

func (h *Heap) payload(id HeapID) payload {
	e := &h.entries[id]
	if e.payload == nil {
		panic("core: access to vacated heap slot")
	}
	return e.payload
}

// Len reports the number of slots ever allocated (including vacated
// ones), which doubles as the next HeapID to be assigned.
func (h *Heap) Len() int { return len(h.entries) }

// Allocate appends a new slot holding p and returns its id with a
// refcount of 1, representing the single owned reference handed back to
// the caller (spec.md I-V1). The allocation is charged against the
// tracker before the slot is created.
func (h *Heap) Allocate(p payload) (HeapID, error) {
	size := sizeOf(p)
	if err := h.tracker.OnAllocate(func() int { return size }); err != nil {
		return 0, err
	}
	id := HeapID(len(h.entries))
	e := entry{refcount: 1, payload: p}
	if p.immutable() {
		if hv, ok := h.computeHash(p); ok {
			e.hash, e.hasHash = hv, true
		}
	}
	h.entries = append(h.entries, e)
	return id, nil
}

// IncRef bumps the refcount of id. Every reachable Ref(id) must be
// balanced by exactly one IncRef (I-V1).
func (h *Heap) IncRef(id HeapID) {
	h.entries[id].refcount++
}

// DecRef decrements id's refcount. When it reaches zero the slot is
// vacated and its owned children are pushed onto an explicit work stack
// so that deeply nested structures are dropped iteratively, never
// recursively (spec.md §4.3 "Iterative drop").
func (h *Heap) DecRef(id HeapID) {
	work := []HeapID{id}
	var scratch []HeapID
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]

		e := &h.entries[cur]
		if e.payload == nil {
			continue // already vacated; a value can be pushed twice via aliasing checks elsewhere
		}
		e.refcount--
		if e.refcount > 0 {
			continue
		}
		p := e.payload
		size := sizeOf(p)
		e.payload = nil
		e.hasHash = false
		h.tracker.OnFree(func() int { return size })

		scratch = p.children(scratch[:0])
		work = append(work, scratch...)
	}
}

// Payload returns the concrete heap payload at id for callers outside
// this package (eval, builtin) that need to inspect or mutate a
// container directly rather than through the Value protocol in
// protocol.go. Panics on a vacated slot, same as internal access.
func (h *Heap) Payload(id HeapID) interface{} { return h.payload(id) }

func (h *Heap) Str(id HeapID) *Str       { return h.payload(id).(*Str) }
func (h *Heap) Bytes(id HeapID) *Bytes   { return h.payload(id).(*Bytes) }
func (h *Heap) List(id HeapID) *List     { return h.payload(id).(*List) }
func (h *Heap) Tuple(id HeapID) *Tuple   { return h.payload(id).(*Tuple) }
func (h *Heap) Dict(id HeapID) *Dict     { return h.payload(id).(*Dict) }
func (h *Heap) Set(id HeapID) *Set       { return h.payload(id).(*Set) }
func (h *Heap) Cell(id HeapID) *Cell     { return h.payload(id).(*Cell) }
func (h *Heap) Closure(id HeapID) *Closure           { return h.payload(id).(*Closure) }
func (h *Heap) FuncDefaults(id HeapID) *FuncDefaults { return h.payload(id).(*FuncDefaults) }
func (h *Heap) Iterator(id HeapID) *Iterator         { return h.payload(id).(*Iterator) }
func (h *Heap) Boxed(id HeapID) *Boxed               { return h.payload(id).(*Boxed) }

// Own increments the refcount of v if it is a Ref, returning v unchanged.
// Exported wrapper over the package-internal own helper in iterator.go,
// for callers outside core that hand out a Value they don't want to
// separately IncRef.
func (h *Heap) Own(v Value) Value {
	h.own(v)
	return v
}

// cachedHash returns the hash precomputed at allocation time, per
// spec.md §3.3 cached_hash / invariant I-H1.
func (h *Heap) cachedHash(id HeapID) (uint64, bool) {
	e := &h.entries[id]
	return e.hash, e.hasHash
}

func (h *Heap) computeHash(p payload) (uint64, bool) {
	switch v := p.(type) {
	case *Str:
		return sipHash(0, []byte(v.s)), true
	case *Bytes:
		return sipHash(1, v.b), true
	case *Tuple:
		acc := sipHash(2, nil)
		for _, elem := range v.items {
			hv, ok := h.Hash(elem)
			if !ok {
				return 0, false
			}
			acc ^= hv*1099511628211 + 0x9e3779b97f4a7c15
		}
		return acc, true
	case *Set:
		if !v.frozen {
			return 0, false
		}
		var acc uint64
		for _, hv := range v.order() {
			acc ^= hv
		}
		return acc ^ sipHash(3, nil), true
	default:
		return 0, false
	}
}

// sipHash hashes b with the 128-bit SipHash implementation the rest of
// the retrieval pack already uses for value hashing (vm/interphash.go in
// SnellerInc-sneller), folded to 64 bits and salted per container kind so
// that e.g. an empty string and empty bytes never collide.
func sipHash(salt uint64, b []byte) uint64 {
	lo, hi := siphash.Hash128(salt, 0, b)
	return lo ^ hi
}

func sizeOf(p payload) int {
	switch v := p.(type) {
	case *Str:
		return 32 + len(v.s)
	case *Bytes:
		return 32 + len(v.b)
	case *List:
		return 24 + 16*len(v.items)
	case *Tuple:
		return 24 + 16*len(v.items)
	case *Dict:
		return 48 + 48*v.count()
	case *Set:
		return 48 + 32*v.count()
	case *Cell:
		return 16
	case *Closure:
		return 24 + 16*len(v.cells)
	case *FuncDefaults:
		return 24 + 16*len(v.defaults)
	case *Iterator:
		return 32
	case *Boxed:
		return 16
	default:
		return 16
	}
}

// Collect runs a mark-and-sweep pass over reachable roots (namespace
// slots, pending external-return values, suspension records) as
// installed via SetRoots. Any slot with a positive refcount that is
// unreachable from roots participates in a cycle and is collected
// (spec.md §4.3 "Garbage collection").
func (h *Heap) Collect() {
	if h.roots == nil {
		return
	}
	reachable := make([]bool, len(h.entries))
	var stack []HeapID
	mark := func(v Value) {
		if v.tag == TagRef {
			id := v.HeapID()
			if !reachable[id] {
				reachable[id] = true
				stack = append(stack, id)
			}
		}
	}
	h.roots(mark)
	var scratch []HeapID
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e := &h.entries[id]
		if e.payload == nil {
			continue
		}
		scratch = e.payload.children(scratch[:0])
		for _, child := range scratch {
			if !reachable[child] {
				reachable[child] = true
				stack = append(stack, child)
			}
		}
	}
	for id := range h.entries {
		e := &h.entries[id]
		if e.payload != nil && e.refcount > 0 && !reachable[id] {
			size := sizeOf(e.payload)
			e.payload = nil
			e.hasHash = false
			h.tracker.OnFree(func() int { return size })
		}
	}
	h.tracker.OnGCComplete()
}
