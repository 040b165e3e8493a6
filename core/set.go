package core

import "golang.org/x/exp/slices"

type setSlot struct {
	hash uint64
	val  Value
	tomb bool
}

// Set uses the same collision-list approach as Dict. It is hashable only
// when frozen (spec.md §4.4); ordinary (mutable) sets are unhashable.
type Set struct {
	buckets map[uint64][]int
	slots   []setSlot
	size    int
	frozen  bool
}

func NewSet() *Set {
	return &Set{buckets: make(map[uint64][]int)}
}

func (s *Set) typeName() string    { return "set" }
func (s *Set) truthy(h *Heap) bool { return s.size > 0 }
func (s *Set) length() (int, bool) { return s.size, true }
func (s *Set) immutable() bool     { return s.frozen }
func (s *Set) count() int          { return s.size }

func (s *Set) children(dst []HeapID) []HeapID {
	for _, slot := range s.slots {
		if !slot.tomb && slot.val.tag == TagRef {
			dst = append(dst, slot.val.HeapID())
		}
	}
	return dst
}

func (s *Set) findSlot(h *Heap, hash uint64, v Value) int {
	cands := s.buckets[hash]
	idx := slices.IndexFunc(cands, func(i int) bool {
		slot := &s.slots[i]
		return !slot.tomb && Equal(h, slot.val, v)
	})
	if idx < 0 {
		return -1
	}
	return cands[idx]
}

// Add inserts v, returning hashable=false if v cannot be hashed.
func (s *Set) Add(h *Heap, v Value) (added, hashable bool) {
	hv, ok := h.Hash(v)
	if !ok {
		return false, false
	}
	if s.findSlot(h, hv, v) >= 0 {
		return false, true
	}
	idx := len(s.slots)
	s.slots = append(s.slots, setSlot{hash: hv, val: v})
	s.buckets[hv] = append(s.buckets[hv], idx)
	s.size++
	return true, true
}

func (s *Set) Contains(h *Heap, v Value) (found, hashable bool) {
	hv, ok := h.Hash(v)
	if !ok {
		return false, false
	}
	return s.findSlot(h, hv, v) >= 0, true
}

func (s *Set) Discard(h *Heap, v Value) (removed bool) {
	hv, ok := h.Hash(v)
	if !ok {
		return false
	}
	i := s.findSlot(h, hv, v)
	if i < 0 {
		return false
	}
	s.slots[i].tomb = true
	s.size--
	return true
}

// Values returns the live members in first-insertion order.
func (s *Set) Values() []Value {
	out := make([]Value, 0, s.size)
	for _, slot := range s.slots {
		if !slot.tomb {
			out = append(out, slot.val)
		}
	}
	return out
}

// order returns the per-member hashes, used by Heap.computeHash for
// frozen-set hashing.
func (s *Set) order() []uint64 {
	out := make([]uint64, 0, s.size)
	for _, slot := range s.slots {
		if !slot.tomb {
			out = append(out, slot.hash)
		}
	}
	return out
}

// Clear drops every member's owned reference and empties the set.
func (s *Set) Clear(h *Heap) {
	for _, slot := range s.slots {
		if !slot.tomb && slot.val.tag == TagRef {
			h.DecRef(slot.val.HeapID())
		}
	}
	s.buckets = make(map[uint64][]int)
	s.slots = s.slots[:0]
	s.size = 0
}

// Clone performs a shallow copy, bumping the refcount of each retained
// member since it is now held by two sets.
func (s *Set) Clone(h *Heap, frozen bool) *Set {
	ns := &Set{
		buckets: make(map[uint64][]int, len(s.buckets)),
		slots:   append([]setSlot(nil), s.slots...),
		size:    s.size,
		frozen:  frozen,
	}
	for _, slot := range ns.slots {
		if !slot.tomb {
			h.own(slot.val)
		}
	}
	for k, v := range s.buckets {
		ns.buckets[k] = append([]int(nil), v...)
	}
	return ns
}
