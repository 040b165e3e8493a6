package core

import "golang.org/x/exp/slices"

type dictSlot struct {
	hash  uint64
	key   Value
	val   Value
	tomb  bool
}

// Dict is an order-preserving mapping. Per spec.md §4.4 it is implemented
// as an open index keyed by u64 hash with small per-bucket collision
// lists of (key, value) pairs compared by guest equality; mutation
// preserves first-insertion order of each key.
type Dict struct {
	buckets map[uint64][]int
	slots   []dictSlot
	size    int
}

func NewDict() *Dict {
	return &Dict{buckets: make(map[uint64][]int)}
}

func (d *Dict) typeName() string    { return "dict" }
func (d *Dict) truthy(h *Heap) bool { return d.size > 0 }
func (d *Dict) length() (int, bool) { return d.size, true }
func (d *Dict) immutable() bool     { return false }
func (d *Dict) count() int          { return d.size }

func (d *Dict) children(dst []HeapID) []HeapID {
	for _, s := range d.slots {
		if s.tomb {
			continue
		}
		if s.key.tag == TagRef {
			dst = append(dst, s.key.HeapID())
		}
		if s.val.tag == TagRef {
			dst = append(dst, s.val.HeapID())
		}
	}
	return dst
}

// findSlot returns the index of the collision-list slot matching key, or
// -1. Requires key to be hashable; callers check that first.
func (d *Dict) findSlot(h *Heap, hash uint64, key Value) int {
	cands := d.buckets[hash]
	idx := slices.IndexFunc(cands, func(i int) bool {
		s := &d.slots[i]
		return !s.tomb && Equal(h, s.key, key)
	})
	if idx < 0 {
		return -1
	}
	return cands[idx]
}

// Get looks up key, returning (value, true) if present. hashable reports
// whether key was hashable at all (unhashable keys are a TypeError at
// the call site, per spec.md §4.4).
func (d *Dict) Get(h *Heap, key Value) (val Value, found bool, hashable bool) {
	hv, ok := h.Hash(key)
	if !ok {
		return Value{}, false, false
	}
	i := d.findSlot(h, hv, key)
	if i < 0 {
		return Value{}, false, true
	}
	return d.slots[i].val, true, true
}

// Set inserts or updates key, preserving first-insertion order.
func (d *Dict) Set(h *Heap, key, val Value) (hashable bool) {
	hv, ok := h.Hash(key)
	if !ok {
		return false
	}
	if i := d.findSlot(h, hv, key); i >= 0 {
		d.slots[i].val = val
		return true
	}
	idx := len(d.slots)
	d.slots = append(d.slots, dictSlot{hash: hv, key: key, val: val})
	d.buckets[hv] = append(d.buckets[hv], idx)
	d.size++
	return true
}

// Delete removes key if present, returning the removed value.
func (d *Dict) Delete(h *Heap, key Value) (val Value, found bool) {
	hv, ok := h.Hash(key)
	if !ok {
		return Value{}, false
	}
	i := d.findSlot(h, hv, key)
	if i < 0 {
		return Value{}, false
	}
	val = d.slots[i].val
	d.slots[i].tomb = true
	d.size--
	return val, true
}

// DictItem is a single (key, value) pair as returned by Dict.Items.
type DictItem struct {
	Key, Val Value
}

// Items iterates live (key, value) pairs in first-insertion order.
func (d *Dict) Items() []DictItem {
	out := make([]DictItem, 0, d.size)
	for _, s := range d.slots {
		if !s.tomb {
			out = append(out, DictItem{s.key, s.val})
		}
	}
	return out
}

// Clear drops every live key/value's owned reference and empties the
// dict.
func (d *Dict) Clear(h *Heap) {
	for _, s := range d.slots {
		if s.tomb {
			continue
		}
		if s.key.tag == TagRef {
			h.DecRef(s.key.HeapID())
		}
		if s.val.tag == TagRef {
			h.DecRef(s.val.HeapID())
		}
	}
	d.buckets = make(map[uint64][]int)
	d.slots = d.slots[:0]
	d.size = 0
}

// Clone performs a shallow copy: keys/values are copied by Value (heap
// refs are not deep-copied, but each gets a fresh owned reference since
// it is now held by two dicts), preserving existing hashes and order.
func (d *Dict) Clone(h *Heap) *Dict {
	nd := &Dict{
		buckets: make(map[uint64][]int, len(d.buckets)),
		slots:   append([]dictSlot(nil), d.slots...),
		size:    d.size,
	}
	for _, s := range nd.slots {
		if !s.tomb {
			h.own(s.key)
			h.own(s.val)
		}
	}
	for k, v := range d.buckets {
		nd.buckets[k] = append([]int(nil), v...)
	}
	return nd
}
