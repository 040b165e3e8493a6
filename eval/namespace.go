// Package eval implements the tree-walking evaluator: namespace storage,
// frames, suspend/resume snapshots, and statement/expression evaluation.
package eval

import (
	"github.com/montylang/monty/ast"
	"github.com/montylang/monty/core"
	"github.com/montylang/monty/resource"
)

// NamespaceID identifies one namespace vector on the namespace stack.
// Index 0 is always global (spec.md §4.5).
type NamespaceID int32

// GlobalNamespaceID is the pre-reserved global namespace, grounded on
// crates/monty/src/namespace.rs's GLOBAL_NS_IDX constant.
const GlobalNamespaceID NamespaceID = 0

const valueSize = 24 // bytes charged per namespace slot against the tracker

// Namespace is a vector of Values, one function-call's worth of local
// storage laid out [ params | cell slots | free slots | locals ]
// (spec.md §3.4).
type Namespace struct {
	slots []core.Value
}

func newNamespace(size int) Namespace {
	slots := make([]core.Value, size)
	for i := range slots {
		slots[i] = core.Undefined
	}
	return Namespace{slots: slots}
}

// Namespaces is the namespace stack plus its free list and the
// external-call return-value buffer used to replay resumed external
// calls without re-invoking the host (spec.md §4.5, §4.7). Grounded on
// crates/monty/src/namespace.rs's Namespaces struct (stack, reuse_ids,
// ext_return_values, next_ext_return_value) and the teacher's stack type
// in vm_stack.go (push/pop/top over a []frame, reused here for pooled
// namespace reuse instead of a parser's call stack).
type Namespaces struct {
	stack               []Namespace
	reuseIDs            []NamespaceID
	extReturnValues      []core.Value
	nextExtReturnValue   int
	tracker              resource.Tracker
}

// NewNamespaces allocates the namespace stack with a pre-sized global
// namespace (index 0).
func NewNamespaces(tracker resource.Tracker, globalSize int) *Namespaces {
	return &Namespaces{
		stack:   []Namespace{newNamespace(globalSize)},
		tracker: tracker,
	}
}

// New pushes a namespace of the given size, pooling a freed slot if one
// is available. depth is the current call-stack depth, checked against
// the tracker's recursion limit before the namespace memory is charged
// (spec.md §4.5 "checks recursion depth before charging memory").
func (ns *Namespaces) New(size, depth int) (NamespaceID, error) {
	if err := ns.tracker.CheckRecursionDepth(depth); err != nil {
		return 0, err
	}
	if err := ns.tracker.OnAllocate(func() int { return size * valueSize }); err != nil {
		return 0, err
	}
	if n := len(ns.reuseIDs); n > 0 {
		id := ns.reuseIDs[n-1]
		ns.reuseIDs = ns.reuseIDs[:n-1]
		ns.stack[id] = newNamespace(size)
		return id, nil
	}
	id := NamespaceID(len(ns.stack))
	ns.stack = append(ns.stack, newNamespace(size))
	return id, nil
}

// DropWithHeap dec-refs every owned value in the namespace, returns its
// memory to the tracker, and pushes the slot index back onto the free
// list (spec.md §4.5 drop_with_heap).
func (ns *Namespaces) DropWithHeap(id NamespaceID, h *core.Heap) {
	n := &ns.stack[id]
	for _, v := range n.slots {
		if v.IsRef() {
			h.DecRef(v.HeapID())
		}
	}
	ns.tracker.OnFree(func() int { return len(n.slots) * valueSize })
	n.slots = nil
	ns.reuseIDs = append(ns.reuseIDs, id)
}

// Slots exposes the raw slot vector of a namespace, used when binding a
// fresh call's arguments into its namespace.
func (ns *Namespaces) Slots(id NamespaceID) []core.Value { return ns.stack[id].slots }

// All ranges over every live (non-pooled) namespace for GC root
// enumeration.
func (ns *Namespaces) All(yield func(NamespaceID, []core.Value)) {
	pooled := make(map[NamespaceID]bool, len(ns.reuseIDs))
	for _, id := range ns.reuseIDs {
		pooled[id] = true
	}
	for i := range ns.stack {
		id := NamespaceID(i)
		if !pooled[id] {
			yield(id, ns.stack[id].slots)
		}
	}
}

// RawSlot returns the slot value as stored, without the Cell-scope
// dereference Get applies — used when capturing a cell by reference into
// a nested closure rather than reading through it.
func (ns *Namespaces) RawSlot(id NamespaceID, slot int) core.Value {
	return ns.stack[id].slots[slot]
}

// Get reads ident's value out of local (the caller's current namespace),
// applying the scope rule (spec.md §4.5 get_var).
func (ns *Namespaces) Get(local NamespaceID, h *core.Heap, ident ast.Identifier) core.Value {
	switch ident.Scope {
	case ast.ScopeGlobal:
		return ns.stack[GlobalNamespaceID].slots[ident.Slot]
	case ast.ScopeCell:
		cellRef := ns.stack[local].slots[ident.Slot]
		return h.Cell(cellRef.HeapID()).Get()
	default: // ScopeLocal
		return ns.stack[local].slots[ident.Slot]
	}
}

// Set writes ident's slot, dropping the previous owner reference first
// (spec.md §4.6 "Assignments drop the previous slot value before storing
// the new one"). For Cell scope it mutates through the cell rather than
// replacing the namespace slot.
func (ns *Namespaces) Set(local NamespaceID, h *core.Heap, ident ast.Identifier, v core.Value) {
	switch ident.Scope {
	case ast.ScopeGlobal:
		ns.setSlot(GlobalNamespaceID, h, ident.Slot, v)
	case ast.ScopeCell:
		cellRef := ns.stack[local].slots[ident.Slot]
		cell := h.Cell(cellRef.HeapID())
		old := cell.Get()
		if old.IsRef() {
			h.DecRef(old.HeapID())
		}
		cell.Set(v)
	default:
		ns.setSlot(local, h, ident.Slot, v)
	}
}

func (ns *Namespaces) setSlot(id NamespaceID, h *core.Heap, slot int, v core.Value) {
	n := &ns.stack[id]
	old := n.slots[slot]
	if old.IsRef() {
		h.DecRef(old.HeapID())
	}
	n.slots[slot] = v
}

// PushExtReturnValue buffers a host-supplied return value for replay on
// resume (spec.md §4.7 step 1).
func (ns *Namespaces) PushExtReturnValue(v core.Value) {
	ns.extReturnValues = append(ns.extReturnValues, v)
}

// TakeExtReturnValue pops the next buffered return value in order, used
// when the evaluator re-reaches an external call site during resume
// instead of re-invoking the host (spec.md §4.7 step 2/3).
func (ns *Namespaces) TakeExtReturnValue() (core.Value, bool) {
	if ns.nextExtReturnValue >= len(ns.extReturnValues) {
		return core.Value{}, false
	}
	v := ns.extReturnValues[ns.nextExtReturnValue]
	ns.nextExtReturnValue++
	return v, true
}

// ClearExtReturnValues resets the buffer once a statement has fully
// re-executed past every external call it needed to replay.
func (ns *Namespaces) ClearExtReturnValues() {
	ns.extReturnValues = ns.extReturnValues[:0]
	ns.nextExtReturnValue = 0
}

// PendingExtReturnValues exposes the unconsumed buffer tail for
// serialization (Compiled.dump/load of in-flight RunProgress state).
func (ns *Namespaces) PendingExtReturnValues() []core.Value {
	return ns.extReturnValues[ns.nextExtReturnValue:]
}
