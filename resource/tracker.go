// Package resource implements the per-run accounting and limit
// enforcement described in spec.md §4.8: allocation count, approximate
// heap bytes, wall-clock time, and call-recursion depth, plus GC
// scheduling. Grounded on original_source/src/resource.rs's
// ResourceTracker trait and its NoLimitTracker/LimitedTracker pair.
package resource

// Tracker is consulted by the heap (on allocation/free) and by the
// evaluator (at statement boundaries and function-entry namespace
// pushes). All implementations must eventually trigger GC to reclaim
// reference cycles; ShouldGC controls frequency, not whether GC ever
// runs (original_source/src/resource.rs doc comment on the trait).
type Tracker interface {
	// OnAllocate is called before a heap allocation. getSize defers the
	// (possibly non-trivial) size computation: NoLimitTracker never calls
	// it, and LimitedTracker calls it only after the allocation-count
	// check has passed.
	OnAllocate(getSize func() int) error
	// OnFree is called when a slot is vacated, by DecRef or by GC.
	OnFree(getSize func() int)
	// CheckTime is called periodically (statement boundaries).
	CheckTime() error
	// CheckRecursionDepth is called before each function-entry
	// namespace push (spec.md §4.5 "checks recursion depth before
	// charging memory").
	CheckRecursionDepth(depth int) error
	// ShouldGC reports whether a GC pass should run now.
	ShouldGC() bool
	// OnGCComplete resets any since-last-GC counters.
	OnGCComplete()
}
