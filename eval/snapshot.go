package eval

import "github.com/montylang/monty/core"

// TryPhase orders the phases of a try statement so that a pending
// propagation can be compared against where resume should continue
// (spec.md §4.7 ClauseState::Try), grounded on
// crates/monty/src/snapshot.rs's TryPhase (PartialOrd over
// TryBody < ExceptHandler < Else < Finally).
type TryPhase uint8

const (
	PhaseBody TryPhase = iota
	PhaseHandler
	PhaseElse
	PhaseFinally
)

// TryClauseState preserves a try statement's progress across a
// suspension that occurs anywhere within it, including inside a finally
// that itself makes an external call while a prior exception or return
// is still pending propagation (spec.md §4.7).
type TryClauseState struct {
	Phase         TryPhase
	HandlerIndex  int
	Pending       *GuestException // exception awaiting re-raise after finally
	PendingReturn *core.Value     // return value awaiting propagation after finally
	Enclosing     *GuestException // the exception currently being handled, for bare `raise`
}

// ClauseState is the resumable state of whichever compound statement is
// active at a suspended position: an if-branch decision, a for-loop's
// iterator cursor, or a try statement's phase (spec.md §4.7).
type ClauseState struct {
	IfTaken *bool
	ForIter *core.Iterator
	InBody  bool // while-loop resume: re-enter the body without re-testing the condition
	Try     *TryClauseState
}

// CodePosition names where execution should resume within one nesting
// level: the index of the next statement in the current block, plus the
// clause state of whichever compound statement that index is inside (nil
// at the top level of a block).
type CodePosition struct {
	Index  int
	Clause *ClauseState
}

// ExternalCall is a request to invoke a host-implemented function,
// carrying its owned argument values (spec.md §4.7 step 1).
type ExternalCall struct {
	Name string
	Args []core.Value
}

// SnapshotMode distinguishes run_no_snapshot's fast path (no position
// bookkeeping) from run_snapshot's full resumable path, grounded on
// crates/monty/src/snapshot.rs's AbstractSnapshotTracker trait with its
// NoSnapshotTracker/SnapshotTracker pair.
type SnapshotMode interface {
	Enabled() bool
}

// NoSnapshotTracker is used by run_no_snapshot: the program declares no
// external functions, so no position tracking is needed at all.
type NoSnapshotTracker struct{}

func (NoSnapshotTracker) Enabled() bool { return false }

// RealSnapshotTracker is used by run_snapshot, enabling full CodePosition
// bookkeeping on every suspend.
type RealSnapshotTracker struct{}

func (*RealSnapshotTracker) Enabled() bool { return true }
