package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNoLimitTrackerNeverFails(t *testing.T) {
	tr := &NoLimitTracker{}
	for i := 0; i < defaultGCInterval-1; i++ {
		require.NoError(t, tr.OnAllocate(func() int { return 8 }))
	}
	require.False(t, tr.ShouldGC())
	require.NoError(t, tr.OnAllocate(func() int { return 8 }))
	require.True(t, tr.ShouldGC())
	tr.OnGCComplete()
	require.False(t, tr.ShouldGC())
}

func TestLimitedTrackerAllocationLimit(t *testing.T) {
	tr := NewLimitedTracker(NewLimits().MaxAllocations(2))
	require.NoError(t, tr.OnAllocate(func() int { return 1 }))
	require.NoError(t, tr.OnAllocate(func() int { return 1 }))
	err := tr.OnAllocate(func() int { return 1 })
	require.Error(t, err)
	var allocErr *AllocationError
	require.ErrorAs(t, err, &allocErr)
	require.Equal(t, 2, allocErr.Limit)
	require.Equal(t, 3, allocErr.Count)
}

func TestLimitedTrackerMemoryLimit(t *testing.T) {
	tr := NewLimitedTracker(NewLimits().MaxMemory(10))
	require.NoError(t, tr.OnAllocate(func() int { return 6 }))
	err := tr.OnAllocate(func() int { return 6 })
	require.Error(t, err)
	var memErr *MemoryError
	require.ErrorAs(t, err, &memErr)
	require.Equal(t, 10, memErr.Limit)
	require.Equal(t, 12, memErr.Used)
}

func TestLimitedTrackerFreeNeverUnderflows(t *testing.T) {
	tr := NewLimitedTracker(NewLimits())
	require.NoError(t, tr.OnAllocate(func() int { return 4 }))
	tr.OnFree(func() int { return 100 })
	require.Equal(t, 0, tr.CurrentMemory())
}

func TestLimitedTrackerTimeLimit(t *testing.T) {
	tr := NewLimitedTracker(NewLimits().MaxDuration(time.Nanosecond))
	time.Sleep(time.Millisecond)
	err := tr.CheckTime()
	require.Error(t, err)
	var timeErr *TimeError
	require.ErrorAs(t, err, &timeErr)
}

func TestLimitedTrackerDefaultRecursionLimit(t *testing.T) {
	tr := NewLimitedTracker(NewLimits())
	require.NoError(t, tr.CheckRecursionDepth(defaultRecursionLimit))
	err := tr.CheckRecursionDepth(defaultRecursionLimit + 1)
	require.Error(t, err)
	var recErr *RecursionError
	require.ErrorAs(t, err, &recErr)
	require.Equal(t, defaultRecursionLimit, recErr.Limit)
}

func TestLimitedTrackerGCInterval(t *testing.T) {
	tr := NewLimitedTracker(NewLimits().GCInterval(2))
	require.NoError(t, tr.OnAllocate(func() int { return 1 }))
	require.False(t, tr.ShouldGC())
	require.NoError(t, tr.OnAllocate(func() int { return 1 }))
	require.True(t, tr.ShouldGC())
	tr.OnGCComplete()
	require.False(t, tr.ShouldGC())
}
