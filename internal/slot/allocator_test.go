package slot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_FirstSlotIsMain(t *testing.T) {
	a := New()
	assert.Equal(t, Main, a.Allocate())
	assert.Equal(t, 1, a.InUse())
	assert.Equal(t, 1, a.Capacity())
}

func TestAllocator_RecyclesBeforeGrowing(t *testing.T) {
	a := New()
	a.Allocate() // main

	s1 := a.Allocate()
	s2 := a.Allocate()
	s3 := a.Allocate()
	assert.Equal(t, []int{1, 2, 3}, []int{s1, s2, s3})

	a.Free(s2)
	a.Free(s1)

	// LIFO: last freed comes back first
	assert.Equal(t, s1, a.Allocate())
	assert.Equal(t, s2, a.Allocate())
	assert.Equal(t, 4, a.Allocate(), "free list exhausted, counter grows")
	assert.Equal(t, 5, a.Capacity())
}

func TestAllocator_ReuseAfterManySecondaries(t *testing.T) {
	a := New()
	a.Allocate()

	const n = 16
	slots := make([]int, n)
	for i := range slots {
		slots[i] = a.Allocate()
	}
	for _, s := range slots {
		a.Free(s)
	}
	assert.Equal(t, 1, a.InUse())

	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		s := a.Allocate()
		assert.NotEqual(t, Main, s)
		assert.Less(t, s, n+1, "reused indices stay within previous capacity")
		seen[s] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n+1, a.Capacity())
}

func TestAllocator_MainCannotBeFreedWhileOthersInUse(t *testing.T) {
	a := New()
	a.Allocate()
	s := a.Allocate()

	assert.Panics(t, func() { a.Free(Main) })

	a.Free(s)
	assert.NotPanics(t, func() { a.Free(Main) })
	assert.Equal(t, 0, a.InUse())
}

func TestAllocator_DoubleFreePanics(t *testing.T) {
	a := New()
	a.Allocate()
	s := a.Allocate()
	a.Free(s)

	assert.Panics(t, func() { a.Free(s) })
	assert.Panics(t, func() { a.Free(42) })
	assert.Panics(t, func() { a.Free(-1) })
}

func TestAllocator_Reset(t *testing.T) {
	a := New()
	a.Allocate()
	assert.Panics(t, func() { a.Reset() }, "reset with live slots")

	a.Free(Main)
	a.Reset()
	assert.Equal(t, 0, a.Capacity())
	assert.Equal(t, Main, a.Allocate())
}

func TestAllocator_ThreadSafe(t *testing.T) {
	a := New()
	a.Allocate()

	const goroutines = 50
	const rounds = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				s := a.Allocate()
				if s == Main {
					t.Errorf("main slot issued twice")
				}
				a.Free(s)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, a.InUse())
	assert.LessOrEqual(t, a.Capacity(), goroutines+1)
}
