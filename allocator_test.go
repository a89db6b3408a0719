package hecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocatorAllocateAndFree(t *testing.T) {
	a := newAllocator()
	e := a.allocate()
	assert.True(t, a.contains(e))
	assert.Equal(t, uint32(0), e.Generation())

	assert.True(t, a.free(e))
	assert.False(t, a.contains(e))
}

func TestAllocatorGenerationBumpsOnReuse(t *testing.T) {
	a := newAllocator()
	first := a.allocate()
	a.free(first)

	second := a.allocate()
	assert.Equal(t, first.ID(), second.ID())
	assert.NotEqual(t, first.Generation(), second.Generation())
	assert.False(t, a.contains(first))
	assert.True(t, a.contains(second))
}

func TestAllocatorReserveInvisibleUntilFlush(t *testing.T) {
	a := newAllocator()
	e := a.reserve()

	// Reserved but not flushed: the handle is valid (contains), but has no
	// installed location yet.
	assert.True(t, a.contains(e))
	_, ok := a.locationOf(e)
	assert.False(t, ok)

	var installed []Entity
	a.flush(func(ent Entity) entityLocation {
		installed = append(installed, ent)
		return entityLocation{}
	})

	assert.Contains(t, installed, e)
	_, ok = a.locationOf(e)
	assert.True(t, ok)
}

func TestAllocatorReserveRecyclesFreedIDs(t *testing.T) {
	a := newAllocator()
	e := a.allocate()
	a.free(e)

	r := a.reserve()
	assert.Equal(t, e.ID(), r.ID())
	assert.NotEqual(t, e.Generation(), r.Generation())
}

func TestAllocatorLiveCount(t *testing.T) {
	a := newAllocator()
	e1 := a.allocate()
	_ = a.allocate()
	assert.Equal(t, 2, a.liveCount())

	a.free(e1)
	assert.Equal(t, 1, a.liveCount())
	assert.Equal(t, 1, a.recycledCount())
}

func TestAllocatorClearInvalidatesHandles(t *testing.T) {
	a := newAllocator()
	e := a.allocate()
	a.clear()
	assert.False(t, a.contains(e))
	assert.Equal(t, 0, a.liveCount())
}
