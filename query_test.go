package hecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type qPos struct{ X int32 }
type qVel struct{ DX int32 }
type qDead struct{}

func TestQueryOptionalYieldsAbsentWhenMissing(t *testing.T) {
	fr := NewFrame()
	withBoth := fr.Spawn(NewTuple2[qPos, qVel](qPos{1}, qVel{2}))
	posOnly := fr.Spawn(NewTuple1[qPos](qPos{3}))

	q := fr.QueryMut(Fetch2[Shared[qPos], Optional[Shared[qVel]]]{})
	results := map[Entity]optionalItem{}
	q.Iter(func(e Entity, item any) bool {
		it := item.(Item2)
		results[e] = it.V2.(optionalItem)
		return true
	})

	assert.True(t, results[withBoth].present)
	assert.False(t, results[posOnly].present)
}

func TestQueryOrYieldsTaggedSide(t *testing.T) {
	fr := NewFrame()
	posOnly := fr.Spawn(NewTuple1[qPos](qPos{1}))
	velOnly := fr.Spawn(NewTuple1[qVel](qVel{2}))

	q := fr.QueryMut(Or[Shared[qPos], Shared[qVel]]{})
	sides := map[Entity]OrSide{}
	q.Iter(func(e Entity, item any) bool {
		sides[e] = item.(orItem).side
		return true
	})

	assert.Equal(t, OrLeft, sides[posOnly])
	assert.Equal(t, OrRight, sides[velOnly])
}

func TestQueryWithExcludesArchetypesWithoutMarker(t *testing.T) {
	fr := NewFrame()
	alive := fr.Spawn(NewTuple1[qPos](qPos{1}))
	dead := fr.Spawn(NewTuple2[qPos, qDead](qPos{2}, qDead{}))

	q := fr.QueryMut(With[Shared[qPos], qDead]{})
	seen := map[Entity]bool{}
	q.Iter(func(e Entity, _ any) bool { seen[e] = true; return true })

	assert.False(t, seen[alive])
	assert.True(t, seen[dead])
}

func TestQueryWithoutExcludesArchetypesWithMarker(t *testing.T) {
	fr := NewFrame()
	alive := fr.Spawn(NewTuple1[qPos](qPos{1}))
	dead := fr.Spawn(NewTuple2[qPos, qDead](qPos{2}, qDead{}))

	q := fr.QueryMut(Without[Shared[qPos], qDead]{})
	seen := map[Entity]bool{}
	q.Iter(func(e Entity, _ any) bool { seen[e] = true; return true })

	assert.True(t, seen[alive])
	assert.False(t, seen[dead])
}

func TestQuerySatisfiesReportsPresence(t *testing.T) {
	fr := NewFrame()
	alive := fr.Spawn(NewTuple1[qPos](qPos{1}))
	dead := fr.Spawn(NewTuple2[qPos, qDead](qPos{2}, qDead{}))

	q := fr.QueryMut(Satisfies[Shared[qDead]]{})
	results := map[Entity]bool{}
	q.Iter(func(e Entity, item any) bool {
		results[e] = item.(bool)
		return true
	})

	assert.False(t, results[alive])
	assert.True(t, results[dead])
}

func TestQueryCountMatchesIterCount(t *testing.T) {
	fr := NewFrame()
	for i := 0; i < 5; i++ {
		fr.Spawn(NewTuple1[qPos](qPos{int32(i)}))
	}
	q := fr.QueryMut(Shared[qPos]{})
	assert.Equal(t, 5, q.Count())

	n := 0
	q.Iter(func(Entity, any) bool { n++; return true })
	assert.Equal(t, 5, n)
}

func TestQueryIterBatchedRespectsBatchSize(t *testing.T) {
	fr := NewFrame()
	for i := 0; i < 10; i++ {
		fr.Spawn(NewTuple1[qPos](qPos{int32(i)}))
	}
	q := fr.QueryMut(Shared[qPos]{})

	batches := 0
	total := 0
	q.IterBatched(3, func(entities []Entity, items []any) bool {
		batches++
		total += len(entities)
		assert.LessOrEqual(t, len(entities), 3)
		assert.Equal(t, len(entities), len(items))
		return true
	})
	assert.Equal(t, 10, total)
	assert.Equal(t, 4, batches)
}

func TestQueryIterStopsEarlyWhenYieldReturnsFalse(t *testing.T) {
	fr := NewFrame()
	for i := 0; i < 5; i++ {
		fr.Spawn(NewTuple1[qPos](qPos{int32(i)}))
	}
	q := fr.QueryMut(Shared[qPos]{})

	n := 0
	q.Iter(func(Entity, any) bool {
		n++
		return n < 2
	})
	assert.Equal(t, 2, n)
}

func TestDynamicQueryReleasesBorrowsOnRelease(t *testing.T) {
	fr := NewFrame()
	fr.Spawn(NewTuple1[qPos](qPos{1}))

	q := fr.Query(Exclusive[qPos]{})
	info := TypeInfoOf[qPos]()
	arch := q.matched[0]
	assert.Equal(t, int32(-1), arch.columns[arch.columnSlot(info.id)].borrow)

	q.Release()
	assert.Equal(t, int32(0), arch.columns[arch.columnSlot(info.id)].borrow)

	// Releasing twice must not panic or double-decrement.
	assert.NotPanics(t, func() { q.Release() })
}

func TestPreparedQuerySeesNewArchetypesAfterCreation(t *testing.T) {
	fr := NewFrame()
	fr.Spawn(NewTuple1[qPos](qPos{1}))

	pq := NewPreparedQuery(fr, Shared[qPos]{})
	assert.Equal(t, 1, pq.Count())

	fr.Spawn(NewTuple2[qPos, qVel](qPos{2}, qVel{3}))
	assert.Equal(t, 2, pq.Count())
}
