package hecs

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

type fName string
type fAge int32
type fFlag bool

// Scenario 1 (spec §8): basic spawn/query.
func TestFrameBasicSpawnAndQuery(t *testing.T) {
	fr := NewFrame()
	e := fr.Spawn(NewTuple2[fName, fAge]("abc", 123))
	f := fr.Spawn(NewTuple2[fName, fAge]("def", 456))

	q := fr.Query(Fetch2[Shared[fAge], Shared[fName]]{})
	defer q.Release()

	seen := map[Entity][2]any{}
	q.Iter(func(ent Entity, item any) bool {
		it := item.(Item2)
		seen[ent] = [2]any{it.V1, it.V2}
		return true
	})

	assert.Len(t, seen, 2)
	ePair := seen[e]
	assert.Equal(t, fAge(123), *(ePair[0].(*fAge)))
	assert.Equal(t, fName("abc"), *(ePair[1].(*fName)))
	fPair := seen[f]
	assert.Equal(t, fAge(456), *(fPair[0].(*fAge)))
	assert.Equal(t, fName("def"), *(fPair[1].(*fName)))
}

// Scenario 2 (spec §8): migration via Insert.
func TestFrameMigrationOnInsert(t *testing.T) {
	fr := NewFrame()
	e := fr.Spawn(NewTuple2[fName, fAge]("abc", 123))

	err := fr.Insert(e, NewTuple2[fFlag, fName](true, "xyz"))
	assert.NoError(t, err)

	name, err := Get[fName](fr, e)
	assert.NoError(t, err)
	assert.Equal(t, fName("xyz"), *name.Get())
	name.Release()

	flag, err := Get[fFlag](fr, e)
	assert.NoError(t, err)
	assert.Equal(t, fFlag(true), *flag.Get())
	flag.Release()

	age, err := Get[fAge](fr, e)
	assert.NoError(t, err)
	assert.Equal(t, fAge(123), *age.Get())
	age.Release()

	loc := mustLocation(t, fr, e)
	assert.Equal(t, 3, len(loc.archetype.types))
}

// Scenario 3 (spec §8): reserve then flush.
func TestFrameReserveThenFlush(t *testing.T) {
	fr := NewFrame()
	a := fr.ReserveEntity()
	b := fr.ReserveEntity()

	q := fr.QueryMut(UnitFetch{})
	assert.Equal(t, 0, q.Count())

	fr.Flush()

	q2 := fr.QueryMut(UnitFetch{})
	assert.Equal(t, 2, q2.Count())

	seen := map[Entity]bool{}
	q2.Iter(func(e Entity, _ any) bool {
		seen[e] = true
		return true
	})
	assert.True(t, seen[a])
	assert.True(t, seen[b])
}

// Scenario 4 (spec §8): generational safety.
func TestFrameGenerationalSafety(t *testing.T) {
	fr := NewFrame()
	a := fr.Spawn(NewTuple1[fAge](1))
	assert.NoError(t, fr.Despawn(a))

	b := fr.Spawn(NewTuple1[fAge](2))
	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.Generation(), b.Generation())

	_, err := Get[fAge](fr, a)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeadEntity))

	got, err := Get[fAge](fr, b)
	assert.NoError(t, err)
	assert.Equal(t, fAge(2), *got.Get())
	got.Release()
}

// Scenario 5 (spec §8): borrow violation.
func TestFrameBorrowViolationPanics(t *testing.T) {
	fr := NewFrame()
	fr.Spawn(NewTuple1[fAge](1))
	fr.Spawn(NewTuple1[fAge](2))

	assert.PanicsWithValue(t, "hecs: query violates a unique borrow", func() {
		fr.QueryMut(Fetch2[Exclusive[fAge], Shared[fAge]]{})
	})
}

func TestFrameRemoveAndExchange(t *testing.T) {
	fr := NewFrame()
	e := fr.Spawn(NewTuple2[fName, fAge]("abc", 123))

	removed, err := fr.RemoveDynamic(e, []TypeID{TypeInfoOf[fAge]().id})
	assert.NoError(t, err)
	assert.Len(t, removed, 1)
	assert.Equal(t, fAge(123), *(*fAge)(removed[0].Ptr))

	_, err = Get[fAge](fr, e)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingComponent))

	name, err := Get[fName](fr, e)
	assert.NoError(t, err)
	assert.Equal(t, fName("abc"), *name.Get())
	name.Release()

	flagVal := fFlag(true)
	out, err := fr.ExchangeDynamic(e, []TypeID{TypeInfoOf[fName]().id}, &dynBundle{
		parts: []DynamicComponent{{Info: TypeInfoOf[fFlag](), Ptr: unsafe.Pointer(&flagVal)}},
	})
	assert.NoError(t, err)
	assert.Len(t, out, 1)

	flag, err := Get[fFlag](fr, e)
	assert.NoError(t, err)
	assert.Equal(t, fFlag(true), *flag.Get())
	flag.Release()

	_, err = Get[fName](fr, e)
	assert.Error(t, err)
}

func TestFrameTakeRoundTrip(t *testing.T) {
	fr := NewFrame()
	e := fr.Spawn(NewTuple2[fName, fAge]("abc", 123))

	taken, err := fr.Take(e)
	assert.NoError(t, err)
	assert.False(t, fr.Contains(e))

	e2 := fr.SpawnDynamic(taken)
	name, err := Get[fName](fr, e2)
	assert.NoError(t, err)
	assert.Equal(t, fName("abc"), *name.Get())
	name.Release()
}

func TestFrameClear(t *testing.T) {
	fr := NewFrame()
	e := fr.Spawn(NewTuple1[fAge](1))
	assert.Equal(t, 1, fr.Len())

	fr.Clear()
	assert.Equal(t, 0, fr.Len())
	assert.False(t, fr.Contains(e))
}

// Testable property (spec §8): an insert/remove round trip back to a
// previously-visited signature revisits the same archetype object.
func TestFrameEdgeCacheRevisitsSameArchetype(t *testing.T) {
	fr := NewFrame()
	e1 := fr.Spawn(NewTuple2[fName, fAge]("a", 1))
	loc1 := mustLocation(t, fr, e1)

	assert.NoError(t, fr.Insert(e1, NewTuple1[fFlag](true)))
	_, err := fr.RemoveDynamic(e1, []TypeID{TypeInfoOf[fFlag]().id})
	assert.NoError(t, err)

	loc1After := mustLocation(t, fr, e1)
	assert.Same(t, loc1.archetype, loc1After.archetype)
}
