package hecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type ebName string
type ebHP int32
type ebTag struct{}

func TestEntityBuilderSpawnsAccumulatedComponents(t *testing.T) {
	fr := NewFrame()
	b := NewEntityBuilder(fr)
	EntityBuilderAdd(b, ebName("grog"))
	EntityBuilderAdd(b, ebHP(10))

	e := b.Spawn()

	name, err := Get[ebName](fr, e)
	assert.NoError(t, err)
	assert.Equal(t, ebName("grog"), *name.Get())
	name.Release()

	hp, err := Get[ebHP](fr, e)
	assert.NoError(t, err)
	assert.Equal(t, ebHP(10), *hp.Get())
	hp.Release()
}

func TestEntityBuilderPanicsOnSecondSpawn(t *testing.T) {
	fr := NewFrame()
	b := NewEntityBuilder(fr)
	EntityBuilderAdd(b, ebHP(1))
	b.Spawn()

	assert.Panics(t, func() { b.Spawn() })
}

func TestEntityBuilderCloneSpawnsIndependentEntities(t *testing.T) {
	fr := NewFrame()
	b := NewEntityBuilderClone(fr)
	EntityBuilderCloneAdd(b, ebHP(5))

	e1 := b.Spawn()
	e2 := b.Spawn()
	assert.NotEqual(t, e1, e2)

	hp1, err := Get[ebHP](fr, e1)
	assert.NoError(t, err)
	assert.Equal(t, ebHP(5), *hp1.Get())
	hp1.Release()

	// Mutating e1's copy must not affect e2's independently-cloned copy.
	hp1mut, err := GetMut[ebHP](fr, e1)
	assert.NoError(t, err)
	*hp1mut.Get() = 99
	hp1mut.Release()

	hp2, err := Get[ebHP](fr, e2)
	assert.NoError(t, err)
	assert.Equal(t, ebHP(5), *hp2.Get())
	hp2.Release()
}

func TestColumnBatchSpawnsOneEntityPerRow(t *testing.T) {
	fr := NewFrame()
	b := NewColumnBatch(fr)
	ColumnBatchAdd(b, []ebHP{1, 2, 3})
	ColumnBatchAdd(b, []ebName{"a", "b", "c"})

	entities := b.Spawn()
	assert.Len(t, entities, 3)

	for i, e := range entities {
		hp, err := Get[ebHP](fr, e)
		assert.NoError(t, err)
		assert.Equal(t, ebHP(i+1), *hp.Get())
		hp.Release()
	}
}

func TestColumnBatchPanicsOnMismatchedColumnLength(t *testing.T) {
	b := NewColumnBatch(NewFrame())
	ColumnBatchAdd(b, []ebHP{1, 2, 3})
	assert.Panics(t, func() {
		ColumnBatchAdd(b, []ebName{"a", "b"})
	})
}

func TestColumnBatchEmptyBatchSpawnsNothing(t *testing.T) {
	b := NewColumnBatch(NewFrame())
	assert.Nil(t, b.Spawn())
}

func TestColumnBatchRejectsDuplicateComponentType(t *testing.T) {
	b := NewColumnBatch(NewFrame())
	ColumnBatchAdd(b, []ebHP{1, 2})
	ColumnBatchAdd(b, []ebHP{3, 4})
	assert.Panics(t, func() { b.Spawn() })
}
