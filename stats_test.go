package hecs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statsHP int32
type statsName string

func TestFrameStatsReflectsLiveAndArchetypeOccupancy(t *testing.T) {
	fr := NewFrame()
	fr.Spawn(NewTuple1[statsHP](1))
	fr.Spawn(NewTuple1[statsHP](2))
	fr.Spawn(NewTuple2[statsHP, statsName](3, "x"))

	s := fr.Stats()

	assert.Equal(t, 3, s.Entities.Live)
	assert.Equal(t, 2, s.ComponentCount)
	// The pre-existing empty archetype plus (HP) plus (HP,Name).
	assert.GreaterOrEqual(t, len(s.Archetypes), 3)

	var sawPair bool
	for _, a := range s.Archetypes {
		if a.Components == 2 {
			sawPair = true
			assert.Equal(t, 1, a.Size)
		}
	}
	assert.True(t, sawPair)
}

func TestFrameStatsRecycledCountsDeadSlots(t *testing.T) {
	fr := NewFrame()
	e := fr.Spawn(NewTuple1[statsHP](1))
	fr.Despawn(e)

	s := fr.Stats()
	assert.Equal(t, 0, s.Entities.Live)
	assert.Equal(t, 1, s.Entities.Recycled)
}

func TestFrameStatsStringIncludesComponentAndArchetypeNames(t *testing.T) {
	fr := NewFrame()
	fr.Spawn(NewTuple1[statsHP](7))

	out := fr.Stats().String()
	assert.True(t, strings.Contains(out, "statsHP"))
	assert.True(t, strings.Contains(out, "Entities --"))
	assert.True(t, strings.Contains(out, "Archetype --"))
}
