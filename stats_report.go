package hecs

import (
	"reflect"

	"github.com/keenawa-co/hecs/stats"
)

// Stats snapshots the Frame's current entity and archetype occupancy, the
// idiomatic observability surface for a storage library that has no
// business calling a logger directly (see DESIGN.md).
func (fr *Frame) Stats() stats.FrameStats {
	typeSet := make(map[TypeID]reflect.Type)
	archetypeStats := make([]stats.ArchetypeStats, 0, len(fr.archetypes))
	for _, a := range fr.archetypes {
		ids := make([]uint32, len(a.types))
		types := make([]reflect.Type, len(a.types))
		for i, t := range a.types {
			ids[i] = uint32(t.id)
			types[i] = t.typ
			typeSet[t.id] = t.typ
		}
		archetypeStats = append(archetypeStats, stats.ArchetypeStats{
			Size:           a.Len(),
			Capacity:       int(a.capacity),
			Components:     len(a.types),
			ComponentIDs:   ids,
			ComponentTypes: types,
		})
	}

	types := make([]reflect.Type, 0, len(typeSet))
	for _, t := range typeSet {
		types = append(types, t)
	}

	return stats.FrameStats{
		Entities: stats.EntityStats{
			Live:     fr.alloc.liveCount(),
			Capacity: len(fr.alloc.slots),
			Recycled: fr.alloc.recycledCount(),
		},
		ComponentCount: len(typeSet),
		ComponentTypes: types,
		Archetypes:     archetypeStats,
	}
}
