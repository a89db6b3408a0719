// Package stats provides read-only observability snapshots for a Frame,
// mirrored after delaneyj-arche/ecs/stats's WorldStats shape.
package stats

import (
	"fmt"
	"reflect"
	"strings"
)

// FrameStats is a point-in-time snapshot of a Frame.
type FrameStats struct {
	Entities       EntityStats
	ComponentCount int
	ComponentTypes []reflect.Type
	Archetypes     []ArchetypeStats
}

// EntityStats describes the entity allocator's occupancy.
type EntityStats struct {
	Live     int
	Capacity int
	Recycled int
}

// ArchetypeStats describes one archetype's occupancy.
type ArchetypeStats struct {
	Size           int
	Capacity       int
	Components     int
	ComponentIDs   []uint32
	ComponentTypes []reflect.Type
}

func (s *FrameStats) String() string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "Frame -- Components: %d, Archetypes: %d\n", s.ComponentCount, len(s.Archetypes))

	typeNames := make([]string, len(s.ComponentTypes))
	for i, tp := range s.ComponentTypes {
		typeNames[i] = tp.Name()
	}
	fmt.Fprintf(&b, "  Components: %s\n", strings.Join(typeNames, ", "))
	fmt.Fprint(&b, s.Entities.String())

	for _, arch := range s.Archetypes {
		fmt.Fprint(&b, arch.String())
	}
	return b.String()
}

func (s *EntityStats) String() string {
	return fmt.Sprintf("Entities -- Live: %d, Recycled: %d, Capacity: %d\n", s.Live, s.Recycled, s.Capacity)
}

func (s *ArchetypeStats) String() string {
	typeNames := make([]string, len(s.ComponentTypes))
	for i, tp := range s.ComponentTypes {
		typeNames[i] = tp.Name()
	}
	return fmt.Sprintf(
		"Archetype -- Components: %d, Entities: %d, Capacity: %d\n  Components: %s\n",
		s.Components, s.Size, s.Capacity, strings.Join(typeNames, ", "),
	)
}
