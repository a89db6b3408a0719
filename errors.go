package hecs

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrDeadEntity is returned (optionally wrapped via pkg/errors) whenever an
// operation is given a stale or never-valid Entity handle.
var ErrDeadEntity = errors.New("hecs: entity is not alive")

// ErrMissingComponent is returned when a requested component type is not
// present on the entity's current archetype.
var ErrMissingComponent = errors.New("hecs: component not present")

// deadEntityError wraps ErrDeadEntity with the offending handle for
// diagnostics, while remaining errors.Is-compatible with the sentinel.
func deadEntityError(e Entity) error {
	return errors.Wrapf(ErrDeadEntity, "entity %s", e)
}

// missingComponentError wraps ErrMissingComponent with the offending handle
// and type for diagnostics.
func missingComponentError(e Entity, t TypeInfo) error {
	return errors.Wrapf(ErrMissingComponent, "entity %s missing %s", e, t.typ)
}

// duplicateComponentPanic is raised when a bundle describes the same
// component type twice for an operation that requires uniqueness (spawn).
func duplicateComponentPanic(t TypeInfo) {
	panic(fmt.Sprintf("hecs: bundle contains duplicate component type %s", t.typ))
}
