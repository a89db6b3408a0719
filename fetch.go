package hecs

import (
	"unsafe"

	"github.com/kelindar/bitmap"
)

// accessID is one (component type, access kind) pair a fetch pattern
// touches, the unit the unique-borrow-violation check at query construction
// operates on (spec §4.4).
type accessID struct {
	id        TypeID
	exclusive bool
}

// fetch is the internal, type-erased half of the Fetch protocol: it knows
// how to test archetype membership, enumerate the (type, access) pairs it
// needs, and produce a per-archetype "prepared" state it can read a row's
// item out of in O(1). The generic wrapper types below (Shared[T], Fetch2,
// ...) give this a typed surface; fetch itself stays untyped so Or/Optional/
// With/Without/tuples can compose arbitrary fetches without Go needing
// higher-kinded generics.
type fetch interface {
	accessIDs() []accessID
	matches(a *Archetype) bool
	prepare(a *Archetype) any
	item(state any, row uint32) any
}

// --- Shared / Exclusive ---

// Shared fetches a shared reference to T: matches any archetype containing
// T, yields *T per row.
type Shared[T any] struct{}

func (Shared[T]) accessIDs() []accessID {
	return []accessID{{id: TypeInfoOf[T]().id, exclusive: false}}
}
func (Shared[T]) matches(a *Archetype) bool { return a.Has(TypeInfoOf[T]().id) }
func (Shared[T]) prepare(a *Archetype) any  { return GetColumn[T](a) }
func (Shared[T]) item(state any, row uint32) any {
	base, _ := state.(*T)
	if base == nil {
		return (*T)(nil)
	}
	return (*T)(unsafe.Add(unsafe.Pointer(base), uintptr(row)*unsafe.Sizeof(*base)))
}

// Exclusive fetches an exclusive reference to T: same matching rule as
// Shared, but contributes an exclusive access pair for borrow-checking.
type Exclusive[T any] struct{}

func (Exclusive[T]) accessIDs() []accessID {
	return []accessID{{id: TypeInfoOf[T]().id, exclusive: true}}
}
func (Exclusive[T]) matches(a *Archetype) bool { return a.Has(TypeInfoOf[T]().id) }
func (Exclusive[T]) prepare(a *Archetype) any  { return GetColumn[T](a) }
func (Exclusive[T]) item(state any, row uint32) any {
	base, _ := state.(*T)
	if base == nil {
		return (*T)(nil)
	}
	return (*T)(unsafe.Add(unsafe.Pointer(base), uintptr(row)*unsafe.Sizeof(*base)))
}

// --- Optional ---

// optionalItem wraps F's item; when the archetype doesn't actually contain
// F's type, present is false and value is a nil interface.
type optionalItem struct {
	present bool
	value   any
}

// Optional always matches; it yields F's item when present, else an absent
// marker.
type Optional[F fetch] struct{ Of F }

func (o Optional[F]) accessIDs() []accessID { return o.Of.accessIDs() }
func (Optional[F]) matches(a *Archetype) bool { return true }
func (o Optional[F]) prepare(a *Archetype) any {
	if !o.Of.matches(a) {
		return optionalItem{present: false}
	}
	return optionalItem{present: true, value: o.Of.prepare(a)}
}
func (o Optional[F]) item(state any, row uint32) any {
	s := state.(optionalItem)
	if !s.present {
		return optionalItem{present: false}
	}
	return optionalItem{present: true, value: o.Of.item(s.value, row)}
}

// --- Or ---

// OrSide tags which side of an Or matched (or both).
type OrSide uint8

const (
	OrNeither OrSide = iota
	OrLeft
	OrRight
	OrBoth
)

// orItem carries whichever side(s) matched for one row.
type orItem struct {
	side  OrSide
	left  any
	right any
}

// Or matches any archetype L or R matches (or both); yields a tagged union.
type Or[L, R fetch] struct {
	Left  L
	Right R
}

func (o Or[L, R]) accessIDs() []accessID {
	return append(append([]accessID{}, o.Left.accessIDs()...), o.Right.accessIDs()...)
}
func (o Or[L, R]) matches(a *Archetype) bool { return o.Left.matches(a) || o.Right.matches(a) }
func (o Or[L, R]) prepare(a *Archetype) any {
	var s orItem
	lm, rm := o.Left.matches(a), o.Right.matches(a)
	switch {
	case lm && rm:
		s.side = OrBoth
	case lm:
		s.side = OrLeft
	case rm:
		s.side = OrRight
	}
	if lm {
		s.left = o.Left.prepare(a)
	}
	if rm {
		s.right = o.Right.prepare(a)
	}
	return s
}
func (o Or[L, R]) item(state any, row uint32) any {
	s := state.(orItem)
	out := orItem{side: s.side}
	if s.side == OrLeft || s.side == OrBoth {
		out.left = o.Left.item(s.left, row)
	}
	if s.side == OrRight || s.side == OrBoth {
		out.right = o.Right.item(s.right, row)
	}
	return out
}

// --- With / Without ---

// With matches archetypes F matches that also contain Marker; Marker's
// value is not read.
type With[F fetch, Marker any] struct{ Of F }

func (w With[F, Marker]) accessIDs() []accessID { return w.Of.accessIDs() }
func (w With[F, Marker]) matches(a *Archetype) bool {
	return w.Of.matches(a) && a.Has(TypeInfoOf[Marker]().id)
}
func (w With[F, Marker]) prepare(a *Archetype) any        { return w.Of.prepare(a) }
func (w With[F, Marker]) item(state any, row uint32) any { return w.Of.item(state, row) }

// Without matches archetypes F matches that do NOT contain Marker.
type Without[F fetch, Marker any] struct{ Of F }

func (w Without[F, Marker]) accessIDs() []accessID { return w.Of.accessIDs() }
func (w Without[F, Marker]) matches(a *Archetype) bool {
	return w.Of.matches(a) && !a.Has(TypeInfoOf[Marker]().id)
}
func (w Without[F, Marker]) prepare(a *Archetype) any        { return w.Of.prepare(a) }
func (w Without[F, Marker]) item(state any, row uint32) any { return w.Of.item(state, row) }

// --- Satisfies ---

// Satisfies always matches; its item is a bool reporting whether F would
// have matched the archetype.
type Satisfies[F fetch] struct{ Of F }

func (Satisfies[F]) accessIDs() []accessID     { return nil }
func (Satisfies[F]) matches(a *Archetype) bool { return true }
func (s Satisfies[F]) prepare(a *Archetype) any { return s.Of.matches(a) }
func (Satisfies[F]) item(state any, row uint32) any { return state.(bool) }

// --- Unit ---

// UnitFetch is `()`: always matches, yields nothing — used for counting and
// bare entity iteration.
type UnitFetch struct{}

func (UnitFetch) accessIDs() []accessID      { return nil }
func (UnitFetch) matches(a *Archetype) bool  { return true }
func (UnitFetch) prepare(a *Archetype) any   { return nil }
func (UnitFetch) item(state any, row uint32) any { return nil }

// --- tuples, arity 2..4 ---

type Fetch2[F1, F2 fetch] struct {
	F1 F1
	F2 F2
}

func (t Fetch2[F1, F2]) accessIDs() []accessID {
	return append(append([]accessID{}, t.F1.accessIDs()...), t.F2.accessIDs()...)
}
func (t Fetch2[F1, F2]) matches(a *Archetype) bool {
	return t.F1.matches(a) && t.F2.matches(a)
}

type fetch2State struct{ s1, s2 any }

func (t Fetch2[F1, F2]) prepare(a *Archetype) any {
	return fetch2State{t.F1.prepare(a), t.F2.prepare(a)}
}

type Item2 struct {
	V1, V2 any
}

func (t Fetch2[F1, F2]) item(state any, row uint32) any {
	s := state.(fetch2State)
	return Item2{t.F1.item(s.s1, row), t.F2.item(s.s2, row)}
}

type Fetch3[F1, F2, F3 fetch] struct {
	F1 F1
	F2 F2
	F3 F3
}

func (t Fetch3[F1, F2, F3]) accessIDs() []accessID {
	out := append([]accessID{}, t.F1.accessIDs()...)
	out = append(out, t.F2.accessIDs()...)
	return append(out, t.F3.accessIDs()...)
}
func (t Fetch3[F1, F2, F3]) matches(a *Archetype) bool {
	return t.F1.matches(a) && t.F2.matches(a) && t.F3.matches(a)
}

type fetch3State struct{ s1, s2, s3 any }

func (t Fetch3[F1, F2, F3]) prepare(a *Archetype) any {
	return fetch3State{t.F1.prepare(a), t.F2.prepare(a), t.F3.prepare(a)}
}

type Item3 struct {
	V1, V2, V3 any
}

func (t Fetch3[F1, F2, F3]) item(state any, row uint32) any {
	s := state.(fetch3State)
	return Item3{t.F1.item(s.s1, row), t.F2.item(s.s2, row), t.F3.item(s.s3, row)}
}

type Fetch4[F1, F2, F3, F4 fetch] struct {
	F1 F1
	F2 F2
	F3 F3
	F4 F4
}

func (t Fetch4[F1, F2, F3, F4]) accessIDs() []accessID {
	out := append([]accessID{}, t.F1.accessIDs()...)
	out = append(out, t.F2.accessIDs()...)
	out = append(out, t.F3.accessIDs()...)
	return append(out, t.F4.accessIDs()...)
}
func (t Fetch4[F1, F2, F3, F4]) matches(a *Archetype) bool {
	return t.F1.matches(a) && t.F2.matches(a) && t.F3.matches(a) && t.F4.matches(a)
}

type fetch4State struct{ s1, s2, s3, s4 any }

func (t Fetch4[F1, F2, F3, F4]) prepare(a *Archetype) any {
	return fetch4State{t.F1.prepare(a), t.F2.prepare(a), t.F3.prepare(a), t.F4.prepare(a)}
}

type Item4 struct {
	V1, V2, V3, V4 any
}

func (t Fetch4[F1, F2, F3, F4]) item(state any, row uint32) any {
	s := state.(fetch4State)
	return Item4{t.F1.item(s.s1, row), t.F2.item(s.s2, row), t.F3.item(s.s3, row), t.F4.item(s.s4, row)}
}

// checkUniqueBorrows panics with "query violates a unique borrow" if any
// TypeID in pairs appears as Exclusive together with any other access to
// the same TypeID, or twice as Exclusive. It is called once at every query
// construction (query, query_mut, view, view_mut), per spec §4.4.
func checkUniqueBorrows(pairs []accessID) {
	var seenAny, seenExclusive bitmap.Bitmap
	violated := false
	for _, p := range pairs {
		x := uint32(p.id)
		if p.exclusive {
			if seenAny.Contains(x) {
				violated = true
			}
			seenExclusive.Set(x)
		} else if seenExclusive.Contains(x) {
			violated = true
		}
		seenAny.Set(x)
	}
	if violated {
		panic("hecs: query violates a unique borrow")
	}
}
