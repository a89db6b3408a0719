package hecs

import "unsafe"

// Bundle lets a heterogeneous Go value enumerate its component types in
// canonical order and transfer ownership of each one's bytes into (or out
// of) archetype storage. It is the single extension point described in
// spec.md §6; tuple implementations up to arity 6 are provided below,
// matching the teacher's generated-family texture for multi-arg helpers.
type Bundle interface {
	// WithStaticIDs invokes f with the bundle's TypeIDs in canonical order.
	WithStaticIDs(f func([]TypeID))
	// WithStaticTypeInfo invokes f with the bundle's TypeInfos in canonical
	// order.
	WithStaticTypeInfo(f func([]TypeInfo))
	// Put consumes the bundle, calling put(id, ptr) once per component so
	// the caller can copy ptr's bytes into the destination column. Put must
	// not be called more than once.
	Put(put func(id TypeID, ptr unsafe.Pointer))
}

// DynamicBundle is the weaker variant permitting non-static component sets,
// used by EntityBuilder, CommandBuffer, and Frame.Take.
type DynamicBundle interface {
	// WithIDs invokes f with the bundle's TypeIDs, in whatever order the
	// dynamic bundle happens to hold them (not necessarily canonical).
	WithIDs(f func([]TypeID))
	Put(put func(id TypeID, ptr unsafe.Pointer))
}

// checkNoDuplicates panics with a named-type diagnostic if ids contains the
// same TypeID twice, per spec §4.3's duplicate-component-type fatal error.
func checkNoDuplicates(ids []TypeID, infos []TypeInfo) {
	seen := make(map[TypeID]struct{}, len(ids))
	for i, id := range ids {
		if _, dup := seen[id]; dup {
			if infos != nil {
				duplicateComponentPanic(infos[i])
			}
			panic("hecs: bundle contains duplicate component type")
		}
		seen[id] = struct{}{}
	}
}

// unitBundle is the `()` bundle: matches every archetype, contributes no
// columns.
type unitBundle struct{}

// Unit is the canonical empty Bundle, equivalent to spec.md's `()`.
var Unit Bundle = unitBundle{}

func (unitBundle) WithStaticIDs(f func([]TypeID))          { f(nil) }
func (unitBundle) WithStaticTypeInfo(f func([]TypeInfo))    { f(nil) }
func (unitBundle) Put(put func(TypeID, unsafe.Pointer))     {}

// --- tuple bundles, arity 1..6 ---

// Tuple1 is a one-component Bundle.
type Tuple1[A any] struct{ A A }

func NewTuple1[A any](a A) *Tuple1[A] { return &Tuple1[A]{A: a} }

func (t *Tuple1[A]) infos() []TypeInfo {
	infos := []TypeInfo{TypeInfoOf[A]()}
	sortTypeInfos(infos)
	return infos
}

func (t *Tuple1[A]) WithStaticIDs(f func([]TypeID)) {
	infos := t.infos()
	ids := make([]TypeID, len(infos))
	for i, in := range infos {
		ids[i] = in.id
	}
	f(ids)
}

func (t *Tuple1[A]) WithStaticTypeInfo(f func([]TypeInfo)) { f(t.infos()) }

func (t *Tuple1[A]) Put(put func(TypeID, unsafe.Pointer)) {
	put(TypeInfoOf[A]().id, unsafe.Pointer(&t.A))
}

// Tuple2 is a two-component Bundle.
type Tuple2[A, B any] struct {
	A A
	B B
}

func NewTuple2[A, B any](a A, b B) *Tuple2[A, B] { return &Tuple2[A, B]{A: a, B: b} }

func (t *Tuple2[A, B]) infos() []TypeInfo {
	infos := []TypeInfo{TypeInfoOf[A](), TypeInfoOf[B]()}
	checkNoDuplicates(idsOf(infos), infos)
	sortTypeInfos(infos)
	return infos
}

func (t *Tuple2[A, B]) WithStaticIDs(f func([]TypeID))       { f(idsOf(t.infos())) }
func (t *Tuple2[A, B]) WithStaticTypeInfo(f func([]TypeInfo)) { f(t.infos()) }

func (t *Tuple2[A, B]) Put(put func(TypeID, unsafe.Pointer)) {
	put(TypeInfoOf[A]().id, unsafe.Pointer(&t.A))
	put(TypeInfoOf[B]().id, unsafe.Pointer(&t.B))
}

// Tuple3 is a three-component Bundle.
type Tuple3[A, B, C any] struct {
	A A
	B B
	C C
}

func NewTuple3[A, B, C any](a A, b B, c C) *Tuple3[A, B, C] {
	return &Tuple3[A, B, C]{A: a, B: b, C: c}
}

func (t *Tuple3[A, B, C]) infos() []TypeInfo {
	infos := []TypeInfo{TypeInfoOf[A](), TypeInfoOf[B](), TypeInfoOf[C]()}
	checkNoDuplicates(idsOf(infos), infos)
	sortTypeInfos(infos)
	return infos
}

func (t *Tuple3[A, B, C]) WithStaticIDs(f func([]TypeID))       { f(idsOf(t.infos())) }
func (t *Tuple3[A, B, C]) WithStaticTypeInfo(f func([]TypeInfo)) { f(t.infos()) }

func (t *Tuple3[A, B, C]) Put(put func(TypeID, unsafe.Pointer)) {
	put(TypeInfoOf[A]().id, unsafe.Pointer(&t.A))
	put(TypeInfoOf[B]().id, unsafe.Pointer(&t.B))
	put(TypeInfoOf[C]().id, unsafe.Pointer(&t.C))
}

// Tuple4 is a four-component Bundle.
type Tuple4[A, B, C, D any] struct {
	A A
	B B
	C C
	D D
}

func NewTuple4[A, B, C, D any](a A, b B, c C, d D) *Tuple4[A, B, C, D] {
	return &Tuple4[A, B, C, D]{A: a, B: b, C: c, D: d}
}

func (t *Tuple4[A, B, C, D]) infos() []TypeInfo {
	infos := []TypeInfo{TypeInfoOf[A](), TypeInfoOf[B](), TypeInfoOf[C](), TypeInfoOf[D]()}
	checkNoDuplicates(idsOf(infos), infos)
	sortTypeInfos(infos)
	return infos
}

func (t *Tuple4[A, B, C, D]) WithStaticIDs(f func([]TypeID))       { f(idsOf(t.infos())) }
func (t *Tuple4[A, B, C, D]) WithStaticTypeInfo(f func([]TypeInfo)) { f(t.infos()) }

func (t *Tuple4[A, B, C, D]) Put(put func(TypeID, unsafe.Pointer)) {
	put(TypeInfoOf[A]().id, unsafe.Pointer(&t.A))
	put(TypeInfoOf[B]().id, unsafe.Pointer(&t.B))
	put(TypeInfoOf[C]().id, unsafe.Pointer(&t.C))
	put(TypeInfoOf[D]().id, unsafe.Pointer(&t.D))
}

// Tuple5 is a five-component Bundle.
type Tuple5[A, B, C, D, E any] struct {
	A A
	B B
	C C
	D D
	E E
}

func NewTuple5[A, B, C, D, E any](a A, b B, c C, d D, e E) *Tuple5[A, B, C, D, E] {
	return &Tuple5[A, B, C, D, E]{A: a, B: b, C: c, D: d, E: e}
}

func (t *Tuple5[A, B, C, D, E]) infos() []TypeInfo {
	infos := []TypeInfo{TypeInfoOf[A](), TypeInfoOf[B](), TypeInfoOf[C](), TypeInfoOf[D](), TypeInfoOf[E]()}
	checkNoDuplicates(idsOf(infos), infos)
	sortTypeInfos(infos)
	return infos
}

func (t *Tuple5[A, B, C, D, E]) WithStaticIDs(f func([]TypeID))       { f(idsOf(t.infos())) }
func (t *Tuple5[A, B, C, D, E]) WithStaticTypeInfo(f func([]TypeInfo)) { f(t.infos()) }

func (t *Tuple5[A, B, C, D, E]) Put(put func(TypeID, unsafe.Pointer)) {
	put(TypeInfoOf[A]().id, unsafe.Pointer(&t.A))
	put(TypeInfoOf[B]().id, unsafe.Pointer(&t.B))
	put(TypeInfoOf[C]().id, unsafe.Pointer(&t.C))
	put(TypeInfoOf[D]().id, unsafe.Pointer(&t.D))
	put(TypeInfoOf[E]().id, unsafe.Pointer(&t.E))
}

// Tuple6 is a six-component Bundle, the largest arity the teacher's
// generated families go to.
type Tuple6[A, B, C, D, E, F any] struct {
	A A
	B B
	C C
	D D
	E E
	F F
}

func NewTuple6[A, B, C, D, E, F any](a A, b B, c C, d D, e E, f F) *Tuple6[A, B, C, D, E, F] {
	return &Tuple6[A, B, C, D, E, F]{A: a, B: b, C: c, D: d, E: e, F: f}
}

func (t *Tuple6[A, B, C, D, E, F]) infos() []TypeInfo {
	infos := []TypeInfo{
		TypeInfoOf[A](), TypeInfoOf[B](), TypeInfoOf[C](),
		TypeInfoOf[D](), TypeInfoOf[E](), TypeInfoOf[F](),
	}
	checkNoDuplicates(idsOf(infos), infos)
	sortTypeInfos(infos)
	return infos
}

func (t *Tuple6[A, B, C, D, E, F]) WithStaticIDs(f func([]TypeID))       { f(idsOf(t.infos())) }
func (t *Tuple6[A, B, C, D, E, F]) WithStaticTypeInfo(f func([]TypeInfo)) { f(t.infos()) }

func (t *Tuple6[A, B, C, D, E, F]) Put(put func(TypeID, unsafe.Pointer)) {
	put(TypeInfoOf[A]().id, unsafe.Pointer(&t.A))
	put(TypeInfoOf[B]().id, unsafe.Pointer(&t.B))
	put(TypeInfoOf[C]().id, unsafe.Pointer(&t.C))
	put(TypeInfoOf[D]().id, unsafe.Pointer(&t.D))
	put(TypeInfoOf[E]().id, unsafe.Pointer(&t.E))
	put(TypeInfoOf[F]().id, unsafe.Pointer(&t.F))
}

func idsOf(infos []TypeInfo) []TypeID {
	ids := make([]TypeID, len(infos))
	for i, in := range infos {
		ids[i] = in.id
	}
	return ids
}

// DynamicComponent pairs a TypeInfo with a pointer to its bytes — the unit
// of transfer for dynamic bundles (CommandBuffer, EntityBuilder, Take)
// that don't know their full component set at compile time.
type DynamicComponent struct {
	Info TypeInfo
	Ptr  unsafe.Pointer
}

// dynBundle is a DynamicBundle built from a slice of already-boxed
// components, used internally by EntityBuilder/CommandBuffer/Take.
type dynBundle struct {
	parts []DynamicComponent
}

func (d *dynBundle) WithIDs(f func([]TypeID)) {
	ids := make([]TypeID, len(d.parts))
	for i, p := range d.parts {
		ids[i] = p.Info.id
	}
	f(ids)
}

func (d *dynBundle) Put(put func(TypeID, unsafe.Pointer)) {
	for _, p := range d.parts {
		put(p.Info.id, p.Ptr)
	}
}
