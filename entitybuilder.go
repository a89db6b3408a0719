package hecs

import "unsafe"

// EntityBuilder accumulates components fluently, then spawns exactly once
// ("draining" — matching the teacher's Builder[T] single-shot NewEntity).
// Calling Spawn a second time panics.
type EntityBuilder struct {
	fr    *Frame
	parts []DynamicComponent
	spent bool
}

// NewEntityBuilder returns an EntityBuilder that will spawn on fr.
func NewEntityBuilder(fr *Frame) *EntityBuilder { return &EntityBuilder{fr: fr} }

// EntityBuilderAdd accumulates one component of type T onto b, returning b
// for chaining.
func EntityBuilderAdd[T any](b *EntityBuilder, value T) *EntityBuilder {
	if b.spent {
		panic("hecs: entity builder already spawned")
	}
	boxed := new(T)
	*boxed = value
	b.parts = append(b.parts, DynamicComponent{Info: TypeInfoOf[T](), Ptr: unsafe.Pointer(boxed)})
	return b
}

// Spawn consumes the builder's accumulated components into a new entity.
func (b *EntityBuilder) Spawn() Entity {
	if b.spent {
		panic("hecs: entity builder already spawned")
	}
	b.spent = true
	e := b.fr.SpawnDynamic(&dynBundle{parts: b.parts})
	b.parts = nil
	return e
}

// EntityBuilderClone is EntityBuilder's non-draining twin: each Spawn call
// clones the accumulated component bytes, so the same builder can mint any
// number of (initially identical) entities.
type EntityBuilderClone struct {
	fr    *Frame
	parts []DynamicComponent
}

// NewEntityBuilderClone returns an EntityBuilderClone that will spawn on fr.
func NewEntityBuilderClone(fr *Frame) *EntityBuilderClone {
	return &EntityBuilderClone{fr: fr}
}

// EntityBuilderCloneAdd accumulates one component of type T, returning b
// for chaining.
func EntityBuilderCloneAdd[T any](b *EntityBuilderClone, value T) *EntityBuilderClone {
	boxed := new(T)
	*boxed = value
	b.parts = append(b.parts, DynamicComponent{Info: TypeInfoOf[T](), Ptr: unsafe.Pointer(boxed)})
	return b
}

// Spawn clones the builder's accumulated components into a fresh entity,
// leaving the builder unchanged so it can be spawned again.
func (b *EntityBuilderClone) Spawn() Entity {
	cloned := make([]DynamicComponent, len(b.parts))
	for i, p := range b.parts {
		buf := make([]byte, p.Info.size)
		if p.Info.size > 0 {
			copyBytes(unsafe.Pointer(unsafe.SliceData(buf)), p.Ptr, p.Info.size)
		}
		cloned[i] = DynamicComponent{Info: p.Info, Ptr: unsafe.Pointer(unsafe.SliceData(buf))}
	}
	return b.fr.SpawnDynamic(&dynBundle{parts: cloned})
}

// dynColumn is one column-batch input: a Go slice's backing array reinterpreted
// as a raw component column.
type dynColumn struct {
	info TypeInfo
	data unsafe.Pointer
	size uintptr
}

// ColumnBatch spawns many entities sharing one archetype directly from
// column-oriented Go slices, avoiding the row-at-a-time Bundle.Put overhead
// SpawnBatch pays per entity — the batch/bulk-spawn helper named in spec
// §4.7, grounded in the teacher's Batch[T1].CreateEntities.
type ColumnBatch struct {
	fr      *Frame
	count   int
	columns []dynColumn
}

// NewColumnBatch returns an empty ColumnBatch that will spawn on fr.
func NewColumnBatch(fr *Frame) *ColumnBatch { return &ColumnBatch{fr: fr, count: -1} }

// ColumnBatchAdd adds a column of T values. Every column added to the same
// batch must have the same length; the first call fixes the batch's entity
// count.
func ColumnBatchAdd[T any](b *ColumnBatch, values []T) *ColumnBatch {
	if b.count == -1 {
		b.count = len(values)
	} else if len(values) != b.count {
		panic("hecs: column batch component slices must all have the same length")
	}
	info := TypeInfoOf[T]()
	var base unsafe.Pointer
	if len(values) > 0 {
		base = unsafe.Pointer(&values[0])
	}
	b.columns = append(b.columns, dynColumn{info: info, data: base, size: info.size})
	return b
}

// Spawn creates one entity per row across every added column, in a single
// pre-grown archetype.
func (b *ColumnBatch) Spawn() []Entity {
	if b.count <= 0 || len(b.columns) == 0 {
		return nil
	}
	infos := make([]TypeInfo, len(b.columns))
	for i, c := range b.columns {
		infos[i] = c.info
	}
	checkNoDuplicates(idsOf(infos), infos)
	dest := b.fr.archetypeFor(infos)
	dest.reserve(b.count)

	out := make([]Entity, 0, b.count)
	for row := 0; row < b.count; row++ {
		e := b.fr.alloc.allocate()
		destRow := dest.AllocateRow(e)
		for _, c := range b.columns {
			slot := dest.columnSlot(c.info.id)
			dc := &dest.columns[slot]
			var src unsafe.Pointer
			if c.size > 0 {
				src = unsafe.Add(c.data, uintptr(row)*c.size)
			}
			copyBytes(dc.ptrAt(destRow), src, c.size)
		}
		b.fr.alloc.installLocation(e, entityLocation{archetype: dest, row: destRow})
		out = append(out, e)
	}
	return out
}
