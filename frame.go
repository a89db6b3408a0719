package hecs

import "unsafe"

// Frame is the store: it owns every archetype, the archetype index, the
// entity allocator, and the edge cache, and is the sole place component
// bytes are moved, written, or dropped. A Frame is single-owner — it is not
// safe for concurrent mutation from multiple goroutines, only concurrent
// Reserve calls interleaved with otherwise-serialized access (spec §5).
type Frame struct {
	archetypes []*Archetype
	index      map[signature]*Archetype
	alloc      *allocator
	edges      *edgeCache
	opts       FrameOptions
}

// NewFrame creates a Frame with default capacity.
func NewFrame() *Frame { return NewFrameWithOptions(FrameOptions{}) }

// NewFrameWithOptions creates a Frame with the given options.
func NewFrameWithOptions(opts FrameOptions) *Frame {
	if opts.InitialCapacity <= 0 {
		opts.InitialCapacity = defaultInitialCapacity
	}
	fr := &Frame{
		index: make(map[signature]*Archetype, 16),
		alloc: newAllocator(),
		edges: newEdgeCache(),
		opts:  opts,
	}
	fr.alloc.reserveCapacity(uint32(opts.InitialCapacity))
	empty := newArchetype("", nil)
	empty.reserve(opts.InitialCapacity)
	fr.archetypes = append(fr.archetypes, empty)
	fr.index[""] = empty
	return fr
}

// emptyArchetype is archetype[0]: no columns, holding every reserved and
// just-flushed entity until it picks up its first component.
func (fr *Frame) emptyArchetype() *Archetype { return fr.archetypes[0] }

// archetypeFor finds or creates the archetype for an (unsorted) TypeInfo
// set, populating the archetype index and list on creation.
func (fr *Frame) archetypeFor(infos []TypeInfo) *Archetype {
	sig, sorted := signatureOf(infos)
	if a, ok := fr.index[sig]; ok {
		return a
	}
	a := newArchetype(sig, sorted)
	a.reserve(fr.opts.InitialCapacity)
	fr.index[sig] = a
	fr.archetypes = append(fr.archetypes, a)
	return a
}

// destinationFor resolves a migration edge via the edge cache, falling back
// to a full archetype lookup/creation on miss.
func (fr *Frame) destinationFor(src *Archetype, added, removed []TypeID, destInfos []TypeInfo) *Archetype {
	if dst, ok := fr.edges.lookup(src, added, removed); ok {
		return dst
	}
	dst := fr.archetypeFor(destInfos)
	fr.edges.store(src, added, removed, dst)
	return dst
}

// removeRowFixup finalizes a source-side row removal after its components
// have already been relocated or extracted, fixing up the allocator's
// record for whatever entity got swapped into the vacated row.
func (fr *Frame) removeRowFixup(arch *Archetype, row uint32) {
	moved, had := arch.RemoveRow(row)
	if had {
		fr.alloc.setLocation(moved, entityLocation{archetype: arch, row: row})
	}
}

func putInto(dest *Archetype, row uint32, id TypeID, ptr unsafe.Pointer) {
	slot := dest.columnSlot(id)
	dc := &dest.columns[slot]
	copyBytes(dc.ptrAt(row), ptr, dc.info.size)
}

// Spawn creates a new entity with the given static Bundle's components.
func (fr *Frame) Spawn(b Bundle) Entity {
	var infos []TypeInfo
	b.WithStaticTypeInfo(func(in []TypeInfo) { infos = in })
	checkNoDuplicates(idsOf(infos), infos)
	dest := fr.archetypeFor(infos)
	e := fr.alloc.allocate()
	row := dest.AllocateRow(e)
	b.Put(func(id TypeID, ptr unsafe.Pointer) { putInto(dest, row, id, ptr) })
	fr.alloc.installLocation(e, entityLocation{archetype: dest, row: row})
	return e
}

// SpawnDynamic creates a new entity from a DynamicBundle (e.g. the value
// returned by Take), resolving each TypeID against the global registry.
func (fr *Frame) SpawnDynamic(b DynamicBundle) Entity {
	var ids []TypeID
	b.WithIDs(func(in []TypeID) { ids = in })
	checkNoDuplicates(ids, nil)
	infos := make([]TypeInfo, len(ids))
	for i, id := range ids {
		info, ok := lookupTypeInfo(id)
		if !ok {
			panic("hecs: unknown component TypeID in dynamic bundle")
		}
		infos[i] = info
	}
	dest := fr.archetypeFor(infos)
	e := fr.alloc.allocate()
	row := dest.AllocateRow(e)
	b.Put(func(id TypeID, ptr unsafe.Pointer) { putInto(dest, row, id, ptr) })
	fr.alloc.installLocation(e, entityLocation{archetype: dest, row: row})
	return e
}

// SpawnBatch spawns one entity per element of bundles, using the first
// element to pick (or create) the destination archetype and reserving row
// capacity for the whole batch up front.
func (fr *Frame) SpawnBatch(bundles []Bundle) []Entity {
	if len(bundles) == 0 {
		return nil
	}
	var infos []TypeInfo
	bundles[0].WithStaticTypeInfo(func(in []TypeInfo) { infos = in })
	dest := fr.archetypeFor(infos)
	dest.reserve(len(bundles))
	out := make([]Entity, 0, len(bundles))
	for _, b := range bundles {
		e := fr.alloc.allocate()
		row := dest.AllocateRow(e)
		b.Put(func(id TypeID, ptr unsafe.Pointer) { putInto(dest, row, id, ptr) })
		fr.alloc.installLocation(e, entityLocation{archetype: dest, row: row})
		out = append(out, e)
	}
	return out
}

// SpawnAt places bundle's components into e's exact slot, forcibly
// installing e's id+generation even if e is not currently a valid handle —
// the escape hatch for reviving a specific, previously-known handle (e.g. a
// CommandBuffer target invalidated by an intervening Clear), per
// original_source's failed_insert_regression. If e is already live, its
// existing components are dropped and the slot is repointed.
func (fr *Frame) SpawnAt(e Entity, b Bundle) {
	if loc, ok := fr.alloc.locationOf(e); ok {
		fr.removeRowFixup(loc.archetype, loc.row)
	} else {
		fr.alloc.markLiveDirect(e)
	}
	var infos []TypeInfo
	b.WithStaticTypeInfo(func(in []TypeInfo) { infos = in })
	checkNoDuplicates(idsOf(infos), infos)
	dest := fr.archetypeFor(infos)
	row := dest.AllocateRow(e)
	b.Put(func(id TypeID, ptr unsafe.Pointer) { putInto(dest, row, id, ptr) })
	fr.alloc.installLocation(e, entityLocation{archetype: dest, row: row})
}

// SpawnAtDynamic is SpawnAt's DynamicBundle-driven counterpart, used by
// CommandBuffer replay to materialize reserved or revived targets without
// knowing their bundle type statically.
func (fr *Frame) SpawnAtDynamic(e Entity, b DynamicBundle) {
	if loc, ok := fr.alloc.locationOf(e); ok {
		fr.removeRowFixup(loc.archetype, loc.row)
	} else {
		fr.alloc.markLiveDirect(e)
	}
	var ids []TypeID
	b.WithIDs(func(in []TypeID) { ids = in })
	checkNoDuplicates(ids, nil)
	infos := make([]TypeInfo, len(ids))
	for i, id := range ids {
		info, ok := lookupTypeInfo(id)
		if !ok {
			panic("hecs: unknown component TypeID in dynamic bundle")
		}
		infos[i] = info
	}
	dest := fr.archetypeFor(infos)
	row := dest.AllocateRow(e)
	b.Put(func(id TypeID, ptr unsafe.Pointer) { putInto(dest, row, id, ptr) })
	fr.alloc.installLocation(e, entityLocation{archetype: dest, row: row})
}

// ReserveEntity atomically claims a handle whose row may not exist yet.
func (fr *Frame) ReserveEntity() Entity { return fr.alloc.reserve() }

// Flush materializes every reservation made since the last flush as an
// empty-archetype row.
func (fr *Frame) Flush() {
	empty := fr.emptyArchetype()
	fr.alloc.flush(func(e Entity) entityLocation {
		row := empty.AllocateRow(e)
		return entityLocation{archetype: empty, row: row}
	})
}

// Despawn invalidates e, dropping its components and freeing its slot.
func (fr *Frame) Despawn(e Entity) error {
	if !fr.alloc.contains(e) {
		return deadEntityError(e)
	}
	if loc, ok := fr.alloc.locationOf(e); ok {
		fr.removeRowFixup(loc.archetype, loc.row)
	}
	fr.alloc.free(e)
	return nil
}

// Contains reports whether e is a currently valid handle.
func (fr *Frame) Contains(e Entity) bool { return fr.alloc.contains(e) }

// Len returns the total number of live entities across every archetype.
func (fr *Frame) Len() int { return fr.alloc.liveCount() }

// Archetypes returns every archetype the Frame has created so far,
// including the empty archetype at index 0, in creation order.
func (fr *Frame) Archetypes() []*Archetype { return fr.archetypes }

// Clear drops every component in every archetype, bumps the generation of
// every live slot, and resets every archetype's length to zero without
// freeing its backing storage.
func (fr *Frame) Clear() {
	for _, a := range fr.archetypes {
		for row := uint32(0); row < a.length; row++ {
			for i := range a.columns {
				c := &a.columns[i]
				c.info.Drop(c.ptrAt(row))
			}
		}
		a.length = 0
	}
	fr.alloc.clear()
}

// bundleAsDynamic adapts a static Bundle to the DynamicBundle interface so
// Insert can share InsertDynamic's migration logic.
type bundleAsDynamic struct{ b Bundle }

func (x bundleAsDynamic) WithIDs(f func([]TypeID))      { x.b.WithStaticIDs(f) }
func (x bundleAsDynamic) Put(put func(TypeID, unsafe.Pointer)) { x.b.Put(put) }

// Insert computes the union of e's current components and b's, migrating e
// to the resulting archetype. Components b provides overwrite existing ones
// of the same type (the old bytes are dropped).
func (fr *Frame) Insert(e Entity, b Bundle) error {
	return fr.InsertDynamic(e, bundleAsDynamic{b})
}

// InsertOne inserts a single component, overwriting it if already present.
func InsertOne[T any](fr *Frame, e Entity, value T) error {
	info := TypeInfoOf[T]()
	b := &dynBundle{parts: []DynamicComponent{{Info: info, Ptr: unsafe.Pointer(&value)}}}
	return fr.InsertDynamic(e, b)
}

// InsertDynamic is Insert's DynamicBundle-driven implementation.
func (fr *Frame) InsertDynamic(e Entity, b DynamicBundle) error {
	loc, ok := fr.alloc.locationOf(e)
	if !ok {
		return deadEntityError(e)
	}
	src := loc.archetype

	var ids []TypeID
	b.WithIDs(func(in []TypeID) { ids = in })
	checkNoDuplicates(ids, nil)
	overwritten := make(map[TypeID]bool, len(ids))
	for _, id := range ids {
		overwritten[id] = true
	}

	destInfos := make([]TypeInfo, 0, len(src.types)+len(ids))
	for _, t := range src.types {
		if !overwritten[t.id] {
			destInfos = append(destInfos, t)
		}
	}
	added := make([]TypeID, 0, len(ids))
	for _, id := range ids {
		info, ok := lookupTypeInfo(id)
		if !ok {
			panic("hecs: unknown component TypeID in dynamic bundle")
		}
		destInfos = append(destInfos, info)
		if !src.Has(id) {
			added = append(added, id)
		}
	}

	dest := fr.destinationFor(src, added, nil, destInfos)
	destRow := dest.AllocateRow(e)

	for i := range src.columns {
		c := &src.columns[i]
		srcPtr := c.ptrAt(loc.row)
		if overwritten[c.info.id] {
			c.info.Drop(srcPtr)
			continue
		}
		if slot := dest.columnSlot(c.info.id); slot >= 0 {
			dc := &dest.columns[slot]
			copyBytes(dc.ptrAt(destRow), srcPtr, c.info.size)
		}
	}
	b.Put(func(id TypeID, ptr unsafe.Pointer) { putInto(dest, destRow, id, ptr) })

	fr.removeRowFixup(src, loc.row)
	if dest != src {
		// When dest is src, the swap-remove above already moved e's new row
		// into loc.row and recorded that location.
		fr.alloc.setLocation(e, entityLocation{archetype: dest, row: destRow})
	}
	return nil
}

// RemoveDynamic removes every component in ids from e, migrating it to the
// resulting (smaller) archetype and returning the removed components' bytes.
func (fr *Frame) RemoveDynamic(e Entity, ids []TypeID) ([]DynamicComponent, error) {
	loc, ok := fr.alloc.locationOf(e)
	if !ok {
		return nil, deadEntityError(e)
	}
	src := loc.archetype
	for _, id := range ids {
		if !src.Has(id) {
			info, _ := lookupTypeInfo(id)
			return nil, missingComponentError(e, info)
		}
	}
	removedSet := make(map[TypeID]bool, len(ids))
	for _, id := range ids {
		removedSet[id] = true
	}
	destInfos := make([]TypeInfo, 0, len(src.types))
	for _, t := range src.types {
		if !removedSet[t.id] {
			destInfos = append(destInfos, t)
		}
	}
	dest := fr.destinationFor(src, nil, ids, destInfos)
	destRow := dest.AllocateRow(e)

	extracted := make([]DynamicComponent, 0, len(ids))
	for i := range src.columns {
		c := &src.columns[i]
		srcPtr := c.ptrAt(loc.row)
		if removedSet[c.info.id] {
			buf := make([]byte, c.info.size)
			if c.info.size > 0 {
				copyBytes(unsafe.Pointer(unsafe.SliceData(buf)), srcPtr, c.info.size)
			}
			extracted = append(extracted, DynamicComponent{Info: c.info, Ptr: unsafe.Pointer(unsafe.SliceData(buf))})
			continue
		}
		if slot := dest.columnSlot(c.info.id); slot >= 0 {
			dc := &dest.columns[slot]
			copyBytes(dc.ptrAt(destRow), srcPtr, c.info.size)
		}
	}

	fr.removeRowFixup(src, loc.row)
	if dest != src {
		// When dest is src, the swap-remove above already moved e's new row
		// into loc.row and recorded that location.
		fr.alloc.setLocation(e, entityLocation{archetype: dest, row: destRow})
	}
	return extracted, nil
}

// RemoveOne removes a single component of type T, returning its value.
func RemoveOne[T any](fr *Frame, e Entity) (T, error) {
	var zero T
	info := TypeInfoOf[T]()
	comps, err := fr.RemoveDynamic(e, []TypeID{info.id})
	if err != nil {
		return zero, err
	}
	return *(*T)(comps[0].Ptr), nil
}

// ExchangeDynamic atomically removes outIDs and inserts in's components in
// a single migration with one destination archetype lookup.
func (fr *Frame) ExchangeDynamic(e Entity, outIDs []TypeID, in DynamicBundle) ([]DynamicComponent, error) {
	loc, ok := fr.alloc.locationOf(e)
	if !ok {
		return nil, deadEntityError(e)
	}
	src := loc.archetype
	for _, id := range outIDs {
		if !src.Has(id) {
			info, _ := lookupTypeInfo(id)
			return nil, missingComponentError(e, info)
		}
	}
	var inIDs []TypeID
	in.WithIDs(func(ids []TypeID) { inIDs = ids })
	checkNoDuplicates(inIDs, nil)

	removedSet := make(map[TypeID]bool, len(outIDs))
	for _, id := range outIDs {
		removedSet[id] = true
	}
	addedSet := make(map[TypeID]bool, len(inIDs))
	for _, id := range inIDs {
		addedSet[id] = true
	}

	destInfos := make([]TypeInfo, 0, len(src.types)+len(inIDs))
	for _, t := range src.types {
		if !removedSet[t.id] && !addedSet[t.id] {
			destInfos = append(destInfos, t)
		}
	}
	for _, id := range inIDs {
		info, ok := lookupTypeInfo(id)
		if !ok {
			panic("hecs: unknown component TypeID in dynamic bundle")
		}
		destInfos = append(destInfos, info)
	}

	dest := fr.destinationFor(src, inIDs, outIDs, destInfos)
	destRow := dest.AllocateRow(e)

	extracted := make([]DynamicComponent, 0, len(outIDs))
	for i := range src.columns {
		c := &src.columns[i]
		srcPtr := c.ptrAt(loc.row)
		switch {
		case removedSet[c.info.id]:
			buf := make([]byte, c.info.size)
			if c.info.size > 0 {
				copyBytes(unsafe.Pointer(unsafe.SliceData(buf)), srcPtr, c.info.size)
			}
			extracted = append(extracted, DynamicComponent{Info: c.info, Ptr: unsafe.Pointer(unsafe.SliceData(buf))})
		case addedSet[c.info.id]:
			c.info.Drop(srcPtr)
		default:
			if slot := dest.columnSlot(c.info.id); slot >= 0 {
				dc := &dest.columns[slot]
				copyBytes(dc.ptrAt(destRow), srcPtr, c.info.size)
			}
		}
	}
	in.Put(func(id TypeID, ptr unsafe.Pointer) { putInto(dest, destRow, id, ptr) })

	fr.removeRowFixup(src, loc.row)
	if dest != src {
		// When dest is src, the swap-remove above already moved e's new row
		// into loc.row and recorded that location.
		fr.alloc.setLocation(e, entityLocation{archetype: dest, row: destRow})
	}
	return extracted, nil
}

// Take removes e and returns an opaque DynamicBundle holding copies of its
// component bytes, suitable for SpawnDynamic on this or another Frame.
func (fr *Frame) Take(e Entity) (DynamicBundle, error) {
	loc, ok := fr.alloc.locationOf(e)
	if !ok {
		return nil, deadEntityError(e)
	}
	src := loc.archetype
	parts := make([]DynamicComponent, 0, len(src.columns))
	for i := range src.columns {
		c := &src.columns[i]
		buf := make([]byte, c.info.size)
		if c.info.size > 0 {
			copyBytes(unsafe.Pointer(unsafe.SliceData(buf)), c.ptrAt(loc.row), c.info.size)
		}
		parts = append(parts, DynamicComponent{Info: c.info, Ptr: unsafe.Pointer(unsafe.SliceData(buf))})
	}
	fr.removeRowFixup(src, loc.row)
	fr.alloc.free(e)
	return &dynBundle{parts: parts}, nil
}

// Ref is a borrow guard returned by Get/GetMut: it must be released (via
// Release) once the caller is done reading/writing the component, the
// idiomatic Go stand-in for a borrow whose lifetime is normally tied to a
// scope in languages with destructors.
type Ref[T any] struct {
	ptr     *T
	release func()
}

// Get dereferences the held component. Calling it after Release is a bug;
// it is not itself checked, mirroring the teacher's raw-pointer Query access.
func (r Ref[T]) Get() *T { return r.ptr }

// Release releases the borrow this Ref holds.
func (r Ref[T]) Release() {
	if r.release != nil {
		r.release()
	}
}

// Get takes a shared borrow on e's component of type T.
func Get[T any](fr *Frame, e Entity) (Ref[T], error) {
	loc, ok := fr.alloc.locationOf(e)
	if !ok {
		return Ref[T]{}, deadEntityError(e)
	}
	info := TypeInfoOf[T]()
	ptr, ok := loc.archetype.componentPtr(info.id, loc.row)
	if !ok {
		return Ref[T]{}, missingComponentError(e, info)
	}
	loc.archetype.Borrow(info.id)
	arch := loc.archetype
	return Ref[T]{ptr: (*T)(ptr), release: func() { arch.Release(info.id) }}, nil
}

// GetMut takes the exclusive borrow on e's component of type T.
func GetMut[T any](fr *Frame, e Entity) (Ref[T], error) {
	loc, ok := fr.alloc.locationOf(e)
	if !ok {
		return Ref[T]{}, deadEntityError(e)
	}
	info := TypeInfoOf[T]()
	ptr, ok := loc.archetype.componentPtr(info.id, loc.row)
	if !ok {
		return Ref[T]{}, missingComponentError(e, info)
	}
	loc.archetype.BorrowMut(info.id)
	arch := loc.archetype
	return Ref[T]{ptr: (*T)(ptr), release: func() { arch.Release(info.id) }}, nil
}

// EntityRef is a cheap, repeatable accessor to one entity's columns, each
// access dynamically borrow-checked independently (spec §4.3's entity()).
type EntityRef struct {
	frame *Frame
	e     Entity
}

// EntityRefFor returns an EntityRef for e, failing if e is not live.
func (fr *Frame) EntityRefFor(e Entity) (EntityRef, error) {
	if !fr.alloc.contains(e) {
		return EntityRef{}, deadEntityError(e)
	}
	return EntityRef{frame: fr, e: e}, nil
}

// Entity returns the underlying handle.
func (r EntityRef) Entity() Entity { return r.e }

// EntityRefHas reports whether the referenced entity currently has a
// component of type T.
func EntityRefHas[T any](r EntityRef) bool {
	loc, ok := r.frame.alloc.locationOf(r.e)
	if !ok {
		return false
	}
	return loc.archetype.Has(TypeInfoOf[T]().id)
}

// EntityRefGet takes a shared borrow on the referenced entity's component.
func EntityRefGet[T any](r EntityRef) (Ref[T], error) { return Get[T](r.frame, r.e) }

// EntityRefGetMut takes the exclusive borrow on the referenced entity's
// component.
func EntityRefGetMut[T any](r EntityRef) (Ref[T], error) { return GetMut[T](r.frame, r.e) }
