package hecs

import (
	"unsafe"

	"github.com/kamstrup/intmap"
)

// minArchetypeCapacity is the smallest row capacity an archetype ever
// allocates, and the amount it grows by when doubling from zero.
const minArchetypeCapacity = 64

// column is one type-erased, contiguous component buffer plus its dynamic
// borrow counter: 0 means free, a positive count means that many shared
// borrows are outstanding, -1 means a single exclusive borrow is outstanding.
type column struct {
	info   TypeInfo
	data   []byte
	borrow int32
}

func (c *column) ptrAt(row uint32) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(c.data)), uintptr(row)*c.info.size)
}

// copyBytes bitwise-copies size bytes from src to dst. It is the single
// primitive all row migration (move, insert, remove, exchange, take) builds
// on: components are never cloned at the Go level, only their raw bytes
// relocated, matching spec §4.2's move_row_to contract.
func copyBytes(dst, src unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}
	dstSlice := unsafe.Slice((*byte)(dst), size)
	srcSlice := unsafe.Slice((*byte)(src), size)
	copy(dstSlice, srcSlice)
}

func (c *column) grow(capacity uint32) {
	grown := make([]byte, uintptr(capacity)*c.info.size)
	copy(grown, c.data)
	c.data = grown
}

// Archetype is columnar storage for every live entity sharing one exact
// component set. Its column order is canonical (see TypeInfo.Less), so any
// two bundles describing the same set of types land in the same Archetype.
type Archetype struct {
	sig      signature
	types    []TypeInfo
	columns  []column
	colIndex *intmap.Map[TypeID, int32]
	entities []Entity
	length   uint32
	capacity uint32
}

func newArchetype(sig signature, types []TypeInfo) *Archetype {
	a := &Archetype{
		sig:      sig,
		types:    types,
		columns:  make([]column, len(types)),
		colIndex: intmap.New[TypeID, int32](max(8, len(types)*2)),
	}
	for i, t := range types {
		a.columns[i] = column{info: t}
		a.colIndex.Put(t.id, int32(i))
	}
	return a
}

// Has reports whether the archetype has a column for id.
func (a *Archetype) Has(id TypeID) bool {
	_, ok := a.colIndex.Get(id)
	return ok
}

// IDs returns the archetype's component TypeIDs in canonical column order.
func (a *Archetype) IDs() []TypeID {
	ids := make([]TypeID, len(a.types))
	for i, t := range a.types {
		ids[i] = t.id
	}
	return ids
}

// Len returns the number of live rows.
func (a *Archetype) Len() int { return int(a.length) }

// Signature returns the archetype's canonical identity.
func (a *Archetype) Signature() signature { return a.sig }

// columnSlot returns the column index for id, or -1 if absent.
func (a *Archetype) columnSlot(id TypeID) int {
	idx, ok := a.colIndex.Get(id)
	if !ok {
		return -1
	}
	return int(idx)
}

// EntityAt returns the entity handle stored at row.
func (a *Archetype) EntityAt(row uint32) Entity { return a.entities[row] }

// grow doubles column capacity (minimum minArchetypeCapacity), invalidating
// any previously returned column base pointers. Callers must not hold a
// borrow across a call that can trigger growth — AllocateRow enforces this
// by panicking if any column has an outstanding borrow when it must grow.
func (a *Archetype) grow() {
	newCap := a.capacity * 2
	if newCap < minArchetypeCapacity {
		newCap = minArchetypeCapacity
	}
	for i := range a.columns {
		if a.columns[i].borrow != 0 {
			panic("hecs: archetype resized while a column borrow is outstanding")
		}
		a.columns[i].grow(newCap)
	}
	a.capacity = newCap
}

// reserve grows the archetype ahead of time so it can accept additional
// rows without growing again mid-batch, used by Frame.SpawnBatch.
func (a *Archetype) reserve(additional int) {
	need := a.length + uint32(additional)
	if need <= a.capacity {
		return
	}
	newCap := a.capacity
	if newCap == 0 {
		newCap = minArchetypeCapacity
	}
	for newCap < need {
		newCap *= 2
	}
	for i := range a.columns {
		a.columns[i].grow(newCap)
	}
	a.capacity = newCap
}

// AllocateRow reserves a new row for e, growing columns first if the
// archetype is at capacity. The caller is responsible for filling every
// column's newly allocated row.
func (a *Archetype) AllocateRow(e Entity) uint32 {
	if a.length == a.capacity {
		a.grow()
	}
	row := a.length
	if row < uint32(len(a.entities)) {
		a.entities[row] = e
	} else {
		a.entities = append(a.entities, e)
	}
	a.length++
	return row
}

// RemoveRow swap-removes row: the last row is moved into its place (dropping
// whatever components used to live there first) and the identity of the
// entity that was moved, if any, is returned so the frame can fix up its
// index.
func (a *Archetype) RemoveRow(row uint32) (moved Entity, hadMoved bool) {
	last := a.length - 1
	for i := range a.columns {
		c := &a.columns[i]
		c.info.Drop(c.ptrAt(row))
		if row != last {
			copy(c.data[uintptr(row)*c.info.size:uintptr(row+1)*c.info.size],
				c.data[uintptr(last)*c.info.size:uintptr(last+1)*c.info.size])
		}
	}
	if row != last {
		a.entities[row] = a.entities[last]
		moved = a.entities[row]
		hadMoved = true
	}
	a.length--
	return moved, hadMoved
}

// MoveRowTo migrates the row at srcRow into dst at dstRow. For every type
// present in both archetypes the component bytes are copied verbatim (no
// drop, no re-initialization — a bitwise move). Types present only in src
// are dropped via their thunks; types present only in dst are left for the
// caller to fill (typically from a bundle). It does not remove srcRow from
// src — callers call RemoveRow separately once the move is complete.
func (a *Archetype) MoveRowTo(srcRow uint32, dst *Archetype, dstRow uint32) {
	for i := range a.columns {
		c := &a.columns[i]
		if slot := dst.columnSlot(c.info.id); slot >= 0 {
			dc := &dst.columns[slot]
			copy(dc.data[uintptr(dstRow)*dc.info.size:uintptr(dstRow+1)*dc.info.size],
				c.data[uintptr(srcRow)*c.info.size:uintptr(srcRow+1)*c.info.size])
		} else {
			c.info.Drop(c.ptrAt(srcRow))
		}
	}
}

// Borrow increments the shared-borrow counter for id's column, panicking if
// an exclusive borrow is already outstanding.
func (a *Archetype) Borrow(id TypeID) {
	slot := a.columnSlot(id)
	c := &a.columns[slot]
	if c.borrow < 0 {
		panic("hecs: already borrowed")
	}
	c.borrow++
}

// BorrowMut takes the exclusive borrow for id's column, panicking if any
// borrow (shared or exclusive) is already outstanding.
func (a *Archetype) BorrowMut(id TypeID) {
	slot := a.columnSlot(id)
	c := &a.columns[slot]
	if c.borrow != 0 {
		panic("hecs: already borrowed")
	}
	c.borrow = -1
}

// Release releases one previously-taken shared borrow, or the exclusive
// borrow, for id's column.
func (a *Archetype) Release(id TypeID) {
	slot := a.columnSlot(id)
	c := &a.columns[slot]
	if c.borrow < 0 {
		c.borrow = 0
	} else if c.borrow > 0 {
		c.borrow--
	}
}

// GetColumn returns the typed base pointer for T's column. It is only valid
// to dereference while the corresponding borrow is held.
func GetColumn[T any](a *Archetype) *T {
	id := TypeInfoOf[T]().id
	slot := a.columnSlot(id)
	if slot < 0 {
		return nil
	}
	c := &a.columns[slot]
	if len(c.data) == 0 {
		return nil
	}
	return (*T)(unsafe.Pointer(unsafe.SliceData(c.data)))
}

// componentPtr returns a pointer to the component of type id at row, or
// false if the archetype has no column for id — used by component access
// paths that need a single element rather than the full base pointer.
func (a *Archetype) componentPtr(id TypeID, row uint32) (unsafe.Pointer, bool) {
	slot := a.columnSlot(id)
	if slot < 0 {
		return nil, false
	}
	return a.columns[slot].ptrAt(row), true
}
