package hecs

import "sync/atomic"

// slotState tracks the lifecycle of one entity allocator slot.
type slotState uint8

const (
	// slotDead means the slot sits on the dead freelist, available to
	// either allocate() or reserve() to claim.
	slotDead slotState = iota
	// slotPending means the id has been reserved but not yet flushed: it
	// is a valid handle (Contains returns true) but has no archetype row
	// yet, so it is invisible to queries until flush installs it.
	slotPending
	// slotLive means the slot has an archetype row and is query-visible.
	slotLive
)

// entitySlot is one entry in the allocator's slot table. next is an
// intrusive link reused for whichever singly-linked list (dead freelist or
// pending-reuse stack) currently owns the slot; -1 means "no link".
type entitySlot struct {
	generation uint32
	state      slotState
	retired    bool
	loc        entityLocation
	next       int32
}

// allocator hands out generation-validated 64-bit Entity handles. allocate,
// free, and flush require exclusive access to the owning Frame (they mutate
// the slot table directly); reserve is lock-free and may be called
// concurrently with other reserve calls, per spec §4.1/§5.
type allocator struct {
	slots []entitySlot

	nextID atomic.Uint32 // next never-before-claimed id (shared by allocate's and reserve's fresh path)

	freeHead  atomic.Int64 // dead freelist head: slot index + 1, 0 = empty
	reuseHead atomic.Int64 // pending-reuse stack head: slot index + 1, 0 = empty

	flushedTail  uint32 // ids below this have already been scanned by flush
	pendingCount atomic.Int64
}

func newAllocator() *allocator {
	return &allocator{}
}

// growTo extends the slot table to length n, zero-filling new entries as
// slotPending (id claimed via nextID but not yet materialized) with
// generation 0 and no link.
func (a *allocator) growTo(n uint32) {
	old := len(a.slots)
	if uint32(old) >= n {
		return
	}
	if uint32(cap(a.slots)) >= n {
		a.slots = a.slots[:n]
	} else {
		grown := make([]entitySlot, n)
		copy(grown, a.slots)
		a.slots = grown
	}
	for i := old; i < int(n); i++ {
		a.slots[i] = entitySlot{state: slotPending, next: -1}
	}
}

// reserveCapacity grows the underlying slot array's capacity to n without
// changing its length or touching nextID/contains semantics, so a later
// growTo (from allocate/reserve/flush claiming real ids) doesn't need to
// reallocate/copy. Used to seed a Frame's allocator from FrameOptions.
func (a *allocator) reserveCapacity(n uint32) {
	if uint32(cap(a.slots)) >= n {
		return
	}
	grown := make([]entitySlot, len(a.slots), n)
	copy(grown, a.slots)
	a.slots = grown
}

// allocate pops a free slot or extends the table, returning a live handle
// with no archetype location set yet — the caller installs one immediately.
func (a *allocator) allocate() Entity {
	if idx, ok := a.popDead(); ok {
		s := &a.slots[idx]
		s.state = slotLive
		s.next = -1
		return Entity{id: idx, gen: s.generation}
	}
	id := a.nextID.Add(1) - 1
	a.growTo(id + 1)
	s := &a.slots[id]
	s.state = slotLive
	s.generation = 0
	s.next = -1
	return Entity{id: id, gen: 0}
}

// installLocation records where a live entity's components live. Callers
// must only invoke this immediately after allocate() (or within flush).
func (a *allocator) installLocation(e Entity, loc entityLocation) {
	a.slots[e.id].loc = loc
}

// locationOf returns the current archetype location of a live entity.
func (a *allocator) locationOf(e Entity) (entityLocation, bool) {
	if !a.contains(e) {
		return entityLocation{}, false
	}
	if e.id >= uint32(len(a.slots)) {
		// contains() accepts reserved-but-not-yet-materialized tail ids
		// (reserve() claimed the id but flush() hasn't grown the slot
		// table yet); such a handle has no row to report.
		return entityLocation{}, false
	}
	s := &a.slots[e.id]
	if s.state != slotLive {
		return entityLocation{}, false
	}
	return s.loc, true
}

// setLocation updates a live entity's recorded archetype location, used
// after a migration moves its row.
func (a *allocator) setLocation(e Entity, loc entityLocation) {
	a.slots[e.id].loc = loc
}

// markLiveDirect transitions e straight to slotLive without going through
// flush, used by Frame.SpawnAt to materialize a reserved-but-unflushed (or
// not-yet-claimed) handle immediately.
func (a *allocator) markLiveDirect(e Entity) {
	a.growTo(e.id + 1)
	s := &a.slots[e.id]
	if s.state == slotPending {
		a.pendingCount.Add(-1)
	}
	s.state = slotLive
	s.generation = e.gen
	s.next = -1
}

// reserve atomically claims a handle whose slot may not yet be materialized.
// It is safe to call concurrently with other reserve calls.
func (a *allocator) reserve() Entity {
	if idx, ok := a.popDeadForReuse(); ok {
		a.pendingCount.Add(1)
		return Entity{id: idx, gen: a.slots[idx].generation}
	}
	id := a.nextID.Add(1) - 1
	a.pendingCount.Add(1)
	return Entity{id: id, gen: 0}
}

// flush materializes every reservation made so far: brand-new ids get a
// fresh slot entry, freelist-recycled ids get reactivated. install is
// invoked once per materialized entity and must return the empty-archetype
// location the frame placed it at.
func (a *allocator) flush(install func(Entity) entityLocation) {
	// Drain freelist-recycled pending reservations first.
	for {
		idx, ok := a.popReuse()
		if !ok {
			break
		}
		s := &a.slots[idx]
		if s.state != slotPending {
			continue
		}
		e := Entity{id: idx, gen: s.generation}
		loc := install(e)
		s.loc = loc
		s.state = slotLive
		a.pendingCount.Add(-1)
	}

	// Materialize brand-new tail ids.
	newTail := a.nextID.Load()
	a.growTo(newTail)
	for id := a.flushedTail; id < newTail; id++ {
		s := &a.slots[id]
		if s.state != slotPending {
			// Already claimed live by a direct allocate() call, or
			// despawned again before this flush ran; nothing to do.
			continue
		}
		e := Entity{id: id, gen: s.generation}
		loc := install(e)
		s.loc = loc
		s.state = slotLive
		a.pendingCount.Add(-1)
	}
	a.flushedTail = newTail
}

// free retires or recycles a live slot's id, bumping its generation so
// stale handles are rejected by contains.
func (a *allocator) free(e Entity) bool {
	if !a.contains(e) {
		return false
	}
	idx := e.id
	// A reserved tail id that flush has not reached yet has no slot entry.
	a.growTo(idx + 1)
	s := &a.slots[idx]
	if s.state == slotPending {
		a.pendingCount.Add(-1)
	}
	s.loc = entityLocation{}
	if s.generation == ^uint32(0) {
		// Generation space exhausted: retire the slot rather than wrap,
		// per spec §9's explicit recommendation.
		s.state = slotDead
		s.retired = true
		return true
	}
	s.generation++
	s.state = slotDead
	if !s.retired {
		a.pushDead(idx)
	}
	return true
}

// contains reports whether e refers to a currently valid handle: a known id
// whose generation matches and whose slot is not dead.
func (a *allocator) contains(e Entity) bool {
	if e == Dangling {
		return false
	}
	if e.id >= uint32(len(a.slots)) {
		// Might be a reserved-but-not-yet-materialized tail id.
		return e.id < a.nextID.Load() && e.gen == 0
	}
	s := &a.slots[e.id]
	if s.retired {
		return false
	}
	if s.state == slotDead {
		return false
	}
	return s.generation == e.gen
}

// liveCount returns the number of slots currently in slotLive state.
func (a *allocator) liveCount() int {
	n := 0
	for i := range a.slots {
		if a.slots[i].state == slotLive {
			n++
		}
	}
	return n
}

// recycledCount returns the number of dead, reusable slots.
func (a *allocator) recycledCount() int {
	n := 0
	for i := range a.slots {
		if a.slots[i].state == slotDead && !a.slots[i].retired {
			n++
		}
	}
	return n
}

// clear resets every live slot's generation (bumping it so old handles
// become invalid) without freeing slot storage, per Frame.Clear's contract.
func (a *allocator) clear() {
	a.freeHead.Store(0)
	a.reuseHead.Store(0)
	for i := range a.slots {
		s := &a.slots[i]
		if s.retired {
			continue
		}
		if s.generation != ^uint32(0) {
			s.generation++
		} else {
			s.retired = true
		}
		s.state = slotDead
		s.loc = entityLocation{}
		if !s.retired {
			a.pushDead(uint32(i))
		}
	}
	a.pendingCount.Store(0)
}

// --- lock-free freelist / reuse-stack helpers ---
// Both stacks are classic Treiber stacks keyed by slot index+1 (0 = empty),
// with the intrusive link stored in entitySlot.next. A slot is a member of
// at most one of {dead freelist, reuse stack} at any time, and state
// transitions are strictly ordered by the single-owner/CAS-reserve
// discipline described in spec §5, so reusing the `next` field across the
// two stacks is safe.

func (a *allocator) pushDead(idx uint32) {
	for {
		head := a.freeHead.Load()
		a.slots[idx].next = int32(head) - 1
		if a.freeHead.CompareAndSwap(head, int64(idx)+1) {
			return
		}
	}
}

// popDead pops one index off the dead freelist. A popped index can be stale
// if markLiveDirect forcibly revived it (e.g. Frame.SpawnAt reviving a
// handle invalidated by Clear) without unlinking it from this list first —
// such an entry is skipped and never handed out, since its slot is no
// longer actually dead.
func (a *allocator) popDead() (uint32, bool) {
	for {
		head := a.freeHead.Load()
		if head == 0 {
			return 0, false
		}
		idx := uint32(head - 1)
		next := a.slots[idx].next
		if !a.freeHead.CompareAndSwap(head, int64(next)+1) {
			continue
		}
		if a.slots[idx].state != slotDead {
			continue
		}
		return idx, true
	}
}

// popDeadForReuse pops from the dead freelist (same as popDead) but pushes
// the winning slot onto the reuse stack instead of handing it back live,
// since reserve() must defer installation to flush.
func (a *allocator) popDeadForReuse() (uint32, bool) {
	idx, ok := a.popDead()
	if !ok {
		return 0, false
	}
	a.slots[idx].state = slotPending
	for {
		head := a.reuseHead.Load()
		a.slots[idx].next = int32(head) - 1
		if a.reuseHead.CompareAndSwap(head, int64(idx)+1) {
			return idx, true
		}
	}
}

func (a *allocator) popReuse() (uint32, bool) {
	for {
		head := a.reuseHead.Load()
		if head == 0 {
			return 0, false
		}
		idx := uint32(head - 1)
		next := a.slots[idx].next
		if a.reuseHead.CompareAndSwap(head, int64(next)+1) {
			return idx, true
		}
	}
}
