package hecs

import "unsafe"

// cmdKind discriminates one recorded command, mirroring original_source's
// Cmd enum (SpawnOrInsert / Remove / Despawn).
type cmdKind uint8

const (
	cmdSpawnOrInsert cmdKind = iota
	cmdRemove
	cmdDespawn
)

// recordedComponent is one component recorded into the buffer's byte arena:
// its TypeInfo plus a byte offset (not a raw pointer, since the arena can
// be reallocated by later records — offsets stay valid across a grow,
// pointers would not).
type recordedComponent struct {
	info   TypeInfo
	offset uintptr
}

type recordedCmd struct {
	kind      cmdKind
	target    Entity
	comps     []recordedComponent
	removeIDs []TypeID
}

// CommandBuffer records mutations against a bump-allocated byte arena and
// replays them against a Frame later, in the order they were recorded. It
// exists so code that only has shared (read) access to a Frame — typically
// inside a query iteration — can still describe mutations to apply once
// exclusive access is available, grounded directly on
// original_source/src/command_buffer.rs.
type CommandBuffer struct {
	storage []byte
	cursor  uintptr
	cmds    []recordedCmd
}

// NewCommandBuffer returns an empty CommandBuffer.
func NewCommandBuffer() *CommandBuffer { return &CommandBuffer{} }

// grow extends storage to at least need bytes, doubling (minimum 64),
// exactly as the teacher's and original_source's growth policy does
// elsewhere in this module.
func (cb *CommandBuffer) grow(need uintptr) {
	newCap := uintptr(len(cb.storage))
	if newCap < minArchetypeCapacity {
		newCap = minArchetypeCapacity
	}
	for newCap < need {
		newCap *= 2
	}
	grown := make([]byte, newCap)
	copy(grown, cb.storage)
	cb.storage = grown
}

// allocBytes bump-allocates size bytes aligned to align, growing first if
// necessary, and returns the offset of the allocation.
func (cb *CommandBuffer) allocBytes(size, align uintptr) uintptr {
	if align == 0 {
		align = 1
	}
	aligned := (cb.cursor + align - 1) &^ (align - 1)
	need := aligned + size
	if need > uintptr(len(cb.storage)) {
		cb.grow(need)
	}
	cb.cursor = need
	return aligned
}

func (cb *CommandBuffer) putComponent(info TypeInfo, ptr unsafe.Pointer) recordedComponent {
	off := cb.allocBytes(info.size, info.align)
	if info.size > 0 {
		copyBytes(unsafe.Pointer(&cb.storage[off]), ptr, info.size)
	}
	return recordedComponent{info: info, offset: off}
}

// Spawn records a brand-new entity with no predetermined identity: replay
// creates it fresh via Frame.SpawnDynamic.
func (cb *CommandBuffer) Spawn(b DynamicBundle) {
	cb.record(Dangling, b)
}

// Insert records an insert into (or materialization of) target, which may
// already be live, or may be a handle obtained from Frame.ReserveEntity
// ahead of time (in which case replay uses SpawnAtDynamic).
func (cb *CommandBuffer) Insert(target Entity, b DynamicBundle) {
	cb.record(target, b)
}

// InsertOneCmd records a single-component insert/spawn against target.
func InsertOneCmd[T any](cb *CommandBuffer, target Entity, value T) {
	info := TypeInfoOf[T]()
	rc := cb.putComponent(info, unsafe.Pointer(&value))
	cb.cmds = append(cb.cmds, recordedCmd{kind: cmdSpawnOrInsert, target: target, comps: []recordedComponent{rc}})
}

func (cb *CommandBuffer) record(target Entity, b DynamicBundle) {
	var comps []recordedComponent
	b.Put(func(id TypeID, ptr unsafe.Pointer) {
		info, ok := lookupTypeInfo(id)
		if !ok {
			panic("hecs: unknown component TypeID recorded into command buffer")
		}
		comps = append(comps, cb.putComponent(info, ptr))
	})
	cb.cmds = append(cb.cmds, recordedCmd{kind: cmdSpawnOrInsert, target: target, comps: comps})
}

// Remove records removal of the given component types from target.
func (cb *CommandBuffer) Remove(target Entity, ids []TypeID) {
	cb.cmds = append(cb.cmds, recordedCmd{kind: cmdRemove, target: target, removeIDs: ids})
}

// Despawn records despawning target.
func (cb *CommandBuffer) Despawn(target Entity) {
	cb.cmds = append(cb.cmds, recordedCmd{kind: cmdDespawn, target: target})
}

// Len returns the number of recorded commands awaiting replay.
func (cb *CommandBuffer) Len() int { return len(cb.cmds) }

// RunOn replays every recorded command against fr in record order, then
// resets the buffer. Per original_source's failed_insert_regression and
// insert_then_remove/remove_then_insert tests: commands never merge or
// reorder, and a command targeting an entity that is dead by the time its
// turn comes silently drops its components rather than erroring.
func (cb *CommandBuffer) RunOn(fr *Frame) {
	for _, cmd := range cb.cmds {
		switch cmd.kind {
		case cmdSpawnOrInsert:
			parts := make([]DynamicComponent, len(cmd.comps))
			for i, rc := range cmd.comps {
				var ptr unsafe.Pointer
				if rc.info.size > 0 {
					ptr = unsafe.Pointer(&cb.storage[rc.offset])
				}
				parts[i] = DynamicComponent{Info: rc.info, Ptr: ptr}
			}
			b := &dynBundle{parts: parts}
			switch {
			case cmd.target == Dangling:
				fr.SpawnDynamic(b)
			default:
				if _, ok := fr.alloc.locationOf(cmd.target); ok {
					// Already has an archetype row: migrate via Insert.
					_ = fr.InsertDynamic(cmd.target, b)
				} else if fr.alloc.contains(cmd.target) {
					// A valid reservation with no row yet: materialize it.
					fr.SpawnAtDynamic(cmd.target, b)
				}
				// else: target is dead; components are silently dropped.
			}
		case cmdRemove:
			if fr.Contains(cmd.target) {
				_, _ = fr.RemoveDynamic(cmd.target, cmd.removeIDs)
			}
		case cmdDespawn:
			_ = fr.Despawn(cmd.target)
		}
	}
	cb.clear()
}

// clear drops every recorded command and resets the arena cursor, per
// original_source's run_on contract (components are dropped individually
// in Rust; our dropThunk-based zeroing is unnecessary here since the arena
// bytes are never interpreted as live Go values outside of RunOn, so we
// just reset bookkeeping and let the backing array be reused/overwritten).
func (cb *CommandBuffer) clear() {
	cb.cmds = cb.cmds[:0]
	cb.cursor = 0
}
