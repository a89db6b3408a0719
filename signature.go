package hecs

import (
	"sort"
	"unsafe"
)

// signature is the canonical, hashable identity of an archetype: the sorted
// sequence of its column TypeIDs packed into a string so it can be used
// directly as a Go map key. Unlike a fixed-width bitset (the teacher's
// maskType, or a kelindar/bitmap), a packed string has no upper bound on the
// number of distinct component types a process can register.
type signature string

// signatureOf builds the canonical signature for an (unsorted) set of
// TypeInfos, returning it alongside the TypeInfos sorted into canonical
// column order. Duplicate TypeIDs are rejected by the caller (bundles and
// Frame operations check for duplicates before calling this).
func signatureOf(infos []TypeInfo) (signature, []TypeInfo) {
	sorted := make([]TypeInfo, len(infos))
	copy(sorted, infos)
	sortTypeInfos(sorted)
	return signatureOfSorted(sorted), sorted
}

// signatureOfSorted builds a signature from TypeInfos already in canonical
// order, without re-sorting.
func signatureOfSorted(sorted []TypeInfo) signature {
	if len(sorted) == 0 {
		return ""
	}
	ids := make([]TypeID, len(sorted))
	for i, info := range sorted {
		ids[i] = info.id
	}
	return packIDs(ids)
}

// packIDs packs a TypeID slice (assumed already canonically ordered) into a
// byte string suitable as a map key.
func packIDs(ids []TypeID) signature {
	buf := make([]byte, len(ids)*4)
	for i, id := range ids {
		buf[i*4+0] = byte(id)
		buf[i*4+1] = byte(id >> 8)
		buf[i*4+2] = byte(id >> 16)
		buf[i*4+3] = byte(id >> 24)
	}
	return signature(unsafe.String(unsafe.SliceData(buf), len(buf)))
}

// idSetSignature builds a signature from an arbitrary (unsorted, possibly
// duplicate) slice of TypeIDs — used by the edge cache to key "added" and
// "removed" id sets, which are small and need not track full TypeInfo.
func idSetSignature(ids []TypeID) signature {
	sorted := make([]TypeID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return packIDs(sorted)
}
