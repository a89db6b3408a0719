package hecs

import "github.com/kelindar/bitmap"

// PreparedQuery caches the list of archetypes matching f. It is only
// invalidated by archetype-set growth: each Iter call rescans just the
// archetypes created since the last call (tracked in tested, keyed by
// archetype index in Frame.archetypes) rather than retesting every
// archetype from scratch, per spec §4.5.
type PreparedQuery struct {
	frame   *Frame
	f       fetch
	matched []*Archetype
	tested  bitmap.Bitmap
}

// NewPreparedQuery builds (and does the first match pass for) a prepared
// query over f.
func NewPreparedQuery(fr *Frame, f fetch) *PreparedQuery {
	checkUniqueBorrows(f.accessIDs())
	pq := &PreparedQuery{frame: fr, f: f}
	pq.refresh()
	return pq
}

func (pq *PreparedQuery) refresh() {
	all := pq.frame.archetypes
	for i := 0; i < len(all); i++ {
		idx := uint32(i)
		if pq.tested.Contains(idx) {
			continue
		}
		pq.tested.Set(idx)
		if pq.f.matches(all[i]) {
			pq.matched = append(pq.matched, all[i])
		}
	}
}

// Count returns the total number of rows the query currently matches.
func (pq *PreparedQuery) Count() int {
	pq.refresh()
	n := 0
	for _, a := range pq.matched {
		n += a.Len()
	}
	return n
}

// Iter performs a dynamically borrow-checked iteration over every currently
// matching row, exactly like Query.Iter.
func (pq *PreparedQuery) Iter(yield func(e Entity, item any) bool) {
	pq.refresh()
	pairs := pq.f.accessIDs()
	taken := make([]*Archetype, 0, len(pq.matched))
	for _, a := range pq.matched {
		for _, p := range pairs {
			if p.exclusive {
				a.BorrowMut(p.id)
			} else {
				a.Borrow(p.id)
			}
		}
		taken = append(taken, a)
	}
	defer func() {
		for _, a := range taken {
			for _, p := range pairs {
				a.Release(p.id)
			}
		}
	}()

	for _, a := range pq.matched {
		n := a.Len()
		if n == 0 {
			continue
		}
		state := pq.f.prepare(a)
		for row := uint32(0); row < uint32(n); row++ {
			if !yield(a.EntityAt(row), pq.f.item(state, row)) {
				return
			}
		}
	}
}
