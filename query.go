package hecs

// Query holds a live, possibly-dynamically-borrowed set of matching
// archetypes for pattern f. Query (the dynamic variant, from Frame.Query)
// takes per-column borrow counters across every matching archetype for its
// entire lifetime; callers must call Release when done. QueryMut bypasses
// the counters entirely, relying on the caller already holding exclusive
// access to the Frame, per spec §4.4.
type Query struct {
	frame    *Frame
	f        fetch
	matched  []*Archetype
	dynamic  bool
	released bool
}

func newQuery(fr *Frame, f fetch, dynamic bool) *Query {
	checkUniqueBorrows(f.accessIDs())
	q := &Query{frame: fr, f: f, dynamic: dynamic}
	for _, a := range fr.archetypes {
		if f.matches(a) {
			q.matched = append(q.matched, a)
		}
	}
	if dynamic {
		pairs := f.accessIDs()
		for _, a := range q.matched {
			for _, p := range pairs {
				if p.exclusive {
					a.BorrowMut(p.id)
				} else {
					a.Borrow(p.id)
				}
			}
		}
	}
	return q
}

// Query performs a dynamic borrow-checked query: it holds per-column
// borrows on every matching archetype until Release is called.
func (fr *Frame) Query(f fetch) *Query { return newQuery(fr, f, true) }

// QueryMut performs a statically borrow-checked query: the caller is
// assumed to already hold exclusive access to the Frame, so no runtime
// borrow counters are touched and Release is a no-op.
func (fr *Frame) QueryMut(f fetch) *Query { return newQuery(fr, f, false) }

// Release releases every borrow a dynamic Query is holding. Safe to call
// more than once, and a no-op on a QueryMut result.
func (q *Query) Release() {
	if !q.dynamic || q.released {
		return
	}
	q.released = true
	pairs := q.f.accessIDs()
	for _, a := range q.matched {
		for _, p := range pairs {
			a.Release(p.id)
		}
	}
}

// Count returns the total number of rows the query would visit.
func (q *Query) Count() int {
	n := 0
	for _, a := range q.matched {
		n += a.Len()
	}
	return n
}

// Iter visits every matching row in archetype insertion order, ascending
// row order within each archetype, skipping empty archetypes. yield
// returning false stops iteration early.
func (q *Query) Iter(yield func(e Entity, item any) bool) {
	for _, a := range q.matched {
		n := a.Len()
		if n == 0 {
			continue
		}
		state := q.f.prepare(a)
		for row := uint32(0); row < uint32(n); row++ {
			if !yield(a.EntityAt(row), q.f.item(state, row)) {
				return
			}
		}
	}
}

// IterBatched is like Iter but groups rows from one archetype into batches
// of at most batchSize, handing the whole batch to yield at once.
func (q *Query) IterBatched(batchSize int, yield func(entities []Entity, items []any) bool) {
	if batchSize <= 0 {
		batchSize = 1
	}
	for _, a := range q.matched {
		n := a.Len()
		if n == 0 {
			continue
		}
		state := q.f.prepare(a)
		for start := 0; start < n; start += batchSize {
			end := start + batchSize
			if end > n {
				end = n
			}
			ents := make([]Entity, 0, end-start)
			items := make([]any, 0, end-start)
			for row := start; row < end; row++ {
				ents = append(ents, a.EntityAt(uint32(row)))
				items = append(items, q.f.item(state, uint32(row)))
			}
			if !yield(ents, items) {
				return
			}
		}
	}
}
