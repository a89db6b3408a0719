package hecs

// View supports random access by handle to a fetch pattern's matching rows,
// in addition to the sequential Query access pattern. The dynamic variant
// (Frame.View) holds borrows for its lifetime like Query; ViewMut bypasses
// the counters like QueryMut.
type View struct {
	frame    *Frame
	f        fetch
	dynamic  bool
	released bool
}

func newView(fr *Frame, f fetch, dynamic bool) *View {
	checkUniqueBorrows(f.accessIDs())
	v := &View{frame: fr, f: f, dynamic: dynamic}
	if dynamic {
		pairs := f.accessIDs()
		for _, a := range fr.archetypes {
			if !f.matches(a) {
				continue
			}
			for _, p := range pairs {
				if p.exclusive {
					a.BorrowMut(p.id)
				} else {
					a.Borrow(p.id)
				}
			}
		}
	}
	return v
}

// View builds a dynamically borrow-checked View over f.
func (fr *Frame) View(f fetch) *View { return newView(fr, f, true) }

// ViewMut builds a statically borrow-checked View over f.
func (fr *Frame) ViewMut(f fetch) *View { return newView(fr, f, false) }

// Release releases every borrow a dynamic View is holding.
func (v *View) Release() {
	if !v.dynamic || v.released {
		return
	}
	v.released = true
	pairs := v.f.accessIDs()
	for _, a := range v.frame.archetypes {
		if !v.f.matches(a) {
			continue
		}
		for _, p := range pairs {
			a.Release(p.id)
		}
	}
}

// Get fetches e's item if e is alive and its archetype matches f.
func (v *View) Get(e Entity) (any, bool) {
	loc, ok := v.frame.alloc.locationOf(e)
	if !ok || !v.f.matches(loc.archetype) {
		return nil, false
	}
	state := v.f.prepare(loc.archetype)
	return v.f.item(state, loc.row), true
}

// GetMutN fetches items for every handle in one call, panicking if any
// handle repeats (spec §4.3's view::get_mut_n duplicate-handle contract).
func (v *View) GetMutN(handles []Entity) []any {
	seen := make(map[Entity]struct{}, len(handles))
	for _, h := range handles {
		if _, dup := seen[h]; dup {
			panic("hecs: view.get_mut_n called with duplicate handles")
		}
		seen[h] = struct{}{}
	}
	out := make([]any, len(handles))
	for i, h := range handles {
		item, ok := v.Get(h)
		if !ok {
			panic("hecs: view.get_mut_n called with a handle the view does not match")
		}
		out[i] = item
	}
	return out
}
