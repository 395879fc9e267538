package axle

import (
	"context"
	"unsafe"
)

// viewBase carries the shared machinery of every component view: the cached
// list of matching archetypes, the locks held over them, and the row cursor.
//
// The matching list is the view's cached state. It is rebuilt only when the
// storage generation moves (a new archetype appeared); between invocations of
// the owning system the snapshot is reused as-is, amortising archetype scans.
type viewBase struct {
	world *World
	terms []termInfo
	ids   []ComponentID
	inc   mask
	write bool
	admit func(mask) bool

	matches []*latchedArchetype
	gen     uint64
	cached  bool
	held    bool

	archIdx int
	row     int
	cur     *archetype
	slots   []int
}

func (b *viewBase) init(w *World, terms []termInfo, admit func(mask) bool) {
	b.world = w
	b.terms = terms
	b.admit = admit
	b.ids = make([]ComponentID, len(terms))
	b.slots = make([]int, len(terms))
	for i, t := range terms {
		id := w.registry.register(t.typ)
		b.ids[i] = id
		b.inc.set(id)
		if t.write {
			b.write = true
		}
	}
}

// tryAcquire refreshes the archetype snapshot if storage changed, then takes
// a lock on every matching archetype, all or nothing.
func (b *viewBase) tryAcquire() acquireStatus {
	if !b.cached || b.world.archetypes.generation.Load() != b.gen {
		matches, gen, ok := b.world.archetypes.matching(b.inc, b.admit)
		if !ok {
			return pending()
		}
		b.matches = matches
		b.gen = gen
		b.cached = true
	}
	if !tryAcquireAll(b.matches, b.write) {
		return pending()
	}
	b.held = true
	b.reset()
	return ready()
}

func (b *viewBase) release() {
	if !b.held {
		return
	}
	releaseAll(b.matches, b.write)
	b.held = false
}

func (b *viewBase) reset() {
	b.archIdx = 0
	b.row = -1
	b.cur = nil
}

// next advances the cursor to the next occupied row across the matching
// archetypes.
func (b *viewBase) next() bool {
	for {
		b.row++
		if b.cur != nil {
			for b.row < int(b.cur.highWater) {
				if b.cur.occupied[b.row] {
					return true
				}
				b.row++
			}
			b.cur = nil
		}
		for b.archIdx < len(b.matches) {
			arch := b.matches[b.archIdx].arch
			b.archIdx++
			if arch.liveRows() == 0 {
				continue
			}
			for i, id := range b.ids {
				b.slots[i] = arch.slot(id)
			}
			b.cur = arch
			b.row = -1
			break
		}
		if b.cur == nil {
			return false
		}
	}
}

// ptrAt returns the cell address of term i for the current row.
func (b *viewBase) ptrAt(i int) unsafe.Pointer {
	return b.cur.columns[b.slots[i]].ptr(uint32(b.row))
}

// Entity returns the handle of the entity at the cursor.
func (b *viewBase) Entity() Entity {
	return Entity{arch: b.cur.id, row: uint32(b.row), version: b.cur.versions[b.row]}
}

// Count returns the number of live entities the held view spans.
func (b *viewBase) Count() int {
	n := 0
	for _, la := range b.matches {
		n += la.arch.liveRows()
	}
	return n
}

func admitFor[F Filter](w *World) func(mask) bool {
	var f F
	return func(m mask) bool { return f.admit(w.registry, m) }
}

// View iterates entities that have the component named by its term.
//
//	var v *axle.View[axle.Mut[Position]]
//	for v.Next() {
//		pos := v.Get().Ptr()
//	}
type View[T1 Term] struct {
	viewBase
}

func (v *View[T1]) initParam(ctx context.Context, w *World, sys SystemID) error {
	v.init(w, []termInfo{infoOf[T1]()}, nil)
	return nil
}

func (v *View[T1]) appendAccess(qv *QueryValidator) {
	appendTermAccess(qv, infoOf[T1]())
}

func (v *View[T1]) readOnlyParam() bool { return !infoOf[T1]().write }

// Next advances to the next entity. Returns false when exhausted; Reset
// restarts the sequence.
func (v *View[T1]) Next() bool { return v.next() }

// Reset restarts iteration over the held view.
func (v *View[T1]) Reset() { v.reset() }

// Get returns the term for the current entity.
func (v *View[T1]) Get() T1 { return castTerm[T1](v.ptrAt(0)) }

// View2 iterates entities that have both named components.
type View2[T1, T2 Term] struct {
	viewBase
}

func (v *View2[T1, T2]) initParam(ctx context.Context, w *World, sys SystemID) error {
	v.init(w, []termInfo{infoOf[T1](), infoOf[T2]()}, nil)
	return nil
}

func (v *View2[T1, T2]) appendAccess(qv *QueryValidator) {
	appendTermAccess(qv, infoOf[T1](), infoOf[T2]())
}

func (v *View2[T1, T2]) readOnlyParam() bool {
	return !infoOf[T1]().write && !infoOf[T2]().write
}

func (v *View2[T1, T2]) Next() bool { return v.next() }
func (v *View2[T1, T2]) Reset()     { v.reset() }

// Get returns the terms for the current entity.
func (v *View2[T1, T2]) Get() (T1, T2) {
	return castTerm[T1](v.ptrAt(0)), castTerm[T2](v.ptrAt(1))
}

// View3 iterates entities that have all three named components.
type View3[T1, T2, T3 Term] struct {
	viewBase
}

func (v *View3[T1, T2, T3]) initParam(ctx context.Context, w *World, sys SystemID) error {
	v.init(w, []termInfo{infoOf[T1](), infoOf[T2](), infoOf[T3]()}, nil)
	return nil
}

func (v *View3[T1, T2, T3]) appendAccess(qv *QueryValidator) {
	appendTermAccess(qv, infoOf[T1](), infoOf[T2](), infoOf[T3]())
}

func (v *View3[T1, T2, T3]) readOnlyParam() bool {
	return !infoOf[T1]().write && !infoOf[T2]().write && !infoOf[T3]().write
}

func (v *View3[T1, T2, T3]) Next() bool { return v.next() }
func (v *View3[T1, T2, T3]) Reset()     { v.reset() }

func (v *View3[T1, T2, T3]) Get() (T1, T2, T3) {
	return castTerm[T1](v.ptrAt(0)), castTerm[T2](v.ptrAt(1)), castTerm[T3](v.ptrAt(2))
}

// View4 iterates entities that have all four named components.
type View4[T1, T2, T3, T4 Term] struct {
	viewBase
}

func (v *View4[T1, T2, T3, T4]) initParam(ctx context.Context, w *World, sys SystemID) error {
	v.init(w, []termInfo{infoOf[T1](), infoOf[T2](), infoOf[T3](), infoOf[T4]()}, nil)
	return nil
}

func (v *View4[T1, T2, T3, T4]) appendAccess(qv *QueryValidator) {
	appendTermAccess(qv, infoOf[T1](), infoOf[T2](), infoOf[T3](), infoOf[T4]())
}

func (v *View4[T1, T2, T3, T4]) readOnlyParam() bool {
	return !infoOf[T1]().write && !infoOf[T2]().write && !infoOf[T3]().write && !infoOf[T4]().write
}

func (v *View4[T1, T2, T3, T4]) Next() bool { return v.next() }
func (v *View4[T1, T2, T3, T4]) Reset()     { v.reset() }

func (v *View4[T1, T2, T3, T4]) Get() (T1, T2, T3, T4) {
	return castTerm[T1](v.ptrAt(0)), castTerm[T2](v.ptrAt(1)), castTerm[T3](v.ptrAt(2)), castTerm[T4](v.ptrAt(3))
}

// ViewF is View narrowed by a filter over the archetype's column set.
type ViewF[T1 Term, F Filter] struct {
	viewBase
}

func (v *ViewF[T1, F]) initParam(ctx context.Context, w *World, sys SystemID) error {
	v.init(w, []termInfo{infoOf[T1]()}, admitFor[F](w))
	return nil
}

func (v *ViewF[T1, F]) appendAccess(qv *QueryValidator) {
	appendTermAccess(qv, infoOf[T1]())
}

func (v *ViewF[T1, F]) readOnlyParam() bool { return !infoOf[T1]().write }

func (v *ViewF[T1, F]) Next() bool { return v.next() }
func (v *ViewF[T1, F]) Reset()     { v.reset() }
func (v *ViewF[T1, F]) Get() T1    { return castTerm[T1](v.ptrAt(0)) }

// View2F is View2 narrowed by a filter.
type View2F[T1, T2 Term, F Filter] struct {
	viewBase
}

func (v *View2F[T1, T2, F]) initParam(ctx context.Context, w *World, sys SystemID) error {
	v.init(w, []termInfo{infoOf[T1](), infoOf[T2]()}, admitFor[F](w))
	return nil
}

func (v *View2F[T1, T2, F]) appendAccess(qv *QueryValidator) {
	appendTermAccess(qv, infoOf[T1](), infoOf[T2]())
}

func (v *View2F[T1, T2, F]) readOnlyParam() bool {
	return !infoOf[T1]().write && !infoOf[T2]().write
}

func (v *View2F[T1, T2, F]) Next() bool { return v.next() }
func (v *View2F[T1, T2, F]) Reset()     { v.reset() }

func (v *View2F[T1, T2, F]) Get() (T1, T2) {
	return castTerm[T1](v.ptrAt(0)), castTerm[T2](v.ptrAt(1))
}

// View3F is View3 narrowed by a filter.
type View3F[T1, T2, T3 Term, F Filter] struct {
	viewBase
}

func (v *View3F[T1, T2, T3, F]) initParam(ctx context.Context, w *World, sys SystemID) error {
	v.init(w, []termInfo{infoOf[T1](), infoOf[T2](), infoOf[T3]()}, admitFor[F](w))
	return nil
}

func (v *View3F[T1, T2, T3, F]) appendAccess(qv *QueryValidator) {
	appendTermAccess(qv, infoOf[T1](), infoOf[T2](), infoOf[T3]())
}

func (v *View3F[T1, T2, T3, F]) readOnlyParam() bool {
	return !infoOf[T1]().write && !infoOf[T2]().write && !infoOf[T3]().write
}

func (v *View3F[T1, T2, T3, F]) Next() bool { return v.next() }
func (v *View3F[T1, T2, T3, F]) Reset()     { v.reset() }

func (v *View3F[T1, T2, T3, F]) Get() (T1, T2, T3) {
	return castTerm[T1](v.ptrAt(0)), castTerm[T2](v.ptrAt(1)), castTerm[T3](v.ptrAt(2))
}

// View4F is View4 narrowed by a filter.
type View4F[T1, T2, T3, T4 Term, F Filter] struct {
	viewBase
}

func (v *View4F[T1, T2, T3, T4, F]) initParam(ctx context.Context, w *World, sys SystemID) error {
	v.init(w, []termInfo{infoOf[T1](), infoOf[T2](), infoOf[T3](), infoOf[T4]()}, admitFor[F](w))
	return nil
}

func (v *View4F[T1, T2, T3, T4, F]) appendAccess(qv *QueryValidator) {
	appendTermAccess(qv, infoOf[T1](), infoOf[T2](), infoOf[T3](), infoOf[T4]())
}

func (v *View4F[T1, T2, T3, T4, F]) readOnlyParam() bool {
	return !infoOf[T1]().write && !infoOf[T2]().write && !infoOf[T3]().write && !infoOf[T4]().write
}

func (v *View4F[T1, T2, T3, T4, F]) Next() bool { return v.next() }
func (v *View4F[T1, T2, T3, T4, F]) Reset()     { v.reset() }

func (v *View4F[T1, T2, T3, T4, F]) Get() (T1, T2, T3, T4) {
	return castTerm[T1](v.ptrAt(0)), castTerm[T2](v.ptrAt(1)), castTerm[T3](v.ptrAt(2)), castTerm[T4](v.ptrAt(3))
}

// appendTermAccess claims each term's component type on the validator.
func appendTermAccess(qv *QueryValidator, terms ...termInfo) {
	for _, t := range terms {
		if t.write {
			qv.Mutable(t.typ)
		} else {
			qv.Immutable(t.typ)
		}
	}
}
