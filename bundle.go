package axle

import (
	"context"
	"fmt"
	"reflect"
	"unsafe"
)

// bundle is the resolved form of one spawn call: the component type infos
// and the addresses of the values, in call order.
type bundle struct {
	infos []ComponentTypeInfo
	srcs  []unsafe.Pointer
}

// resolveBundle validates and resolves a component list. Panics on an empty
// list, a duplicated component type, a nil component, and a component passed
// as a pointer.
func (w *World) resolveBundle(components []any) bundle {
	if len(components) == 0 {
		panic("axle: cannot spawn an entity with no components")
	}
	b := bundle{
		infos: make([]ComponentTypeInfo, len(components)),
		srcs:  make([]unsafe.Pointer, len(components)),
	}
	bv := NewBundleValidator()
	for i, comp := range components {
		if comp == nil {
			panic(fmt.Sprintf("axle: component %d of bundle is nil", i))
		}
		t := reflect.TypeOf(comp)
		if t.Kind() == reflect.Pointer {
			panic(fmt.Sprintf("axle: component %s must be passed by value", unqualifiedTypeName(t)))
		}
		bv.Include(t)
		id := w.registry.register(t)
		b.infos[i] = w.registry.info(id)
		// Copy onto the heap so the value has a stable address for the
		// column write.
		rv := reflect.New(t)
		rv.Elem().Set(reflect.ValueOf(comp))
		b.srcs[i] = rv.UnsafePointer()
	}
	bv.PanicOnViolation()
	return b
}

// Spawn creates one entity from the given components. No two components may
// share a type; a violating bundle panics and mutates nothing.
func (w *World) Spawn(ctx context.Context, components ...any) (Entity, error) {
	b := w.resolveBundle(components)
	return w.archetypes.spawn(ctx, b.infos, b.srcs)
}

// SpawnBatch creates many entities sharing one bundle shape, holding the
// archetype lock once for the whole batch. Every bundle must list the same
// component types in the same order.
func (w *World) SpawnBatch(ctx context.Context, bundles ...[]any) ([]Entity, error) {
	if len(bundles) == 0 {
		return nil, nil
	}
	first := w.resolveBundle(bundles[0])
	ids := make([]ComponentID, len(first.infos))
	for i, info := range first.infos {
		ids[i] = info.id
	}
	fastKey := idKey(ids)

	la, created, err := w.archetypes.resolve(ctx, fastKey, ids, first.infos)
	if err != nil {
		return nil, err
	}
	if !created {
		if err := la.latch.Write(ctx); err != nil {
			return nil, err
		}
	}
	defer la.latch.WriteUnlock()

	out := make([]Entity, len(bundles))
	ordered := make([]unsafe.Pointer, len(first.srcs))
	for n, comps := range bundles {
		b := first
		if n > 0 {
			b = w.resolveBundle(comps)
			if len(b.infos) != len(first.infos) {
				panic("axle: spawn batch bundles must share one shape")
			}
			for i := range b.infos {
				if b.infos[i].id != first.infos[i].id {
					panic("axle: spawn batch bundles must share one shape")
				}
			}
		}
		for i, info := range b.infos {
			ordered[la.arch.slot(info.id)] = b.srcs[i]
		}
		row, version := la.arch.spawn(ordered)
		out[n] = Entity{arch: la.arch.id, row: row, version: version}
	}
	return out, nil
}

// Despawn removes an entity. It reports false for a stale handle: a handle
// that outlived its entity never aliases onto the row's next occupant.
func (w *World) Despawn(ctx context.Context, e Entity) (bool, error) {
	return w.archetypes.despawn(ctx, e)
}

// Alive reports whether an entity handle is still current.
func (w *World) Alive(ctx context.Context, e Entity) (bool, error) {
	la, err := w.archetypes.byID(ctx, e.arch)
	if err != nil || la == nil {
		return false, err
	}
	if err := la.latch.Read(ctx); err != nil {
		return false, err
	}
	defer la.latch.ReadUnlock()
	return la.arch.alive(e.row, e.version), nil
}

// Spawn1 creates one entity from a single typed component.
func Spawn1[T1 any](ctx context.Context, w *World, c1 T1) (Entity, error) {
	return w.Spawn(ctx, c1)
}

// Spawn2 creates one entity from a typed pair of components.
func Spawn2[T1, T2 any](ctx context.Context, w *World, c1 T1, c2 T2) (Entity, error) {
	return w.Spawn(ctx, c1, c2)
}

// Spawn3 creates one entity from a typed triple of components.
func Spawn3[T1, T2, T3 any](ctx context.Context, w *World, c1 T1, c2 T2, c3 T3) (Entity, error) {
	return w.Spawn(ctx, c1, c2, c3)
}

// Spawn4 creates one entity from four typed components.
func Spawn4[T1, T2, T3, T4 any](ctx context.Context, w *World, c1 T1, c2 T2, c3 T3, c4 T4) (Entity, error) {
	return w.Spawn(ctx, c1, c2, c3, c4)
}

// Spawn5 creates one entity from five typed components.
func Spawn5[T1, T2, T3, T4, T5 any](ctx context.Context, w *World, c1 T1, c2 T2, c3 T3, c4 T4, c5 T5) (Entity, error) {
	return w.Spawn(ctx, c1, c2, c3, c4, c5)
}
