package axle

import (
	"context"
	"reflect"
)

// ReadComponent copies the component of type T out of an entity. The copy is
// taken under the archetype's read latch, so it is never torn. Returns false
// for a stale handle or an absent component.
func ReadComponent[T any](ctx context.Context, w *World, e Entity) (T, bool, error) {
	var zero T
	id, ok := w.registry.lookup(reflect.TypeFor[T]())
	if !ok {
		return zero, false, nil
	}
	la, err := w.archetypes.byID(ctx, e.arch)
	if err != nil || la == nil {
		return zero, false, err
	}
	if err := la.latch.Read(ctx); err != nil {
		return zero, false, err
	}
	defer la.latch.ReadUnlock()
	ptr := la.arch.componentPtr(id, e.row, e.version)
	if ptr == nil {
		return zero, false, nil
	}
	return *(*T)(ptr), true, nil
}

// WriteComponent overwrites the component of type T on an entity, under the
// archetype's write latch. Returns false for a stale handle or an absent
// component; entities never change archetype after spawn.
func WriteComponent[T any](ctx context.Context, w *World, e Entity, value T) (bool, error) {
	id, ok := w.registry.lookup(reflect.TypeFor[T]())
	if !ok {
		return false, nil
	}
	la, err := w.archetypes.byID(ctx, e.arch)
	if err != nil || la == nil {
		return false, err
	}
	if err := la.latch.Write(ctx); err != nil {
		return false, err
	}
	defer la.latch.WriteUnlock()
	ptr := la.arch.componentPtr(id, e.row, e.version)
	if ptr == nil {
		return false, nil
	}
	*(*T)(ptr) = value
	return true, nil
}
