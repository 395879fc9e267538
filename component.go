// Package axle provides an asynchronous Entity-Component-System runtime.
package axle

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ComponentID is a dense, world-scoped identifier for a component type.
type ComponentID uint8

const (
	// MaxComponentTypes bounds the number of distinct component types a
	// single world can register.
	MaxComponentTypes = 256
)

// Disposer is implemented by components that hold external state. Dispose is
// invoked exactly once per stored value: on despawn, or when the world is
// closed. Reusing a freed row overwrites its cell without a second Dispose.
type Disposer interface {
	Dispose()
}

// ComponentTypeInfo describes one registered component type.
type ComponentTypeInfo struct {
	id         ComponentID
	typ        reflect.Type
	size       uintptr
	align      uintptr
	disposable bool
}

// ID returns the world-scoped component id.
func (info ComponentTypeInfo) ID() ComponentID { return info.id }

// Type returns the Go type of the component.
func (info ComponentTypeInfo) Type() reflect.Type { return info.typ }

// Size returns the component's size in bytes.
func (info ComponentTypeInfo) Size() uintptr { return info.size }

// componentRegistry assigns dense ids to component types. It is scoped to a
// world rather than the process so that independent worlds never share
// numbering.
type componentRegistry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]ComponentID
	infos  []ComponentTypeInfo
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		byType: make(map[reflect.Type]ComponentID, 64),
		infos:  make([]ComponentTypeInfo, 0, 64),
	}
}

var disposerType = reflect.TypeFor[Disposer]()

// register returns the id for t, assigning the next free one on first sight.
// Panics when the world runs out of component ids.
func (r *componentRegistry) register(t reflect.Type) ComponentID {
	r.mu.RLock()
	id, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok = r.byType[t]; ok {
		return id
	}
	if len(r.infos) >= MaxComponentTypes {
		panic(fmt.Sprintf("axle: cannot register component %s: maximum number of component types (%d) reached", t, MaxComponentTypes))
	}
	id = ComponentID(len(r.infos))
	r.byType[t] = id
	r.infos = append(r.infos, ComponentTypeInfo{
		id:         id,
		typ:        t,
		size:       t.Size(),
		align:      uintptr(t.Align()),
		disposable: t.Implements(disposerType) || reflect.PointerTo(t).Implements(disposerType),
	})
	return id
}

// lookup returns the id for t if it has been registered.
func (r *componentRegistry) lookup(t reflect.Type) (ComponentID, bool) {
	r.mu.RLock()
	id, ok := r.byType[t]
	r.mu.RUnlock()
	return id, ok
}

// info returns the type info for a registered id.
func (r *componentRegistry) info(id ComponentID) ComponentTypeInfo {
	r.mu.RLock()
	info := r.infos[id]
	r.mu.RUnlock()
	return info
}

// sortCanonical orders component infos into the canonical archetype order:
// descending alignment, then ascending id. Every column layout and archetype
// signature derives from this order.
func sortCanonical(infos []ComponentTypeInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].align != infos[j].align {
			return infos[i].align > infos[j].align
		}
		return infos[i].id < infos[j].id
	})
}

// RegisterComponent registers T with the world and returns its id. Component
// types register lazily on first spawn; this is only needed when an id is
// wanted up front.
func RegisterComponent[T any](w *World) ComponentID {
	return w.registry.register(reflect.TypeFor[T]())
}
