package axle

import (
	"context"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// latchedArchetype pairs an archetype with the latch that guards it.
type latchedArchetype struct {
	latch *Latch
	arch  *archetype
}

// archetypeStorage is the registry mapping component sets to archetypes and
// the entry point for spawn, despawn and query acquisition.
//
// The registry latch guards the lookup maps and the archetype list structure;
// each archetype's contents are guarded by its own latch. Lookups read-lock
// the registry, and only the creation of a new archetype write-locks it.
type archetypeStorage struct {
	registry *Latch
	signal   *notifier

	// byBundle caches the ordered tuple of component ids a concrete spawn
	// call site uses. It is a lazily grown, non-authoritative superset of
	// bySignature: the first lookup for each bundle shape populates it.
	byBundle map[string]ArchetypeID

	// bySignature is authoritative: one entry per archetype, keyed by the
	// sorted component id set.
	bySignature map[string]ArchetypeID

	archetypes []*latchedArchetype

	// generation counts archetype creations. Views cache their matching
	// archetype lists against it.
	generation atomic.Uint64

	capacityRows int
}

func newArchetypeStorage(signal *notifier, capacityRows int) *archetypeStorage {
	return &archetypeStorage{
		registry:     newLatch(signal),
		signal:       signal,
		byBundle:     make(map[string]ArchetypeID, 32),
		bySignature:  make(map[string]ArchetypeID, 32),
		capacityRows: capacityRows,
	}
}

// idKey encodes a component id sequence as a map key, order preserved.
func idKey(ids []ComponentID) string {
	b := make([]byte, len(ids))
	for i, id := range ids {
		b[i] = byte(id)
	}
	return string(b)
}

func sortedIDKey(ids []ComponentID) string {
	sorted := append([]ComponentID(nil), ids...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return idKey(sorted)
}

// spawn resolves the bundle's archetype and writes one row into it. The
// bundle arrives pre-validated as parallel slices of type infos and value
// addresses, in call order.
func (s *archetypeStorage) spawn(ctx context.Context, infos []ComponentTypeInfo, srcs []unsafe.Pointer) (Entity, error) {
	ids := make([]ComponentID, len(infos))
	for i, info := range infos {
		ids[i] = info.id
	}
	fastKey := idKey(ids)

	la, created, err := s.resolve(ctx, fastKey, ids, infos)
	if err != nil {
		return Entity{}, err
	}
	// resolve returns a created archetype still write-locked by us.
	if !created {
		if err := la.latch.Write(ctx); err != nil {
			return Entity{}, err
		}
	}
	defer la.latch.WriteUnlock()

	// Reorder value addresses into the archetype's canonical column order.
	ordered := make([]unsafe.Pointer, len(srcs))
	for i, info := range infos {
		ordered[la.arch.slot(info.id)] = srcs[i]
	}
	row, version := la.arch.spawn(ordered)
	return Entity{arch: la.arch.id, row: row, version: version}, nil
}

// resolve finds or creates the archetype for a bundle shape. A newly created
// archetype is returned in the write-locked state so its creator can populate
// it before any other acquirer can observe it.
func (s *archetypeStorage) resolve(ctx context.Context, fastKey string, ids []ComponentID, infos []ComponentTypeInfo) (la *latchedArchetype, created bool, err error) {
	if err := s.registry.Read(ctx); err != nil {
		return nil, false, err
	}
	if id, ok := s.byBundle[fastKey]; ok {
		la := s.archetypes[id]
		s.registry.ReadUnlock()
		return la, false, nil
	}
	sortedKey := sortedIDKey(ids)
	// Slow path needs the write lock, both to populate the fast-path cache
	// and possibly to create the archetype. Two spawners upgrading in place
	// would deadlock each other, so drop the read hold and re-check under a
	// fresh write hold instead.
	s.registry.ReadUnlock()
	if err := s.registry.Write(ctx); err != nil {
		return nil, false, err
	}
	defer s.registry.WriteUnlock()
	if id, ok := s.bySignature[sortedKey]; ok {
		s.byBundle[fastKey] = id
		return s.archetypes[id], false, nil
	}

	canonical := append([]ComponentTypeInfo(nil), infos...)
	sortCanonical(canonical)
	id := ArchetypeID(len(s.archetypes))
	la = &latchedArchetype{
		latch: newLatchLocked(s.signal),
		arch:  newArchetype(id, canonical, s.capacityRows),
	}
	s.archetypes = append(s.archetypes, la)
	s.bySignature[sortedKey] = id
	s.byBundle[fastKey] = id
	s.generation.Add(1)
	return la, true, nil
}

// despawn removes the entity if its handle is still current.
func (s *archetypeStorage) despawn(ctx context.Context, e Entity) (bool, error) {
	la, err := s.byID(ctx, e.arch)
	if err != nil || la == nil {
		return false, err
	}
	if err := la.latch.Write(ctx); err != nil {
		return false, err
	}
	defer la.latch.WriteUnlock()
	return la.arch.despawn(e.row, e.version), nil
}

// byID returns the latched archetype for an id, or nil if out of range.
func (s *archetypeStorage) byID(ctx context.Context, id ArchetypeID) (*latchedArchetype, error) {
	if err := s.registry.Read(ctx); err != nil {
		return nil, err
	}
	defer s.registry.ReadUnlock()
	if int(id) >= len(s.archetypes) {
		return nil, nil
	}
	return s.archetypes[id], nil
}

// matching snapshots the archetypes whose column set is a superset of
// include and admitted by filter. The snapshot is pending if the registry is
// contended.
func (s *archetypeStorage) matching(include mask, filter func(mask) bool) (out []*latchedArchetype, gen uint64, ok bool) {
	if !s.registry.TryRead() {
		return nil, 0, false
	}
	defer s.registry.ReadUnlock()
	gen = s.generation.Load()
	for _, la := range s.archetypes {
		if !la.arch.mask.contains(include) {
			continue
		}
		if filter != nil && !filter(la.arch.mask) {
			continue
		}
		out = append(out, la)
	}
	return out, gen, true
}

// tryAcquireAll takes a lock on every archetype in the list, write or read,
// all-or-nothing: on the first contended latch every hold already taken is
// released and false is returned. This is the only deadlock-avoidance
// mechanism between concurrent systems; no lock ordering is required.
func tryAcquireAll(arches []*latchedArchetype, write bool) bool {
	for i, la := range arches {
		ok := false
		if write {
			ok = la.latch.TryWrite()
		} else {
			ok = la.latch.TryRead()
		}
		if !ok {
			releaseAll(arches[:i], write)
			return false
		}
	}
	return true
}

func releaseAll(arches []*latchedArchetype, write bool) {
	for _, la := range arches {
		if write {
			la.latch.WriteUnlock()
		} else {
			la.latch.ReadUnlock()
		}
	}
}

// teardown write-locks and tears down every archetype. Called from world
// close; returns an error if an archetype latch cannot be taken.
func (s *archetypeStorage) teardown(ctx context.Context) error {
	if err := s.registry.Write(ctx); err != nil {
		return err
	}
	defer s.registry.WriteUnlock()
	for _, la := range s.archetypes {
		if err := la.latch.Write(ctx); err != nil {
			return fmt.Errorf("axle: tearing down archetype %d: %w", la.arch.id, err)
		}
		la.arch.teardown()
		la.latch.WriteUnlock()
	}
	return nil
}
