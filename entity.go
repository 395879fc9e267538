package axle

// Entity is a handle to one spawned entity: the archetype it lives in, its
// row within that archetype, and the row's generation at spawn time. A
// despawn bumps the generation, so handles held past the entity's death are
// detected rather than silently aliasing whatever reused the row.
type Entity struct {
	arch    ArchetypeID
	row     uint32
	version uint32
}

// Archetype returns the id of the archetype the entity was spawned into.
func (e Entity) Archetype() ArchetypeID { return e.arch }

// Row returns the entity's row index within its archetype.
func (e Entity) Row() uint32 { return e.row }

// IsZero reports whether e is the zero handle, which never names an entity.
func (e Entity) IsZero() bool { return e.version == 0 }
