package axle

import (
	"reflect"
	"unsafe"
)

// termInfo describes one slot of a component view: which component type it
// names and whether it claims exclusive access.
type termInfo struct {
	typ   reflect.Type
	write bool
}

// Term is one slot of a component view. The two implementations, Ref and
// Mut, seed the view's access modes from its type parameters: a view
// write-locks its archetypes iff any slot is a Mut.
//
// The interface is sealed; view internals rely on every Term having the
// exact memory layout of a single pointer.
type Term interface {
	term() termInfo
}

// Ref claims shared access to component C. It yields copies, so holders of
// parallel read views can never write through it.
type Ref[C any] struct {
	p unsafe.Pointer
}

func (Ref[C]) term() termInfo {
	return termInfo{typ: reflect.TypeFor[C](), write: false}
}

// Get returns a copy of the component value for the current row.
func (r Ref[C]) Get() C {
	return *(*C)(r.p)
}

// Mut claims exclusive access to component C.
type Mut[C any] struct {
	p unsafe.Pointer
}

func (Mut[C]) term() termInfo {
	return termInfo{typ: reflect.TypeFor[C](), write: true}
}

// Get returns a copy of the component value for the current row.
func (m Mut[C]) Get() C {
	return *(*C)(m.p)
}

// Ptr returns the component cell itself, valid while the view is held.
func (m Mut[C]) Ptr() *C {
	return (*C)(m.p)
}

// Set overwrites the component value for the current row.
func (m Mut[C]) Set(v C) {
	*(*C)(m.p) = v
}

// castTerm builds a term value around a cell address. Valid because the
// sealed Term implementations are all layout-identical to one pointer.
func castTerm[T Term](p unsafe.Pointer) T {
	return *(*T)(unsafe.Pointer(&p))
}

// infoOf returns the term info for T without an instance.
func infoOf[T Term]() termInfo {
	var t T
	return t.term()
}
