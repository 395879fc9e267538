package axle

import "reflect"

// Filter is a predicate over an archetype's column-type set. A filter either
// admits every row of an archetype or none: per-row filtering does not exist
// at this layer. Filters claim no access, so they never affect validation or
// locking, only which archetypes a view touches.
//
// Filters are pure types; combinators nest as type parameters, e.g.
//
//	ViewF[Mut[Pos], And[With[Vel], Not[With[Frozen]]]]
type Filter interface {
	admit(r *componentRegistry, m mask) bool
}

// With admits archetypes whose column set includes component C.
type With[C any] struct{}

func (With[C]) admit(r *componentRegistry, m mask) bool {
	id, ok := r.lookup(reflect.TypeFor[C]())
	return ok && m.has(id)
}

// Without admits archetypes whose column set excludes component C.
type Without[C any] struct{}

func (Without[C]) admit(r *componentRegistry, m mask) bool {
	id, ok := r.lookup(reflect.TypeFor[C]())
	return !ok || !m.has(id)
}

// TrueF admits every archetype.
type TrueF struct{}

func (TrueF) admit(*componentRegistry, mask) bool { return true }

// FalseF admits no archetype.
type FalseF struct{}

func (FalseF) admit(*componentRegistry, mask) bool { return false }

// Not admits archetypes F rejects.
type Not[F Filter] struct{}

func (Not[F]) admit(r *componentRegistry, m mask) bool {
	var f F
	return !f.admit(r, m)
}

// And admits archetypes both operands admit.
type And[F1, F2 Filter] struct{}

func (And[F1, F2]) admit(r *componentRegistry, m mask) bool {
	var f1 F1
	var f2 F2
	return f1.admit(r, m) && f2.admit(r, m)
}

// Nand admits archetypes at least one operand rejects.
type Nand[F1, F2 Filter] struct{}

func (Nand[F1, F2]) admit(r *componentRegistry, m mask) bool {
	var f1 F1
	var f2 F2
	return !(f1.admit(r, m) && f2.admit(r, m))
}

// Or admits archetypes either operand admits.
type Or[F1, F2 Filter] struct{}

func (Or[F1, F2]) admit(r *componentRegistry, m mask) bool {
	var f1 F1
	var f2 F2
	return f1.admit(r, m) || f2.admit(r, m)
}

// Nor admits archetypes both operands reject.
type Nor[F1, F2 Filter] struct{}

func (Nor[F1, F2]) admit(r *componentRegistry, m mask) bool {
	var f1 F1
	var f2 F2
	return !(f1.admit(r, m) || f2.admit(r, m))
}

// Xor admits archetypes exactly one operand admits.
type Xor[F1, F2 Filter] struct{}

func (Xor[F1, F2]) admit(r *componentRegistry, m mask) bool {
	var f1 F1
	var f2 F2
	return f1.admit(r, m) != f2.admit(r, m)
}

// Xnor admits archetypes both operands agree on.
type Xnor[F1, F2 Filter] struct{}

func (Xnor[F1, F2]) admit(r *componentRegistry, m mask) bool {
	var f1 F1
	var f2 F2
	return f1.admit(r, m) == f2.admit(r, m)
}
