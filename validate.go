package axle

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// accessState classifies how a validator has seen a type claimed so far.
// Violating states are sticky: once a type joins into an error state it never
// leaves it, no matter what is joined afterwards.
type accessState uint8

const (
	accessImmutable accessState = iota
	accessMutable
	accessOwned
	accessMutableError
	accessOwnedError

	// bundle validator states
	accessIncluded
	accessIncludedError
)

func (s accessState) violating() bool {
	switch s {
	case accessMutableError, accessOwnedError, accessIncludedError:
		return true
	}
	return false
}

// joinAccess folds two claims on the same type into one. The operation is
// commutative and associative, with OwnedError dominating everything.
func joinAccess(a, b accessState) accessState {
	switch {
	case a >= accessIncluded || b >= accessIncluded:
		// Bundle claims: a second inclusion of the same type is the violation.
		return accessIncludedError
	case a == accessOwnedError || b == accessOwnedError,
		a == accessOwned || b == accessOwned:
		return accessOwnedError
	case a == accessMutableError || b == accessMutableError,
		a == accessMutable || b == accessMutable:
		return accessMutableError
	default:
		return accessImmutable
	}
}

type validatorEntry struct {
	typ   reflect.Type
	state accessState
}

// QueryValidator accumulates the set of types a query claims and how each is
// accessed. It is seeded from the query's type parameters at system
// adaptation time and checked once, before any lock is ever taken.
type QueryValidator struct {
	entries map[reflect.Type]validatorEntry
}

// NewQueryValidator returns an empty validator: no claims, no violations.
func NewQueryValidator() *QueryValidator {
	return &QueryValidator{entries: make(map[reflect.Type]validatorEntry)}
}

func (v *QueryValidator) claim(t reflect.Type, state accessState) {
	if prev, ok := v.entries[t]; ok {
		prev.state = joinAccess(prev.state, state)
		v.entries[t] = prev
		return
	}
	v.entries[t] = validatorEntry{typ: t, state: state}
}

// Immutable claims shared access to t. Any number of shared claims coexist.
func (v *QueryValidator) Immutable(t reflect.Type) { v.claim(t, accessImmutable) }

// Mutable claims exclusive access to t. It conflicts with every other claim.
func (v *QueryValidator) Mutable(t reflect.Type) { v.claim(t, accessMutable) }

// Owned claims ownership of t. It conflicts with every other claim,
// including another ownership claim.
func (v *QueryValidator) Owned(t reflect.Type) { v.claim(t, accessOwned) }

// Join merges other's claims into v. Join is commutative and associative;
// violations in either input survive in the result.
func (v *QueryValidator) Join(other *QueryValidator) *QueryValidator {
	for t, e := range other.entries {
		if prev, ok := v.entries[t]; ok {
			prev.state = joinAccess(prev.state, e.state)
			v.entries[t] = prev
		} else {
			v.entries[t] = e
		}
	}
	return v
}

// Violations returns the types in a violating state, sorted by name.
func (v *QueryValidator) Violations() []reflect.Type {
	var out []reflect.Type
	for _, e := range v.entries {
		if e.state.violating() {
			out = append(out, e.typ)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return unqualifiedTypeName(out[i]) < unqualifiedTypeName(out[j])
	})
	return out
}

// PanicOnViolation panics with a diagnostic naming every conflicting type.
func (v *QueryValidator) PanicOnViolation() {
	var b strings.Builder
	for _, e := range v.entries {
		switch e.state {
		case accessMutableError:
			fmt.Fprintf(&b, "\n  already mutably borrowed %s", unqualifiedTypeName(e.typ))
		case accessOwnedError:
			fmt.Fprintf(&b, "\n  already took ownership of %s", unqualifiedTypeName(e.typ))
		}
	}
	if b.Len() > 0 {
		panic("axle: query violates access rules:" + b.String())
	}
}

// BundleValidator checks that a bundle names each component type at most
// once. Duplicate inclusion is the only violation.
type BundleValidator struct {
	entries map[reflect.Type]validatorEntry
}

// NewBundleValidator returns an empty bundle validator.
func NewBundleValidator() *BundleValidator {
	return &BundleValidator{entries: make(map[reflect.Type]validatorEntry)}
}

// Include claims one component of type t in the bundle.
func (v *BundleValidator) Include(t reflect.Type) {
	if prev, ok := v.entries[t]; ok {
		prev.state = accessIncludedError
		v.entries[t] = prev
		return
	}
	v.entries[t] = validatorEntry{typ: t, state: accessIncluded}
}

// Join merges other's inclusions into v; shared types become violations.
func (v *BundleValidator) Join(other *BundleValidator) *BundleValidator {
	for t, e := range other.entries {
		if prev, ok := v.entries[t]; ok {
			prev.state = joinAccess(prev.state, e.state)
			v.entries[t] = prev
		} else {
			v.entries[t] = e
		}
	}
	return v
}

// PanicOnViolation panics listing every component type included repeatedly.
func (v *BundleValidator) PanicOnViolation() {
	var dups []string
	for _, e := range v.entries {
		if e.state == accessIncludedError {
			dups = append(dups, unqualifiedTypeName(e.typ))
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		panic("axle: bundle includes duplicate component types: " + strings.Join(dups, ", "))
	}
}
