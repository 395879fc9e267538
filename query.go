package axle

import (
	"context"
	"fmt"
	"reflect"
)

// acquireKind classifies one attempt to acquire a system parameter.
type acquireKind uint8

const (
	// acquireReady: the parameter is held and usable.
	acquireReady acquireKind = iota
	// acquirePending: a needed lock is held elsewhere; retry on next wake.
	acquirePending
	// acquireMissing: the requested value does not exist.
	acquireMissing
)

type acquireStatus struct {
	kind    acquireKind
	missing reflect.Type
}

func ready() acquireStatus   { return acquireStatus{kind: acquireReady} }
func pending() acquireStatus { return acquireStatus{kind: acquirePending} }
func missing(t reflect.Type) acquireStatus {
	return acquireStatus{kind: acquireMissing, missing: t}
}

// Param is the contract between a system parameter type and the runtime.
// A system function's parameters are pointers to Param implementations; the
// pointed-to value doubles as the query's persistent state (it lives inside
// the system across invocations) and, once acquired, as the item handed to
// the user function.
//
// The contract is sealed: the built-in implementations (views, Res, Local,
// Commands, Scoped, event endpoints) cover the query protocol, and their
// acquire paths must uphold the all-or-nothing locking discipline.
type Param interface {
	// initParam prepares persistent state. Called once, when the owning
	// system is bound to a world.
	initParam(ctx context.Context, w *World, sys SystemID) error

	// appendAccess records every type this parameter will touch. Called at
	// adaptation time, before initParam, on a zero value.
	appendAccess(v *QueryValidator)

	// tryAcquire attempts to take every lock the parameter needs, without
	// blocking. Implementations must hold nothing when they return pending
	// or missing.
	tryAcquire() acquireStatus

	// release drops whatever tryAcquire took.
	release()

	// readOnlyParam reports whether the parameter never claims exclusive
	// or owned access.
	readOnlyParam() bool
}

var paramInterfaceType = reflect.TypeFor[Param]()

// isParamType reports whether t is a pointer to a Param implementation.
func isParamType(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer && t.Implements(paramInterfaceType)
}

// newParam allocates a fresh parameter value for a system call frame.
func newParam(t reflect.Type) Param {
	return reflect.New(t.Elem()).Interface().(Param)
}

// panicMissing reports an acquire that found nothing to borrow from, in the
// style of the validator diagnostics.
func panicMissing(t reflect.Type) {
	panic(fmt.Sprintf("axle: query requested non-existent %s", unqualifiedTypeName(t)))
}
