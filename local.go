package axle

import "context"

// Local is a per-system scratch value. It starts at the zero value of T and
// persists across invocations of the owning system; no other system can ever
// observe it, so it claims no access and always acquires.
type Local[T any] struct {
	Value T
}

func (l *Local[T]) initParam(ctx context.Context, w *World, sys SystemID) error { return nil }
func (l *Local[T]) appendAccess(*QueryValidator)                                {}
func (l *Local[T]) tryAcquire() acquireStatus                                   { return ready() }
func (l *Local[T]) release()                                                    {}
func (l *Local[T]) readOnlyParam() bool                                         { return true }
