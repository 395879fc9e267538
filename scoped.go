package axle

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Scoped defers acquisition of an inner parameter to a bounded scope inside
// the system body. The system's own acquisition succeeds immediately; each
// With call re-acquires P, runs the closure, and releases before returning.
// This lets a long-running system hold contended views only while it
// actually needs them.
//
// Scoped still claims P's access on the validator, so a system cannot
// smuggle an aliasing borrow through it.
type Scoped[P Param] struct {
	world *World
	sys   SystemID
	inner P
}

func (s *Scoped[P]) initParam(ctx context.Context, w *World, sys SystemID) error {
	s.world = w
	s.sys = sys
	s.inner = newParam(reflect.TypeFor[P]()).(P)
	return s.inner.initParam(ctx, w, sys)
}

func (s *Scoped[P]) appendAccess(qv *QueryValidator) {
	newParam(reflect.TypeFor[P]()).appendAccess(qv)
}

func (s *Scoped[P]) tryAcquire() acquireStatus { return ready() }
func (s *Scoped[P]) release()                  {}

func (s *Scoped[P]) readOnlyParam() bool {
	return newParam(reflect.TypeFor[P]()).readOnlyParam()
}

// With acquires the inner parameter, runs fn with it, and releases. Panics
// if the requested value does not exist; see TryWith.
func (s *Scoped[P]) With(ctx context.Context, fn func(P) error) error {
	err := s.TryWith(ctx, fn)
	if err != nil && errors.Is(err, ErrDoesNotExist) {
		panicMissing(reflect.TypeFor[P]())
	}
	return err
}

// TryWith acquires the inner parameter, runs fn with it, and releases. A
// missing value propagates as ErrDoesNotExist instead of panicking.
func (s *Scoped[P]) TryWith(ctx context.Context, fn func(P) error) error {
	for {
		wake := s.world.signal.Wake()
		st := s.inner.tryAcquire()
		switch st.kind {
		case acquireReady:
			defer s.inner.release()
			return fn(s.inner)
		case acquireMissing:
			return fmt.Errorf("%w: %s", ErrDoesNotExist, unqualifiedTypeName(st.missing))
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
