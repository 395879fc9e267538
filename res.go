package axle

import (
	"context"
	"reflect"
)

// Res claims shared access to the singleton of type R. Acquisition fails as
// missing when no such resource exists; use OptRes when absence is expected.
type Res[R any] struct {
	world *World
	cell  *resourceCell
	held  bool
	v     *R
}

func (r *Res[R]) initParam(ctx context.Context, w *World, sys SystemID) error {
	r.world = w
	return nil
}

func (r *Res[R]) appendAccess(qv *QueryValidator) {
	qv.Immutable(reflect.TypeFor[R]())
}

func (r *Res[R]) tryAcquire() acquireStatus {
	if r.cell == nil {
		c, ok := r.world.resources.tryCell(reflect.TypeFor[R]())
		if !ok {
			return pending()
		}
		if c == nil {
			return missing(reflect.TypeFor[R]())
		}
		r.cell = c
	}
	if !r.cell.latch.TryRead() {
		return pending()
	}
	if r.cell.value == nil {
		r.cell.latch.ReadUnlock()
		return missing(reflect.TypeFor[R]())
	}
	r.v = r.cell.value.(*R)
	r.held = true
	return ready()
}

func (r *Res[R]) release() {
	if r.held {
		r.cell.latch.ReadUnlock()
		r.held = false
		r.v = nil
	}
}

func (r *Res[R]) readOnlyParam() bool { return true }

// Get returns a copy of the resource value.
func (r *Res[R]) Get() R { return *r.v }

// ResMut claims exclusive access to the singleton of type R.
type ResMut[R any] struct {
	world *World
	cell  *resourceCell
	held  bool
	v     *R
}

func (r *ResMut[R]) initParam(ctx context.Context, w *World, sys SystemID) error {
	r.world = w
	return nil
}

func (r *ResMut[R]) appendAccess(qv *QueryValidator) {
	qv.Mutable(reflect.TypeFor[R]())
}

func (r *ResMut[R]) tryAcquire() acquireStatus {
	if r.cell == nil {
		c, ok := r.world.resources.tryCell(reflect.TypeFor[R]())
		if !ok {
			return pending()
		}
		if c == nil {
			return missing(reflect.TypeFor[R]())
		}
		r.cell = c
	}
	if !r.cell.latch.TryWrite() {
		return pending()
	}
	if r.cell.value == nil {
		r.cell.latch.WriteUnlock()
		return missing(reflect.TypeFor[R]())
	}
	r.v = r.cell.value.(*R)
	r.held = true
	return ready()
}

func (r *ResMut[R]) release() {
	if r.held {
		r.cell.latch.WriteUnlock()
		r.held = false
		r.v = nil
	}
}

func (r *ResMut[R]) readOnlyParam() bool { return false }

// Get returns a copy of the resource value.
func (r *ResMut[R]) Get() R { return *r.v }

// Ptr returns the resource cell itself, valid while the system holds it.
func (r *ResMut[R]) Ptr() *R { return r.v }

// Set overwrites the resource value.
func (r *ResMut[R]) Set(v R) { *r.v = v }

// OptRes is Res for resources that may legitimately be absent: a missing
// resource acquires successfully with Ok reporting false.
type OptRes[R any] struct {
	inner Res[R]
	ok    bool
}

func (o *OptRes[R]) initParam(ctx context.Context, w *World, sys SystemID) error {
	return o.inner.initParam(ctx, w, sys)
}

func (o *OptRes[R]) appendAccess(qv *QueryValidator) { o.inner.appendAccess(qv) }

func (o *OptRes[R]) tryAcquire() acquireStatus {
	st := o.inner.tryAcquire()
	if st.kind == acquireMissing {
		o.ok = false
		return ready()
	}
	o.ok = st.kind == acquireReady
	return st
}

func (o *OptRes[R]) release() {
	o.inner.release()
	o.ok = false
}

func (o *OptRes[R]) readOnlyParam() bool { return true }

// Ok reports whether the resource existed at acquisition.
func (o *OptRes[R]) Ok() bool { return o.ok }

// Get returns a copy of the resource value; only valid when Ok.
func (o *OptRes[R]) Get() R { return o.inner.Get() }

// OptResMut is ResMut for resources that may legitimately be absent.
type OptResMut[R any] struct {
	inner ResMut[R]
	ok    bool
}

func (o *OptResMut[R]) initParam(ctx context.Context, w *World, sys SystemID) error {
	return o.inner.initParam(ctx, w, sys)
}

func (o *OptResMut[R]) appendAccess(qv *QueryValidator) { o.inner.appendAccess(qv) }

func (o *OptResMut[R]) tryAcquire() acquireStatus {
	st := o.inner.tryAcquire()
	if st.kind == acquireMissing {
		o.ok = false
		return ready()
	}
	o.ok = st.kind == acquireReady
	return st
}

func (o *OptResMut[R]) release() {
	o.inner.release()
	o.ok = false
}

func (o *OptResMut[R]) readOnlyParam() bool { return false }

// Ok reports whether the resource existed at acquisition.
func (o *OptResMut[R]) Ok() bool { return o.ok }

// Ptr returns the resource cell itself; only valid when Ok.
func (o *OptResMut[R]) Ptr() *R { return o.inner.Ptr() }
