package axle

import (
	"context"
	"reflect"
)

// resourceCell holds one singleton value behind its own latch. Cells are
// created on first use and never removed; removing a resource clears the
// value, leaving the cell (and any state cached against it) valid.
type resourceCell struct {
	latch *Latch
	value any
}

// resourceStorage keys singletons by type. The registry latch guards the
// map; each cell's latch guards its value independently, so two systems
// touching different resources never contend.
type resourceStorage struct {
	registry *Latch
	signal   *notifier
	cells    map[reflect.Type]*resourceCell
}

func newResourceStorage(signal *notifier) *resourceStorage {
	return &resourceStorage{
		registry: newLatch(signal),
		signal:   signal,
		cells:    make(map[reflect.Type]*resourceCell, 16),
	}
}

// cell returns the cell for t, or nil when none was ever created.
func (s *resourceStorage) cell(ctx context.Context, t reflect.Type) (*resourceCell, error) {
	if err := s.registry.Read(ctx); err != nil {
		return nil, err
	}
	c := s.cells[t]
	s.registry.ReadUnlock()
	return c, nil
}

// tryCell is the non-blocking form of cell; ok is false when the registry is
// contended.
func (s *resourceStorage) tryCell(t reflect.Type) (c *resourceCell, ok bool) {
	if !s.registry.TryRead() {
		return nil, false
	}
	c = s.cells[t]
	s.registry.ReadUnlock()
	return c, true
}

// ensureCell returns the cell for t, creating it if needed.
func (s *resourceStorage) ensureCell(ctx context.Context, t reflect.Type) (*resourceCell, error) {
	if c, err := s.cell(ctx, t); c != nil || err != nil {
		return c, err
	}
	if err := s.registry.Write(ctx); err != nil {
		return nil, err
	}
	defer s.registry.WriteUnlock()
	if c, ok := s.cells[t]; ok {
		return c, nil
	}
	c := &resourceCell{latch: newLatch(s.signal)}
	s.cells[t] = c
	return c, nil
}

// set stores value (possibly nil) into t's cell and returns the old value.
func (s *resourceStorage) set(ctx context.Context, t reflect.Type, value any) (old any, err error) {
	c, err := s.ensureCell(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := c.latch.Write(ctx); err != nil {
		return nil, err
	}
	old = c.value
	c.value = value
	c.latch.WriteUnlock()
	return old, nil
}

// teardown disposes every remaining resource value that implements Disposer.
// Values are stored boxed behind pointers, so a pointer-receiver Dispose is
// always reachable.
func (s *resourceStorage) teardown(ctx context.Context) error {
	if err := s.registry.Write(ctx); err != nil {
		return err
	}
	defer s.registry.WriteUnlock()
	for _, c := range s.cells {
		if err := c.latch.Write(ctx); err != nil {
			return err
		}
		if d, ok := c.value.(Disposer); ok {
			d.Dispose()
		}
		c.value = nil
		c.latch.WriteUnlock()
	}
	return nil
}

// InsertResource stores a singleton, overwriting any previous value of the
// same type. Values are boxed, so resource queries hand out stable pointers
// to the stored value.
func InsertResource[R any](ctx context.Context, w *World, value R) error {
	boxed := new(R)
	*boxed = value
	_, err := w.resources.set(ctx, reflect.TypeFor[R](), boxed)
	return err
}

// ReplaceResource stores a singleton and returns the previous value of the
// same type, if one existed.
func ReplaceResource[R any](ctx context.Context, w *World, value R) (old R, existed bool, err error) {
	boxed := new(R)
	*boxed = value
	prev, err := w.resources.set(ctx, reflect.TypeFor[R](), boxed)
	if err != nil || prev == nil {
		var zero R
		return zero, false, err
	}
	return *prev.(*R), true, nil
}

// RemoveResource discards the singleton of type R, if present.
func RemoveResource[R any](ctx context.Context, w *World) error {
	_, err := w.resources.set(ctx, reflect.TypeFor[R](), nil)
	return err
}

// TakeResource removes and returns the singleton of type R. Ownership moves
// to the caller: the world will not Dispose a taken value.
func TakeResource[R any](ctx context.Context, w *World) (value R, existed bool, err error) {
	prev, err := w.resources.set(ctx, reflect.TypeFor[R](), nil)
	if err != nil || prev == nil {
		var zero R
		return zero, false, err
	}
	return *prev.(*R), true, nil
}

// GetResource copies the singleton of type R out under its read latch.
func GetResource[R any](ctx context.Context, w *World) (value R, existed bool, err error) {
	var zero R
	c, err := w.resources.cell(ctx, reflect.TypeFor[R]())
	if err != nil || c == nil {
		return zero, false, err
	}
	if err := c.latch.Read(ctx); err != nil {
		return zero, false, err
	}
	defer c.latch.ReadUnlock()
	if c.value == nil {
		return zero, false, nil
	}
	return *c.value.(*R), true, nil
}

// UpdateResource mutates the singleton of type R in place under its write
// latch, inserting the zero value first if absent.
func UpdateResource[R any](ctx context.Context, w *World, update func(*R)) error {
	c, err := w.resources.ensureCell(ctx, reflect.TypeFor[R]())
	if err != nil {
		return err
	}
	if err := c.latch.Write(ctx); err != nil {
		return err
	}
	defer c.latch.WriteUnlock()
	if c.value == nil {
		c.value = new(R)
	}
	update(c.value.(*R))
	return nil
}

// getResourceOrInsert returns t's value, write-locking its cell and
// populating it from mk when empty. Used by the event hub.
func (s *resourceStorage) getResourceOrInsert(ctx context.Context, t reflect.Type, mk func() any) (any, error) {
	c, err := s.ensureCell(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := c.latch.Write(ctx); err != nil {
		return nil, err
	}
	defer c.latch.WriteUnlock()
	if c.value == nil {
		c.value = mk()
	}
	return c.value, nil
}
