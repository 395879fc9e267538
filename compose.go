package axle

import (
	"context"
	"fmt"
	"reflect"

	"golang.org/x/sync/errgroup"
)

// Pipe composes two systems so that a's return value becomes b's In input.
// The pair's validators are joined, so the combined unit obeys the same
// aliasing rules as a single system; a violation panics here, naming the
// conflicting types.
func Pipe(a, b any) *SystemConfig {
	sa, sb := asSystem(a), asSystem(b)
	if sb.kind == kindFunc && sb.inIdx < 0 {
		panic(fmt.Sprintf("axle: pipe target %s declares no In parameter", sb.name))
	}
	s := &SystemConfig{
		kind: kindPiped,
		name: sa.name + "|" + sb.name,
		a:    sa,
		b:    sb,
	}
	s.access().PanicOnViolation()
	return s
}

// MapSystem composes a system with a pure function applied to its return
// value. fn must be func(T) U for a's return type T; it declares no queries.
func MapSystem(a any, fn any) *SystemConfig {
	sa := asSystem(a)
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func || t.NumIn() != 1 || t.NumOut() != 1 {
		panic(fmt.Sprintf("axle: MapSystem requires func(T) U, got %s", t))
	}
	return &SystemConfig{
		kind:  kindMapped,
		name:  sa.name + ">>" + funcName(v),
		a:     sa,
		mapFn: v,
	}
}

// Series composes two systems to run one after the other. Each half
// acquires and releases on its own, so their access sets may overlap.
func Series(a, b any) *SystemConfig {
	sa, sb := asSystem(a), asSystem(b)
	return &SystemConfig{
		kind: kindSeries,
		name: sa.name + ";" + sb.name,
		a:    sa,
		b:    sb,
	}
}

// Parallel composes two systems to run concurrently. Their validators are
// joined: because both halves hold their queries at the same time, an
// overlap that would be fine sequentially panics here.
func Parallel(a, b any) *SystemConfig {
	sa, sb := asSystem(a), asSystem(b)
	s := &SystemConfig{
		kind: kindParallel,
		name: sa.name + "+" + sb.name,
		a:    sa,
		b:    sb,
	}
	s.access().PanicOnViolation()
	return s
}

// Pass binds a fixed input value to a system taking In[T]. The value is
// reused on every invocation, so it should be a value type or otherwise
// safe to share.
func Pass(system any, value any) *SystemConfig {
	sa := asSystem(system)
	if sa.kind == kindFunc && sa.inIdx < 0 {
		panic(fmt.Sprintf("axle: pass target %s declares no In parameter", sa.name))
	}
	return &SystemConfig{
		kind:    kindPassed,
		name:    sa.name,
		a:       sa,
		passVal: value,
	}
}

func (s *SystemConfig) runParallel(ctx context.Context, passed any) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.a.acquireAndRun(ctx, passed)
		return err
	})
	g.Go(func() error {
		_, err := s.b.acquireAndRun(ctx, passed)
		return err
	})
	return g.Wait()
}
