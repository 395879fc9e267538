package axle

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type Counter struct {
	A, B int
}

func TestAliasingSystemPanicsAtAdaptation(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected adaptation panic for &mut C aliasing &C")
		}
		msg, _ := r.(string)
		if !strings.Contains(msg, "Health") {
			t.Errorf("diagnostic %q does not name Health", msg)
		}
	}()
	NewSystem(func(a *View[Mut[Health]], b *View[Ref[Health]]) {})
}

func TestResAndResMut(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	if err := InsertResource(ctx, w, Counter{A: 1, B: 1}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	err := w.RunSystem(ctx, func(r *ResMut[Counter]) {
		r.Ptr().A += 10
		r.Ptr().B += 10
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var got Counter
	_ = w.RunSystem(ctx, func(r *Res[Counter]) {
		got = r.Get()
	})
	if got.A != 11 || got.B != 11 {
		t.Errorf("expected {11 11}, got %+v", got)
	}
}

func TestMissingResourcePanics(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for missing required resource")
		}
		msg, _ := r.(string)
		if !strings.Contains(msg, "Counter") {
			t.Errorf("diagnostic %q does not name the missing type", msg)
		}
	}()
	_ = w.RunSystem(ctx, func(r *Res[Counter]) {})
}

func TestOptResAbsorbsMissing(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	sawMissing := false
	err := w.RunSystem(ctx, func(r *OptRes[Counter]) {
		sawMissing = !r.Ok()
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !sawMissing {
		t.Error("OptRes must acquire with Ok()==false when absent")
	}

	_ = InsertResource(ctx, w, Counter{A: 5})
	var got int
	_ = w.RunSystem(ctx, func(r *OptRes[Counter]) {
		if r.Ok() {
			got = r.Get().A
		}
	})
	if got != 5 {
		t.Errorf("OptRes must see the inserted resource, got %d", got)
	}
}

func TestConcurrentReadersAndWriterNeverTear(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	w := NewWorld()
	_ = InsertResource(ctx, w, Counter{})

	writer := NewSystem(func(r *ResMut[Counter]) {
		c := r.Ptr()
		c.A++
		time.Sleep(50 * time.Microsecond)
		c.B++
	}).Named("writer")
	reader := NewSystem(func(r *Res[Counter]) error {
		c := r.Get()
		if c.A != c.B {
			t.Errorf("torn read: %+v", c)
		}
		return nil
	}).Named("reader")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 200 {
			if err := w.RunSystem(ctx, writer); err != nil {
				t.Errorf("writer: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			if err := w.RunSystem(ctx, reader); err != nil {
				t.Errorf("reader: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	var final Counter
	_ = w.RunSystem(ctx, func(r *Res[Counter]) { final = r.Get() })
	if final.A != 200 || final.B != 200 {
		t.Errorf("writer ran %d/%d times, want 200", final.A, final.B)
	}
}

func TestLocalPersistsAcrossInvocations(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	var seen []int
	sys := NewSystem(func(l *Local[int]) {
		l.Value++
		seen = append(seen, l.Value)
	})
	for range 3 {
		if err := w.RunSystem(ctx, sys); err != nil {
			t.Fatalf("run failed: %v", err)
		}
	}
	if len(seen) != 3 || seen[0] != 1 || seen[1] != 2 || seen[2] != 3 {
		t.Errorf("local state not persistent: %v", seen)
	}
}

func TestReadOnlyMarker(t *testing.T) {
	ro := NewSystem(func(v *View[Ref[Position]], r *Res[Counter]) {})
	if !ro.ReadOnly() {
		t.Error("all-shared system must be read-only")
	}
	rw := NewSystem(func(v *View[Mut[Position]]) {})
	if rw.ReadOnly() {
		t.Error("mutating system must not be read-only")
	}
}

func TestSystemWorldMismatch(t *testing.T) {
	ctx := context.Background()
	w1 := NewWorld()
	w2 := NewWorld()

	sys := NewSystem(func(l *Local[int]) {})
	if err := w1.RunSystem(ctx, sys); err != nil {
		t.Fatalf("first bind failed: %v", err)
	}
	if err := w2.RunSystem(ctx, sys); err == nil {
		t.Error("running a bound system against another world must fail")
	}
}

func TestScopedReacquires(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	_ = InsertResource(ctx, w, Counter{A: 1})

	err := w.RunSystem(ctx, func(s *Scoped[*ResMut[Counter]]) error {
		// The resource latch is free between With calls.
		if err := s.With(ctx, func(r *ResMut[Counter]) error {
			r.Ptr().A++
			return nil
		}); err != nil {
			return err
		}
		return s.With(ctx, func(r *ResMut[Counter]) error {
			r.Ptr().A++
			return nil
		})
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var got int
	_ = w.RunSystem(ctx, func(r *Res[Counter]) { got = r.Get().A })
	if got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

func TestScopedTryWithMissing(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	var gotErr error
	err := w.RunSystem(ctx, func(s *Scoped[*Res[Counter]]) {
		gotErr = s.TryWith(ctx, func(*Res[Counter]) error { return nil })
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if gotErr == nil || !strings.Contains(gotErr.Error(), "does not exist") {
		t.Errorf("expected does-not-exist error, got %v", gotErr)
	}
}
