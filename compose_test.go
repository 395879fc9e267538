package axle

import (
	"context"
	"testing"
)

func TestPipe(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	produce := NewSystem(func() int { return 21 }).Named("produce")
	var got int
	consume := NewSystem(func(in In[int]) {
		got = in.Value * 2
	}).Named("consume")

	if err := w.RunSystem(ctx, Pipe(produce, consume)); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestPipeRequiresInParameter(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("piping into a system without In must panic")
		}
	}()
	Pipe(NewSystem(func() int { return 1 }), NewSystem(func() {}))
}

func TestPipeJoinsValidators(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("piped pair with aliasing borrows must panic")
		}
	}()
	a := NewSystem(func(v *View[Mut[Health]]) int { return 0 })
	b := NewSystem(func(in In[int], v *View[Ref[Health]]) {})
	Pipe(a, b)
}

func TestMapSystem(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	sys := MapSystem(NewSystem(func() int { return 7 }), func(n int) string {
		if n == 7 {
			return "seven"
		}
		return "other"
	})
	if err := sys.bind(ctx, w); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	out, err := sys.acquireAndRun(ctx, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "seven" {
		t.Errorf("expected %q, got %v", "seven", out)
	}
}

func TestSeriesOrder(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	var order []string
	first := NewSystem(func() { order = append(order, "a") })
	second := NewSystem(func() { order = append(order, "b") })

	if err := w.RunSystem(ctx, Series(first, second)); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("series ran out of order: %v", order)
	}
}

func TestSeriesAllowsOverlappingAccess(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	_ = InsertResource(ctx, w, Counter{})

	// Both halves mutate the same resource; sequential execution makes
	// that legal where Parallel would reject it.
	bump := func(r *ResMut[Counter]) { r.Ptr().A++ }
	if err := w.RunSystem(ctx, Series(NewSystem(bump), NewSystem(bump))); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var got int
	_ = w.RunSystem(ctx, func(r *Res[Counter]) { got = r.Get().A })
	if got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestParallelRunsBoth(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	_ = InsertResource(ctx, w, Counter{})

	a := NewSystem(func(r *ResMut[Counter]) { r.Ptr().A++ }).Named("a")
	b := NewSystem(func(v *View[Ref[Position]]) {}).Named("b")
	if err := w.RunSystem(ctx, Parallel(a, b)); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var got int
	_ = w.RunSystem(ctx, func(r *Res[Counter]) { got = r.Get().A })
	if got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}

func TestParallelRejectsConflict(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("parallel systems sharing a mutable claim must panic")
		}
	}()
	a := NewSystem(func(r *ResMut[Counter]) {})
	b := NewSystem(func(r *Res[Counter]) {})
	Parallel(a, b)
}

func TestPass(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	var got string
	sys := Pass(NewSystem(func(in In[string]) { got = in.Value }), "hello")
	if err := w.RunSystem(ctx, sys); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
}
