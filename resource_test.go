package axle

import (
	"context"
	"testing"
)

type Settings struct {
	Volume int
}

type Handle struct {
	Closed  *bool
	pressed bool
}

func (h *Handle) Dispose() {
	*h.Closed = true
	_ = h.pressed
}

func TestResourceLifecycle(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	if _, ok, _ := GetResource[Settings](ctx, w); ok {
		t.Fatal("fresh world must have no Settings")
	}

	if err := InsertResource(ctx, w, Settings{Volume: 3}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	got, ok, _ := GetResource[Settings](ctx, w)
	if !ok || got.Volume != 3 {
		t.Fatalf("expected volume 3, got %+v ok=%v", got, ok)
	}

	old, existed, _ := ReplaceResource(ctx, w, Settings{Volume: 7})
	if !existed || old.Volume != 3 {
		t.Errorf("replace must return the old value, got %+v existed=%v", old, existed)
	}

	taken, existed, _ := TakeResource[Settings](ctx, w)
	if !existed || taken.Volume != 7 {
		t.Errorf("take must return the current value, got %+v existed=%v", taken, existed)
	}
	if _, ok, _ := GetResource[Settings](ctx, w); ok {
		t.Error("taken resource must be gone")
	}
}

func TestUpdateResource(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	// Update inserts the zero value when absent.
	err := UpdateResource(ctx, w, func(s *Settings) { s.Volume += 2 })
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	_ = UpdateResource(ctx, w, func(s *Settings) { s.Volume += 2 })
	got, ok, _ := GetResource[Settings](ctx, w)
	if !ok || got.Volume != 4 {
		t.Errorf("expected volume 4, got %+v", got)
	}
}

func TestResourceDisposedOnClose(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	closed := false
	if err := InsertResource(ctx, w, Handle{Closed: &closed}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !closed {
		t.Error("resource Dispose must run at world close")
	}
}

func TestTakenResourceNotDisposed(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	closed := false
	_ = InsertResource(ctx, w, Handle{Closed: &closed})
	if _, existed, _ := TakeResource[Handle](ctx, w); !existed {
		t.Fatal("take failed")
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed {
		t.Error("ownership moved to the caller; Close must not dispose")
	}
}

func TestRemoveResourceThenOptRes(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	_ = InsertResource(ctx, w, Settings{Volume: 1})
	if err := RemoveResource[Settings](ctx, w); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	// The emptied cell still satisfies cached resource queries as absent.
	sawMissing := false
	_ = w.RunSystem(ctx, func(r *OptRes[Settings]) {
		sawMissing = !r.Ok()
	})
	if !sawMissing {
		t.Error("removed resource must acquire as absent")
	}
}
