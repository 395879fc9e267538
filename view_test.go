package axle

import (
	"context"
	"reflect"
	"testing"
)

func TestViewIterationAndMutation(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	for i := 0; i < 4; i++ {
		_, _ = w.Spawn(ctx, Position{X: float32(i)}, Velocity{DX: 1})
	}
	// An entity without Velocity is outside the view's signature.
	_, _ = w.Spawn(ctx, Position{X: 100})

	err := w.RunSystem(ctx, func(v *View2[Mut[Position], Ref[Velocity]]) {
		for v.Next() {
			pos, vel := v.Get()
			pos.Ptr().X += vel.Get().DX
		}
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var got []float32
	_ = w.RunSystem(ctx, func(v *View2[Ref[Position], Ref[Velocity]]) {
		for v.Next() {
			p, _ := v.Get()
			got = append(got, p.Get().X)
		}
	})
	want := []float32{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %d entities, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestViewSkipsDespawnedRows(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	_, _ = w.Spawn(ctx, Position{X: 0}, Velocity{})
	e1, _ := w.Spawn(ctx, Position{X: 1}, Velocity{})
	_, _ = w.Spawn(ctx, Position{X: 2}, Velocity{})
	_, _ = w.Despawn(ctx, e1)

	var got []float32
	_ = w.RunSystem(ctx, func(v *View[Ref[Position]]) {
		for v.Next() {
			got = append(got, v.Get().Get().X)
		}
	})
	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("expected [0 2], got %v", got)
	}
}

func TestViewEntityHandles(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	spawned := make(map[Entity]bool)
	for i := 0; i < 3; i++ {
		e, _ := w.Spawn(ctx, Health{HP: i})
		spawned[e] = true
	}

	_ = w.RunSystem(ctx, func(v *View[Ref[Health]]) {
		for v.Next() {
			if !spawned[v.Entity()] {
				t.Errorf("view yielded unknown entity %+v", v.Entity())
			}
		}
	})
}

func TestViewCacheSeesNewArchetypes(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	_, _ = w.Spawn(ctx, Position{X: 1})

	// One system, so the second run reuses the view's cached snapshot.
	n := 0
	sys := NewSystem(func(v *View[Ref[Position]]) {
		for v.Next() {
			n++
		}
	})
	count := func() int {
		n = 0
		_ = w.RunSystem(ctx, sys)
		return n
	}
	if got := count(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}

	// A second archetype carrying Position appears after the first scan.
	_, _ = w.Spawn(ctx, Position{X: 2}, Velocity{})
	if got := count(); got != 2 {
		t.Errorf("view cache missed a new archetype: got %d, want 2", got)
	}
}

func TestViewRestartable(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	_, _ = w.Spawn(ctx, Health{HP: 1})
	_, _ = w.Spawn(ctx, Health{HP: 2})

	_ = w.RunSystem(ctx, func(v *View[Ref[Health]]) {
		first, second := 0, 0
		for v.Next() {
			first++
		}
		v.Reset()
		for v.Next() {
			second++
		}
		if first != 2 || second != 2 {
			t.Errorf("restartable iteration broken: %d then %d", first, second)
		}
	})
}

func TestFilteredViews(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()

	_, _ = w.Spawn(ctx, Position{X: 1})
	_, _ = w.Spawn(ctx, Position{X: 2}, Velocity{})
	_, _ = w.Spawn(ctx, Position{X: 3}, Velocity{}, Health{})

	var withVel []float32
	_ = w.RunSystem(ctx, func(v *ViewF[Ref[Position], With[Velocity]]) {
		for v.Next() {
			withVel = append(withVel, v.Get().Get().X)
		}
	})
	if len(withVel) != 2 {
		t.Errorf("With[Velocity]: got %v", withVel)
	}

	var bare []float32
	_ = w.RunSystem(ctx, func(v *ViewF[Ref[Position], Without[Velocity]]) {
		for v.Next() {
			bare = append(bare, v.Get().Get().X)
		}
	})
	if len(bare) != 1 || bare[0] != 1 {
		t.Errorf("Without[Velocity]: got %v", bare)
	}

	var velNoHealth []float32
	_ = w.RunSystem(ctx, func(v *ViewF[Ref[Position], And[With[Velocity], Not[With[Health]]]]) {
		for v.Next() {
			velNoHealth = append(velNoHealth, v.Get().Get().X)
		}
	})
	if len(velNoHealth) != 1 || velNoHealth[0] != 2 {
		t.Errorf("And/Not: got %v", velNoHealth)
	}

	var none []float32
	_ = w.RunSystem(ctx, func(v *ViewF[Ref[Position], FalseF]) {
		for v.Next() {
			none = append(none, v.Get().Get().X)
		}
	})
	if len(none) != 0 {
		t.Errorf("FalseF admitted rows: %v", none)
	}
}

func TestFilterAlgebra(t *testing.T) {
	w := NewWorld()
	vel := w.registry.register(reflect.TypeFor[Velocity]())
	var withVelMask mask
	withVelMask.set(vel)
	var emptyMask mask

	cases := []struct {
		name string
		f    Filter
		m    mask
		want bool
	}{
		{"true", TrueF{}, emptyMask, true},
		{"false", FalseF{}, emptyMask, false},
		{"with hit", With[Velocity]{}, withVelMask, true},
		{"with miss", With[Velocity]{}, emptyMask, false},
		{"without hit", Without[Velocity]{}, emptyMask, true},
		{"not", Not[TrueF]{}, emptyMask, false},
		{"or", Or[FalseF, TrueF]{}, emptyMask, true},
		{"nor", Nor[FalseF, FalseF]{}, emptyMask, true},
		{"nand", Nand[TrueF, TrueF]{}, emptyMask, false},
		{"xor", Xor[TrueF, FalseF]{}, emptyMask, true},
		{"xnor", Xnor[TrueF, TrueF]{}, emptyMask, true},
	}
	for _, c := range cases {
		if got := c.f.admit(w.registry, c.m); got != c.want {
			t.Errorf("%s: admit = %v, want %v", c.name, got, c.want)
		}
	}
}
