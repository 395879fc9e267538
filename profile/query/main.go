// Profiling harness for view iteration:
//
//	go build ./profile/query
//	./query
//	go tool pprof -http=":8000" ./query mem.pprof
package main

import (
	"context"

	"github.com/pkg/profile"

	"github.com/axleworks/axle"
)

type comp1 struct{ V, W int64 }
type comp2 struct{ V, W int64 }

func main() {
	defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()

	const iters = 10_000
	const entities = 100_000
	ctx := context.Background()

	w := axle.NewWorldWithOptions(axle.WorldOptions{InitialCapacity: entities})
	bundles := make([][]any, entities)
	for i := range bundles {
		bundles[i] = []any{comp1{V: int64(i)}, comp2{V: 1}}
	}
	if _, err := w.SpawnBatch(ctx, bundles...); err != nil {
		panic(err)
	}

	step := axle.NewSystem(func(ctx context.Context, v *axle.View2[axle.Mut[comp1], axle.Ref[comp2]]) {
		for v.Next() {
			a, b := v.Get()
			a.Ptr().V += b.Get().V
		}
	}).Named("step")

	for range iters {
		if err := w.RunSystem(ctx, step); err != nil {
			panic(err)
		}
	}
}
