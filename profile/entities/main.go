// Profiling harness for spawn/despawn throughput:
//
//	go build ./profile/entities
//	./entities
//	go tool pprof -http=":8000" ./entities cpu.pprof
package main

import (
	"context"

	"github.com/pkg/profile"

	"github.com/axleworks/axle"
)

type position struct {
	X, Y float64
}

type velocity struct {
	DX, DY float64
}

func main() {
	defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()

	const rounds = 50
	const entities = 100_000
	ctx := context.Background()

	for range rounds {
		w := axle.NewWorldWithOptions(axle.WorldOptions{InitialCapacity: entities})
		spawned := make([]axle.Entity, 0, entities)
		for i := 0; i < entities; i++ {
			e, err := axle.Spawn2(ctx, w, position{X: float64(i)}, velocity{DX: 1})
			if err != nil {
				panic(err)
			}
			spawned = append(spawned, e)
		}
		for _, e := range spawned {
			if _, err := w.Despawn(ctx, e); err != nil {
				panic(err)
			}
		}
	}
}
