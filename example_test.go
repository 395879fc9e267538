package axle_test

import (
	"context"
	"fmt"

	"github.com/axleworks/axle"
)

type Greeting struct {
	Who string
}

func Example() {
	app := axle.NewApp()
	app.AddPlugin(axle.CycleSchedulerPlugin{})
	app.InsertResource(Greeting{Who: "World"})
	app.AddSystems(axle.Cycle{}, axle.NewSystem(func(g *axle.Res[Greeting], cmds *axle.Commands) {
		fmt.Printf("Hello, %s!\n", g.Get().Who)
		cmds.TryExit(axle.ExitSuccess())
	}).Named("hello"))

	status := app.Run(context.Background())
	fmt.Println("ok:", status.Ok())
	// Output:
	// Hello, World!
	// ok: true
}
