package axle

import (
	"context"
	"errors"
	"os"
	"os/signal"
)

// ErrInterrupted is the exit error reported when the interrupt plugin
// observes a signal.
var ErrInterrupted = errors.New("axle: interrupted")

// CtrlCPlugin exits the application on an interrupt signal, with
// ErrInterrupted as the exit error. The
// signal subscription is scoped to the plugin instance, not the process, so
// independent apps do not share a flag.
type CtrlCPlugin struct {
	sigs chan os.Signal
}

// Build subscribes to interrupts and installs an Always system that turns
// the first observed signal into an exit-with-error.
func (p *CtrlCPlugin) Build(app *App) {
	p.sigs = make(chan os.Signal, 1)
	signal.Notify(p.sigs, os.Interrupt)
	app.AddSystems(Always{}, NewSystem(func(ctx context.Context, cmds *Commands) error {
		select {
		case <-p.sigs:
			cmds.TryExit(ExitFailure(ErrInterrupted))
		case <-ctx.Done():
		}
		return nil
	}).Named("ctrlc-watch"))
}
