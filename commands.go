package axle

import (
	"context"
)

// Command is one deferred world mutation.
type Command func(ctx context.Context, w *World) error

// commandQueue is the world-scoped FIFO of deferred mutations. Enqueue and
// drain each take the write latch briefly; execution happens outside the
// latch so commands are free to take world locks themselves.
type commandQueue struct {
	latch *Latch
	items []Command
}

func newCommandQueue(signal *notifier) *commandQueue {
	return &commandQueue{latch: newLatch(signal)}
}

func (q *commandQueue) push(ctx context.Context, cmd Command) error {
	if err := q.latch.Write(ctx); err != nil {
		return err
	}
	q.items = append(q.items, cmd)
	q.latch.WriteUnlock()
	return nil
}

// take removes and returns the queued commands. Commands pushed while a
// drain is executing land in the next take, never the current one.
func (q *commandQueue) take(ctx context.Context) ([]Command, error) {
	if err := q.latch.Write(ctx); err != nil {
		return nil, err
	}
	items := q.items
	q.items = nil
	q.latch.WriteUnlock()
	return items, nil
}

// DrainCommands runs every queued command in enqueue order. Failures are
// logged and do not stop the drain. Called by the system driver after each
// system run and by the scheduler between polls.
func (w *World) DrainCommands(ctx context.Context) error {
	cmds, err := w.commands.take(ctx)
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		if err := cmd(ctx, w); err != nil {
			w.logger.Error().Err(err).Msg("deferred command failed")
		}
	}
	return nil
}

// QueueCommand defers a world mutation until the next drain.
func (w *World) QueueCommand(ctx context.Context, cmd Command) error {
	return w.commands.push(ctx, cmd)
}

// Commands is the deferred-mutation endpoint available to systems. It is a
// message-passing handle, not a live borrow: mutations queued here are
// invisible to the issuing system's remaining body and applied after the
// system's locks are released.
type Commands struct {
	world *World
}

func (c *Commands) initParam(ctx context.Context, w *World, sys SystemID) error {
	c.world = w
	return nil
}

func (c *Commands) appendAccess(*QueryValidator) {}
func (c *Commands) tryAcquire() acquireStatus    { return ready() }
func (c *Commands) release()                     {}
func (c *Commands) readOnlyParam() bool          { return true }

// Queue defers an arbitrary world mutation.
func (c *Commands) Queue(ctx context.Context, cmd Command) error {
	return c.world.commands.push(ctx, cmd)
}

// Spawn defers creating an entity from the given components.
func (c *Commands) Spawn(ctx context.Context, components ...any) error {
	return c.Queue(ctx, func(ctx context.Context, w *World) error {
		_, err := w.Spawn(ctx, components...)
		return err
	})
}

// Despawn defers removing an entity.
func (c *Commands) Despawn(ctx context.Context, e Entity) error {
	return c.Queue(ctx, func(ctx context.Context, w *World) error {
		_, err := w.Despawn(ctx, e)
		return err
	})
}

// RunSystem defers a one-shot run of a system through the queue.
func (c *Commands) RunSystem(ctx context.Context, system any) error {
	return c.Queue(ctx, func(ctx context.Context, w *World) error {
		return w.RunSystem(ctx, system)
	})
}

// IsExiting reports whether the application is exiting.
func (c *Commands) IsExiting() bool { return c.world.IsExiting() }

// Exit signals the application to exit. Panics if it already is; see
// TryExit.
func (c *Commands) Exit(status AppExit) { c.world.Exit(status) }

// TryExit signals the application to exit, as a no-op when it already is.
func (c *Commands) TryExit(status AppExit) { c.world.TryExit(status) }
