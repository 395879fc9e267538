package axle

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// World exit states.
const (
	exitNone    uint32 = iota // not exiting
	exitWriting               // exiting, status being written
	exitReady                 // exiting, status exists
	exitTaken                 // exiting, status taken
)

// WorldOptions provides configuration options for creating a new World.
type WorldOptions struct {
	// InitialCapacity is the per-archetype row capacity reserved up front.
	InitialCapacity int
	// Logger receives scheduler and command-drain diagnostics. Defaults to
	// a no-op logger.
	Logger *zerolog.Logger
}

const defaultInitialCapacity = 1024

// World is the concurrent container of entities, resources and deferred
// commands, plus the application's exiting state. All mutation is guarded by
// latches; a World may be shared freely across goroutines.
type World struct {
	signal     *notifier
	registry   *componentRegistry
	archetypes *archetypeStorage
	resources  *resourceStorage
	commands   *commandQueue

	exitState  atomic.Uint32
	exitStatus AppExit
	exiting    chan struct{}

	ran          ranRegistry
	nextSystemID atomic.Uint64

	logger zerolog.Logger
}

// NewWorld creates a new World with default options.
func NewWorld() *World {
	return NewWorldWithOptions(WorldOptions{})
}

// NewWorldWithOptions creates a new World with the specified options.
func NewWorldWithOptions(opts WorldOptions) *World {
	capacity := defaultInitialCapacity
	if opts.InitialCapacity > 0 {
		capacity = opts.InitialCapacity
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	signal := newNotifier()
	w := &World{
		signal:     signal,
		registry:   newComponentRegistry(),
		archetypes: newArchetypeStorage(signal, capacity),
		exiting:    make(chan struct{}),
		logger:     logger,
	}
	w.resources = newResourceStorage(signal)
	w.commands = newCommandQueue(signal)
	w.ran.signal = signal
	return w
}

// Logger returns the world's logger.
func (w *World) Logger() *zerolog.Logger { return &w.logger }

// IsExiting reports whether the application has been signalled to exit.
func (w *World) IsExiting() bool {
	return w.exitState.Load() >= exitReady
}

// Exiting returns a channel closed once the application begins exiting.
func (w *World) Exiting() <-chan struct{} { return w.exiting }

// Exit signals that the application should begin exiting.
//
// Panics if the application is already exiting; see TryExit.
func (w *World) Exit(status AppExit) {
	if !w.exitState.CompareAndSwap(exitNone, exitWriting) {
		panic("axle: cannot exit already exiting app")
	}
	w.exitStatus = status
	w.exitState.Store(exitReady)
	close(w.exiting)
	w.signal.Broadcast()
}

// TryExit signals that the application should begin exiting. If it is
// already exiting, this is a no-op.
func (w *World) TryExit(status AppExit) {
	if !w.exitState.CompareAndSwap(exitNone, exitWriting) {
		return
	}
	w.exitStatus = status
	w.exitState.Store(exitReady)
	close(w.exiting)
	w.signal.Broadcast()
}

// TakeExitStatus removes and returns the exit status.
//
// Panics if the application is not exiting or the status was already taken.
func (w *World) TakeExitStatus() AppExit {
	if w.exitState.CompareAndSwap(exitReady, exitTaken) {
		return w.exitStatus
	}
	switch w.exitState.Load() {
	case exitTaken:
		panic("axle: exit status has already been taken")
	default:
		panic("axle: cannot take exit status while app is not exiting")
	}
}

// Close tears down every archetype and resource cell, disposing exactly the
// live component and resource values. The world must be quiescent: no system
// may hold or be acquiring a view.
func (w *World) Close(ctx context.Context) error {
	if err := w.archetypes.teardown(ctx); err != nil {
		return err
	}
	return w.resources.teardown(ctx)
}

// ranRegistry records how many times each system has completed. DependsOn
// gates read it: iteration N of a system proceeds once every Cycle
// dependency's count has reached N and every other dependency's count has
// reached one.
type ranRegistry struct {
	mu     sync.Mutex
	counts map[SystemID]uint64
	signal *notifier
}

func (r *ranRegistry) record(id SystemID) {
	r.mu.Lock()
	if r.counts == nil {
		r.counts = make(map[SystemID]uint64)
	}
	r.counts[id]++
	r.mu.Unlock()
	r.signal.Broadcast()
}

func (r *ranRegistry) count(id SystemID) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id]
}
