package axle

import (
	"context"
	"errors"
	"sync"
)

// CycleSchedulerPlugin installs the standard phase-driven runner:
//
//	Always systems loop detached for the whole run. PreStartup systems run
//	first, to completion. Startup one-shots and Cycle loops then run
//	together until exit is signalled; Cycle systems re-run after every
//	completion. Shutdown systems start the moment exit is observed, and
//	PostShutdown systems run once everything but Always has wound down.
type CycleSchedulerPlugin struct{}

// Build sets the cycle scheduler as the app's runner.
func (CycleSchedulerPlugin) Build(app *App) {
	app.SetRunner(RunCycleScheduler)
}

// RunCycleScheduler builds the world from the app and drives its schedules
// through the lifecycle phases, resolving to the world's exit status.
func RunCycleScheduler(ctx context.Context, app *App) AppExit {
	world, err := app.BuildWorld(ctx)
	if err != nil {
		return ExitFailure(err)
	}
	return runSchedules(ctx, world, app.Schedules())
}

// runSchedules is the phase state machine, usable directly against a world
// for embedders that bypass App.
func runSchedules(ctx context.Context, w *World, schedules *ScheduleStorage) AppExit {
	logger := w.Logger()

	// Cycle systems participate in per-iteration dependency ordering;
	// everything else is satisfied by a single completion.
	cycleSet := make(map[*SystemConfig]struct{})
	for _, s := range schedules.Get(Cycle{}) {
		cycleSet[s] = struct{}{}
	}
	sched := &scheduleRunner{world: w, cycleSet: cycleSet}

	// External cancellation becomes an exit signal so shutdown still runs.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			w.TryExit(ExitFailure(ctx.Err()))
		case <-watchDone:
		}
	}()
	defer close(watchDone)

	// Always systems detach for the entire run.
	alwaysCtx, cancelAlways := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelAlways()
	var alwaysWG sync.WaitGroup
	for _, s := range schedules.Get(Always{}) {
		if err := s.bind(ctx, w); err != nil {
			return ExitFailure(err)
		}
		alwaysWG.Add(1)
		go func(s *SystemConfig) {
			defer alwaysWG.Done()
			for iter := uint64(1); alwaysCtx.Err() == nil; iter++ {
				if err := sched.runOne(alwaysCtx, s, iter); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Str("system", s.name).Msg("always system failed")
				}
			}
		}(s)
	}

	logger.Debug().Msg("phase: pre-startup")
	sched.runPhase(ctx, schedules.Get(PreStartup{}))

	logger.Debug().Msg("phase: main")
	var mainWG sync.WaitGroup
	for _, s := range schedules.Get(Startup{}) {
		s := s
		if err := s.bind(ctx, w); err != nil {
			w.TryExit(ExitFailure(err))
			continue
		}
		mainWG.Add(1)
		go func() {
			defer mainWG.Done()
			sched.runReported(ctx, s, 1)
		}()
	}
	for _, s := range schedules.Get(Cycle{}) {
		s := s
		if err := s.bind(ctx, w); err != nil {
			w.TryExit(ExitFailure(err))
			continue
		}
		mainWG.Add(1)
		go func() {
			defer mainWG.Done()
			// Loop until exit: the check runs after every completion, so an
			// iteration that signals exit is the last one.
			for iter := uint64(1); !w.IsExiting(); iter++ {
				if err := sched.runReported(ctx, s, iter); err != nil {
					return
				}
			}
		}()
	}

	<-w.Exiting()

	// Shutdown systems start the moment exit is observed; the barrier below
	// also covers stragglers from the main phase.
	logger.Debug().Msg("phase: shutdown")
	var shutdownWG sync.WaitGroup
	shutdownCtx := context.WithoutCancel(ctx)
	for _, s := range schedules.Get(Shutdown{}) {
		s := s
		if err := s.bind(shutdownCtx, w); err != nil {
			logger.Error().Err(err).Str("system", s.name).Msg("shutdown system failed to bind")
			continue
		}
		shutdownWG.Add(1)
		go func() {
			defer shutdownWG.Done()
			sched.runReported(shutdownCtx, s, 1)
		}()
	}
	mainWG.Wait()
	shutdownWG.Wait()

	logger.Debug().Msg("phase: post-shutdown")
	sched.runPhase(shutdownCtx, schedules.Get(PostShutdown{}))

	cancelAlways()
	alwaysWG.Wait()

	if err := w.DrainCommands(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("final command drain failed")
	}
	return w.TakeExitStatus()
}

// scheduleRunner drives individual scheduled systems: dependency gating,
// run-if conditions, completion recording and command draining.
type scheduleRunner struct {
	world    *World
	cycleSet map[*SystemConfig]struct{}
}

// runPhase binds and runs a set of systems concurrently and waits for all
// of them. Failures are reported as exit signals, so a failing startup
// phase still winds down through shutdown.
func (r *scheduleRunner) runPhase(ctx context.Context, systems []*SystemConfig) {
	var wg sync.WaitGroup
	for _, s := range systems {
		s := s
		if err := s.bind(ctx, r.world); err != nil {
			r.world.TryExit(ExitFailure(err))
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.runReported(ctx, s, 1)
		}()
	}
	wg.Wait()
	// Residual drain at the phase barrier, for commands queued outside any
	// system run.
	if err := r.world.DrainCommands(ctx); err != nil {
		r.world.Logger().Error().Err(err).Msg("phase command drain failed")
	}
}

// runReported runs one scheduled invocation, translating failures into an
// exit-with-error signal.
func (r *scheduleRunner) runReported(ctx context.Context, s *SystemConfig, iter uint64) error {
	if err := r.runOne(ctx, s, iter); err != nil {
		if !errors.Is(err, context.Canceled) {
			r.world.Logger().Error().Err(err).Str("system", s.name).Msg("system failed")
			r.world.TryExit(ExitFailure(err))
		}
		return err
	}
	return nil
}

// runOne performs one scheduled invocation of a system: wait for declared
// dependencies, evaluate the run-if gate, run the body, record completion,
// drain deferred commands.
func (r *scheduleRunner) runOne(ctx context.Context, s *SystemConfig, iter uint64) error {
	if len(s.deps) > 0 {
		if err := r.awaitDeps(ctx, s, iter); err != nil {
			return err
		}
	}
	if s.runIf != nil {
		out, err := s.runIf.acquireAndRun(ctx, nil)
		if err != nil {
			return err
		}
		if ok, _ := out.(bool); !ok {
			// A skipped tick still counts as a completed invocation, so
			// dependants gated on this system are not starved by its gate.
			r.world.ran.record(s.id)
			return r.world.DrainCommands(ctx)
		}
	}
	if _, err := s.acquireAndRun(ctx, nil); err != nil {
		return err
	}
	r.world.ran.record(s.id)
	return r.world.DrainCommands(ctx)
}

// awaitDeps blocks until every dependency has completed enough runs for
// this invocation: iteration N of a cycle system requires N completions of
// its cycle dependencies, while non-cycle dependencies are satisfied by a
// single completion.
func (r *scheduleRunner) awaitDeps(ctx context.Context, s *SystemConfig, iter uint64) error {
	for {
		wake := r.world.signal.Wake()
		satisfied := true
		for _, dep := range s.deps {
			need := uint64(1)
			if _, cyclic := r.cycleSet[dep]; cyclic {
				need = iter
			}
			if r.world.ran.count(dep.id) < need {
				satisfied = false
				break
			}
		}
		if satisfied {
			return nil
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
