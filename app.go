package axle

import (
	"context"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"
)

// AppExit is the status an application resolves to. The zero value is a
// clean exit; a non-nil Err marks a failed one.
type AppExit struct {
	Err error
}

// ExitSuccess is the clean exit status.
func ExitSuccess() AppExit { return AppExit{} }

// ExitFailure wraps an error into an exit status.
func ExitFailure(err error) AppExit { return AppExit{Err: err} }

// Ok reports whether the exit was clean.
func (e AppExit) Ok() bool { return e.Err == nil }

// Plugin is an installable unit of app configuration. Plugins are
// idempotent by type: installing the same plugin type twice panics.
type Plugin interface {
	Build(app *App)
}

// Runner drives a configured application to completion.
type Runner func(ctx context.Context, app *App) AppExit

// App is the primary API for assembling applications: install plugins, add
// systems under schedule labels, seed resources, then Run.
//
//	app := axle.NewApp()
//	app.AddPlugin(axle.CycleSchedulerPlugin{})
//	app.AddSystems(axle.Cycle{}, helloSystem)
//	status := app.Run(context.Background())
type App struct {
	installedPlugins  map[reflect.Type]struct{}
	insertedResources map[reflect.Type]struct{}
	runner            Runner
	schedules         *ScheduleStorage
	resources         []func(ctx context.Context, w *World) error
	worldOpts         WorldOptions
	ran               bool
}

// NewApp creates an empty App.
func NewApp() *App {
	return &App{
		installedPlugins: make(map[reflect.Type]struct{}),
		schedules:        NewScheduleStorage(),
	}
}

// WithWorldOptions sets the options the runner will build the world with.
func (a *App) WithWorldOptions(opts WorldOptions) *App {
	a.worldOpts = opts
	return a
}

// WithLogger sets the world logger.
func (a *App) WithLogger(logger zerolog.Logger) *App {
	a.worldOpts.Logger = &logger
	return a
}

// AddPlugin installs a plugin.
//
// Panics if a plugin of the same type has already been installed.
func (a *App) AddPlugin(p Plugin) *App {
	t := reflect.TypeOf(p)
	if _, dup := a.installedPlugins[t]; dup {
		panic(fmt.Sprintf("axle: app already has plugin %s installed", unqualifiedTypeName(t)))
	}
	a.installedPlugins[t] = struct{}{}
	p.Build(a)
	return a
}

// SetRunner sets the function called by Run. A standard runner is installed
// by CycleSchedulerPlugin.
//
// Panics if a runner has already been set.
func (a *App) SetRunner(r Runner) *App {
	if a.runner != nil {
		panic("axle: app already has a runner")
	}
	a.runner = r
	return a
}

// AddSystems adds systems to the application under a schedule label.
func (a *App) AddSystems(label ScheduleLabel, systems ...any) *App {
	for _, s := range systems {
		a.schedules.Add(label, s)
	}
	return a
}

// InsertResource seeds the world with a starting resource.
//
// Panics if a resource of the same type has already been inserted.
func (a *App) InsertResource(value any) *App {
	t := reflect.TypeOf(value)
	if _, dup := a.insertedResources[t]; dup {
		panic(fmt.Sprintf("axle: app already has resource %s inserted", unqualifiedTypeName(t)))
	}
	if a.insertedResources == nil {
		a.insertedResources = make(map[reflect.Type]struct{})
	}
	a.insertedResources[t] = struct{}{}
	// Boxed copy so resource queries can hand out stable pointers.
	boxed := reflect.New(t)
	boxed.Elem().Set(reflect.ValueOf(value))
	a.resources = append(a.resources, func(ctx context.Context, w *World) error {
		_, err := w.resources.set(ctx, t, boxed.Interface())
		return err
	})
	return a
}

// Schedules exposes the schedule storage; intended for runner functions.
func (a *App) Schedules() *ScheduleStorage { return a.schedules }

// BuildWorld constructs the application world and seeds it with the
// resources inserted so far. Intended for runner functions.
func (a *App) BuildWorld(ctx context.Context) (*World, error) {
	w := NewWorldWithOptions(a.worldOpts)
	for _, insert := range a.resources {
		if err := insert(ctx, w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Run drives the application to completion and returns its exit status.
//
// Panics if no runner has been set, or when called twice.
func (a *App) Run(ctx context.Context) AppExit {
	if a.runner == nil {
		panic("axle: app does not have a runner")
	}
	if a.ran {
		panic("axle: app has already been run")
	}
	a.ran = true
	return a.runner(ctx, a)
}
