package axle

// ScheduleLabel keys a schedule. The built-in labels anchor the lifecycle
// phases; any comparable user type carrying the marker method is an equally
// valid key, compared by interface equality rather than by type alone, so a
// label type with fields can fan out into several distinct schedules.
type ScheduleLabel interface {
	ScheduleLabel()
}

// Always systems run as detached loops for the entire application lifetime,
// across every phase.
type Always struct{}

func (Always) ScheduleLabel() {}

// PreStartup systems run once, before anything else.
type PreStartup struct{}

func (PreStartup) ScheduleLabel() {}

// Startup systems run once, after every PreStartup system has completed.
type Startup struct{}

func (Startup) ScheduleLabel() {}

// Cycle systems loop until the application begins exiting.
type Cycle struct{}

func (Cycle) ScheduleLabel() {}

// Shutdown systems run once, after the main phase has wound down.
type Shutdown struct{}

func (Shutdown) ScheduleLabel() {}

// PostShutdown systems run once, last.
type PostShutdown struct{}

func (PostShutdown) ScheduleLabel() {}
