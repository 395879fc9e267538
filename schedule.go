package axle

// scheduleEntry pairs a label value with the systems added under it, in
// addition order.
type scheduleEntry struct {
	label   ScheduleLabel
	systems []*SystemConfig
}

// ScheduleStorage holds every schedule of an application, ordered by first
// use of each label.
type ScheduleStorage struct {
	schedules []scheduleEntry
}

// NewScheduleStorage creates empty schedule storage.
func NewScheduleStorage() *ScheduleStorage {
	return &ScheduleStorage{}
}

// Add appends a system under a label. system may be a *SystemConfig or a
// raw function, which is adapted on the spot.
func (s *ScheduleStorage) Add(label ScheduleLabel, system any) {
	cfg := asSystem(system)
	for i := range s.schedules {
		if s.schedules[i].label == label {
			s.schedules[i].systems = append(s.schedules[i].systems, cfg)
			return
		}
	}
	s.schedules = append(s.schedules, scheduleEntry{label: label, systems: []*SystemConfig{cfg}})
}

// Get returns the systems scheduled under a label, in addition order.
func (s *ScheduleStorage) Get(label ScheduleLabel) []*SystemConfig {
	for i := range s.schedules {
		if s.schedules[i].label == label {
			return s.schedules[i].systems
		}
	}
	return nil
}
