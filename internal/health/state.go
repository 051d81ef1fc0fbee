package health

import (
	"sync"
	"time"

	"farewatch/internal/task/scheduler"
)

// RunSummary is the part of a pipeline run exposed on /healthz.
type RunSummary struct {
	ID       string    `json:"id"`
	Trigger  string    `json:"trigger"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Offers   int       `json:"offers"`
	Sent     int       `json:"sent"`
	Failures int       `json:"failures"`
}

// Schedules lists registered schedules.
type Schedules interface {
	Snapshot() []scheduler.ScheduleInfo
}

// State is the shared liveness state. It is safe for concurrent use.
type State struct {
	mu      sync.RWMutex
	started time.Time
	last    *RunSummary
	sched   Schedules
	now     func() time.Time
}

func NewState(sched Schedules) *State {
	return &State{started: time.Now(), sched: sched, now: time.Now}
}

// Observe records the latest finished run.
func (s *State) Observe(r RunSummary) {
	s.mu.Lock()
	s.last = &r
	s.mu.Unlock()
}

type scheduleStatus struct {
	Name    string    `json:"name"`
	Spec    string    `json:"spec"`
	Next    time.Time `json:"next,omitzero"`
	Prev    time.Time `json:"prev,omitzero"`
	Running bool      `json:"running"`
	Runs    uint64    `json:"runs"`
	Skipped uint64    `json:"skipped"`
	Failed  uint64    `json:"failed"`
}

type Status struct {
	Status    string           `json:"status"`
	Uptime    string           `json:"uptime"`
	LastRun   *RunSummary      `json:"last_run,omitempty"`
	Schedules []scheduleStatus `json:"schedules"`
}

// Snapshot builds the /healthz body. Status is "degraded" when the last run
// recorded failures and sent nothing.
func (s *State) Snapshot() Status {
	s.mu.RLock()
	var last *RunSummary
	if s.last != nil {
		cp := *s.last
		last = &cp
	}
	s.mu.RUnlock()

	st := Status{
		Status:    "ok",
		Uptime:    s.now().Sub(s.started).Round(time.Second).String(),
		LastRun:   last,
		Schedules: []scheduleStatus{},
	}
	if last != nil && last.Failures > 0 && last.Sent == 0 {
		st.Status = "degraded"
	}
	if s.sched != nil {
		for _, info := range s.sched.Snapshot() {
			st.Schedules = append(st.Schedules, scheduleStatus{
				Name:    info.Name,
				Spec:    info.Spec,
				Next:    info.Next,
				Prev:    info.Prev,
				Running: info.Running,
				Runs:    info.Runs,
				Skipped: info.Skipped,
				Failed:  info.Failed,
			})
		}
	}
	return st
}
