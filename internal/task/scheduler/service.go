package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "farewatch/pkg/logx"
)

// ErrRunInProgress is returned by Trigger when the previous run of the same
// schedule has not finished yet.
var ErrRunInProgress = errors.New("previous run still in progress")

type Config struct {
	Timezone string // IANA TZ, e.g. "America/Sao_Paulo"
}

type Job func(ctx context.Context) error

// Trigger kinds reported by TriggerOf.
const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

type triggerKey struct{}

// TriggerOf reports what started the run executing under ctx.
func TriggerOf(ctx context.Context) string {
	if v, ok := ctx.Value(triggerKey{}).(string); ok {
		return v
	}
	return ""
}

func newParser() cron.Parser {
	// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// Validate reports whether raw is a schedule a Service can register.
func Validate(raw string) error {
	ps, err := ParseSchedule(raw)
	if err != nil {
		return err
	}
	if _, err := newParser().Parse(ps.CronSpec()); err != nil {
		return fmt.Errorf("invalid cron %q: %w", ps.CronSpec(), err)
	}
	return nil
}

// RunState guards a schedule against overlapping executions.
type RunState struct {
	running atomic.Bool
}

func (s *RunState) tryAcquire() bool { return s.running.CompareAndSwap(false, true) }
func (s *RunState) release()         { s.running.Store(false) }

// Running reports whether a run is currently executing.
func (s *RunState) Running() bool { return s.running.Load() }

type scheduleDef struct {
	name    string
	spec    string
	timeout time.Duration
	job     Job
	entryID cron.EntryID
	state   *RunState

	runs    atomic.Uint64
	skipped atomic.Uint64
	failed  atomic.Uint64
}

type ScheduleInfo struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
	Running bool
	Runs    uint64
	Skipped uint64
	Failed  uint64
}

type Service struct {
	mu sync.Mutex

	log    logx.Logger
	cfg    Config
	loc    *time.Location
	parser cron.Parser
	c      *cron.Cron
	base   context.Context
	defs   map[string]*scheduleDef
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		log:    log,
		parser: newParser(),
		base:   context.Background(),
		defs:   map[string]*scheduleDef{},
	}
}

// Add registers (or replaces, by name) a scheduled job.
func (s *Service) Add(name, schedule string, timeout time.Duration, job Job) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name required")
	}
	if job == nil {
		return errors.New("job required")
	}
	ps, err := ParseSchedule(schedule)
	if err != nil {
		return err
	}
	spec := ps.CronSpec()
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("invalid cron %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := &scheduleDef{name: name, spec: spec, timeout: timeout, job: job, state: &RunState{}}
	if old, ok := s.defs[name]; ok {
		// Keep the guard so a replaced schedule cannot overlap a run of
		// its previous definition.
		d.state = old.state
		if s.c != nil {
			s.c.Remove(old.entryID)
		}
	}
	s.defs[name] = d
	if s.c != nil {
		d.entryID = s.c.Schedule(sched, s.cronJob(d))
		s.log.Info("schedule registered", logx.String("name", name), logx.String("spec", spec), logx.String("next", s.previewLocked(sched, 3)))
	}
	return nil
}

// Remove unregisters a schedule. A run already in flight is not interrupted.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.defs[name]
	if !ok {
		return false
	}
	if s.c != nil {
		s.c.Remove(d.entryID)
	}
	delete(s.defs, name)
	return true
}

// Start starts cron triggering. Runs derive their context from ctx.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	if ctx != nil {
		s.base = ctx
	}
	s.loc = s.loadLocationLocked()
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	for _, d := range s.defs {
		sched, err := s.parser.Parse(d.spec)
		if err != nil {
			s.log.Error("schedule register failed", logx.String("name", d.name), logx.String("spec", d.spec), logx.Err(err))
			continue
		}
		d.entryID = s.c.Schedule(sched, s.cronJob(d))
		s.log.Info("schedule registered", logx.String("name", d.name), logx.String("spec", d.spec), logx.String("next", s.previewLocked(sched, 3)))
	}
	s.c.Start()
	s.log.Info("service started", logx.String("tz", s.loc.String()), logx.Int("schedules", len(s.defs)))
}

// Stop stops triggering and waits for in-flight runs until ctx expires.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("stop timed out waiting for running jobs")
	}
	s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
}

// Trigger runs a registered schedule immediately, on the caller's
// goroutine, through the same overlap guard and timeout as cron triggers.
func (s *Service) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	d, ok := s.defs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("schedule %q not found", name)
	}
	return s.run(ctx, d, TriggerManual)
}

// Snapshot lists registered schedules sorted by name.
func (s *Service) Snapshot() []ScheduleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduleInfo, 0, len(s.defs))
	for _, d := range s.defs {
		info := ScheduleInfo{
			Name:    d.name,
			Spec:    d.spec,
			Timeout: d.timeout,
			Running: d.state.Running(),
			Runs:    d.runs.Load(),
			Skipped: d.skipped.Load(),
			Failed:  d.failed.Load(),
		}
		if s.c != nil {
			e := s.c.Entry(d.entryID)
			info.Next, info.Prev = e.Next, e.Prev
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Next previews the next n trigger times of a registered schedule in the
// service timezone.
func (s *Service) Next(name string, n int) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.defs[name]
	if !ok {
		return nil, fmt.Errorf("schedule %q not found", name)
	}
	sched, err := s.parser.Parse(d.spec)
	if err != nil {
		return nil, err
	}
	loc := s.loc
	if loc == nil {
		loc = s.loadLocationLocked()
	}
	out := make([]time.Time, 0, n)
	t := time.Now().In(loc)
	for i := 0; i < n; i++ {
		if t = sched.Next(t); t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Service) cronJob(d *scheduleDef) cron.Job {
	return cron.FuncJob(func() {
		s.mu.Lock()
		base := s.base
		s.mu.Unlock()
		_ = s.run(base, d, TriggerCron)
	})
}

func (s *Service) run(parent context.Context, d *scheduleDef, trigger string) (err error) {
	if !d.state.tryAcquire() {
		d.skipped.Add(1)
		s.log.Warn("run skipped", logx.String("name", d.name), logx.String("reason", ErrRunInProgress.Error()))
		return ErrRunInProgress
	}
	defer d.state.release()

	ctx := parent
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, triggerKey{}, trigger)
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.log.Error("run panicked", logx.String("name", d.name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
		d.runs.Add(1)
		if err != nil {
			d.failed.Add(1)
		}
	}()

	s.log.Debug("run started", logx.String("name", d.name))
	err = d.job(ctx)
	if err != nil {
		s.log.Warn("run failed", logx.String("name", d.name), logx.Duration("took", time.Since(start)), logx.Err(err))
		return err
	}
	s.log.Debug("run finished", logx.String("name", d.name), logx.Duration("took", time.Since(start)))
	return nil
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; using local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

func (s *Service) previewLocked(sched cron.Schedule, n int) string {
	loc := s.loc
	if loc == nil {
		loc = time.Local
	}
	t := time.Now().In(loc)
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		parts = append(parts, t.Format("2006-01-02 15:04"))
	}
	return strings.Join(parts, ", ")
}
