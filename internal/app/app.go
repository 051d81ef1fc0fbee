package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"farewatch/internal/config"
	"farewatch/internal/flights"
	"farewatch/internal/health"
	"farewatch/internal/pipeline"
	"farewatch/internal/runtime/supervisor"
	"farewatch/internal/storage"
	"farewatch/internal/task/scheduler"
	telegram "farewatch/internal/transport/telegram/adapter"
	logx "farewatch/pkg/logx"
)

const (
	scheduleName      = "fares"
	defaultRunTimeout = 30 * time.Minute
)

type Options struct {
	ConfigPath string
	// EnvPath is an optional .env file loaded before secrets are read.
	EnvPath string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// Offline skips the Telegram token check at startup.
	Offline bool
}

type App struct {
	cfgm      *config.Manager
	secrets   config.Secrets
	log       logx.Logger
	logCloser io.Closer
	store     storage.Store

	sched    *scheduler.Service
	state    *health.State
	health   *health.Server
	notifier *health.Notifier

	pipe atomic.Pointer[pipeline.Pipeline]

	mu      sync.Mutex
	sup     *supervisor.Supervisor
	updates chan *config.Config
	last    pipeline.Report
}

// New loads secrets and config and builds every component. It fails fast on
// missing secrets or an invalid config; nothing is scheduled until Start.
func New(opts Options) (_ *App, err error) {
	if err := config.LoadEnvFile(opts.EnvPath); err != nil {
		return nil, err
	}
	secrets, err := config.SecretsFromEnv(opts.Getenv)
	if err != nil {
		return nil, err
	}

	cfgm := config.NewManager(opts.ConfigPath)
	cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(cfg, scheduler.Validate)
	})
	cfg, err := cfgm.Load(context.Background())
	if err != nil {
		return nil, err
	}

	log, closer, err := logx.New(mapLoggingConfig(cfg))
	if err != nil {
		return nil, err
	}
	a := &App{cfgm: cfgm, secrets: secrets, log: log, logCloser: closer}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	storeCfg, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	if enabled {
		if a.store, err = storage.Open(storeCfg, log.With(logx.String("comp", "storage"))); err != nil {
			return nil, err
		}
	}

	p, err := a.buildPipeline(cfg, opts.Offline)
	if err != nil {
		return nil, err
	}
	a.pipe.Store(p)

	a.sched = scheduler.New(scheduler.Config{Timezone: cfg.Timezone}, log.With(logx.String("comp", "scheduler")))
	a.state = health.NewState(a.sched)
	a.health = health.NewServer(a.state, log)
	a.notifier = health.NewNotifier(cfg.Health.Systemd, log)

	log.Info("farewatch configured",
		logx.String("config", cfgm.Path()),
		logx.String("schedule", cfg.Schedule),
		logx.String("strategy", cfg.Search.Strategy),
		logx.Int("routes", len(cfg.Routes)),
		logx.Bool("storage", a.store != nil),
	)
	return a, nil
}

func (a *App) Logger() logx.Logger { return a.log }

// LastReport returns the report of the most recent finished run.
func (a *App) LastReport() pipeline.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *App) buildPipeline(cfg *config.Config, offline bool) (*pipeline.Pipeline, error) {
	fc, err := mapProviderConfig(cfg, a.secrets)
	if err != nil {
		return nil, err
	}
	src, err := flights.New(fc)
	if err != nil {
		return nil, err
	}
	tc, err := mapTelegramConfig(cfg, a.secrets, offline)
	if err != nil {
		return nil, err
	}
	sender, err := telegram.New(tc, a.log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}
	pc, err := mapPipelineConfig(cfg, a.secrets)
	if err != nil {
		return nil, err
	}
	var opts []pipeline.Option
	if a.store != nil {
		opts = append(opts, pipeline.WithRecorder(a.store))
	}
	return pipeline.New(pc, src, sender, a.log.With(logx.String("comp", "pipeline")), opts...)
}

func (a *App) register(cfg *config.Config) error {
	timeout, err := config.ParseDurationOrDefault("run_timeout", cfg.RunTimeout, defaultRunTimeout)
	if err != nil {
		return err
	}
	return a.sched.Add(scheduleName, cfg.Schedule, timeout, a.job)
}

func (a *App) job(ctx context.Context) error {
	rep := a.pipe.Load().Run(ctx, scheduler.TriggerOf(ctx))

	a.mu.Lock()
	a.last = rep
	a.mu.Unlock()

	failures := len(rep.AllErrors())
	a.state.Observe(health.RunSummary{
		ID:       rep.RunID,
		Trigger:  rep.Trigger,
		Started:  rep.Started,
		Finished: rep.Finished,
		Offers:   rep.Offers(),
		Sent:     rep.Sent,
		Failures: failures,
	})
	a.notifier.Status(fmt.Sprintf("last run %s: %d offers, %d sent, %d failures",
		rep.Finished.Format(time.RFC3339), rep.Offers(), rep.Sent, failures))
	return ctx.Err()
}

// RunOnce runs the pipeline a single time on the caller's goroutine.
func (a *App) RunOnce(ctx context.Context) (pipeline.Report, error) {
	if err := a.register(a.cfgm.Get()); err != nil {
		return pipeline.Report{}, err
	}
	err := a.sched.Trigger(ctx, scheduleName)
	return a.LastReport(), err
}

// Start registers the schedule and starts the background loops.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sup != nil {
		return errors.New("app already started")
	}

	cfg := a.cfgm.Get()
	if err := a.register(cfg); err != nil {
		return err
	}
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	sctx := a.sup.Context()

	if err := a.health.Apply(sctx, cfg.Health.Addr, cfg.Health.Pprof); err != nil {
		a.sup.Cancel()
		a.sup = nil
		return err
	}
	a.sched.Start(sctx)

	updates := a.cfgm.Subscribe(8)
	a.updates = updates
	a.sup.GoRestart("config.watch", a.cfgm.Watch, time.Second, 30*time.Second)
	a.sup.Go0("config.reload", func(ctx context.Context) { a.reloadLoop(ctx, updates) })
	a.sup.Go0("systemd.watchdog", a.notifier.RunWatchdog)

	a.notifier.Ready()
	fields := []logx.Field{logx.String("health", a.health.Addr())}
	if next, err := a.sched.Next(scheduleName, 1); err == nil && len(next) > 0 {
		fields = append(fields, logx.Time("next_run", next[0]))
	}
	a.log.Info("farewatch started", fields...)
	return nil
}

// Done is closed once the background loops are shutting down, either because
// ctx ended or a supervised loop failed. It is nil before Start.
func (a *App) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sup == nil {
		return nil
	}
	return a.sup.Context().Done()
}

// Err returns the first background loop failure.
func (a *App) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Stop stops triggering, waits for an in-flight run and releases resources.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	sup := a.sup
	a.sup = nil
	updates := a.updates
	a.updates = nil
	a.mu.Unlock()

	a.notifier.Stopping()
	a.sched.Stop(ctx)
	a.health.Stop(ctx)

	var err error
	if sup != nil {
		a.log.Debug("stopping background loops", logx.Int64("goroutines", sup.Active()))
		err = sup.Stop(ctx)
	}
	if updates != nil {
		a.cfgm.Unsubscribe(updates)
	}
	a.closeResources()
	a.log.Info("farewatch stopped")
	return err
}

func (a *App) closeResources() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

func (a *App) reloadLoop(ctx context.Context, updates <-chan *config.Config) {
	current := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			// Coalesce bursts.
			for drained := false; !drained; {
				select {
				case next, ok := <-updates:
					if !ok {
						return
					}
					cfg = next
				default:
					drained = true
				}
			}
			a.apply(ctx, current, cfg)
			current = cfg
		}
	}
}

// apply swaps in a pipeline and schedule built from cfg. A config that
// cannot be built leaves the running pipeline untouched.
func (a *App) apply(ctx context.Context, old, cfg *config.Config) {
	p, err := a.buildPipeline(cfg, true)
	if err != nil {
		a.log.Warn("reload rejected; keeping current pipeline", logx.Err(err))
		return
	}
	if err := a.register(cfg); err != nil {
		a.log.Warn("reload rejected; keeping current schedule", logx.Err(err))
		return
	}
	a.pipe.Store(p)

	if err := a.health.Apply(ctx, cfg.Health.Addr, cfg.Health.Pprof); err != nil {
		a.log.Warn("health listener update failed", logx.Err(err))
	}

	changed, _ := config.SummarizeChange(old, cfg)
	for _, section := range changed {
		switch section {
		case "storage", "logging":
			a.log.Warn("config section changed; restart required", logx.String("section", section))
		case "health":
			if old.Health.Systemd != cfg.Health.Systemd {
				a.log.Warn("health.systemd changed; restart required")
			}
		}
	}
	if old.Timezone != cfg.Timezone {
		a.log.Warn("timezone changed; restart required for cron triggers", logx.String("timezone", cfg.Timezone))
	}
	a.log.Info("pipeline rebuilt", logx.String("schedule", cfg.Schedule), logx.Int("routes", len(cfg.Routes)))
}
