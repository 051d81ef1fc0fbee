package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"farewatch/internal/fare"
	"farewatch/internal/flights"
	"farewatch/internal/storage"
	"farewatch/internal/transport"
	logx "farewatch/pkg/logx"
)

type Strategy string

const (
	// StrategyJoint prices round trips from one calendar and resolves both
	// legs from one search.
	StrategyJoint Strategy = "joint"
	// StrategyPairedLegs prices each leg from its own one-way calendar and
	// pairs days tripDays apart.
	StrategyPairedLegs Strategy = "paired_legs"
)

type NotifyMode string

const (
	NotifyPerOffer NotifyMode = "per_offer"
	NotifyBatched  NotifyMode = "batched"
)

// Source is the flight provider.
type Source interface {
	Calendar(ctx context.Context, q flights.CalendarQuery) ([]fare.CalendarCandidate, error)
	Search(ctx context.Context, q flights.SearchQuery) (flights.SearchResult, error)
	Next(ctx context.Context, token string) (flights.SearchResult, error)
}

// Recorder receives the audit trail. It is optional.
type Recorder interface {
	AppendRun(ctx context.Context, r storage.RunRecord) error
	AppendDelivery(ctx context.Context, d storage.DeliveryRecord) error
}

type Config struct {
	Routes   []fare.Route
	Strategy Strategy
	Window   Window
	TripDays int

	// Threshold caps candidate prices in joint mode; LegThreshold caps
	// each leg in paired_legs mode.
	Threshold    decimal.Decimal
	LegThreshold decimal.Decimal

	Policy          fare.RoutingPolicy
	FollowReturnLeg bool

	Mode           NotifyMode
	Formatter      fare.Formatter
	Target         transport.ChatTarget
	DisablePreview bool

	// Location sets the run date used for relative windows.
	Location *time.Location
}

type Pipeline struct {
	cfg    Config
	src    Source
	sender transport.Sender
	rec    Recorder
	log    logx.Logger
	now    func() time.Time
}

type Option func(*Pipeline)

// WithRecorder attaches an audit recorder.
func WithRecorder(r Recorder) Option { return func(p *Pipeline) { p.rec = r } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

func New(cfg Config, src Source, sender transport.Sender, log logx.Logger, opts ...Option) (*Pipeline, error) {
	if src == nil {
		return nil, errors.New("pipeline: source is required")
	}
	if sender == nil {
		return nil, errors.New("pipeline: sender is required")
	}
	if len(cfg.Routes) == 0 {
		return nil, errors.New("pipeline: at least one route is required")
	}
	switch cfg.Strategy {
	case "":
		cfg.Strategy = StrategyJoint
	case StrategyJoint, StrategyPairedLegs:
	default:
		return nil, errors.New("pipeline: unknown strategy " + string(cfg.Strategy))
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = NotifyPerOffer
	case NotifyPerOffer, NotifyBatched:
	default:
		return nil, errors.New("pipeline: unknown notify mode " + string(cfg.Mode))
	}
	if cfg.Policy == nil {
		cfg.Policy = fare.DirectOnly{}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	p := &Pipeline{cfg: cfg, src: src, sender: sender, log: log, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// run carries per-run state through the stages.
type run struct {
	id      string
	log     logx.Logger
	report  *Report
	pending []fare.MatchedOffer
}

// Run executes one full check and returns its report. It only stops early
// when ctx is done.
func (p *Pipeline) Run(ctx context.Context, trigger string) Report {
	id := uuid.NewString()
	rep := Report{RunID: id, Trigger: trigger, Started: p.now()}
	r := &run{id: id, log: p.log.With(logx.String("run_id", id)), report: &rep}

	r.log.Info("run started",
		logx.String("trigger", trigger),
		logx.String("strategy", string(p.cfg.Strategy)),
		logx.Int("routes", len(p.cfg.Routes)),
	)

	start, end, err := p.cfg.Window.Resolve(p.now().In(p.cfg.Location))
	if err != nil {
		r.log.Error("invalid search window", logx.Err(err))
		rep.Errors = append(rep.Errors, err)
	} else {
		for _, route := range p.cfg.Routes {
			if ctx.Err() != nil {
				r.log.Warn("run cancelled", logx.Err(ctx.Err()))
				rep.Errors = append(rep.Errors, ctx.Err())
				break
			}
			rep.Routes = append(rep.Routes, p.checkRoute(ctx, r, route, start, end))
		}
	}

	if p.cfg.Mode == NotifyBatched {
		p.flushBatch(ctx, r)
	}

	rep.Finished = p.now()
	r.log.Info("run finished",
		logx.Int("candidates", rep.Candidates()),
		logx.Int("offers", rep.Offers()),
		logx.Int("sent", rep.Sent),
		logx.Int("failures", len(rep.AllErrors())),
		logx.Duration("took", rep.Finished.Sub(rep.Started)),
	)
	if p.rec != nil {
		if err := p.rec.AppendRun(context.WithoutCancel(ctx), rep.Record()); err != nil {
			r.log.Warn("run audit failed", logx.Err(err))
		}
	}
	return rep
}

func (p *Pipeline) checkRoute(ctx context.Context, r *run, route fare.Route, start, end string) RouteReport {
	rr := RouteReport{Route: route}
	log := r.log.With(logx.String("route", route.String()))
	log.Info("checking route",
		logx.String("destination", route.Name),
		logx.String("window", start+".."+end),
	)

	emit := func(offer fare.MatchedOffer) {
		rr.Offers++
		if p.cfg.Mode == NotifyBatched {
			r.pending = append(r.pending, offer)
			return
		}
		if err := p.deliver(ctx, r, log, p.cfg.Formatter.Format(offer), route.String(), offer.Candidate); err != nil {
			rr.Errors = append(rr.Errors, &fare.StageError{Route: route, Stage: fare.StageNotify, Date: offer.Candidate.Outbound, Err: err})
		}
	}
	if p.cfg.Strategy == StrategyPairedLegs {
		p.checkPairedLegs(ctx, log, &rr, route, start, end, emit)
	} else {
		p.checkJoint(ctx, log, &rr, route, start, end, emit)
	}
	return rr
}

// fail records a degraded call and logs it with its stage.
func fail(log logx.Logger, rr *RouteReport, err error) {
	fields := []logx.Field{logx.Err(err)}
	var se *fare.StageError
	if errors.As(err, &se) {
		fields = append(fields,
			logx.String("stage", string(se.Stage)),
			logx.Stringer("leg", se.Leg),
			logx.String("date", se.Date),
		)
	}
	log.Warn("provider call failed", fields...)
	rr.Errors = append(rr.Errors, err)
}
