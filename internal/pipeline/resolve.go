package pipeline

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"farewatch/internal/fare"
	"farewatch/internal/flights"
	logx "farewatch/pkg/logx"
)

type emitFunc func(fare.MatchedOffer)

func (p *Pipeline) calendar(ctx context.Context, route fare.Route, leg fare.Leg, q flights.CalendarQuery) fare.Result[fare.CalendarCandidate] {
	items, err := p.src.Calendar(ctx, q)
	if err != nil {
		return fare.Failed[fare.CalendarCandidate](&fare.StageError{Route: route, Stage: fare.StageCalendar, Leg: leg, Err: err})
	}
	return fare.OK(items)
}

func (p *Pipeline) search(ctx context.Context, route fare.Route, leg fare.Leg, q flights.SearchQuery) (fare.Result[fare.ItineraryOption], string) {
	res, err := p.src.Search(ctx, q)
	if err != nil {
		return fare.Failed[fare.ItineraryOption](&fare.StageError{Route: route, Stage: fare.StageSearch, Leg: leg, Date: q.Outbound, Err: err}), ""
	}
	return fare.OK(res.Options), res.NextToken
}

func (p *Pipeline) next(ctx context.Context, route fare.Route, date, token string) fare.Result[fare.ItineraryOption] {
	res, err := p.src.Next(ctx, token)
	if err != nil {
		return fare.Failed[fare.ItineraryOption](&fare.StageError{Route: route, Stage: fare.StageNext, Leg: fare.LegReturn, Date: date, Err: err})
	}
	return fare.OK(res.Options)
}

// checkJoint prices round trips from one calendar. Each surviving candidate
// gets one search; its options are matched against the round-trip price.
// With FollowReturnLeg the return leg comes from the continuation token and
// is matched the same way.
func (p *Pipeline) checkJoint(ctx context.Context, log logx.Logger, rr *RouteReport, route fare.Route, start, end string, emit emitFunc) {
	cal := p.calendar(ctx, route, fare.LegOutbound, flights.CalendarQuery{
		Origin:      route.Origin,
		Destination: route.Destination,
		Start:       start,
		End:         end,
		TripDays:    p.cfg.TripDays,
	})
	if cal.Err != nil {
		fail(log, rr, cal.Err)
	}
	rr.Candidates = len(cal.Items)
	if cal.Status() != fare.StatusOK {
		log.Info("no candidates")
		return
	}

	survivors := fare.FilterByPrice(cal.Items, p.cfg.Threshold)
	rr.Survivors = len(survivors)
	if len(survivors) == 0 {
		log.Info("no candidates below threshold",
			logx.Int("candidates", len(cal.Items)),
			logx.String("threshold", p.cfg.Threshold.String()),
		)
		return
	}

	for _, c := range survivors {
		if ctx.Err() != nil {
			return
		}
		offer := fare.MatchedOffer{Route: route, Candidate: c}

		out, token := p.search(ctx, route, fare.LegOutbound, flights.SearchQuery{
			Origin:      route.Origin,
			Destination: route.Destination,
			Outbound:    c.Outbound,
			Return:      c.Return,
		})
		if out.Err != nil {
			fail(log, rr, out.Err)
		}
		offer.Outbound = fare.MatchOptions(out.Items, c.Price, p.cfg.Policy)
		if len(offer.Outbound) == 0 {
			log.Info("no matching outbound option", logx.String("date", c.Outbound), logx.String("price", c.Price.String()))
		}

		if p.cfg.FollowReturnLeg {
			switch {
			case out.Err != nil:
			case strings.TrimSpace(token) == "":
				log.Info("no continuation token; return leg skipped", logx.String("date", c.Return))
			default:
				back := p.next(ctx, route, c.Return, token)
				if back.Err != nil {
					fail(log, rr, back.Err)
				}
				offer.Return = fare.MatchOptions(back.Items, c.Price, p.cfg.Policy)
				if len(offer.Return) == 0 {
					log.Info("no matching return option", logx.String("date", c.Return), logx.String("price", c.Price.String()))
				}
			}
		}

		if offer.Empty() {
			continue
		}
		emit(offer)
	}
}

// checkPairedLegs prices each leg from a one-way calendar, pairs outbound
// day d with return day d+TripDays and resolves each leg with a one-way
// search matched against that leg's price.
func (p *Pipeline) checkPairedLegs(ctx context.Context, log logx.Logger, rr *RouteReport, route fare.Route, start, end string, emit emitFunc) {
	outCal := p.calendar(ctx, route, fare.LegOutbound, flights.CalendarQuery{
		Origin:      route.Origin,
		Destination: route.Destination,
		Start:       start,
		End:         end,
		OneWay:      true,
	})
	if outCal.Err != nil {
		fail(log, rr, outCal.Err)
	}
	rr.Candidates = len(outCal.Items)
	if outCal.Status() != fare.StatusOK {
		log.Info("no candidates")
		return
	}

	backCal := p.calendar(ctx, route, fare.LegReturn, flights.CalendarQuery{
		Origin:      route.Destination,
		Destination: route.Origin,
		Start:       shiftDate(start, p.cfg.TripDays),
		End:         shiftDate(end, p.cfg.TripDays),
		OneWay:      true,
	})
	if backCal.Err != nil {
		fail(log, rr, backCal.Err)
	}

	pairs := fare.PairLegs(outCal.Items, backCal.Items, p.cfg.TripDays, p.cfg.LegThreshold)
	rr.Survivors = len(pairs)
	if len(pairs) == 0 {
		log.Info("no candidates below threshold",
			logx.Int("candidates", len(outCal.Items)),
			logx.String("leg_threshold", p.cfg.LegThreshold.String()),
		)
		return
	}

	for _, pair := range pairs {
		if ctx.Err() != nil {
			return
		}
		c := pair.Candidate
		offer := fare.MatchedOffer{
			Route:         route,
			Candidate:     c,
			OutboundPrice: pair.OutboundPrice,
			ReturnPrice:   pair.ReturnPrice,
		}
		offer.Outbound = p.resolveLeg(ctx, log, rr, route, fare.LegOutbound, route.Origin, route.Destination, c.Outbound, pair.OutboundPrice)
		offer.Return = p.resolveLeg(ctx, log, rr, route, fare.LegReturn, route.Destination, route.Origin, c.Return, pair.ReturnPrice)
		if offer.Empty() {
			continue
		}
		emit(offer)
	}
}

func (p *Pipeline) resolveLeg(ctx context.Context, log logx.Logger, rr *RouteReport, route fare.Route, leg fare.Leg, from, to, date string, price decimal.Decimal) []fare.ItineraryOption {
	res, _ := p.search(ctx, route, leg, flights.SearchQuery{Origin: from, Destination: to, Outbound: date})
	if res.Err != nil {
		fail(log, rr, res.Err)
		return nil
	}
	matched := fare.MatchOptions(res.Items, price, p.cfg.Policy)
	if len(matched) == 0 {
		log.Info("no matching "+leg.String()+" option", logx.String("date", date), logx.String("price", price.String()))
	}
	return matched
}
