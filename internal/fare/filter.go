package fare

import (
	"time"

	"github.com/shopspring/decimal"
)

// FilterByPrice keeps candidates priced strictly below threshold.
func FilterByPrice(candidates []CalendarCandidate, threshold decimal.Decimal) []CalendarCandidate {
	out := make([]CalendarCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Price.LessThan(threshold) {
			out = append(out, c)
		}
	}
	return out
}

// MatchOptions keeps options whose price equals price exactly and whose
// stop pattern the policy allows.
func MatchOptions(options []ItineraryOption, price decimal.Decimal, policy RoutingPolicy) []ItineraryOption {
	if policy == nil {
		policy = DirectOnly{}
	}
	var out []ItineraryOption
	for _, o := range options {
		if !o.Price.Equal(price) {
			continue
		}
		if !policy.Allows(o) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// LegPair is an outbound day paired with its return day from two
// single-leg calendars.
type LegPair struct {
	Candidate     CalendarCandidate
	OutboundPrice decimal.Decimal
	ReturnPrice   decimal.Decimal
}

// PairLegs pairs each outbound day with the return day tripDays later.
// Both legs must be priced below threshold; the candidate price is the sum.
// Outbound days with no return price on the offset day are dropped.
func PairLegs(outbound, inbound []CalendarCandidate, tripDays int, threshold decimal.Decimal) []LegPair {
	byDay := make(map[string]decimal.Decimal, len(inbound))
	for _, c := range inbound {
		if _, dup := byDay[c.Outbound]; !dup {
			byDay[c.Outbound] = c.Price
		}
	}

	var out []LegPair
	for _, o := range outbound {
		if !o.Price.LessThan(threshold) {
			continue
		}
		day, err := time.Parse(DateLayout, o.Outbound)
		if err != nil {
			continue
		}
		ret := day.AddDate(0, 0, tripDays).Format(DateLayout)
		rp, ok := byDay[ret]
		if !ok || !rp.LessThan(threshold) {
			continue
		}
		out = append(out, LegPair{
			Candidate:     CalendarCandidate{Outbound: o.Outbound, Return: ret, Price: o.Price.Add(rp)},
			OutboundPrice: o.Price,
			ReturnPrice:   rp,
		})
	}
	return out
}
