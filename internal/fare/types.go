package fare

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the provider date format for calendar days.
const DateLayout = "2006-01-02"

// Route is one origin/destination pair to watch.
type Route struct {
	Origin      string
	OriginName  string
	Destination string
	Name        string
}

func (r Route) String() string { return r.Origin + "-" + r.Destination }

// CalendarCandidate is one day pair returned by the calendar query.
// Return is empty for single-leg calendars.
type CalendarCandidate struct {
	Outbound string
	Return   string
	Price    decimal.Decimal
}

type Layover struct {
	Airport  string
	Duration time.Duration
	Label    string
}

// ItineraryOption is one flight option from the detail query.
// Departure and Arrival keep the provider's "<date> <time> <AMPM>" text.
type ItineraryOption struct {
	Carrier   string
	Departure string
	Arrival   string
	Duration  string
	Price     decimal.Decimal
	Layovers  []Layover
	// ReportedStops is the provider's stop count, used when it reports more
	// stops than it lists layovers for.
	ReportedStops int
	NextToken     string
}

// Stops is the number of intermediate connections; zero means direct.
func (o ItineraryOption) Stops() int {
	return max(len(o.Layovers), o.ReportedStops)
}

type Leg int

const (
	LegOutbound Leg = iota
	LegReturn
)

func (l Leg) String() string {
	if l == LegReturn {
		return "return"
	}
	return "outbound"
}

// MatchedOffer groups a candidate with the options that matched it.
// OutboundPrice and ReturnPrice are set only when legs were priced
// separately; Candidate.Price is always the round-trip total.
type MatchedOffer struct {
	Route     Route
	Candidate CalendarCandidate
	Outbound  []ItineraryOption
	Return    []ItineraryOption

	OutboundPrice decimal.Decimal
	ReturnPrice   decimal.Decimal
}

// Empty reports whether neither leg has a matching option.
func (m MatchedOffer) Empty() bool { return len(m.Outbound) == 0 && len(m.Return) == 0 }
