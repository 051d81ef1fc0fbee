package flights

import (
	"strings"
	"time"

	"farewatch/internal/fare"
)

func mapCalendar(days []calendarDay) []fare.CalendarCandidate {
	out := make([]fare.CalendarCandidate, 0, len(days))
	for _, d := range days {
		if strings.TrimSpace(d.Departure) == "" || d.Price.IsNegative() {
			continue
		}
		out = append(out, fare.CalendarCandidate{
			Outbound: strings.TrimSpace(d.Departure),
			Return:   strings.TrimSpace(d.Return),
			Price:    d.Price,
		})
	}
	return out
}

// mapSearch concatenates primary and secondary lists. The continuation
// token comes from the first primary option only.
func mapSearch(d searchData) SearchResult {
	if d.Itineraries == nil {
		return SearchResult{}
	}
	var res SearchResult
	if len(d.Itineraries.TopFlights) > 0 {
		res.NextToken = strings.TrimSpace(d.Itineraries.TopFlights[0].NextToken)
	}
	all := make([]flightOption, 0, len(d.Itineraries.TopFlights)+len(d.Itineraries.OtherFlights))
	all = append(all, d.Itineraries.TopFlights...)
	all = append(all, d.Itineraries.OtherFlights...)
	res.Options = make([]fare.ItineraryOption, 0, len(all))
	for _, f := range all {
		res.Options = append(res.Options, mapOption(f))
	}
	return res
}

func mapOption(f flightOption) fare.ItineraryOption {
	o := fare.ItineraryOption{
		Departure: f.DepartureTime,
		Arrival:   f.ArrivalTime,
		Price:     f.Price,
		NextToken: f.NextToken,
	}
	if f.Stops > 0 {
		o.ReportedStops = f.Stops
	}
	if len(f.Flights) > 0 {
		o.Carrier = f.Flights[0].Airline
	}
	if f.Duration != nil {
		o.Duration = f.Duration.Text
	}
	for _, l := range f.Layovers {
		o.Layovers = append(o.Layovers, fare.Layover{
			Airport:  l.AirportCode,
			Duration: time.Duration(l.Duration) * time.Minute,
			Label:    l.DurationLabel,
		})
	}
	return o
}
