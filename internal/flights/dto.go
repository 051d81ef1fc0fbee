package flights

import "github.com/shopspring/decimal"

// envelope is the common google-flights2 response wrapper.
type envelope[T any] struct {
	Status  *bool `json:"status"`
	Message any   `json:"message"`
	Data    T     `json:"data"`
}

type calendarDay struct {
	Departure string          `json:"departure"`
	Return    string          `json:"return"`
	Price     decimal.Decimal `json:"price"`
}

type searchData struct {
	Itineraries *itineraries `json:"itineraries"`
}

type itineraries struct {
	TopFlights   []flightOption `json:"topFlights"`
	OtherFlights []flightOption `json:"otherFlights"`
}

type flightOption struct {
	DepartureTime string          `json:"departure_time"`
	ArrivalTime   string          `json:"arrival_time"`
	Duration      *durationInfo   `json:"duration"`
	Flights       []segment       `json:"flights"`
	Layovers      []layover       `json:"layovers"`
	Price         decimal.Decimal `json:"price"`
	Stops         int             `json:"stops"`
	NextToken     string          `json:"next_token"`
}

type durationInfo struct {
	Raw  int    `json:"raw"`
	Text string `json:"text"`
}

type segment struct {
	Airline      string `json:"airline"`
	FlightNumber string `json:"flight_number"`
}

type layover struct {
	AirportCode   string `json:"airport_code"`
	AirportName   string `json:"airport_name"`
	Duration      int    `json:"duration"` // minutes
	DurationLabel string `json:"duration_label"`
}
