package flights

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		BaseURL: srv.URL,
		APIKey:  "key",
		Timeout: time.Second,
		Params: Params{
			Currency:     "BRL",
			LanguageCode: "pt-BR",
			CountryCode:  "BR",
			ShowHidden:   true,
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestCalendarRoundTrip(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/getCalendarPicker" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-rapidapi-key"); got != "key" {
			t.Errorf("x-rapidapi-key = %q", got)
		}
		if got := r.Header.Get("x-rapidapi-host"); got != DefaultHost {
			t.Errorf("x-rapidapi-host = %q", got)
		}
		q := r.URL.Query()
		for k, want := range map[string]string{
			"departure_id": "GIG",
			"arrival_id":   "SSA",
			"start_date":   "2025-05-01",
			"end_date":     "2025-05-31",
			"trip_type":    "ROUND",
			"trip_days":    "11",
			"travel_class": "ECONOMY",
			"adults":       "1",
			"currency":     "BRL",
			"country_code": "BR",
		} {
			if got := q.Get(k); got != want {
				t.Errorf("query %s = %q, want %q", k, got, want)
			}
		}
		_, _ = w.Write([]byte(`{"status":true,"data":[
			{"departure":"2025-05-05","return":"2025-05-16","price":650},
			{"departure":"2025-05-06","return":"2025-05-17","price":720.5},
			{"departure":"","return":"2025-05-18","price":100}
		]}`))
	})

	got, err := c.Calendar(context.Background(), CalendarQuery{
		Origin: "gig", Destination: "ssa", Start: "2025-05-01", End: "2025-05-31", TripDays: 11,
	})
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].Outbound != "2025-05-05" || got[0].Return != "2025-05-16" || !got[0].Price.Equal(decimal.NewFromInt(650)) {
		t.Fatalf("unexpected first candidate: %+v", got[0])
	}
	if !got[1].Price.Equal(decimal.RequireFromString("720.5")) {
		t.Fatalf("unexpected second price: %s", got[1].Price)
	}
}

func TestCalendarOneWayOmitsTripDays(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("trip_type") != "ONE_WAY" {
			t.Errorf("trip_type = %q", q.Get("trip_type"))
		}
		if q.Has("trip_days") {
			t.Errorf("trip_days should not be sent for one-way calendars")
		}
		_, _ = w.Write([]byte(`{"data":[{"departure":"2025-05-05","price":300}]}`))
	})
	got, err := c.Calendar(context.Background(), CalendarQuery{Origin: "GIG", Destination: "SSA", OneWay: true})
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}
	if len(got) != 1 || got[0].Return != "" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
}

func TestSearchConcatenatesLists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/searchFlights" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("outbound_date") != "2025-05-05" || q.Get("return_date") != "2025-05-16" {
			t.Errorf("unexpected dates: %s", r.URL.RawQuery)
		}
		if q.Get("show_hidden") != "1" || q.Get("language_code") != "pt-BR" {
			t.Errorf("unexpected locale: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"status":true,"data":{"itineraries":{
			"topFlights":[{
				"departure_time":"05-05-2025 10:30 AM",
				"arrival_time":"05-05-2025 12:45 PM",
				"duration":{"raw":135,"text":"2 hr 15 min"},
				"flights":[{"airline":"GOL"}],
				"layovers":null,
				"price":650,
				"next_token":"tok-1"
			}],
			"otherFlights":[{
				"departure_time":"05-05-2025 6:00 AM",
				"arrival_time":"05-05-2025 11:00 AM",
				"flights":[{"airline":"AZUL"},{"airline":"AZUL"}],
				"layovers":[{"airport_code":"BSB","duration":70,"duration_label":"1 hr 10 min"}],
				"price":650,
				"next_token":"tok-2"
			}]
		}}}`))
	})

	res, err := c.Search(context.Background(), SearchQuery{Origin: "GIG", Destination: "SSA", Outbound: "2025-05-05", Return: "2025-05-16"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.NextToken != "tok-1" {
		t.Fatalf("NextToken = %q, want tok-1", res.NextToken)
	}
	if len(res.Options) != 2 {
		t.Fatalf("len = %d, want 2", len(res.Options))
	}
	top, other := res.Options[0], res.Options[1]
	if top.Carrier != "GOL" || top.Stops() != 0 || top.Duration != "2 hr 15 min" {
		t.Fatalf("unexpected top option: %+v", top)
	}
	if other.Carrier != "AZUL" || other.Stops() != 1 || other.Layovers[0].Duration != 70*time.Minute {
		t.Fatalf("unexpected other option: %+v", other)
	}
	if other.Duration != "" {
		t.Fatalf("missing duration should map to empty text, got %q", other.Duration)
	}
}

func TestSearchWithoutItineraries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"data":{}}`))
	})
	res, err := c.Search(context.Background(), SearchQuery{Origin: "GIG", Destination: "SSA", Outbound: "2025-05-05"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Options) != 0 || res.NextToken != "" {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestSearchKeepsReportedStops(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"data":{"itineraries":{"topFlights":[
			{"flights":[{"airline":"AZUL"}],"price":600,"stops":1}
		]}}}`))
	})
	res, err := c.Search(context.Background(), SearchQuery{Origin: "GIG", Destination: "SSA", Outbound: "2025-05-05"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Options) != 1 {
		t.Fatalf("expected one option, got %+v", res)
	}
	if o := res.Options[0]; o.Stops() != 1 || len(o.Layovers) != 0 {
		t.Fatalf("stops = %d layovers = %d, want 1 stop without layovers", o.Stops(), len(o.Layovers))
	}
}

func TestNextSendsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/getNextFlights" || r.URL.Query().Get("next_token") != "tok-1" {
			t.Errorf("unexpected request: %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"data":{"itineraries":{"topFlights":[{"flights":[{"airline":"LATAM"}],"price":650}]}}}`))
	})
	res, err := c.Next(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(res.Options) != 1 || res.Options[0].Carrier != "LATAM" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if _, err := c.Next(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestErrorResponses(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		})
		_, err := c.Calendar(context.Background(), CalendarQuery{Origin: "GIG", Destination: "SSA"})
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
			t.Fatalf("expected StatusError 429, got %v", err)
		}
		if !strings.Contains(err.Error(), "quota exceeded") {
			t.Fatalf("expected body in error, got %v", err)
		}
	})
	t.Run("provider status false", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":false,"message":"invalid date"}`))
		})
		_, err := c.Search(context.Background(), SearchQuery{Origin: "GIG", Destination: "SSA", Outbound: "x"})
		if err == nil || !strings.Contains(err.Error(), "invalid date") {
			t.Fatalf("expected provider error, got %v", err)
		}
	})
	t.Run("bad json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[`))
		})
		if _, err := c.Calendar(context.Background(), CalendarQuery{}); err == nil {
			t.Fatal("expected decode error")
		}
	})
	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()
		c, err := New(Config{BaseURL: srv.URL, APIKey: "key", Timeout: 50 * time.Millisecond})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if _, err := c.Calendar(context.Background(), CalendarQuery{}); err == nil {
			t.Fatal("expected timeout error")
		}
	})
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
