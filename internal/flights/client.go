package flights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"farewatch/internal/fare"
)

const (
	DefaultBaseURL = "https://google-flights2.p.rapidapi.com"
	DefaultHost    = "google-flights2.p.rapidapi.com"
)

// Params are the fixed passenger/cabin/locale fields sent with every query.
type Params struct {
	TravelClass  string
	Adults       int
	Children     int
	InfantOnLap  int
	InfantInSeat int
	Currency     string
	LanguageCode string
	CountryCode  string
	ShowHidden   bool
}

type Config struct {
	BaseURL string
	Host    string
	APIKey  string

	// Timeout bounds a single call, including the rate limiter wait.
	Timeout time.Duration

	// RatePerSec limits outgoing calls; <= 0 disables limiting.
	RatePerSec float64
	Burst      int

	Params Params
}

type Client struct {
	baseURL string
	host    string
	apiKey  string
	timeout time.Duration
	params  Params

	limiter    *rate.Limiter
	httpClient *http.Client
}

// CalendarQuery selects a price calendar. OneWay switches the provider to
// single-leg daily prices, in which case TripDays is ignored.
type CalendarQuery struct {
	Origin      string
	Destination string
	Start       string
	End         string
	TripDays    int
	OneWay      bool
}

// SearchQuery selects the detail listing for one date pair. An empty Return
// requests a one-way listing.
type SearchQuery struct {
	Origin      string
	Destination string
	Outbound    string
	Return      string
}

type SearchResult struct {
	Options   []fare.ItineraryOption
	NextToken string
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("flights: api key is empty")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("flights: parse base url: %w", err)
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = DefaultHost
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		host:       host,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    timeout,
		params:     cfg.Params,
		httpClient: &http.Client{Timeout: timeout},
	}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return c, nil
}

// Calendar queries the price calendar for a date window.
func (c *Client) Calendar(ctx context.Context, q CalendarQuery) ([]fare.CalendarCandidate, error) {
	v := url.Values{}
	v.Set("departure_id", strings.ToUpper(strings.TrimSpace(q.Origin)))
	v.Set("arrival_id", strings.ToUpper(strings.TrimSpace(q.Destination)))
	v.Set("start_date", q.Start)
	v.Set("end_date", q.End)
	if q.OneWay {
		v.Set("trip_type", "ONE_WAY")
	} else {
		v.Set("trip_type", "ROUND")
		v.Set("trip_days", strconv.Itoa(q.TripDays))
	}
	c.setPassengers(v)
	v.Set("currency", c.params.Currency)
	v.Set("country_code", c.params.CountryCode)

	var env envelope[[]calendarDay]
	if err := c.get(ctx, "/api/v1/getCalendarPicker", v, &env); err != nil {
		return nil, err
	}
	return mapCalendar(env.Data), nil
}

// Search fetches the itinerary listing for a date pair.
func (c *Client) Search(ctx context.Context, q SearchQuery) (SearchResult, error) {
	v := url.Values{}
	v.Set("departure_id", strings.ToUpper(strings.TrimSpace(q.Origin)))
	v.Set("arrival_id", strings.ToUpper(strings.TrimSpace(q.Destination)))
	v.Set("outbound_date", q.Outbound)
	if strings.TrimSpace(q.Return) != "" {
		v.Set("return_date", q.Return)
	}
	c.setPassengers(v)
	c.setLocale(v)

	var env envelope[searchData]
	if err := c.get(ctx, "/api/v1/searchFlights", v, &env); err != nil {
		return SearchResult{}, err
	}
	return mapSearch(env.Data), nil
}

// Next fetches the paired leg listing for a continuation token.
func (c *Client) Next(ctx context.Context, token string) (SearchResult, error) {
	if strings.TrimSpace(token) == "" {
		return SearchResult{}, errors.New("flights: next token is empty")
	}
	v := url.Values{}
	v.Set("next_token", token)
	c.setLocale(v)

	var env envelope[searchData]
	if err := c.get(ctx, "/api/v1/getNextFlights", v, &env); err != nil {
		return SearchResult{}, err
	}
	return mapSearch(env.Data), nil
}

func (c *Client) setPassengers(v url.Values) {
	class := strings.TrimSpace(c.params.TravelClass)
	if class == "" {
		class = "ECONOMY"
	}
	adults := c.params.Adults
	if adults <= 0 {
		adults = 1
	}
	v.Set("travel_class", class)
	v.Set("adults", strconv.Itoa(adults))
	v.Set("children", strconv.Itoa(c.params.Children))
	v.Set("infant_on_lap", strconv.Itoa(c.params.InfantOnLap))
	v.Set("infant_in_seat", strconv.Itoa(c.params.InfantInSeat))
}

func (c *Client) setLocale(v url.Values) {
	if c.params.ShowHidden {
		v.Set("show_hidden", "1")
	}
	v.Set("currency", c.params.Currency)
	v.Set("language_code", c.params.LanguageCode)
	v.Set("country_code", c.params.CountryCode)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("flights: rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("flights: build request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("flights: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("flights: decode %s: %w", path, err)
	}
	if s, ok := out.(interface{ failed() (string, bool) }); ok {
		if msg, bad := s.failed(); bad {
			return fmt.Errorf("flights: %s: provider error: %s", path, msg)
		}
	}
	return nil
}

// failed reports a provider-level error ("status": false) in a 2xx body.
func (e *envelope[T]) failed() (string, bool) {
	if e.Status == nil || *e.Status {
		return "", false
	}
	return fmt.Sprint(e.Message), true
}

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("flights: %s: http %d", e.Path, e.Code)
	}
	return fmt.Sprintf("flights: %s: http %d: %s", e.Path, e.Code, e.Body)
}
