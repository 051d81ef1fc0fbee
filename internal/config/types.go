package config

import "github.com/shopspring/decimal"

type Config struct {
	// Schedule is a cron expression, "@every 4h", "4h" or "HH:MM" interval.
	Schedule string `json:"schedule"`
	Timezone string `json:"timezone,omitempty"`
	// RunTimeout bounds one whole pipeline run (Go duration string).
	RunTimeout string `json:"run_timeout,omitempty"`

	Search   SearchConfig   `json:"search"`
	Notify   NotifyConfig   `json:"notify"`
	Routes   []RouteConfig  `json:"routes"`
	Provider ProviderConfig `json:"provider"`
	Telegram TelegramConfig `json:"telegram"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	Health   HealthConfig   `json:"health"`
	Logging  LoggingConfig  `json:"logging"`
}

// SearchConfig describes what to ask the provider and how to judge results.
//
// The date window is either absolute (window_start/window_end, YYYY-MM-DD)
// or relative to the run date (window_offset_days/window_days).
type SearchConfig struct {
	// Strategy is "joint" (round-trip calendar) or "paired_legs"
	// (single-leg calendars paired by trip_days).
	Strategy string `json:"strategy"`

	WindowStart      string `json:"window_start,omitempty"`
	WindowEnd        string `json:"window_end,omitempty"`
	WindowOffsetDays int    `json:"window_offset_days,omitempty"`
	WindowDays       int    `json:"window_days,omitempty"`
	TripDays         int    `json:"trip_days"`

	// Threshold caps the round-trip price; LegThreshold caps each leg in
	// paired_legs mode.
	Threshold    decimal.Decimal `json:"threshold"`
	LegThreshold decimal.Decimal `json:"leg_threshold"`

	Routing         RoutingConfig `json:"routing"`
	FollowReturnLeg *bool         `json:"follow_return_leg,omitempty"`

	TravelClass  string `json:"travel_class"`
	Adults       int    `json:"adults"`
	Children     int    `json:"children"`
	InfantOnLap  int    `json:"infant_on_lap"`
	InfantInSeat int    `json:"infant_in_seat"`
	ShowHidden   *bool  `json:"show_hidden,omitempty"`

	Currency       string `json:"currency"`
	CurrencySymbol string `json:"currency_symbol"`
	LanguageCode   string `json:"language_code"`
	CountryCode    string `json:"country_code"`

	// OriginName labels the origin when a route does not set its own.
	OriginName string `json:"origin_name"`
}

type RoutingConfig struct {
	// Policy is "direct" or "one_stop".
	Policy string `json:"policy"`
	// MaxLayover caps the single stop for one_stop (Go duration string).
	MaxLayover string `json:"max_layover,omitempty"`
}

type NotifyConfig struct {
	// Mode is "per_offer" (one message per offer) or "batched" (one per run).
	Mode           string `json:"mode"`
	DisablePreview bool   `json:"disable_preview"`
}

type RouteConfig struct {
	Origin      string `json:"origin"`
	OriginName  string `json:"origin_name,omitempty"`
	Destination string `json:"destination"`
	Name        string `json:"name"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	Host    string `json:"host,omitempty"`
	// Timeout bounds each provider call (Go duration string).
	Timeout    string  `json:"timeout,omitempty"`
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
	Burst      int     `json:"burst,omitempty"`
}

type TelegramConfig struct {
	APIURL   string `json:"api_url,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
	// Timeout and MinInterval are Go duration strings.
	Timeout     string `json:"timeout,omitempty"`
	MinInterval string `json:"min_interval,omitempty"`
}

// StorageConfig controls the optional run audit store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/farewatch.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// HealthConfig controls liveness reporting. An empty Addr disables the
// HTTP endpoint.
type HealthConfig struct {
	Addr    string `json:"addr,omitempty"`
	Systemd bool   `json:"systemd,omitempty"`
	// Pprof mounts /debug/pprof/ on the health listener.
	Pprof bool `json:"pprof,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Enabled reports the value of an optional boolean, treating nil as def.
func Enabled(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
