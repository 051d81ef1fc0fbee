package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"farewatch/internal/fare"
)

// Validate checks a config after ApplyDefaults. scheduleCheck, if set,
// validates the schedule expression (the scheduler owns that grammar).
func Validate(cfg *Config, scheduleCheck func(string) error) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if scheduleCheck != nil {
		if err := scheduleCheck(cfg.Schedule); err != nil {
			add("schedule: %w", err)
		}
	}
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			add("timezone: %w", err)
		}
	}
	if _, err := ParseDurationField("run_timeout", cfg.RunTimeout); err != nil {
		errs = append(errs, err)
	}

	s := cfg.Search
	switch s.Strategy {
	case StrategyJoint, StrategyPairedLegs:
	default:
		add("search.strategy: unknown %q (use %s or %s)", s.Strategy, StrategyJoint, StrategyPairedLegs)
	}
	if s.WindowStart != "" || s.WindowEnd != "" {
		start, err1 := time.Parse(fare.DateLayout, s.WindowStart)
		end, err2 := time.Parse(fare.DateLayout, s.WindowEnd)
		switch {
		case err1 != nil:
			add("search.window_start: invalid date %q (want YYYY-MM-DD)", s.WindowStart)
		case err2 != nil:
			add("search.window_end: invalid date %q (want YYYY-MM-DD)", s.WindowEnd)
		case end.Before(start):
			add("search.window_end: %s is before window_start %s", s.WindowEnd, s.WindowStart)
		}
	} else {
		if s.WindowDays <= 0 {
			add("search.window_days: must be > 0 when no absolute window is set")
		}
		if s.WindowOffsetDays < 0 {
			add("search.window_offset_days: must be >= 0")
		}
	}
	if s.TripDays <= 0 {
		add("search.trip_days: must be > 0")
	}
	if !s.Threshold.IsPositive() {
		add("search.threshold: must be > 0")
	}
	if s.Strategy == StrategyPairedLegs && !s.LegThreshold.IsPositive() {
		add("search.leg_threshold: must be > 0")
	}
	maxLayover, err := ParseDurationField("search.routing.max_layover", s.Routing.MaxLayover)
	if err != nil {
		errs = append(errs, err)
	} else if _, err := fare.ParsePolicy(s.Routing.Policy, maxLayover); err != nil {
		add("search.routing.policy: %w", err)
	}
	if s.Adults < 1 {
		add("search.adults: must be >= 1")
	}
	if s.Children < 0 || s.InfantOnLap < 0 || s.InfantInSeat < 0 {
		add("search: passenger counts must be >= 0")
	}

	switch cfg.Notify.Mode {
	case NotifyPerOffer, NotifyBatched:
	default:
		add("notify.mode: unknown %q (use %s or %s)", cfg.Notify.Mode, NotifyPerOffer, NotifyBatched)
	}

	if len(cfg.Routes) == 0 {
		add("routes: at least one route is required")
	}
	seen := map[string]bool{}
	for i, r := range cfg.Routes {
		o, d := strings.TrimSpace(r.Origin), strings.TrimSpace(r.Destination)
		if !isAirportCode(o) {
			add("routes[%d].origin: invalid airport code %q", i, r.Origin)
		}
		if !isAirportCode(d) {
			add("routes[%d].destination: invalid airport code %q", i, r.Destination)
		}
		key := strings.ToUpper(o + "-" + d)
		if seen[key] {
			add("routes[%d]: duplicate route %s", i, key)
		}
		seen[key] = true
	}

	if _, err := ParseDurationField("provider.timeout", cfg.Provider.Timeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.Provider.RatePerSec < 0 {
		add("provider.rate_per_sec: must be >= 0")
	}
	if _, err := ParseDurationField("telegram.timeout", cfg.Telegram.Timeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("telegram.min_interval", cfg.Telegram.MinInterval); err != nil {
		errs = append(errs, err)
	}
	if cfg.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			add("storage.driver: unknown %q", cfg.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func isAirportCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
