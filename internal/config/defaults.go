package config

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	StrategyJoint      = "joint"
	StrategyPairedLegs = "paired_legs"

	NotifyPerOffer = "per_offer"
	NotifyBatched  = "batched"
)

// ApplyDefaults fills omitted fields with the reference behavior: every
// four hours, round-trip calendar, 11-day trips, BRL prices below 700,
// direct flights only.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.Schedule) == "" {
		cfg.Schedule = "0 */4 * * *"
	}

	s := &cfg.Search
	if strings.TrimSpace(s.Strategy) == "" {
		s.Strategy = StrategyJoint
	}
	s.Strategy = strings.ToLower(strings.TrimSpace(s.Strategy))
	if s.WindowStart == "" && s.WindowEnd == "" && s.WindowDays == 0 {
		s.WindowOffsetDays = max(s.WindowOffsetDays, 1)
		s.WindowDays = 30
	}
	if s.TripDays == 0 {
		if s.Strategy == StrategyPairedLegs {
			s.TripDays = 12
		} else {
			s.TripDays = 11
		}
	}
	if s.Threshold.IsZero() {
		s.Threshold = decimal.NewFromInt(700)
	}
	if s.LegThreshold.IsZero() {
		s.LegThreshold = decimal.NewFromInt(360)
	}
	if strings.TrimSpace(s.Routing.Policy) == "" {
		s.Routing.Policy = "direct"
	}
	if strings.TrimSpace(s.Routing.MaxLayover) == "" {
		s.Routing.MaxLayover = "90m"
	}
	if s.FollowReturnLeg == nil {
		v := true
		s.FollowReturnLeg = &v
	}
	if s.TravelClass == "" {
		s.TravelClass = "ECONOMY"
	}
	if s.Adults == 0 {
		s.Adults = 1
	}
	if s.ShowHidden == nil {
		v := true
		s.ShowHidden = &v
	}
	if s.Currency == "" {
		s.Currency = "BRL"
	}
	if s.CurrencySymbol == "" && strings.EqualFold(s.Currency, "BRL") {
		s.CurrencySymbol = "R$"
	}
	if s.LanguageCode == "" {
		s.LanguageCode = "pt-BR"
	}
	if s.CountryCode == "" {
		s.CountryCode = "BR"
	}

	if strings.TrimSpace(cfg.Notify.Mode) == "" {
		cfg.Notify.Mode = NotifyPerOffer
	}
	cfg.Notify.Mode = strings.ToLower(strings.TrimSpace(cfg.Notify.Mode))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
