package app

import (
	"fmt"
	"strings"
	"time"

	"farewatch/internal/config"
	"farewatch/internal/fare"
	"farewatch/internal/flights"
	"farewatch/internal/pipeline"
	"farewatch/internal/storage"
	"farewatch/internal/transport"
	telegram "farewatch/internal/transport/telegram/adapter"
	logx "farewatch/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	if path == "" {
		return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
}

func mapProviderConfig(cfg *config.Config, sec config.Secrets) (flights.Config, error) {
	timeout, err := config.ParseDurationOrDefault("provider.timeout", cfg.Provider.Timeout, 20*time.Second)
	if err != nil {
		return flights.Config{}, err
	}
	s := cfg.Search
	return flights.Config{
		BaseURL:    cfg.Provider.BaseURL,
		Host:       cfg.Provider.Host,
		APIKey:     sec.APIKey,
		Timeout:    timeout,
		RatePerSec: cfg.Provider.RatePerSec,
		Burst:      cfg.Provider.Burst,
		Params: flights.Params{
			TravelClass:  s.TravelClass,
			Adults:       s.Adults,
			Children:     s.Children,
			InfantOnLap:  s.InfantOnLap,
			InfantInSeat: s.InfantInSeat,
			Currency:     s.Currency,
			LanguageCode: s.LanguageCode,
			CountryCode:  s.CountryCode,
			ShowHidden:   config.Enabled(s.ShowHidden, true),
		},
	}, nil
}

func mapTelegramConfig(cfg *config.Config, sec config.Secrets, offline bool) (telegram.Config, error) {
	timeout, err := config.ParseDurationOrDefault("telegram.timeout", cfg.Telegram.Timeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	interval, err := config.ParseDurationField("telegram.min_interval", cfg.Telegram.MinInterval)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:       sec.BotToken,
		APIURL:      cfg.Telegram.APIURL,
		Offline:     offline,
		Timeout:     timeout,
		MinInterval: interval,
	}, nil
}

func mapPipelineConfig(cfg *config.Config, sec config.Secrets) (pipeline.Config, error) {
	s := cfg.Search
	maxLayover, err := config.ParseDurationOrDefault("search.routing.max_layover", s.Routing.MaxLayover, 90*time.Minute)
	if err != nil {
		return pipeline.Config{}, err
	}
	policy, err := fare.ParsePolicy(s.Routing.Policy, maxLayover)
	if err != nil {
		return pipeline.Config{}, err
	}
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return pipeline.Config{}, fmt.Errorf("timezone: %w", err)
		}
	}

	routes := make([]fare.Route, 0, len(cfg.Routes))
	for _, r := range cfg.Routes {
		originName := strings.TrimSpace(r.OriginName)
		if originName == "" {
			originName = strings.TrimSpace(s.OriginName)
		}
		routes = append(routes, fare.Route{
			Origin:      strings.ToUpper(strings.TrimSpace(r.Origin)),
			OriginName:  originName,
			Destination: strings.ToUpper(strings.TrimSpace(r.Destination)),
			Name:        strings.TrimSpace(r.Name),
		})
	}

	return pipeline.Config{
		Routes:   routes,
		Strategy: pipeline.Strategy(s.Strategy),
		Window: pipeline.Window{
			Start:      s.WindowStart,
			End:        s.WindowEnd,
			OffsetDays: s.WindowOffsetDays,
			Days:       s.WindowDays,
		},
		TripDays:        s.TripDays,
		Threshold:       s.Threshold,
		LegThreshold:    s.LegThreshold,
		Policy:          policy,
		FollowReturnLeg: config.Enabled(s.FollowReturnLeg, true),
		Mode:            pipeline.NotifyMode(cfg.Notify.Mode),
		Formatter:       fare.Formatter{CurrencySymbol: s.CurrencySymbol},
		Target:          transport.ChatTarget{ChatID: sec.ChatID, ThreadID: cfg.Telegram.ThreadID},
		DisablePreview:  cfg.Notify.DisablePreview,
		Location:        loc,
	}, nil
}
