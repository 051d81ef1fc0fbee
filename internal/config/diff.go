package config

import (
	"reflect"
	"strings"

	logx "farewatch/pkg/logx"
)

// SummarizeChange returns the changed top-level sections and safe
// structured attrs for logging. Secrets never live in the file config, so
// every attr is safe to print.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Schedule != newCfg.Schedule || oldCfg.Timezone != newCfg.Timezone || oldCfg.RunTimeout != newCfg.RunTimeout {
		changed = append(changed, "schedule")
		attrs = append(attrs,
			logx.String("schedule", newCfg.Schedule),
			logx.String("timezone", newCfg.Timezone),
			logx.String("run_timeout", newCfg.RunTimeout),
		)
	}
	if !reflect.DeepEqual(oldCfg.Search, newCfg.Search) {
		changed = append(changed, "search")
		attrs = append(attrs,
			logx.String("search.strategy", newCfg.Search.Strategy),
			logx.String("search.threshold", newCfg.Search.Threshold.String()),
			logx.Int("search.trip_days", newCfg.Search.TripDays),
			logx.String("search.routing", newCfg.Search.Routing.Policy),
		)
	}
	if oldCfg.Notify != newCfg.Notify {
		changed = append(changed, "notify")
		attrs = append(attrs, logx.String("notify.mode", newCfg.Notify.Mode))
	}
	if !reflect.DeepEqual(oldCfg.Routes, newCfg.Routes) {
		changed = append(changed, "routes")
		names := make([]string, 0, len(newCfg.Routes))
		for _, r := range newCfg.Routes {
			names = append(names, strings.ToUpper(r.Origin+"-"+r.Destination))
		}
		attrs = append(attrs, logx.String("routes", strings.Join(names, ",")))
	}
	if oldCfg.Provider != newCfg.Provider {
		changed = append(changed, "provider")
	}
	if oldCfg.Telegram != newCfg.Telegram {
		changed = append(changed, "telegram")
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
	}
	if oldCfg.Health != newCfg.Health {
		changed = append(changed, "health")
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs, logx.String("logging.level", newCfg.Logging.Level))
	}
	return changed, attrs
}
