package scheduler

import (
	"testing"
	"time"
)

func TestParseSchedule(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw   string
		form  string
		every time.Duration
		cron  string
	}{
		{raw: "0 */4 * * *", form: FormCron, cron: "0 */4 * * *"},
		{raw: "0 8,12,16,20 * * *", form: FormCron, cron: "0 8,12,16,20 * * *"},
		{raw: "@hourly", form: FormCron, cron: "@hourly"},
		{raw: "@every 4h", form: FormCron, cron: "@every 4h"},
		{raw: "cron:* * * * *", form: FormCron, cron: "* * * * *"},
		{raw: "10m", form: FormDuration, every: 10 * time.Minute, cron: "@every 10m0s"},
		{raw: "interval:45s", form: FormDuration, every: 45 * time.Second, cron: "@every 45s"},
		{raw: "every: 02:00", form: FormHHMM, every: 2 * time.Hour, cron: "@every 2h0m0s"},
		{raw: "01:30", form: FormHHMM, every: 90 * time.Minute, cron: "@every 1h30m0s"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q): %v", tt.raw, err)
			}
			if got.Form != tt.form {
				t.Fatalf("Form = %s, want %s", got.Form, tt.form)
			}
			if got.Every != tt.every || got.IsInterval() != (tt.every > 0) {
				t.Fatalf("Every = %v, want %v", got.Every, tt.every)
			}
			if got.CronSpec() != tt.cron {
				t.Fatalf("CronSpec = %q, want %q", got.CronSpec(), tt.cron)
			}
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "00:00", "interval:", "01:75", "1:5", "-1h", "cron: "} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
