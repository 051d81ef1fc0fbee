package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule forms reported in Schedule.Form.
const (
	FormCron     = "cron"
	FormDuration = "duration"
	FormHHMM     = "hhmm"
)

// Schedule is a normalized trigger: either a cron expression or a fixed
// interval. Accepted input:
//
//	0 */4 * * *      cron, 5 or 6 fields
//	@hourly, @every 4h
//	4h, 90m          Go duration
//	02:30            interval of 2h30m
//	cron:..., interval:..., every:...  force the form
type Schedule struct {
	Cron  string
	Every time.Duration
	Form  string
}

// IsInterval reports whether the schedule fires at a fixed interval.
func (s Schedule) IsInterval() bool { return s.Every > 0 }

// CronSpec renders the schedule for the cron parser.
func (s Schedule) CronSpec() string {
	if s.IsInterval() {
		return "@every " + s.Every.String()
	}
	return s.Cron
}

var errHHMM = errors.New("want HH:MM with minutes 00-59")

func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Schedule{}, errors.New("schedule is empty")
	}
	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		switch strings.ToLower(prefix) {
		case "cron":
			if rest = strings.TrimSpace(rest); rest == "" {
				return Schedule{}, errors.New("cron: expression is empty")
			}
			return Schedule{Cron: rest, Form: FormCron}, nil
		case "interval", "every":
			return parseInterval(rest)
		}
	}
	if s[0] == '@' || strings.ContainsAny(s, " \t") {
		return Schedule{Cron: s, Form: FormCron}, nil
	}
	sc, err := parseInterval(s)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid schedule %q: use cron like \"0 */4 * * *\", HH:MM like \"04:00\" or a duration like \"4h\"", raw)
	}
	return sc, nil
}

func parseInterval(v string) (Schedule, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return Schedule{}, errors.New("interval is empty")
	}
	var (
		d    time.Duration
		form string
		err  error
	)
	if h, m, ok := strings.Cut(v, ":"); ok {
		form = FormHHMM
		d, err = parseHHMM(h, m)
	} else {
		form = FormDuration
		d, err = time.ParseDuration(v)
	}
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid interval %q: %w", v, err)
	}
	if d <= 0 {
		return Schedule{}, fmt.Errorf("interval %q must be positive", v)
	}
	return Schedule{Every: d, Form: form}, nil
}

// parseHHMM reads hours (up to three digits) and two-digit minutes.
func parseHHMM(h, m string) (time.Duration, error) {
	if !digits(h, 1, 3) || !digits(m, 2, 2) {
		return 0, errHHMM
	}
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	if mm > 59 {
		return 0, errHHMM
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute, nil
}

func digits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
