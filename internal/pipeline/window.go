package pipeline

import (
	"fmt"
	"strings"
	"time"

	"farewatch/internal/fare"
)

// Window is the calendar date range. Start/End (YYYY-MM-DD) win when set;
// otherwise the range starts OffsetDays after the run date and spans Days.
type Window struct {
	Start      string
	End        string
	OffsetDays int
	Days       int
}

// Resolve returns the concrete start and end dates for a run at now.
func (w Window) Resolve(now time.Time) (string, string, error) {
	if strings.TrimSpace(w.Start) != "" || strings.TrimSpace(w.End) != "" {
		start, err := time.Parse(fare.DateLayout, w.Start)
		if err != nil {
			return "", "", fmt.Errorf("window start: %w", err)
		}
		end, err := time.Parse(fare.DateLayout, w.End)
		if err != nil {
			return "", "", fmt.Errorf("window end: %w", err)
		}
		if end.Before(start) {
			return "", "", fmt.Errorf("window end %s before start %s", w.End, w.Start)
		}
		return w.Start, w.End, nil
	}
	if w.Days <= 0 {
		return "", "", fmt.Errorf("window has no dates and no length")
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := day.AddDate(0, 0, w.OffsetDays)
	end := start.AddDate(0, 0, w.Days-1)
	return start.Format(fare.DateLayout), end.Format(fare.DateLayout), nil
}

// shiftDate moves a YYYY-MM-DD date by days. Malformed input is returned
// unchanged.
func shiftDate(s string, days int) string {
	t, err := time.Parse(fare.DateLayout, s)
	if err != nil {
		return s
	}
	return t.AddDate(0, 0, days).Format(fare.DateLayout)
}
