package fare

import (
	"fmt"
	"strings"
	"time"
)

// DurationFallback is shown when the provider omits the duration text.
const DurationFallback = "Indisponível"

// FormatDate turns "YYYY-MM-DD" into "DD/MM/YYYY". Input that does not
// have three dash-separated parts is returned unchanged.
func FormatDate(s string) string {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return s
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}

// FormatTime extracts "<time> <AMPM>" from "<date> <time> <AMPM>". The date
// portion is dropped, never reformatted.
func FormatTime(s string) string {
	parts := strings.SplitN(strings.TrimSpace(s), " ", 4)
	switch len(parts) {
	case 0, 1:
		return s
	case 2:
		return parts[1]
	default:
		return parts[1] + " " + parts[2]
	}
}

// StopLabel renders the routing-quality label for an option.
func StopLabel(o ItineraryOption) string {
	switch n := o.Stops(); n {
	case 0:
		return "Direto"
	case 1:
		if len(o.Layovers) == 0 {
			return "1 parada"
		}
		label := strings.TrimSpace(o.Layovers[0].Label)
		if label == "" {
			label = formatLayover(o.Layovers[0].Duration)
		}
		return fmt.Sprintf("1 parada (%s)", label)
	default:
		return fmt.Sprintf("%d paradas", n)
	}
}

func formatLayover(d time.Duration) string {
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%d h %d min", h, m)
	case h > 0:
		return fmt.Sprintf("%d h", h)
	default:
		return fmt.Sprintf("%d min", m)
	}
}

func durationText(o ItineraryOption) string {
	if s := strings.TrimSpace(o.Duration); s != "" {
		return s
	}
	return DurationFallback
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown escapes provider text for Telegram's legacy Markdown mode.
func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }
