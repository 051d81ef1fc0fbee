package fare

import (
	"fmt"
	"strings"
	"time"
)

// DefaultMaxLayover is the single-stop cap used by the lenient policy.
const DefaultMaxLayover = 90 * time.Minute

// RoutingPolicy decides whether an itinerary's stop pattern is acceptable.
type RoutingPolicy interface {
	Allows(o ItineraryOption) bool
	Name() string
}

// DirectOnly accepts only flights without stops.
type DirectOnly struct{}

func (DirectOnly) Allows(o ItineraryOption) bool { return o.Stops() == 0 }
func (DirectOnly) Name() string                  { return "direct" }

// BoundedLayover accepts direct flights, or a single stop no longer than
// MaxLayover.
type BoundedLayover struct {
	MaxLayover time.Duration
}

func (p BoundedLayover) Allows(o ItineraryOption) bool {
	switch o.Stops() {
	case 0:
		return true
	case 1:
		if len(o.Layovers) == 0 {
			return false
		}
		limit := p.MaxLayover
		if limit <= 0 {
			limit = DefaultMaxLayover
		}
		return o.Layovers[0].Duration <= limit
	default:
		return false
	}
}

func (p BoundedLayover) Name() string { return "one_stop" }

// ParsePolicy maps a config name to a policy. Empty means direct.
func ParsePolicy(name string, maxLayover time.Duration) (RoutingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "direct", "strict":
		return DirectOnly{}, nil
	case "one_stop", "lenient":
		if maxLayover <= 0 {
			maxLayover = DefaultMaxLayover
		}
		return BoundedLayover{MaxLayover: maxLayover}, nil
	default:
		return nil, fmt.Errorf("unknown routing policy %q (use direct or one_stop)", name)
	}
}
