package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"farewatch/internal/fare"
	"farewatch/internal/flights"
	"farewatch/internal/storage"
	"farewatch/internal/transport"
)

type fakeSource struct {
	mu sync.Mutex

	// calendars by "ORIG-DEST" (joint) or "ORIG-DEST/oneway"
	calendars   map[string][]fare.CalendarCandidate
	calendarErr map[string]error
	// searches by "ORIG-DEST outbound return"
	searches  map[string]flights.SearchResult
	searchErr map[string]error
	nexts     map[string]flights.SearchResult
	nextErr   map[string]error

	calendarCalls []flights.CalendarQuery
	searchCalls   []flights.SearchQuery
	nextCalls     []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calendars:   map[string][]fare.CalendarCandidate{},
		calendarErr: map[string]error{},
		searches:    map[string]flights.SearchResult{},
		searchErr:   map[string]error{},
		nexts:       map[string]flights.SearchResult{},
		nextErr:     map[string]error{},
	}
}

func calendarKey(q flights.CalendarQuery) string {
	k := q.Origin + "-" + q.Destination
	if q.OneWay {
		k += "/oneway"
	}
	return k
}

func searchKey(q flights.SearchQuery) string {
	return strings.TrimSpace(fmt.Sprintf("%s-%s %s %s", q.Origin, q.Destination, q.Outbound, q.Return))
}

func (f *fakeSource) Calendar(_ context.Context, q flights.CalendarQuery) ([]fare.CalendarCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calendarCalls = append(f.calendarCalls, q)
	k := calendarKey(q)
	if err := f.calendarErr[k]; err != nil {
		return nil, err
	}
	return f.calendars[k], nil
}

func (f *fakeSource) Search(_ context.Context, q flights.SearchQuery) (flights.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls = append(f.searchCalls, q)
	k := searchKey(q)
	if err := f.searchErr[k]; err != nil {
		return flights.SearchResult{}, err
	}
	return f.searches[k], nil
}

func (f *fakeSource) Next(_ context.Context, token string) (flights.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextCalls = append(f.nextCalls, token)
	if err := f.nextErr[token]; err != nil {
		return flights.SearchResult{}, err
	}
	return f.nexts[token], nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	opts []transport.SendOptions
	// failIf fails any message containing this text
	failIf string
}

func (s *fakeSender) SendText(_ context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIf != "" && strings.Contains(text, s.failIf) {
		return transport.MessageRef{}, fmt.Errorf("telegram: chat not found")
	}
	s.sent = append(s.sent, text)
	if opt != nil {
		s.opts = append(s.opts, *opt)
	}
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(s.sent)}, nil
}

func (s *fakeSender) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type fakeRecorder struct {
	mu         sync.Mutex
	runs       []storage.RunRecord
	deliveries []storage.DeliveryRecord
}

func (r *fakeRecorder) AppendRun(_ context.Context, rec storage.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, rec)
	return nil
}

func (r *fakeRecorder) AppendDelivery(_ context.Context, rec storage.DeliveryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, rec)
	return nil
}

func price(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func option(carrier string, p int64, layovers ...fare.Layover) fare.ItineraryOption {
	return fare.ItineraryOption{
		Carrier:   carrier,
		Departure: "05-05-2025 10:30 AM",
		Arrival:   "05-05-2025 12:45 PM",
		Duration:  "2 h 15 min",
		Price:     price(p),
		Layovers:  layovers,
	}
}
