package pipeline

import (
	"time"

	"farewatch/internal/fare"
	"farewatch/internal/storage"
)

// Report summarises one run.
type Report struct {
	RunID    string
	Trigger  string
	Started  time.Time
	Finished time.Time
	Routes   []RouteReport

	// Sent and SendFailed count messages, which in batched mode can be
	// fewer than offers.
	Sent       int
	SendFailed int
	// Errors holds failures that are not tied to a route, such as a
	// batched delivery.
	Errors []error
}

// RouteReport is the outcome for one route.
type RouteReport struct {
	Route      fare.Route
	Candidates int
	Survivors  int
	Offers     int
	Errors     []error
}

func (r Report) Offers() int {
	n := 0
	for _, rr := range r.Routes {
		n += rr.Offers
	}
	return n
}

func (r Report) Candidates() int {
	n := 0
	for _, rr := range r.Routes {
		n += rr.Candidates
	}
	return n
}

// AllErrors returns route errors followed by run-level errors.
func (r Report) AllErrors() []error {
	var out []error
	for _, rr := range r.Routes {
		out = append(out, rr.Errors...)
	}
	return append(out, r.Errors...)
}

// Record converts the report into an audit row.
func (r Report) Record() storage.RunRecord {
	errs := r.AllErrors()
	rec := storage.RunRecord{
		ID:         r.RunID,
		Started:    r.Started,
		Finished:   r.Finished,
		Trigger:    r.Trigger,
		Routes:     len(r.Routes),
		Candidates: r.Candidates(),
		Offers:     r.Offers(),
		Sent:       r.Sent,
		Failures:   len(errs),
	}
	for _, err := range errs {
		rec.Errors = append(rec.Errors, err.Error())
	}
	return rec
}
