package fare

import (
	"errors"
	"fmt"
)

type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result carries the outcome of one external fetch. A failed fetch has no
// items, so callers that only need the data can range over Items without
// checking, while tests and reports can still tell "no data" from "failed".
type Result[T any] struct {
	Items []T
	Err   error
}

func OK[T any](items []T) Result[T] { return Result[T]{Items: items} }

func Failed[T any](err error) Result[T] { return Result[T]{Err: err} }

func (r Result[T]) Status() Status {
	if r.Err != nil {
		return StatusFailed
	}
	if len(r.Items) == 0 {
		return StatusEmpty
	}
	return StatusOK
}

type Stage string

const (
	StageCalendar Stage = "calendar"
	StageSearch   Stage = "search"
	StageNext     Stage = "next"
	StageNotify   Stage = "notify"
)

// StageError records a degraded external call: which route, which stage.
type StageError struct {
	Route Route
	Stage Stage
	Leg   Leg
	Date  string
	Err   error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Route, e.Stage)
	if e.Date != "" {
		msg += " " + e.Date
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the stage of the first StageError in err's chain.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
