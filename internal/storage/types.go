package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines files next to Path
//   - "sqlite": SQLite database file (modernc.org/sqlite, no cgo)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunRecord summarises one pipeline run.
type RunRecord struct {
	ID         string    `json:"id"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
	Trigger    string    `json:"trigger"`
	Routes     int       `json:"routes"`
	Candidates int       `json:"candidates"`
	Offers     int       `json:"offers"`
	Sent       int       `json:"sent"`
	Failures   int       `json:"failures"`
	Errors     []string  `json:"errors,omitempty"`
}

// DeliveryRecord is one attempted Telegram message.
type DeliveryRecord struct {
	RunID     string    `json:"run_id"`
	At        time.Time `json:"at"`
	Route     string    `json:"route"`
	Outbound  string    `json:"outbound,omitempty"`
	Return    string    `json:"return,omitempty"`
	Price     string    `json:"price,omitempty"`
	MessageID int       `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
}
