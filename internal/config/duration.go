package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var errNegativeDuration = errors.New("must not be negative")

// FieldError ties a rejected value to its config path, e.g. "provider.timeout".
type FieldError struct {
	Path  string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return e.Path + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s: %q: %v", e.Path, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ParseDurationField reads a Go duration string such as "90m". Empty is zero.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	switch {
	case err != nil:
		return 0, &FieldError{Path: path, Value: raw, Err: err}
	case d < 0:
		return 0, &FieldError{Path: path, Value: raw, Err: errNegativeDuration}
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def in place of an empty
// or zero value.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}
