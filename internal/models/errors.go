package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Custom errors
var (
	ErrMissingField        = errors.New("required field missing")
	ErrNoResults           = errors.New("no hour produced a result")
	ErrNoTrades            = errors.New("no trades in range")
	ErrUnknownStrategyKind = errors.New("unknown strategy kind")
	ErrSessionClosed       = errors.New("broker session not connected")
	ErrInvalidDeal         = errors.New("invalid deal record")
	ErrUnmatchedExit       = errors.New("exit deal without matching entry")
)

// ConfigurationError reports a malformed or incomplete configuration unit
type ConfigurationError struct {
	Source string
	Field  string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("configuration %s: field %s: %v", e.Source, e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// UpstreamUnavailableError reports a collaborator that could not be reached or failed
type UpstreamUnavailableError struct {
	Component string
	Key       string
	Err       error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable [%s]: %v", e.Component, e.Key, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }

// AmbiguousMergeError reports a bar claimed by more than one trading hour
type AmbiguousMergeError struct {
	Time  time.Time
	Hours []int
}

func (e *AmbiguousMergeError) Error() string {
	parts := make([]string, len(e.Hours))
	for i, h := range e.Hours {
		parts[i] = fmt.Sprintf("%02d", h)
	}
	return fmt.Sprintf("bar %s claimed by hours %s", e.Time.Format(time.RFC3339), strings.Join(parts, ","))
}

// IsConfigurationError reports whether err is a ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsUpstreamUnavailable reports whether err is an UpstreamUnavailableError
func IsUpstreamUnavailable(err error) bool {
	var upErr *UpstreamUnavailableError
	return errors.As(err, &upErr)
}
