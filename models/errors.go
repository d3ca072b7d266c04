package models

import (
	"errors"
	"fmt"
)

// IncompleteRecordError means upstream data lacked a field the engine requires
type IncompleteRecordError struct {
	Field string
	Title string
}

func (e *IncompleteRecordError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("incomplete record for %q: missing %s", e.Title, e.Field)
	}
	return fmt.Sprintf("incomplete record: missing %s", e.Field)
}

// InvalidRatingScaleError means a raw score fell outside its source's scale
type InvalidRatingScaleError struct {
	Source RatingSource
	Raw    float64
	Max    float64
}

func (e *InvalidRatingScaleError) Error() string {
	if e.Max <= 0 {
		return fmt.Sprintf("rating source %q has no known scale (raw %.2f)", e.Source, e.Raw)
	}
	return fmt.Sprintf("%s rating %.2f outside scale 0-%.0f", e.Source, e.Raw, e.Max)
}

// CollaboratorUnavailableError wraps a failed call to an external service
type CollaboratorUnavailableError struct {
	Service    string
	Op         string
	StatusCode int
	Auth       bool
	Err        error
}

func (e *CollaboratorUnavailableError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Service, e.Op)
	if e.Auth {
		msg += " (authentication rejected)"
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CollaboratorUnavailableError) Unwrap() error {
	return e.Err
}

// IsAuthFailure reports whether err is a collaborator rejecting our credentials
func IsAuthFailure(err error) bool {
	var cerr *CollaboratorUnavailableError
	return errors.As(err, &cerr) && cerr.Auth
}
