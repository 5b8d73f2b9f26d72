package models

import (
	"fmt"
)

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// DataFetchError reports a failure to reach the upstream source or a non-2xx answer from it.
// StatusCode is zero for transport failures.
type DataFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DataFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream fetch failed: %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("upstream fetch failed: %s: %v", e.URL, e.Err)
}

func (e *DataFetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether retrying later could succeed
func (e *DataFetchError) IsTransient() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// DataFormatError reports an upstream response that cannot be interpreted as a whole
type DataFormatError struct {
	Reason string
	Err    error
}

func (e *DataFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed upstream response: %s: %v", e.Reason, e.Err)
	}
	return "malformed upstream response: " + e.Reason
}

func (e *DataFormatError) Unwrap() error {
	return e.Err
}

// IsTransient returns false: the same payload will fail the same way
func (e *DataFormatError) IsTransient() bool {
	return false
}

// InsufficientDataError is returned when a projection is requested for a series without points
type InsufficientDataError struct {
	Series string
	Points int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("series %q has %d points, cannot fit a trend", e.Series, e.Points)
}

// IsTransient returns false
func (e *InsufficientDataError) IsTransient() bool {
	return false
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
