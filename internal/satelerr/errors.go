// Package satelerr defines the error vocabulary shared by the imagery,
// classification, and change-detection stages. Region validation errors
// live in the geo package; everything that can go wrong after a region
// is accepted is defined here.
package satelerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching. Each has a typed counterpart
// below that carries context for errors.As.
var (
	// ErrDataUnavailable means no usable imagery exists for a region/year.
	ErrDataUnavailable = errors.New("imagery data unavailable")

	// ErrClassifierUnavailable means the external classifier call failed
	// or timed out.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrGridMismatch means two rasters expected to share a grid do not.
	// This is a programming error in compositing or caching, never a
	// recoverable condition.
	ErrGridMismatch = errors.New("raster grid mismatch")
)

// DataUnavailableError reports that no scenes survived the cloud filter
// (or the provider returned nothing) for one region/year.
type DataUnavailableError struct {
	Region string
	Year   int
	Reason string
}

func (e *DataUnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no usable imagery for %s in %d: %s", e.Region, e.Year, e.Reason)
	}
	return fmt.Sprintf("no usable imagery for %s in %d", e.Region, e.Year)
}

func (e *DataUnavailableError) Unwrap() error { return ErrDataUnavailable }

// ClassifierUnavailableError reports a failed or timed-out classifier
// call for one year.
type ClassifierUnavailableError struct {
	Year  int
	Cause error
}

func (e *ClassifierUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("classifier call failed for year %d: %v", e.Year, e.Cause)
	}
	return fmt.Sprintf("classifier call failed for year %d", e.Year)
}

func (e *ClassifierUnavailableError) Unwrap() error { return ErrClassifierUnavailable }

// GridMismatchError reports two rasters that were expected to align.
// Want and Got are human-readable grid descriptions ("rows x cols @ res").
type GridMismatchError struct {
	Want string
	Got  string
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf("raster grid mismatch: want %s, got %s", e.Want, e.Got)
}

func (e *GridMismatchError) Unwrap() error { return ErrGridMismatch }
