package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidConfiguration is returned before any work starts when the
	// requested encoding or repair parameters are unusable.
	ErrInvalidConfiguration = errors.New("domain: invalid configuration")
	// ErrFetch marks an interval whose raw container could not be retrieved.
	ErrFetch = errors.New("domain: fetch failed")
	// ErrDecode marks an interval whose raw container could not be parsed.
	ErrDecode = errors.New("domain: decode failed")
	// ErrDayFailed is matched by DayFailedError.
	ErrDayFailed     = errors.New("domain: day reconstruction failed")
	ErrNotFound      = errors.New("domain: not found")
	ErrInvalidRefDes = errors.New("domain: invalid reference designator")
)

// IntervalError ties a fetch or decode failure to the interval URL it came from.
type IntervalError struct {
	URL  string
	Kind error // ErrFetch or ErrDecode
	Err  error
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *IntervalError) Is(target error) bool {
	return target == e.Kind
}

func (e *IntervalError) Unwrap() error {
	return e.Err
}

// DayFailedError reports the intervals that failed once every worker of a day
// has drained. The DayResult returned alongside it still holds every entry.
type DayFailedError struct {
	RefDes string
	Day    time.Time
	Failed []DayEntry
}

func (e *DayFailedError) Error() string {
	urls := make([]string, 0, len(e.Failed))
	for _, entry := range e.Failed {
		urls = append(urls, entry.Interval.Name)
	}
	return fmt.Sprintf("%v: %s %s: %d interval(s) failed: %s",
		ErrDayFailed, e.RefDes, e.Day.Format(DayLayout), len(e.Failed), strings.Join(urls, ", "))
}

func (e *DayFailedError) Is(target error) bool {
	return target == ErrDayFailed
}

// Unwrap exposes the per-interval errors so errors.Is can see ErrFetch/ErrDecode.
func (e *DayFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, entry := range e.Failed {
		if entry.Outcome.Err != nil {
			errs = append(errs, entry.Outcome.Err)
		}
	}
	return errs
}
