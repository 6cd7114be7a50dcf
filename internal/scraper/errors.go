package scraper

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoData means the page carries the site's "no rates for this date" marker.
var ErrNoData = errors.New("no exchange rate data for date")

// ErrNoTables means the page loaded but no rate table yielded any row.
var ErrNoTables = errors.New("no rate tables found")

// ErrNoResponse means a browser navigation finished without the main
// document's HTTP response being observed, e.g. a blocked request.
var ErrNoResponse = errors.New("no document response received")

// StatusError reports a non-200 response for a date.
type StatusError struct {
	Date       time.Time
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to retrieve data for %s, status code: %d", e.Date.Format("2006-01-02"), e.StatusCode)
}

// FetchError wraps a transport failure that outlived every retry.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
