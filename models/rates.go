// Package models defines the data structures used in the application.
package models

import "time"

// SheetDateLayout is the layout used for worksheet names.
const SheetDateLayout = "2006-01-02"

// RateTable holds every row scraped from one date's page.
// Column count and meaning depend on what the source renders that day.
type RateTable struct {
	Date time.Time
	Rows [][]string
}

// SheetName returns the worksheet name for the table's date.
func (t RateTable) SheetName() string {
	return t.Date.Format(SheetDateLayout)
}

// Empty reports whether the table has no rows.
func (t RateTable) Empty() bool {
	return len(t.Rows) == 0
}

// Outcome is the result of scraping a single date.
type Outcome int

const (
	OutcomeRates    Outcome = iota // rows were extracted
	OutcomeNoData                  // the site says nothing was published
	OutcomeNoTables                // page loaded but no rate tables matched
	OutcomeFailed                  // non-200 status or transport error
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRates:
		return "rates"
	case OutcomeNoData:
		return "no_data"
	case OutcomeNoTables:
		return "no_tables"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}
