package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NoDataMessage is the heading the site renders when it has no rates for
// the requested date.
const NoDataMessage = "Chúng tôi không có thông tin tỷ giá trong ngày này. Bạn vui lòng chọn ngày khác để xem."

// Extractor pulls rate rows out of a rate page.
type Extractor struct {
	// NoDataSelector and NoDataMessage identify the "no data" heading.
	NoDataSelector string
	NoDataMessage  string
	// TableClasses lists the class variants of rate tables. A table matches
	// a variant when its class attribute holds the variant's tokens in that
	// order, next to each other. Tables are collected variant by variant.
	TableClasses [][]string
	// ExcludeClasses marks visual-only tables that are never extracted.
	ExcludeClasses []string
}

// DefaultExtractor matches the source site's markup.
func DefaultExtractor() Extractor {
	return Extractor{
		NoDataSelector: "h2",
		NoDataMessage:  NoDataMessage,
		TableClasses: [][]string{
			{"table", "table-condensed", "table-hover", "table-bordered"},
			{"table", "table-hover", "table-bordered", "table-condensed"},
		},
		ExcludeClasses: []string{"u", "d"},
	}
}

// Extract returns every data row of the rate tables: all tables of the
// first class variant in document order, then those of the next. It fails
// with ErrNoData when the no-data heading is present and with ErrNoTables
// when no table produced a row.
func (e Extractor) Extract(r io.Reader) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	if e.hasNoDataMarker(doc) {
		return nil, ErrNoData
	}

	tables := doc.Find("table")
	classes := make([][]string, tables.Length())
	tables.Each(func(i int, table *goquery.Selection) {
		classes[i] = strings.Fields(table.AttrOr("class", ""))
	})

	var rows [][]string
	seen := make(map[int]bool)
	for _, variant := range e.TableClasses {
		tables.Each(func(i int, table *goquery.Selection) {
			if seen[i] || !containsRun(classes[i], variant) {
				return
			}
			seen[i] = true
			if e.isExcluded(classes[i]) {
				return
			}
			rows = append(rows, tableRows(table)...)
		})
	}

	if len(rows) == 0 {
		return nil, ErrNoTables
	}
	return rows, nil
}

func (e Extractor) hasNoDataMarker(doc *goquery.Document) bool {
	if e.NoDataMessage == "" {
		return false
	}
	selector := e.NoDataSelector
	if selector == "" {
		selector = "h2"
	}

	found := false
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = strings.TrimSpace(s.Text()) == e.NoDataMessage
		return !found
	})
	return found
}

func tableRows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		row := make([]string, 0, cells.Length())
		cells.Each(func(_ int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		rows = append(rows, row)
	})
	return rows
}

func (e Extractor) isExcluded(classes []string) bool {
	for _, c := range classes {
		for _, x := range e.ExcludeClasses {
			if c == x {
				return true
			}
		}
	}
	return false
}

// containsRun reports whether want occurs in have as a contiguous run.
func containsRun(have, want []string) bool {
	if len(want) == 0 || len(want) > len(have) {
		return false
	}
	for i := 0; i+len(want) <= len(have); i++ {
		match := true
		for j, c := range want {
			if have[i+j] != c {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
