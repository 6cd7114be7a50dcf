package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"ratescraper/internal/daterange"
	"ratescraper/internal/utils"
	"ratescraper/internal/workbook"
	"ratescraper/models"
)

// RunConfig holds the parameters of one run.
type RunConfig struct {
	Start       time.Time
	End         time.Time
	OutputPath  string
	BaseURL     string
	OnDuplicate workbook.DuplicatePolicy
}

// NewRunConfig fills the output and source settings from config.
func NewRunConfig(config *utils.Config, start, end time.Time) (RunConfig, error) {
	policy, err := workbook.ParsePolicy(config.Output.OnDuplicate)
	if err != nil {
		return RunConfig{}, err
	}
	return RunConfig{
		Start:       start,
		End:         end,
		OutputPath:  config.Output.Path,
		BaseURL:     config.Scraper.BaseURL,
		OnDuplicate: policy,
	}, nil
}

// SheetWriter receives one table per scraped date.
type SheetWriter interface {
	WriteSheet(table models.RateTable) (bool, error)
}

// Summary counts what happened to each date of a run.
type Summary struct {
	Dates      int
	Written    int
	NoData     int
	NoTables   int
	Failed     int
	Duplicates int
	Sheets     []string
}

type Scraper struct {
	logger      *utils.Logger
	config      *utils.Config
	fetcher     Fetcher
	extractor   Extractor
	limiter     *rate.Limiter
	perfTracker *utils.PerformanceTracker
}

func NewScraper(logger *utils.Logger, config *utils.Config, fetcher Fetcher) *Scraper {
	limit := rate.Inf
	if d := config.Scraper.DelayDuration(); d > 0 {
		limit = rate.Every(d)
	}
	return &Scraper{
		logger:      logger,
		config:      config,
		fetcher:     fetcher,
		extractor:   DefaultExtractor(),
		limiter:     rate.NewLimiter(limit, 1),
		perfTracker: utils.NewPerformanceTracker(),
	}
}

// NewFetcher builds the browser or plain HTTP fetcher for rc's source.
func NewFetcher(rc RunConfig, cfg utils.ScraperConfig, logger *utils.Logger) (Fetcher, error) {
	cfg.BaseURL = rc.BaseURL
	if cfg.Browser.Enabled {
		return NewBrowserFetcher(cfg, logger)
	}
	return NewHTTPFetcher(cfg, logger), nil
}

func (s *Scraper) GetPerformanceTracker() *utils.PerformanceTracker {
	return s.perfTracker
}

// ScrapeDate fetches and extracts one date. The error is nil only for
// OutcomeRates.
func (s *Scraper) ScrapeDate(ctx context.Context, date time.Time) (models.RateTable, models.Outcome, error) {
	table := models.RateTable{Date: date}
	label := table.SheetName()

	if err := s.limiter.Wait(ctx); err != nil {
		return table, models.OutcomeFailed, err
	}

	var page *Page
	err := s.perfTracker.Track("fetch", label, func() error {
		var err error
		page, err = s.fetcher.Fetch(ctx, date)
		return err
	})
	if err != nil {
		return table, models.OutcomeFailed, err
	}
	if page.StatusCode != http.StatusOK {
		return table, models.OutcomeFailed, &StatusError{Date: date, StatusCode: page.StatusCode}
	}

	err = s.perfTracker.Track("extract", label, func() error {
		var err error
		table.Rows, err = s.extractor.Extract(bytes.NewReader(page.Body))
		return err
	})
	switch {
	case errors.Is(err, ErrNoData):
		return table, models.OutcomeNoData, err
	case errors.Is(err, ErrNoTables):
		return table, models.OutcomeNoTables, err
	case err != nil:
		return table, models.OutcomeFailed, err
	}

	return table, models.OutcomeRates, nil
}

// ProcessRange scrapes every day of days in order and hands each table to
// w. Per-date problems are logged and skipped; a writer error or a
// cancelled context stops the run.
func (s *Scraper) ProcessRange(ctx context.Context, days daterange.Range, w SheetWriter) (Summary, error) {
	var summary Summary
	total := days.Len()

	for date := range days.All() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Dates++
		label := date.Format(models.SheetDateLayout)
		s.logger.Debug("Processing date %d/%d: %s", summary.Dates, total, label)

		table, outcome, err := s.ScrapeDate(ctx, date)
		switch outcome {
		case models.OutcomeNoData:
			s.logger.Info("No data available for %s.", label)
			summary.NoData++
			continue
		case models.OutcomeNoTables:
			s.logger.Warn("No rate tables found for %s.", label)
			summary.NoTables++
			continue
		case models.OutcomeFailed:
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				s.logger.Info("Failed to retrieve data for %s. Status code: %d", label, statusErr.StatusCode)
			} else {
				s.logger.Error("Failed to retrieve data for %s: %v", label, err)
			}
			summary.Failed++
			continue
		}

		var written bool
		err = s.perfTracker.Track("write", label, func() error {
			var err error
			written, err = w.WriteSheet(table)
			return err
		})
		if err != nil {
			return summary, fmt.Errorf("writing sheet %s: %w", label, err)
		}
		if !written {
			s.logger.Warn("Sheet %s already exists, keeping it", label)
			summary.Duplicates++
			continue
		}

		s.logger.Info("Wrote %d rows to sheet %s", len(table.Rows), label)
		summary.Written++
		summary.Sheets = append(summary.Sheets, label)
	}

	return summary, nil
}

// Run opens the output workbook once, processes the whole range and
// commits the workbook. Sheets written before a fatal error or
// cancellation are still committed.
func (s *Scraper) Run(ctx context.Context, rc RunConfig) (Summary, error) {
	days := daterange.New(rc.Start, rc.End)
	if days.Reversed() {
		s.logger.Warn("End date is before start date (%s), no dates to process", days)
	}

	w, err := workbook.Open(rc.OutputPath, rc.OnDuplicate)
	if err != nil {
		return Summary{}, err
	}
	if w.Appending() {
		s.logger.Info("Appending to existing workbook %s", rc.OutputPath)
	} else {
		s.logger.Debug("Creating workbook %s", rc.OutputPath)
	}

	s.logger.Info("Scraping %d date(s) from %s", days.Len(), rc.BaseURL)
	summary, runErr := s.ProcessRange(ctx, days, w)
	s.logger.Debug("Workbook %s holds %d sheet(s)", rc.OutputPath, len(w.Sheets()))

	if err := w.Close(); err != nil {
		return summary, errors.Join(runErr, fmt.Errorf("saving workbook: %w", err))
	}
	return summary, runErr
}

// PreflightCheck verifies configuration, the directories rc writes to and
// the fetcher before any date is processed.
func (s *Scraper) PreflightCheck(ctx context.Context, rc RunConfig) error {
	checks := []struct {
		name  string
		check func() error
	}{
		{"Config Validation", s.validateConfig},
		{"Directory Structure", func() error { return s.checkDirectories(rc) }},
		{"Fetcher", func() error { return s.checkFetcher(ctx) }},
	}

	for _, c := range checks {
		s.logger.Debug("Running preflight check: %s", c.name)
		if err := c.check(); err != nil {
			return fmt.Errorf("%s check failed: %w", c.name, err)
		}
		s.logger.Debug("%s check passed", c.name)
	}

	return nil
}

func (s *Scraper) validateConfig() error {
	if s.config == nil {
		return fmt.Errorf("configuration is nil")
	}
	if s.fetcher == nil {
		return fmt.Errorf("fetcher is nil")
	}
	return s.config.Validate()
}

func (s *Scraper) checkDirectories(rc RunConfig) error {
	if rc.OutputPath == "" {
		return fmt.Errorf("output path is empty")
	}
	if err := utils.EnsureParentDir(rc.OutputPath); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if dir := s.config.Logging.Dir; dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}
	return nil
}

func (s *Scraper) checkFetcher(ctx context.Context) error {
	c, ok := s.fetcher.(interface{ Check(context.Context) error })
	if !ok {
		return nil
	}
	return c.Check(ctx)
}

// Close releases the fetcher, shutting the browser down in browser mode.
func (s *Scraper) Close() error {
	if c, ok := s.fetcher.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
