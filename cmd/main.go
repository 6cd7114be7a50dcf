// Package main provides the entry point for the exchange-rate scraper.
// It downloads the daily rate tables for a date range and stores each day
// as a sheet of one workbook.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ratescraper/internal/daterange"
	"ratescraper/internal/scraper"
	"ratescraper/internal/utils"
)

type options struct {
	start      string
	end        string
	output     string
	configPath string
	baseURL    string
	browser    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "ratescraper",
		Short: "Download daily exchange-rate tables into one workbook",
		Long: `ratescraper fetches the published exchange-rate page for every day between
--start and --end (inclusive) and writes each day's tables to a sheet named
YYYY-MM-DD. An existing workbook is appended to. Dates left out on the
command line are asked for interactively.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.start, "start", "", "start date (DD-MM-YYYY)")
	cmd.Flags().StringVar(&opts.end, "end", "", "end date (DD-MM-YYYY), inclusive")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output workbook (default from config: exchange_rates.xlsx)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default $CONFIG_PATH or configs/config.yaml)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "rate page URL; the date is sent as ?date=DD-MM-YYYY")
	cmd.Flags().BoolVar(&opts.browser, "browser", false, "load pages with headless Chrome")

	return cmd
}

// loadConfig resolves the config file and applies command-line overrides.
func loadConfig(cmd *cobra.Command, opts *options) (*utils.Config, error) {
	configPath := opts.configPath
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	config, err := utils.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.output != "" {
		config.Output.Path = opts.output
	}
	if opts.baseURL != "" {
		config.Scraper.BaseURL = opts.baseURL
	}
	if cmd.Flags().Changed("browser") {
		config.Scraper.Browser.Enabled = opts.browser
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func run(cmd *cobra.Command, opts *options) error {
	startTime := time.Now()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	config, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	days, err := readRange(cmd.InOrStdin(), out, opts)
	if err != nil {
		return err
	}

	base, err := utils.NewLogger(config.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer base.Close()
	logger := base.With("run_id", uuid.NewString())

	logger.Info("Starting exchange rate scraper for %s", days)

	rc, err := scraper.NewRunConfig(config, days.Start, days.End)
	if err != nil {
		return err
	}

	fetcher, err := scraper.NewFetcher(rc, config.Scraper, logger)
	if err != nil {
		logger.Error("Failed to initialize fetcher: %v", err)
		return err
	}
	s := scraper.NewScraper(logger, config, fetcher)
	defer func() {
		if err := s.Close(); err != nil {
			logger.Debug("Error during fetcher shutdown: %v", err)
		}
	}()

	if err := s.PreflightCheck(ctx, rc); err != nil {
		logger.Error("Preflight check failed: %v", err)
		return err
	}

	summary, err := s.Run(ctx, rc)
	logger.Info("Aggregate Performance Report:\n%s", s.GetPerformanceTracker().GenerateAggregateReport())
	logger.Info("Processed %d date(s): %d written, %d without data, %d without tables, %d failed, %d already present",
		summary.Dates, summary.Written, summary.NoData, summary.NoTables, summary.Failed, summary.Duplicates)
	if err != nil {
		logger.Error("Run stopped: %v", err)
		return err
	}

	logger.Info("Total execution time: %v", time.Since(startTime).Round(time.Millisecond))
	if summary.Written > 0 {
		fmt.Fprintf(out, "Data written to %s\n", rc.OutputPath)
	} else {
		fmt.Fprintf(out, "No new sheets; %s left unchanged\n", rc.OutputPath)
	}
	return nil
}

func readRange(in io.Reader, out io.Writer, opts *options) (daterange.Range, error) {
	start, end, err := utils.PromptDates(in, out, opts.start, opts.end)
	if err != nil {
		return daterange.Range{}, err
	}
	return daterange.Parse(start, end)
}
