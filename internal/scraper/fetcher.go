package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ratescraper/internal/daterange"
	"ratescraper/internal/utils"
)

// maxBodySize caps how much of a page is read.
const maxBodySize = 10 << 20

// Page is one retrieved document.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves the rate page for a date.
type Fetcher interface {
	Fetch(ctx context.Context, date time.Time) (*Page, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, date time.Time) (*Page, error)

func (f FetcherFunc) Fetch(ctx context.Context, date time.Time) (*Page, error) {
	return f(ctx, date)
}

// BuildURL sets the date query parameter (DD-MM-YYYY) on base.
func BuildURL(base string, date time.Time) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("date", date.Format(daterange.InputLayout))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// HTTPFetcher issues plain GET requests with a per-attempt timeout and
// exponential backoff between attempts. Only transport errors, 429 and 5xx
// responses are retried.
type HTTPFetcher struct {
	baseURL   string
	client    *http.Client
	timeout   time.Duration
	retries   int
	backoff   time.Duration
	userAgent string
	logger    *utils.Logger
}

func NewHTTPFetcher(cfg utils.ScraperConfig, logger *utils.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL:   cfg.BaseURL,
		client:    &http.Client{},
		timeout:   cfg.TimeoutDuration(),
		retries:   cfg.Retries,
		backoff:   cfg.BackoffDuration(),
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, date time.Time) (*Page, error) {
	target, err := BuildURL(f.baseURL, date)
	if err != nil {
		return nil, err
	}

	attempts := f.retries + 1
	var page *Page
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := f.backoff * time.Duration(1<<(attempt-1))
			f.logger.Debug("Retrying %s in %v (attempt %d/%d)", target, wait, attempt+1, attempts)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		page, err = f.fetchOnce(ctx, target)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			f.logger.Debug("Request to %s failed: %v", target, err)
			continue
		}
		if !retryable(page.StatusCode) {
			return page, nil
		}
		f.logger.Debug("Request to %s returned status %d", target, page.StatusCode)
	}

	if err != nil {
		return nil, &FetchError{URL: target, Attempts: attempts, Err: err}
	}
	return page, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, target string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		request.Header.Set("User-Agent", f.userAgent)
	}

	response, err := f.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{URL: target, StatusCode: response.StatusCode, Body: body}, nil
}

// Check verifies the base URL can be turned into a request target.
func (f *HTTPFetcher) Check(ctx context.Context) error {
	_, err := BuildURL(f.baseURL, time.Now())
	return err
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
