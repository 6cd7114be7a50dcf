package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"ratescraper/internal/utils"
)

// BrowserFetcher loads pages in headless Chrome. It is used when the site
// serves its tables through scripts or blocks plain HTTP clients.
type BrowserFetcher struct {
	baseURL     string
	timeout     time.Duration
	userAgent   string
	logger      *utils.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu     sync.Mutex
	status int
}

// NewBrowserFetcher launches Chrome and keeps a single tab open for the run.
func NewBrowserFetcher(cfg utils.ScraperConfig, logger *utils.Logger) (*BrowserFetcher, error) {
	logger.Debug("Initializing Chrome")
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("lang", "vi"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.NoSandbox,
		chromedp.Flag("headless", cfg.Browser.Headless),
		chromedp.Flag("enable-logging", cfg.Browser.Debug),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Debug))

	// Test browser launch
	if err := chromedp.Run(ctx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	f := &BrowserFetcher{
		baseURL:     cfg.BaseURL,
		timeout:     cfg.TimeoutDuration(),
		userAgent:   cfg.UserAgent,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}
	chromedp.ListenTarget(ctx, f.onEvent)
	return f, nil
}

func (f *BrowserFetcher) onEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *page.EventJavascriptDialogOpening:
		f.logger.Debug("Dialog detected: %s", ev.Message)
		go func() {
			if err := chromedp.Run(f.ctx, page.HandleJavaScriptDialog(true)); err != nil {
				f.logger.Debug("Failed to handle dialog: %v", err)
			}
		}()
	case *network.EventResponseReceived:
		if ev.Type != network.ResourceTypeDocument || ev.Response == nil {
			return
		}
		f.mu.Lock()
		f.status = int(ev.Response.Status)
		f.mu.Unlock()
	}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, date time.Time) (*Page, error) {
	target, err := BuildURL(f.baseURL, date)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(f.ctx, f.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	f.mu.Lock()
	f.status = 0
	f.mu.Unlock()

	var html string
	err = chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(target),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, &FetchError{URL: target, Attempts: 1, Err: err}
	}

	f.mu.Lock()
	status := f.status
	f.mu.Unlock()

	p, err := navigationPage(target, status, html)
	if err != nil {
		f.logger.Warn("No document response seen for %s", target)
	}
	return p, err
}

// navigationPage turns a finished navigation into a Page. A zero status
// means the document response never arrived.
func navigationPage(target string, status int, html string) (*Page, error) {
	if status == 0 {
		return nil, &FetchError{URL: target, Attempts: 1, Err: ErrNoResponse}
	}
	return &Page{URL: target, StatusCode: status, Body: []byte(html)}, nil
}

// Check runs the browser preflight: a blank navigation and the network
// settings used for every fetch.
func (f *BrowserFetcher) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(f.ctx, 10*time.Second)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Navigate("about:blank")); err != nil {
		return fmt.Errorf("browser launch: %w", err)
	}

	actions := []chromedp.Action{network.Enable(), network.SetCacheDisabled(true)}
	if f.userAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(f.userAgent))
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return fmt.Errorf("network settings: %w", err)
	}
	return nil
}

// Close shuts the browser down.
func (f *BrowserFetcher) Close() error {
	f.logger.Debug("Closing browser")
	ctx, cancel := context.WithTimeout(f.ctx, 10*time.Second)
	defer cancel()

	err := chromedp.Cancel(ctx)
	f.cancel()
	f.allocCancel()
	return err
}
