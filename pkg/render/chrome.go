package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"photofetch/pkg/config"
	"photofetch/pkg/logger"
)

const firstImageScript = `(() => {
	const img = document.querySelector("img");
	return img ? img.src : "";
})()`

// Chrome renders pages in a headless Chrome tab driven over the DevTools protocol
type Chrome struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	navTimeout  time.Duration
	logger      logger.Logger
	cdpLogger   zerolog.Logger
	tracker     *pageTracker
}

// NewChrome launches a browser with a single tab. The launch is bounded by
// cfg.LaunchTimeout and by ctx.
func NewChrome(ctx context.Context, cfg *config.BrowserConfig, log logger.Logger) (*Chrome, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "en-US,en"),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if !cfg.Headless {
		// undo the three opts in chromedp.Headless() which is included in DefaultExecAllocatorOptions
		opts = append(opts,
			chromedp.Flag("headless", false),
			chromedp.Flag("hide-scrollbars", false),
			chromedp.Flag("mute-audio", false),
		)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	c := &Chrome{
		navTimeout: cfg.NavigationTimeout,
		logger:     log.WithField("component", "chrome"),
		cdpLogger:  log.GetZerolog().With().Str("component", "cdp").Logger(),
		tracker:    newPageTracker(),
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	c.allocCancel = allocCancel

	c.tabCtx, c.tabCancel = chromedp.NewContext(allocCtx,
		chromedp.WithLogf(c.cdpLog),
		chromedp.WithDebugf(c.cdpDebug),
		chromedp.WithErrorf(c.cdpError),
	)
	chromedp.ListenTarget(c.tabCtx, c.tracker.handle)

	c.logger.InfoWithFields("Starting browser", map[string]interface{}{
		"headless":  cfg.Headless,
		"exec_path": cfg.ExecPath,
	})

	// The first Run allocates the browser, so it must not carry a deadline.
	errc := make(chan error, 1)
	go func() {
		errc <- chromedp.Run(c.tabCtx,
			network.Enable(),
			page.SetLifecycleEventsEnabled(true),
		)
	}()

	timer := time.NewTimer(cfg.LaunchTimeout)
	defer timer.Stop()

	select {
	case err := <-errc:
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	case <-timer.C:
		c.Close()
		return nil, fmt.Errorf("browser did not start within %s", cfg.LaunchTimeout)
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}

	return c, nil
}

// Navigate loads rawURL in the tab and waits for the requested lifecycle events
func (c *Chrome) Navigate(ctx context.Context, rawURL string, opts NavigateOptions) (*Response, error) {
	timeout := effectiveTimeout(opts, c.navTimeout)
	runCtx, cancel := withTimeout(c.tabCtx, ctx, timeout)
	defer cancel()

	c.tracker.reset()

	var loaderID cdp.LoaderID
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, id, errorText, err := page.Navigate(rawURL).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return errors.New(errorText)
		}
		loaderID = id
		return nil
	}))
	if err != nil {
		return nil, timeoutError(ctx, err, timeout)
	}
	if loaderID == "" {
		return nil, fmt.Errorf("navigation to %s did not load a new document", rawURL)
	}

	doc, err := c.tracker.wait(runCtx, loaderID, opts.WaitUntil)
	if err != nil {
		return nil, timeoutError(ctx, err, timeout)
	}

	var body []byte
	err = chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(doc.requestID).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", timeoutError(ctx, err, timeout))
	}

	resp := &Response{
		URL:         doc.response.URL,
		Status:      int(doc.response.Status),
		ContentType: doc.response.MimeType,
		Body:        body,
	}

	c.logger.DebugWithFields("Navigation finished", map[string]interface{}{
		"url":    resp.URL,
		"status": resp.Status,
		"bytes":  len(resp.Body),
	})

	return resp, nil
}

// FirstImageSource evaluates a script in the current document returning the
// first image's resolved src
func (c *Chrome) FirstImageSource(ctx context.Context) (string, error) {
	var src string
	if err := c.Evaluate(ctx, firstImageScript, &src); err != nil {
		return "", fmt.Errorf("failed to query image element: %w", err)
	}
	return src, nil
}

// Evaluate runs a script against the current document and unmarshals its result into res
func (c *Chrome) Evaluate(ctx context.Context, script string, res interface{}) error {
	runCtx, cancel := withTimeout(c.tabCtx, ctx, c.navTimeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, res)); err != nil {
		return timeoutError(ctx, err, c.navTimeout)
	}
	return nil
}

// Close shuts the tab and the browser process
func (c *Chrome) Close() error {
	var err error
	if c.tabCtx != nil {
		if cerr := chromedp.Cancel(c.tabCtx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = fmt.Errorf("failed to close browser tab: %w", cerr)
		}
		c.tabCancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
	c.logger.Debug("Browser closed")
	return err
}

func (c *Chrome) cdpLog(format string, v ...any) {
	if !strings.Contains(format, "unhandled") && !strings.Contains(format, "event") {
		c.cdpLogger.Debug().Msgf(format, v...)
	}
}

func (c *Chrome) cdpDebug(format string, v ...any) {
	c.cdpLogger.Trace().Msgf(format, v...)
}

func (c *Chrome) cdpError(format string, v ...any) {
	if !strings.Contains(format, "unhandled") && !strings.Contains(format, "event") {
		c.cdpLogger.Error().Msgf(format, v...)
	}
}

type documentResponse struct {
	requestID network.RequestID
	response  *network.Response
}

// pageTracker records lifecycle events and main document responses per
// loader. Its handler runs synchronously inside chromedp's event loop, so
// it only records and signals.
type pageTracker struct {
	mu      sync.Mutex
	events  map[cdp.LoaderID]map[string]bool
	docs    map[cdp.LoaderID]documentResponse
	changed chan struct{}
}

func newPageTracker() *pageTracker {
	return &pageTracker{
		events:  make(map[cdp.LoaderID]map[string]bool),
		docs:    make(map[cdp.LoaderID]documentResponse),
		changed: make(chan struct{}, 1),
	}
}

func (t *pageTracker) handle(ev interface{}) {
	switch ev := ev.(type) {
	case *page.EventLifecycleEvent:
		if ev.LoaderID == "" {
			return
		}
		t.mu.Lock()
		seen := t.events[ev.LoaderID]
		if seen == nil || ev.Name == "init" {
			seen = make(map[string]bool)
			t.events[ev.LoaderID] = seen
		}
		seen[ev.Name] = true
		t.mu.Unlock()
	case *network.EventResponseReceived:
		if ev.Type != network.ResourceTypeDocument || ev.LoaderID == "" || ev.Response == nil {
			return
		}
		t.mu.Lock()
		if _, ok := t.docs[ev.LoaderID]; !ok {
			t.docs[ev.LoaderID] = documentResponse{requestID: ev.RequestID, response: ev.Response}
		}
		t.mu.Unlock()
	default:
		return
	}

	select {
	case t.changed <- struct{}{}:
	default:
	}
}

func (t *pageTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = make(map[cdp.LoaderID]map[string]bool)
	t.docs = make(map[cdp.LoaderID]documentResponse)
}

// wait blocks until the document response for loaderID arrived and every
// event in want was seen for it
func (t *pageTracker) wait(ctx context.Context, loaderID cdp.LoaderID, want []WaitEvent) (documentResponse, error) {
	for {
		t.mu.Lock()
		doc, ok := t.docs[loaderID]
		if ok {
			seen := t.events[loaderID]
			for _, w := range want {
				if !seen[string(w)] {
					ok = false
					break
				}
			}
		}
		t.mu.Unlock()

		if ok {
			return doc, nil
		}

		select {
		case <-t.changed:
		case <-ctx.Done():
			return documentResponse{}, ctx.Err()
		}
	}
}
