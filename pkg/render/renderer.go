// Package render provides the page-rendering backends used to resolve and
// fetch product images.
//
// A Renderer owns a single browsing session. Calls are expected to be made
// sequentially: FirstImageSource inspects whatever document the last
// Navigate call loaded.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photofetch/pkg/config"
	"photofetch/pkg/logger"
)

// WaitEvent names a page lifecycle milestone a navigation can wait for
type WaitEvent string

const (
	WaitDOMContentLoaded WaitEvent = "DOMContentLoaded"
	WaitLoad             WaitEvent = "load"
	WaitNetworkIdle      WaitEvent = "networkIdle"
)

// NavigateOptions controls a single navigation
type NavigateOptions struct {
	// WaitUntil lists milestones that must all be reached before Navigate returns
	WaitUntil []WaitEvent
	// Timeout overrides the backend's default navigation timeout when positive
	Timeout time.Duration
}

var (
	// PageLoad waits for the parsed document and an idle network, for pages
	// that lazy-load their images.
	PageLoad = NavigateOptions{WaitUntil: []WaitEvent{WaitDOMContentLoaded, WaitNetworkIdle}}

	// ResourceLoad waits for a directly opened resource to finish loading
	ResourceLoad = NavigateOptions{WaitUntil: []WaitEvent{WaitLoad}}
)

// Response is the main document response of a navigation
type Response struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
}

// OK reports whether the response has a non-error HTTP status
func (r *Response) OK() bool {
	return r.Status < 400
}

// Renderer loads URLs and inspects the loaded document
type Renderer interface {
	// Navigate loads rawURL and returns its main response with the raw body
	Navigate(ctx context.Context, rawURL string, opts NavigateOptions) (*Response, error)
	// FirstImageSource returns the resolved src of the first <img> of the
	// current document, or "" when there is none.
	FirstImageSource(ctx context.Context) (string, error)
	// Close releases the session
	Close() error
}

// New starts the backend selected in cfg
func New(ctx context.Context, cfg *config.BrowserConfig, log logger.Logger) (Renderer, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	switch cfg.Backend {
	case config.BackendChrome:
		return NewChrome(ctx, cfg, log)
	case config.BackendHTTP:
		return NewHTTP(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown render backend %q", cfg.Backend)
	}
}

func effectiveTimeout(opts NavigateOptions, fallback time.Duration) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	return fallback
}

// withTimeout derives a context from base that expires after d and is also
// cancelled when caller is done.
func withTimeout(base, caller context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(base, d)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// timeoutError turns an expired navigation context into a readable error,
// preferring the caller's own cancellation when that is the cause.
func timeoutError(caller context.Context, err error, d time.Duration) error {
	if caller.Err() != nil {
		return caller.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("navigation timeout of %s exceeded", d)
	}
	return err
}
