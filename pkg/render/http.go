package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"photofetch/pkg/config"
	"photofetch/pkg/logger"
)

const maxBodySize = 64 << 20

// HTTP is a renderer for pages that do not need JavaScript. Documents are
// fetched with a plain HTTP client and queried with goquery. Wait events are
// satisfied once the full body has been read.
type HTTP struct {
	client     *http.Client
	userAgent  string
	navTimeout time.Duration
	maxBody    int64
	logger     logger.Logger

	last *Response
}

// NewHTTP creates an HTTP renderer
func NewHTTP(cfg *config.BrowserConfig, log logger.Logger) *HTTP {
	return &HTTP{
		client:     &http.Client{},
		userAgent:  cfg.UserAgent,
		navTimeout: cfg.NavigationTimeout,
		maxBody:    maxBodySize,
		logger:     log.WithField("component", "http"),
	}
}

// Navigate fetches rawURL, following redirects
func (h *HTTP) Navigate(ctx context.Context, rawURL string, opts NavigateOptions) (*Response, error) {
	timeout := effectiveTimeout(opts, h.navTimeout)
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,image/avif,image/webp,image/*,*/*;q=0.8")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, timeoutError(ctx, unwrapURLError(err), timeout)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", timeoutError(ctx, err, timeout))
	}
	if int64(len(body)) > h.maxBody {
		return nil, fmt.Errorf("response body exceeds %d bytes", h.maxBody)
	}

	result := &Response{
		URL:         resp.Request.URL.String(),
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	h.last = result

	h.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":         result.URL,
		"status_code": result.Status,
		"bytes":       len(body),
		"duration":    time.Since(start),
	})

	return result, nil
}

// FirstImageSource parses the last fetched document and returns the first
// <img> src resolved against the document URL (or its <base href>). An
// image response is its own first image, as in a browser's image viewer.
func (h *HTTP) FirstImageSource(ctx context.Context) (string, error) {
	if h.last == nil {
		return "", errors.New("no document loaded")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(h.last.ContentType)), "image/") {
		return h.last.URL, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(h.last.Body))
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}

	src, ok := doc.Find("img").First().Attr("src")
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return "", nil
	}

	base, err := url.Parse(h.last.URL)
	if err != nil {
		return "", fmt.Errorf("invalid document url: %w", err)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	ref, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("invalid image src %q: %w", src, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// Close releases idle connections
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// unwrapURLError strips the *url.Error wrapper so failure messages carry the
// transport cause rather than repeating the method and URL
func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
