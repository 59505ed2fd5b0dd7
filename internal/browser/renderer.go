// Package browser renders web pages to HTML for the scraping step.
package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const (
	// DefaultWait bounds how long a page may keep loading dynamic content.
	DefaultWait     = 5 * time.Second
	renderStableDur = 500 * time.Millisecond
	maxBodyBytes    = 5 << 20
	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Renderer turns a URL into HTML.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

var blockedResourceTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeMedia,
}

// RodRenderer renders JavaScript-heavy pages with headless Chromium. The
// browser is launched on first use; call Close when done.
type RodRenderer struct {
	wait time.Duration

	mu      sync.Mutex
	browser *rod.Browser
}

func NewRodRenderer(wait time.Duration) *RodRenderer {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &RodRenderer{wait: wait}
}

func (r *RodRenderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	u, err := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("window-size", "1920,1080").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch headless browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to headless browser: %w", err)
	}
	r.browser = browser
	return browser, nil
}

// Render navigates to pageURL and returns the DOM once it settles, waiting
// no longer than the configured bound for dynamic content.
func (r *RodRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	browser, err := r.connect()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return "", fmt.Errorf("create tab: %w", err)
	}
	defer page.Close()

	renderCtx, cancel := context.WithTimeout(ctx, r.wait+10*time.Second)
	defer cancel()
	page = page.Context(renderCtx)

	router := page.HijackRequests()
	for _, rt := range blockedResourceTypes {
		_ = router.Add("*", rt, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
	}
	go router.Run()
	defer router.MustStop()

	if err := page.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("navigate to %s: %w", pageURL, err)
	}
	_ = page.Timeout(r.wait).WaitStable(renderStableDur)

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("get HTML from %s: %w", pageURL, err)
	}
	return html, nil
}

// Close shuts down the browser process if it was started.
func (r *RodRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		_ = r.browser.Close()
		r.browser = nil
	}
}

// HTTPRenderer fetches raw HTML without executing scripts. It is used when
// no browser is available.
type HTTPRenderer struct {
	client *http.Client
}

func NewHTTPRenderer(timeout time.Duration) *HTTPRenderer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRenderer{client: &http.Client{Timeout: timeout}}
}

func (h *HTTPRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", fmt.Errorf("fetch %s: unsupported content type %s", pageURL, ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", pageURL, err)
	}
	return string(body), nil
}

// Fallback tries each renderer in order and returns the first non-empty page.
type Fallback []Renderer

func (f Fallback) Render(ctx context.Context, pageURL string) (string, error) {
	var lastErr error
	for _, r := range f {
		html, err := r.Render(ctx, pageURL)
		if err == nil && strings.TrimSpace(html) != "" {
			return html, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("render %s: empty page", pageURL)
	}
	return "", lastErr
}
