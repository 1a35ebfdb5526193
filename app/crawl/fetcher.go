package crawl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// HTTPFetcher loads server-rendered pages and feeds.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

func NewHTTPFetcher(client *http.Client, userAgent string, timeout time.Duration) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, userAgent: userAgent, timeout: timeout}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// BrowserFetcher renders pages in headless Chrome for portals that build
// their result cards client-side. One browser is started lazily per fetcher
// and shared by its tabs until Close.
type BrowserFetcher struct {
	userAgent    string
	execPath     string
	timeout      time.Duration
	waitSelector string
	wait         time.Duration

	mu          sync.Mutex
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancelTab   context.CancelFunc
}

func NewBrowserFetcher(userAgent, execPath string, timeout time.Duration, waitSelector string, wait time.Duration) *BrowserFetcher {
	return &BrowserFetcher{
		userAgent:    userAgent,
		execPath:     execPath,
		timeout:      timeout,
		waitSelector: waitSelector,
		wait:         wait,
	}
}

func (f *BrowserFetcher) browser() (context.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browserCtx != nil {
		return f.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if f.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.userAgent))
	}
	if f.execPath != "" {
		opts = append(opts, chromedp.ExecPath(f.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// An empty Run starts the browser so later tabs share it.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	f.cancelAlloc = cancelAlloc
	f.browserCtx, f.cancelTab = browserCtx, cancelTab
	return f.browserCtx, nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	browserCtx, err := f.browser()
	if err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	timeout := f.timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	// Tie the tab to the caller's context as well.
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	actions := []chromedp.Action{chromedp.Navigate(url)}
	if f.waitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(f.waitSelector, chromedp.ByQuery))
	}
	if f.wait > 0 {
		actions = append(actions, chromedp.Sleep(f.wait))
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	return []byte(html), nil
}

func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancelTab != nil {
		f.cancelTab()
	}
	if f.cancelAlloc != nil {
		f.cancelAlloc()
	}
	f.browserCtx = nil
	return nil
}
