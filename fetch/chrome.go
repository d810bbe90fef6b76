package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"carscout/utils"
)

// ChromeFetcher is the local fallback backend: raw mode goes through a
// plain HTTP client, rendered mode drives a headless Chrome via chromedp.
// Useful for development without rendering-service credentials.
type ChromeFetcher struct {
	client    *http.Client
	chromeBin string
	logger    *utils.Logger
}

// NewChromeFetcher locates a Chrome/Chromium binary and returns the fetcher.
func NewChromeFetcher(chromeBin string, timeout time.Duration, logger *utils.Logger) *ChromeFetcher {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	return &ChromeFetcher{
		client:    &http.Client{Timeout: timeout},
		chromeBin: chromeBin,
		logger:    logger,
	}
}

// Fetch retrieves the page, executing scripts only when opts.Render is set.
func (f *ChromeFetcher) Fetch(ctx context.Context, target string, opts Options) ([]byte, error) {
	if !opts.Render {
		return f.fetchRaw(ctx, target)
	}
	return f.fetchRendered(ctx, target, opts)
}

func (f *ChromeFetcher) fetchRaw(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("chrome fetcher: build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chrome fetcher: raw get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("chrome fetcher: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chrome fetcher: status %d for %s", resp.StatusCode, target)
	}
	return body, nil
}

func (f *ChromeFetcher) fetchRendered(ctx context.Context, target string, opts Options) ([]byte, error) {
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(defaultUserAgent),
	)
	if f.chromeBin != "" {
		execOpts = append(execOpts, chromedp.ExecPath(f.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, execOpts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	actions := []chromedp.Action{chromedp.Navigate(target)}
	if opts.WaitForSelector != "" {
		actions = append(actions, chromedp.WaitVisible(opts.WaitForSelector, chromedp.ByQuery))
	}
	if opts.WaitMs > 0 {
		actions = append(actions, chromedp.Sleep(time.Duration(opts.WaitMs)*time.Millisecond))
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	start := time.Now()
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return nil, fmt.Errorf("chrome fetcher: render %s: %w", target, err)
	}

	f.logger.Debug("[fetch] rendered %s bytes=%d elapsed=%v",
		target, len(html), time.Since(start).Round(time.Millisecond))
	return []byte(html), nil
}

// findChromeBinary locates a Chrome/Chromium binary on the host.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
