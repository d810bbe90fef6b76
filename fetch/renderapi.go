package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"carscout/utils"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// RenderAPIClient fetches pages through a hosted headless-rendering/proxy
// service (ScrapingBee-compatible query API). Raw mode skips JavaScript
// execution server-side and is roughly an order of magnitude cheaper.
type RenderAPIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *utils.Logger
}

// NewRenderAPIClient validates credentials and returns a ready client.
// A missing API key is a configuration error: the source(s) relying on
// this backend cannot fetch at all.
func NewRenderAPIClient(apiKey, baseURL string, timeout time.Duration, logger *utils.Logger) (*RenderAPIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("render api: missing API key")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("render api: invalid base URL %q: %w", baseURL, err)
	}
	return &RenderAPIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Fetch retrieves target through the rendering service.
func (c *RenderAPIClient) Fetch(ctx context.Context, target string, opts Options) ([]byte, error) {
	reqURL, err := c.buildURL(target, opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("render api: build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("render api: read body: %w", err)
	}

	c.logger.Debug("[fetch] %s render=%v status=%d bytes=%d elapsed=%v",
		target, opts.Render, resp.StatusCode, len(body), time.Since(start).Round(time.Millisecond))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render api: status %d for %s", resp.StatusCode, target)
	}
	return body, nil
}

func (c *RenderAPIClient) buildURL(target string, opts Options) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("render api: parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("url", target)
	q.Set("render_js", strconv.FormatBool(opts.Render))
	if opts.Render && opts.WaitMs > 0 {
		q.Set("wait", strconv.Itoa(opts.WaitMs))
	}
	if opts.Render && opts.WaitForSelector != "" {
		q.Set("wait_for", opts.WaitForSelector)
	}
	if opts.ProxyCountry != "" {
		q.Set("premium_proxy", "true")
		q.Set("country_code", opts.ProxyCountry)
	}
	if len(opts.BlockedResourceTypes) > 0 {
		q.Set("block_resources", "true")
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}
