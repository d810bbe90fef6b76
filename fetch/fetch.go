// Package fetch provides the remote page acquisition port. Two backends
// exist: a hosted rendering/proxy API (default) and a local headless
// Chrome. Callers choose per request between raw mode (no JavaScript,
// fast) and rendered mode (scripts executed, slow, higher success on
// JS-heavy targets).
package fetch

import "context"

// Options control how a page is fetched.
type Options struct {
	// Render executes page scripts before returning the body.
	Render bool
	// WaitMs pauses after load before snapshotting the rendered DOM.
	WaitMs int
	// WaitForSelector waits for a CSS selector to appear (rendered mode).
	WaitForSelector string
	// ProxyCountry routes the request through a proxy in that country.
	ProxyCountry string
	// BlockedResourceTypes skips loading of e.g. "image", "font", "media".
	BlockedResourceTypes []string
}

// Fetcher is the single capability the pipeline consumes for network I/O.
// Implementations must honor ctx cancellation; any failure or empty body
// is treated by callers as "no data", never as a fatal pipeline error.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts Options) ([]byte, error)
}
