// Package crawler implements the crawl orchestration core: coordinate
// loading, store location with per-pass deduplication, the concurrent
// rate-limited catalog scheduler, and the top-level loop.
package crawler

import (
	"context"
	"time"

	"pyaterochka-price-crawler/internal/pyaterochka"
)

// contentSelector is the content block every API-style page renders its raw
// JSON payload into.
const contentSelector = "pre"

// ContentFetcher is the slice of the browser surface the crawl path needs.
// *browser.Browser implements it.
type ContentFetcher interface {
	// FetchContent opens a page at url, waits up to timeout for selector,
	// and returns the element's text.
	FetchContent(url, selector string, timeout time.Duration) (string, error)
	// ResetPages closes idle pages, keeping one fresh blank page.
	ResetPages() error
}

// Persister stores one store pass transactionally and reports how many price
// history rows were appended. *store.Store implements it.
type Persister interface {
	Persist(ctx context.Context, rec pyaterochka.StoreRecord, snapshots []pyaterochka.CatalogSnapshot) (int64, error)
}
