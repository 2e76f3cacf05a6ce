package crawler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pyaterochka-price-crawler/internal/metrics"
	"pyaterochka-price-crawler/internal/pyaterochka"
)

// Scheduler fetches all catalog categories of one store concurrently. Task
// launches are throttled at a fixed interval to bound the request rate
// against the site; already-launched tasks keep running while later ones are
// still waiting to launch.
type Scheduler struct {
	fetcher ContentFetcher
	limiter *rate.Limiter
	wait    time.Duration
	logger  *zap.Logger
}

// NewScheduler builds a Scheduler. delay is the fixed inter-launch throttle;
// wait bounds each category page's content-block wait.
func NewScheduler(fetcher ContentFetcher, delay, wait time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		wait:    wait,
		logger:  logger,
	}
}

type catalogResult struct {
	snapshot pyaterochka.CatalogSnapshot
	err      error
}

// Crawl fetches every catalog in catalogs for rec. Each category runs as its
// own goroutine; a failing category is logged and dropped without affecting
// its siblings. Results are consumed in launch order, so downstream logging
// is deterministic even though completion order is not. Only successful
// snapshots are returned.
func (s *Scheduler) Crawl(ctx context.Context, rec pyaterochka.StoreRecord, catalogs []pyaterochka.Catalog) []pyaterochka.CatalogSnapshot {
	if err := s.fetcher.ResetPages(); err != nil {
		s.logger.Warn("page reset failed", zap.Error(err))
	}

	results := make([]catalogResult, len(catalogs))
	var wg sync.WaitGroup
	for i, c := range catalogs {
		// An interrupt mid-crawl stops the throttle, not the crawl: the
		// remaining categories launch immediately and the pass completes.
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Debug("launch throttle interrupted", zap.Error(err))
		}
		wg.Add(1)
		go func(i int, c pyaterochka.Catalog) {
			defer wg.Done()
			results[i] = s.fetchCatalog(rec, c)
		}(i, c)
	}
	wg.Wait()

	snapshots := make([]pyaterochka.CatalogSnapshot, 0, len(catalogs))
	for i, res := range results {
		if res.err != nil {
			metrics.CatalogFetch("error")
			s.logger.Warn("catalog fetch failed",
				zap.String("store_id", rec.ID),
				zap.String("catalog", catalogs[i].Name),
				zap.Error(res.err),
			)
			continue
		}
		metrics.CatalogFetch("ok")
		s.logger.Info("catalog fetched",
			zap.String("store_id", rec.ID),
			zap.String("catalog", catalogs[i].Name),
			zap.Int("products", len(res.snapshot.Products)),
		)
		snapshots = append(snapshots, res.snapshot)
	}
	return snapshots
}

func (s *Scheduler) fetchCatalog(rec pyaterochka.StoreRecord, c pyaterochka.Catalog) catalogResult {
	url := c.ProductsURL(rec.ID, pyaterochka.MaxCatalogLimit)
	content, err := s.fetcher.FetchContent(url, contentSelector, s.wait)
	if err != nil {
		return catalogResult{err: err}
	}
	snapshot, err := pyaterochka.DecodeCatalogSnapshot(content, c.ID, time.Now())
	if err != nil {
		return catalogResult{err: err}
	}
	return catalogResult{snapshot: snapshot}
}
