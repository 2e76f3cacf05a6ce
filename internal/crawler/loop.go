package crawler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pyaterochka-price-crawler/internal/metrics"
	"pyaterochka-price-crawler/internal/pyaterochka"
)

// lookupRetryDelay is the brief pause after a failed store lookup before the
// next coordinate is tried.
const lookupRetryDelay = 500 * time.Millisecond

// Loop is the top-level driver: it iterates the coordinate list forever,
// resolving stores, crawling catalogs for each store at most once per pass,
// and persisting results.
type Loop struct {
	locator   *Locator
	scheduler *Scheduler
	persister Persister
	catalogs  []pyaterochka.Catalog
	logger    *zap.Logger
}

// NewLoop builds the crawl loop.
func NewLoop(locator *Locator, scheduler *Scheduler, persister Persister, catalogs []pyaterochka.Catalog, logger *zap.Logger) *Loop {
	return &Loop{
		locator:   locator,
		scheduler: scheduler,
		persister: persister,
		catalogs:  catalogs,
		logger:    logger,
	}
}

// Run blocks until ctx is canceled. Cancellation is cooperative and observed
// between store iterations only; an in-flight store's crawl and persistence
// are allowed to finish, so shutdown latency is bounded by one store's crawl
// time. Failures below the store level never escape the loop.
func (l *Loop) Run(ctx context.Context, coords []Coordinate) {
	for {
		// Checked per pass as well as per coordinate: an empty coordinate
		// list still has to observe cancellation.
		select {
		case <-ctx.Done():
			l.logger.Info("crawl loop stopping")
			return
		default:
		}
		passID := uuid.NewString()
		seen := make(map[string]struct{})
		l.logger.Info("starting pass",
			zap.String("pass_id", passID),
			zap.Int("coordinates", len(coords)),
		)
		for i, coord := range coords {
			select {
			case <-ctx.Done():
				l.logger.Info("crawl loop stopping", zap.String("pass_id", passID))
				return
			default:
			}
			l.crawlCoordinate(ctx, passID, i, coord, seen)
		}
	}
}

func (l *Loop) crawlCoordinate(ctx context.Context, passID string, index int, coord Coordinate, seen map[string]struct{}) {
	rec, err := l.locator.Locate(coord)
	if err != nil {
		metrics.StoreLookup("miss")
		l.logger.Warn("store lookup failed",
			zap.String("pass_id", passID),
			zap.Int("coordinate", index),
			zap.Error(err),
		)
		select {
		case <-time.After(lookupRetryDelay):
		case <-ctx.Done():
		}
		return
	}

	if _, dup := seen[rec.ID]; dup {
		metrics.StoreLookup("duplicate")
		l.logger.Debug("store already crawled this pass",
			zap.String("pass_id", passID),
			zap.String("store_id", rec.ID),
		)
		return
	}
	seen[rec.ID] = struct{}{}
	metrics.StoreLookup("ok")

	l.logger.Info("crawling store",
		zap.String("pass_id", passID),
		zap.Int("coordinate", index),
		zap.String("store_id", rec.ID),
		zap.String("address", rec.Address),
		zap.String("city", rec.City),
	)

	snapshots := l.scheduler.Crawl(ctx, rec, l.catalogs)
	metrics.StoreCrawled()

	// Persistence of a finished crawl proceeds even when shutdown has begun.
	appended, err := l.persister.Persist(context.WithoutCancel(ctx), rec, snapshots)
	if err != nil {
		metrics.PersistFailure()
		l.logger.Error("store pass discarded",
			zap.String("pass_id", passID),
			zap.String("store_id", rec.ID),
			zap.Error(err),
		)
		return
	}
	metrics.PriceHistoryRows(appended)
	l.logger.Info("store pass persisted",
		zap.String("pass_id", passID),
		zap.String("store_id", rec.ID),
		zap.Int("catalogs", len(snapshots)),
		zap.Int64("price_changes", appended),
	)
}
