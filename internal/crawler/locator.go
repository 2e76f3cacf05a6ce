package crawler

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"pyaterochka-price-crawler/internal/pyaterochka"
)

// Locator resolves a coordinate to the store serving it via the delivery
// API's store lookup page.
type Locator struct {
	fetcher ContentFetcher
	wait    time.Duration
	logger  *zap.Logger
}

// NewLocator builds a Locator. wait bounds how long the lookup page may take
// to render its content block.
func NewLocator(fetcher ContentFetcher, wait time.Duration, logger *zap.Logger) *Locator {
	return &Locator{fetcher: fetcher, wait: wait, logger: logger}
}

// Locate fetches and decodes the store record for coord. Failures here are
// recoverable per coordinate: the caller logs and moves on.
func (l *Locator) Locate(coord Coordinate) (pyaterochka.StoreRecord, error) {
	url := pyaterochka.StoreLookupURL(coord.Lat, coord.Lon)
	content, err := l.fetcher.FetchContent(url, contentSelector, l.wait)
	if err != nil {
		return pyaterochka.StoreRecord{}, fmt.Errorf("store lookup content: %w", err)
	}
	rec, err := pyaterochka.DecodeStoreRecord(content)
	if err != nil {
		return pyaterochka.StoreRecord{}, err
	}
	return rec, nil
}
