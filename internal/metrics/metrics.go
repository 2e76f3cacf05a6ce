// Package metrics exposes Prometheus collectors for the crawl loop.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	storesCrawledTotal    prometheus.Counter
	storeLookupsTotal     *prometheus.CounterVec
	catalogFetchesTotal   *prometheus.CounterVec
	priceHistoryRowsTotal prometheus.Counter
	persistFailuresTotal  prometheus.Counter

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		storesCrawledTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "pricecrawler_stores_crawled_total",
			Help: "Stores whose catalogs were crawled, across all passes.",
		})
		storeLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pricecrawler_store_lookups_total",
			Help: "Coordinate-to-store lookups, labeled by outcome.",
		}, []string{"outcome"})
		catalogFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pricecrawler_catalog_fetches_total",
			Help: "Per-category catalog fetches, labeled by outcome.",
		}, []string{"outcome"})
		priceHistoryRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "pricecrawler_price_history_rows_total",
			Help: "Price history rows appended (changed prices only).",
		})
		persistFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "pricecrawler_persist_failures_total",
			Help: "Store passes discarded because the transaction failed.",
		})
	})
}

// StoreCrawled counts one completed store catalog crawl.
func StoreCrawled() {
	if storesCrawledTotal != nil {
		storesCrawledTotal.Inc()
	}
}

// StoreLookup counts one coordinate lookup with outcome "ok", "miss" or
// "duplicate".
func StoreLookup(outcome string) {
	if storeLookupsTotal != nil {
		storeLookupsTotal.WithLabelValues(outcome).Inc()
	}
}

// CatalogFetch counts one category fetch with outcome "ok" or "error".
func CatalogFetch(outcome string) {
	if catalogFetchesTotal != nil {
		catalogFetchesTotal.WithLabelValues(outcome).Inc()
	}
}

// PriceHistoryRows counts appended history rows.
func PriceHistoryRows(n int64) {
	if priceHistoryRowsTotal != nil && n > 0 {
		priceHistoryRowsTotal.Add(float64(n))
	}
}

// PersistFailure counts one discarded store pass.
func PersistFailure() {
	if persistFailuresTotal != nil {
		persistFailuresTotal.Inc()
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
