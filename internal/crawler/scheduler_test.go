package crawler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pyaterochka-price-crawler/internal/pyaterochka"
)

// fakeFetcher satisfies ContentFetcher with canned responses keyed by URL
// substring.
type fakeFetcher struct {
	mu      sync.Mutex
	urls    []string
	resets  int
	respond func(url string) (string, error)
}

func (f *fakeFetcher) FetchContent(url, selector string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	fn := f.respond
	f.mu.Unlock()
	return fn(url)
}

func (f *fakeFetcher) ResetPages() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urls)
}

func catalogJSON(name string, products int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`{"name": %q, "products": [`, name))
	for i := 0; i < products; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(fmt.Sprintf(`{"plu": %d, "name": "Product %d", "prices": {"regular": "10.00"}}`, i+1, i+1))
	}
	sb.WriteString("]}")
	return sb.String()
}

func testCatalogs(n int) []pyaterochka.Catalog {
	catalogs := make([]pyaterochka.Catalog, n)
	for i := range catalogs {
		catalogs[i] = pyaterochka.Catalog{ID: fmt.Sprintf("CAT%02d", i), Name: fmt.Sprintf("Catalog %d", i)}
	}
	return catalogs
}

func TestSchedulerCrawlAllSucceed(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{respond: func(url string) (string, error) {
		return catalogJSON("Каталог", 3), nil
	}}
	s := NewScheduler(fetcher, time.Millisecond, time.Second, zap.NewNop())

	catalogs := testCatalogs(5)
	snapshots := s.Crawl(context.Background(), pyaterochka.StoreRecord{ID: "X123"}, catalogs)

	require.Len(t, snapshots, 5)
	require.Equal(t, 1, fetcher.resets)
	// Results come back in launch order regardless of completion order.
	for i, snap := range snapshots {
		require.Equal(t, catalogs[i].ID, snap.CatalogID)
		require.Len(t, snap.Products, 3)
	}
}

func TestSchedulerCrawlIsolatesFailures(t *testing.T) {
	t.Parallel()

	// Two of seventeen categories fail; the rest must come through.
	fetcher := &fakeFetcher{respond: func(url string) (string, error) {
		if strings.Contains(url, "CAT03") {
			return "", fmt.Errorf("wait for %q: context deadline exceeded", "pre")
		}
		if strings.Contains(url, "CAT11") {
			return "<html>challenge</html>", nil // decode failure
		}
		return catalogJSON("Каталог", 1), nil
	}}
	s := NewScheduler(fetcher, time.Millisecond, time.Second, zap.NewNop())

	catalogs := testCatalogs(17)
	snapshots := s.Crawl(context.Background(), pyaterochka.StoreRecord{ID: "X123"}, catalogs)

	require.Len(t, snapshots, 15)
	require.Equal(t, 17, fetcher.fetchCount())
	ids := make([]string, 0, len(snapshots))
	for _, snap := range snapshots {
		ids = append(ids, snap.CatalogID)
	}
	require.NotContains(t, ids, "CAT03")
	require.NotContains(t, ids, "CAT11")
}

func TestSchedulerThrottlesLaunches(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var launches []time.Time
	fetcher := &fakeFetcher{respond: func(url string) (string, error) {
		mu.Lock()
		launches = append(launches, time.Now())
		mu.Unlock()
		return catalogJSON("Каталог", 1), nil
	}}

	delay := 30 * time.Millisecond
	s := NewScheduler(fetcher, delay, time.Second, zap.NewNop())

	start := time.Now()
	s.Crawl(context.Background(), pyaterochka.StoreRecord{ID: "X123"}, testCatalogs(4))

	// Three inter-launch gaps at 30ms each; generous lower bound to stay
	// robust on slow runners.
	require.GreaterOrEqual(t, time.Since(start), 2*delay)
	require.Len(t, launches, 4)
}
