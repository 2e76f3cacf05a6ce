package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pyaterochka-price-crawler/internal/pyaterochka"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.sqlite"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func testStoreRecord() pyaterochka.StoreRecord {
	return pyaterochka.StoreRecord{ID: "X123", Address: "ул. Ленина, 1", City: "Москва"}
}

func snapshotWithPrice(price, cardPrice float64, at time.Time) []pyaterochka.CatalogSnapshot {
	return []pyaterochka.CatalogSnapshot{{
		CatalogID: "251C12900",
		Name:      "Сладости",
		BrandList: []string{"Acme"},
		Products: []pyaterochka.Product{{
			ID:        "4012345",
			Name:      "Acme Widget 200г",
			Price:     price,
			CardPrice: cardPrice,
		}},
		FetchedAt: at,
	}}
}

func historyCount(t *testing.T, s *Store) int {
	t.Helper()
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM pyaterochka_product_price_history").Scan(&n)
	require.NoError(t, err)
	return n
}

func TestPersistIdempotent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	rec := testStoreRecord()
	at := time.Unix(1700000000, 0)

	appended, err := s.Persist(ctx, rec, snapshotWithPrice(100, 90, at))
	require.NoError(t, err)
	require.Equal(t, int64(1), appended)

	// Same observation again: no new history, no duplicated product row.
	appended, err = s.Persist(ctx, rec, snapshotWithPrice(100, 90, at.Add(time.Hour)))
	require.NoError(t, err)
	require.Equal(t, int64(0), appended)
	require.Equal(t, 1, historyCount(t, s))

	var products int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM pyaterochka_products").Scan(&products))
	require.Equal(t, 1, products)
}

func TestPersistAppendsOnChange(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	rec := testStoreRecord()
	at := time.Unix(1700000000, 0)

	_, err := s.Persist(ctx, rec, snapshotWithPrice(100, 90, at))
	require.NoError(t, err)

	appended, err := s.Persist(ctx, rec, snapshotWithPrice(95, 90, at.Add(time.Hour)))
	require.NoError(t, err)
	require.Equal(t, int64(1), appended)
	require.Equal(t, 2, historyCount(t, s))
}

func TestPersistRecordsOscillation(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	rec := testStoreRecord()
	at := time.Unix(1700000000, 0)

	// A price returning to an earlier value is a change against the latest
	// row and is recorded again; only the latest row is compared.
	for i, prices := range [][2]float64{{100, 90}, {95, 90}, {100, 90}} {
		appended, err := s.Persist(ctx, rec, snapshotWithPrice(prices[0], prices[1], at.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
		require.Equal(t, int64(1), appended)
	}
	require.Equal(t, 3, historyCount(t, s))
}

func TestPersistTracksPairsIndependently(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	at := time.Unix(1700000000, 0)

	other := pyaterochka.StoreRecord{ID: "Y456", Address: "пр. Мира, 8", City: "Казань"}

	_, err := s.Persist(ctx, testStoreRecord(), snapshotWithPrice(100, 90, at))
	require.NoError(t, err)

	// The same product in a different store compares against that store's
	// own latest row, which does not exist yet.
	appended, err := s.Persist(ctx, other, snapshotWithPrice(100, 90, at))
	require.NoError(t, err)
	require.Equal(t, int64(1), appended)
}

func TestPersistProductAttributesLastWriteWins(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	rec := testStoreRecord()
	at := time.Unix(1700000000, 0)

	brand := "Acme"
	snapshots := []pyaterochka.CatalogSnapshot{
		{
			CatalogID: "251C12900",
			Name:      "Сладости",
			Products: []pyaterochka.Product{{
				ID: "1", Name: "Старое имя", Price: 10, CardPrice: 10,
			}},
			FetchedAt: at,
		},
		{
			CatalogID: "251C12902",
			Name:      "Бакалея",
			Products: []pyaterochka.Product{{
				ID: "1", Name: "Новое имя", Brand: &brand, Price: 10, CardPrice: 10,
			}},
			FetchedAt: at.Add(time.Minute),
		},
	}

	_, err := s.Persist(ctx, rec, snapshots)
	require.NoError(t, err)

	var name, category string
	var gotBrand sql.NullString
	err = s.db.QueryRow("SELECT name, category, brand FROM pyaterochka_products WHERE id = '1'").
		Scan(&name, &category, &gotBrand)
	require.NoError(t, err)
	require.Equal(t, "Новое имя", name)
	require.Equal(t, "Бакалея", category)
	require.True(t, gotBrand.Valid)
	require.Equal(t, "Acme", gotBrand.String)
}

func TestPersistStoreRowInsertOrIgnore(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	at := time.Unix(1700000000, 0)

	rec := testStoreRecord()
	_, err := s.Persist(ctx, rec, snapshotWithPrice(100, 90, at))
	require.NoError(t, err)

	// A later pass with a changed address keeps the first row.
	changed := rec
	changed.Address = "другой адрес"
	_, err = s.Persist(ctx, changed, snapshotWithPrice(100, 90, at.Add(time.Hour)))
	require.NoError(t, err)

	var stores int
	var address string
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM pyaterochka_stores").Scan(&stores))
	require.NoError(t, s.db.QueryRow("SELECT address FROM pyaterochka_stores WHERE id = 'X123'").Scan(&address))
	require.Equal(t, 1, stores)
	require.Equal(t, rec.Address, address)
}

func TestPersistEmptyPass(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	appended, err := s.Persist(context.Background(), testStoreRecord(), nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), appended)
}
