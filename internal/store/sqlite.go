// Package store persists crawl results in SQLite: current product attributes
// plus an append-only, change-triggered price history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"go.uber.org/zap"

	"pyaterochka-price-crawler/internal/pyaterochka"
)

const schema = `
CREATE TABLE IF NOT EXISTS pyaterochka_stores (
	id TEXT PRIMARY KEY,
	address TEXT,
	city TEXT,
	inserted_at INTEGER
);
CREATE TABLE IF NOT EXISTS pyaterochka_products (
	id TEXT PRIMARY KEY,
	name TEXT,
	category TEXT,
	brand TEXT,
	rating REAL,
	rates_count INTEGER,
	image TEXT,
	property TEXT,
	updated_at INTEGER,
	inserted_at INTEGER
);
CREATE TABLE IF NOT EXISTS pyaterochka_product_price_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	store_id TEXT,
	product_id TEXT,
	price REAL,
	card_price REAL,
	inserted_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_pph_store_id ON pyaterochka_product_price_history(store_id);
CREATE INDEX IF NOT EXISTS idx_pph_product_id ON pyaterochka_product_price_history(product_id);
`

const upsertProductSQL = `
INSERT INTO pyaterochka_products (
	id, name, category, brand, rating, rates_count, image, property, updated_at, inserted_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name        = excluded.name,
	category    = excluded.category,
	brand       = excluded.brand,
	rating      = excluded.rating,
	rates_count = excluded.rates_count,
	image       = excluded.image,
	property    = excluded.property,
	updated_at  = excluded.updated_at`

// A history row is appended only when the observation differs from the single
// most recent row for the same (store, product) pair. Comparison is against
// the latest row, not the full history, so a price returning to an earlier
// value is recorded again.
const insertHistorySQL = `
INSERT INTO pyaterochka_product_price_history (store_id, product_id, price, card_price, inserted_at)
SELECT ?, ?, ?, ?, ?
WHERE NOT EXISTS (
	SELECT 1
	FROM pyaterochka_product_price_history p
	WHERE p.id = (
		SELECT id
		FROM pyaterochka_product_price_history
		WHERE store_id = ? AND product_id = ?
		ORDER BY inserted_at DESC, id DESC
		LIMIT 1
	)
	AND p.price = ?
	AND p.card_price = ?
)`

// Store wraps a single SQLite handle. Persist serializes transactions through
// an internal lock; no two store passes commit concurrently.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// Open opens (or creates) the database at path and bootstraps the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Persist writes one store pass in a single transaction: the store row
// (insert-or-ignore), a last-write-wins upsert per product, and a price
// history row per observation that changed since the latest recorded one.
// Returns the number of history rows appended. Any statement failure rolls
// the whole pass back.
func (s *Store) Persist(ctx context.Context, rec pyaterochka.StoreRecord, snapshots []pyaterochka.CatalogSnapshot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO pyaterochka_stores (id, address, city, inserted_at) VALUES (?, ?, ?, ?)",
		rec.ID, rec.Address, rec.City, now,
	); err != nil {
		return 0, fmt.Errorf("insert store %s: %w", rec.ID, err)
	}

	upsertProduct, err := tx.PrepareContext(ctx, upsertProductSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare product upsert: %w", err)
	}
	defer upsertProduct.Close()

	insertHistory, err := tx.PrepareContext(ctx, insertHistorySQL)
	if err != nil {
		return 0, fmt.Errorf("prepare history insert: %w", err)
	}
	defer insertHistory.Close()

	var appended int64
	for _, snap := range snapshots {
		observed := snap.FetchedAt.Unix()
		for _, p := range snap.Products {
			if _, err := upsertProduct.ExecContext(ctx,
				p.ID, p.Name, snap.Name, p.Brand, p.Rating, p.RatesCount, p.Image, p.Property,
				observed, observed,
			); err != nil {
				return 0, fmt.Errorf("upsert product %s: %w", p.ID, err)
			}
			res, err := insertHistory.ExecContext(ctx,
				rec.ID, p.ID, p.Price, p.CardPrice, observed,
				rec.ID, p.ID,
				p.Price, p.CardPrice,
			)
			if err != nil {
				return 0, fmt.Errorf("insert price history %s/%s: %w", rec.ID, p.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, fmt.Errorf("history rows affected: %w", err)
			}
			appended += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit store pass: %w", err)
	}
	s.logger.Debug("store pass committed",
		zap.String("store_id", rec.ID),
		zap.Int("catalogs", len(snapshots)),
		zap.Int64("price_changes", appended))
	return appended, nil
}
