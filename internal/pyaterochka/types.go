// Package pyaterochka holds site-specific data for the Pyaterochka retail
// chain: catalog identifiers, API URL construction, and the mapping from the
// raw delivery-API payloads into normalized records.
package pyaterochka

import "time"

// StoreRecord identifies a single physical store resolved from a coordinate
// lookup. ID is the store's SAP code and is unique per store; many
// coordinates resolve to the same record.
type StoreRecord struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// Product is one normalized catalog listing entry. Brand, Rating, RatesCount,
// Image and Property are optional; nil means the source payload carried no
// value (and persists as NULL).
type Product struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Brand      *string  `json:"brand,omitempty"`
	Price      float64  `json:"price"`
	CardPrice  float64  `json:"card_price"`
	Rating     *float64 `json:"rating,omitempty"`
	RatesCount *int64   `json:"rates_count,omitempty"`
	Image      *string  `json:"image,omitempty"`
	Property   *string  `json:"property,omitempty"`
}

// CatalogSnapshot is the result of fetching one catalog category for one
// store: the category name as the site reports it, the brand filter facet,
// and the normalized product listings observed at FetchedAt.
type CatalogSnapshot struct {
	CatalogID string    `json:"catalog_id"`
	Name      string    `json:"name"`
	BrandList []string  `json:"brand_list"`
	Products  []Product `json:"products"`
	FetchedAt time.Time `json:"fetched_at"`
}
