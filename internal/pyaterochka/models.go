package pyaterochka

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// storeAPIInfo is the raw store lookup payload. Only the fields the crawler
// needs are decoded; unknown fields are ignored.
type storeAPIInfo struct {
	ShopAddress string `json:"shop_address"`
	StoreCity   string `json:"store_city"`
	SapCode     string `json:"sap_code"`
}

// DecodeStoreRecord parses the raw JSON served by the store lookup endpoint.
func DecodeStoreRecord(data string) (StoreRecord, error) {
	var info storeAPIInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return StoreRecord{}, fmt.Errorf("decode store payload: %w", err)
	}
	return StoreRecord{
		ID:      info.SapCode,
		Address: info.ShopAddress,
		City:    info.StoreCity,
	}, nil
}

type catalogPayload struct {
	Name     string           `json:"name"`
	Filters  []catalogFilter  `json:"filters"`
	Products []catalogProduct `json:"products"`
}

type catalogFilter struct {
	FieldName  string            `json:"field_name"`
	ListValues *filterListValues `json:"list_values"`
}

type filterListValues struct {
	All []string `json:"all"`
}

type catalogProduct struct {
	PLU                   uint64          `json:"plu"`
	Name                  string          `json:"name"`
	ImageLinks            imageLinks      `json:"image_links"`
	Rating                *productRating  `json:"rating"`
	Prices                productPrices   `json:"prices"`
	PropertyClarification *string         `json:"property_clarification"`
	Promo                 json.RawMessage `json:"promo"`
}

type imageLinks struct {
	Small  []string `json:"small"`
	Normal []string `json:"normal"`
}

type productRating struct {
	RatingAverage float64 `json:"rating_average"`
	RatesCount    int64   `json:"rates_count"`
}

// Prices arrive as decimal strings; discount is absent when the product has
// no loyalty-card price.
type productPrices struct {
	Regular  string  `json:"regular"`
	Discount *string `json:"discount"`
}

// DecodeCatalogSnapshot parses the raw JSON served by the catalog listing
// endpoint and normalizes it into a CatalogSnapshot for the given category.
func DecodeCatalogSnapshot(data, catalogID string, fetchedAt time.Time) (CatalogSnapshot, error) {
	var payload catalogPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return CatalogSnapshot{}, fmt.Errorf("decode catalog payload: %w", err)
	}

	brands := brandFacet(payload.Filters)
	products := make([]Product, 0, len(payload.Products))
	for _, raw := range payload.Products {
		products = append(products, normalizeProduct(raw, brands))
	}

	return CatalogSnapshot{
		CatalogID: catalogID,
		Name:      payload.Name,
		BrandList: brands,
		Products:  products,
		FetchedAt: fetchedAt,
	}, nil
}

// brandFacet extracts the brand filter facet values, if the catalog carries
// one.
func brandFacet(filters []catalogFilter) []string {
	for _, f := range filters {
		if f.FieldName != "brand" {
			continue
		}
		if f.ListValues == nil {
			return nil
		}
		return f.ListValues.All
	}
	return nil
}

func normalizeProduct(raw catalogProduct, brands []string) Product {
	price := parsePrice(raw.Prices.Regular, 0)
	cardPrice := price
	if raw.Prices.Discount != nil {
		cardPrice = parsePrice(*raw.Prices.Discount, price)
	}

	p := Product{
		ID:        strconv.FormatUint(raw.PLU, 10),
		Name:      raw.Name,
		Brand:     DeriveBrand(raw.Name, brands),
		Price:     price,
		CardPrice: cardPrice,
		Property:  raw.PropertyClarification,
	}
	if raw.Rating != nil {
		rating := raw.Rating.RatingAverage
		count := raw.Rating.RatesCount
		p.Rating = &rating
		p.RatesCount = &count
	}
	if len(raw.ImageLinks.Normal) > 0 {
		image := raw.ImageLinks.Normal[0]
		p.Image = &image
	}
	return p
}

// DeriveBrand returns the first brand-list entry contained in the product
// name, or nil when no entry matches. The listing payload carries no brand
// field of its own.
func DeriveBrand(name string, brands []string) *string {
	for _, b := range brands {
		if b != "" && strings.Contains(name, b) {
			brand := b
			return &brand
		}
	}
	return nil
}

func parsePrice(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}
