package pyaterochka

import (
	"fmt"
	"math/rand"
	"strconv"
)

// HomeURL is the site's landing page; the interactive session refresh is
// complete once the browser settles on this exact URL.
const HomeURL = "https://5ka.ru/"

// MaxCatalogLimit is the largest page size the catalog API accepts.
const MaxCatalogLimit = 499

// Catalog is one product category as served by the catalog API.
type Catalog struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
}

// DefaultCatalogs lists the top-level categories of the reference deployment.
var DefaultCatalogs = []Catalog{
	{ID: "251C12884", Name: "Готовая еда"},
	{ID: "251C12886", Name: "Овощи, фрукты, орехи"},
	{ID: "251C12887", Name: "Молочная продукция и яйцо"},
	{ID: "251C12888", Name: "Хлеб и выпечка"},
	{ID: "251C12889", Name: "Мясо, птица, колбасы"},
	{ID: "251C12890", Name: "Рыба и морепродукты"},
	{ID: "251C12900", Name: "Сладости"},
	{ID: "251C12901", Name: "Снеки и чипсы"},
	{ID: "251C12902", Name: "Бакалея"},
	{ID: "251C12903", Name: "Замороженные продукты"},
	{ID: "251C12904", Name: "Вода и напитки"},
	{ID: "251C12905", Name: "Здоровый выбор"},
	{ID: "251C12906", Name: "Для детей"},
	{ID: "251C12907", Name: "Для животных"},
	{ID: "251C12908", Name: "Красота, гигиена, аптека"},
	{ID: "251C12909", Name: "Стирка и уборка"},
	{ID: "251C12910", Name: "Для дома и дачи"},
}

// Randomizing the sort order between requests makes successive crawls look
// less like a fixed scripted sweep. The empty entry is the site default.
var sortOrders = []string{"", "&order_by=price_desc", "&order_by=price_asc"}

// ProductsURL builds the catalog listing URL for one store and category. The
// sort order query parameter is picked at random per call.
func (c Catalog) ProductsURL(storeID string, limit int) string {
	order := sortOrders[rand.Intn(len(sortOrders))]
	return fmt.Sprintf(
		"https://5d.5ka.ru/api/catalog/v2/stores/%s/categories/%s/products?mode=delivery&include_restrict=true&limit=%d%s",
		storeID, c.ID, limit, order,
	)
}

// StoreLookupURL builds the store-by-coordinate lookup URL.
func StoreLookupURL(lat, lon float32) string {
	return fmt.Sprintf(
		"https://5d.5ka.ru/api/orders/v1/orders/stores/?lat=%s&lon=%s",
		formatCoord(lat), formatCoord(lon),
	)
}

func formatCoord(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}
