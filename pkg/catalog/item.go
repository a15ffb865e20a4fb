package catalog

import "github.com/shopspring/decimal"

// Item is a single product as returned by the catalog. Items are never
// modified after they have been decoded.
type Item struct {
	ID           int             `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	ThumbnailURL string          `json:"thumbnail"`
	Price        decimal.Decimal `json:"price"`
}

// Page is the body of a GET /products response.
type Page struct {
	// Products holds the items of this page; an empty slice marks the end of
	// the collection.
	Products []Item `json:"products"`

	// Total, Skip and Limit echo the catalog's own pagination bookkeeping.
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// Empty reports whether the page carries no items.
func (p *Page) Empty() bool {
	return p == nil || len(p.Products) == 0
}
