package domain

import "strings"

// Item is one row of the marketplace listing. Price is the server's
// display string, e.g. "$12.50 USD".
type Item struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// ItemDetail is the item shown in the detail view together with its offer count.
type ItemDetail struct {
	Item
	Description string
	OfferCount  int
}

// ItemQuery filters the listing. Fields hold raw user input; empty fields
// are not sent.
type ItemQuery struct {
	Text     string
	MinPrice string
	MaxPrice string
}

// QueryParam is a single query-string pair.
type QueryParam struct {
	Key   string
	Value string
}

// Params returns the non-empty filter fields in wire order: q, minPrice, maxPrice.
func (q ItemQuery) Params() []QueryParam {
	params := make([]QueryParam, 0, 3)
	if v := strings.TrimSpace(q.Text); v != "" {
		params = append(params, QueryParam{Key: "q", Value: v})
	}
	if v := strings.TrimSpace(q.MinPrice); v != "" {
		params = append(params, QueryParam{Key: "minPrice", Value: v})
	}
	if v := strings.TrimSpace(q.MaxPrice); v != "" {
		params = append(params, QueryParam{Key: "maxPrice", Value: v})
	}
	return params
}

// IsEmpty reports whether the query requests the unfiltered listing.
func (q ItemQuery) IsEmpty() bool {
	return len(q.Params()) == 0
}
