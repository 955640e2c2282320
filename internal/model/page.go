package model

// Page is one page of a paginated backend listing.
//
// Count is the total number of items matching the query, not len(Results).
// It drives the pagination presenter and the order counter.
type Page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Results  []T    `json:"results"`
}
