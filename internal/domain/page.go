package domain

import "strconv"

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is the pagination block returned next to a list. Next and Previous
// are offsets encoded as strings and are nil when out of range.
type Page struct {
	Next     *string `json:"next"`
	Limit    int     `json:"limit"`
	Previous *string `json:"previous"`
}

func NewPage(limit, offset int, total int64) Page {
	page := Page{Limit: limit}

	if int64(offset+limit) < total {
		next := strconv.Itoa(offset + limit)
		page.Next = &next
	}

	if offset-limit >= 0 {
		prev := strconv.Itoa(offset - limit)
		page.Previous = &prev
	}

	return page
}

func (p Page) HasNext() bool {
	return p.Next != nil
}

func (p Page) HasPrevious() bool {
	return p.Previous != nil
}

func ValidatePaging(limit, offset int) error {
	if limit < 1 || limit > MaxLimit {
		return InvalidArgument("limit must be between 1 and %d", MaxLimit)
	}
	if offset < 0 {
		return InvalidArgument("offset must not be negative")
	}

	return nil
}
