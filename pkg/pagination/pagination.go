package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts limit/offset query parameters from the echo context.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Page describes where a result slice sits in the full listing.
type Page struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Pages   int  `json:"pages"`
	HasMore bool `json:"hasMore"`
}

// Response wraps a paginated API response in the success envelope.
type Response struct {
	Status     string      `json:"status"`
	Data       interface{} `json:"data"`
	Pagination Page        `json:"pagination"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	return &Response{
		Status: "success",
		Data:   data,
		Pagination: Page{
			Total:   total,
			Limit:   p.Limit,
			Offset:  p.Offset,
			Pages:   p.Pages(total),
			HasMore: p.HasNext(total),
		},
	}
}

// Pages returns the number of pages of size Limit needed to cover total.
func (p Params) Pages(total int) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page.
// Returns 0 if the result would be negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}
