// Package pagination parses limit/offset query parameters and shapes list responses
// for the patient and report listings.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is one page window.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit= and ?offset=. Missing, malformed or out-of-range values
// fall back to the default window instead of failing the request.
func FromContext(c echo.Context) Params {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	switch {
	case err != nil || limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

// Next returns the window following p, or false when p reaches total.
func (p Params) Next(total int) (Params, bool) {
	if p.Offset+p.Limit >= total {
		return Params{}, false
	}
	return Params{Limit: p.Limit, Offset: p.Offset + p.Limit}, true
}

// Response wraps one page of a listing.
type Response struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
	HasMore    bool        `json:"has_more"`
	NextOffset *int        `json:"next_offset,omitempty"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	r := &Response{Data: data, Total: total, Limit: limit, Offset: offset}
	if next, ok := (Params{Limit: limit, Offset: offset}).Next(total); ok {
		r.HasMore = true
		r.NextOffset = &next.Offset
	}
	return r
}
