// Package pagination parses limit/offset query parameters and reports totals
// through response headers so list bodies stay plain JSON arrays.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// MaxLimit caps an explicit page size. Lists without a limit parameter are
// returned whole.
const (
	MaxLimit = 500

	TotalCountHeader = "X-Total-Count"
)

// Params holds pagination parameters extracted from a request. A zero Limit
// means no limit.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts pagination parameters from the echo context. A
// missing, invalid or non-positive limit leaves the page unbounded.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 0 {
		limit = 0
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

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Limit > 0 && p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page, never negative.
func (p Params) PreviousOffset() int {
	if p.Limit == 0 {
		return 0
	}
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// Link builds an RFC 8288 Link header value with next and prev relations for
// the request URL u. It returns "" when there is neither.
func (p Params) Link(u *url.URL, total int) string {
	var parts []string
	if p.HasNext(total) {
		parts = append(parts, fmt.Sprintf(`<%s>; rel="next"`, pageURL(u, p.Limit, p.NextOffset())))
	}
	if p.HasPrevious() {
		parts = append(parts, fmt.Sprintf(`<%s>; rel="prev"`, pageURL(u, p.Limit, p.PreviousOffset())))
	}
	return strings.Join(parts, ", ")
}

func pageURL(u *url.URL, limit, offset int) string {
	q := u.Query()
	q.Del("limit")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	q.Set("offset", strconv.Itoa(offset))
	return u.Path + "?" + q.Encode()
}

// SetHeaders writes X-Total-Count and, when there are adjacent pages, Link.
func SetHeaders(c echo.Context, p Params, total int) {
	h := c.Response().Header()
	h.Set(TotalCountHeader, strconv.Itoa(total))
	if link := p.Link(c.Request().URL, total); link != "" {
		h.Set("Link", link)
	}
}
