// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit is the page size used when the client does not ask for one.
const DefaultLimit = 12

// MaxLimit caps client-requested page sizes.
const MaxLimit = 100

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Parse reads "page" and "limit" from the query string. Missing or invalid
// values fall back to page 1 and DefaultLimit; limit is clamped to MaxLimit.
func Parse(r *http.Request) Page {
	return Page{
		Page:  atoiMin(query.Get(r, "page"), 1, 1),
		Limit: clampLimit(atoiMin(query.Get(r, "limit"), DefaultLimit, 1)),
	}
}

// New builds a Page, applying the same defaults as Parse.
func New(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return Page{Page: page, Limit: clampLimit(limit)}
}

// Skip is the number of documents before this page.
func (p Page) Skip() int64 {
	return int64((p.Page - 1) * p.Limit)
}

// Apply sets skip and limit on a Find.
func (p Page) Apply(find *options.FindOptions) *options.FindOptions {
	return find.SetSkip(p.Skip()).SetLimit(int64(p.Limit))
}

// Pages returns how many pages total rows span.
func (p Page) Pages(total int64) int {
	if total <= 0 || p.Limit <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

func atoiMin(s string, def, min int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min {
		return def
	}
	return n
}

func clampLimit(n int) int {
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
