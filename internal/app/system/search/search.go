// internal/app/system/search/search.go
package search

import (
	"regexp"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product list sort keys accepted from clients.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
	SortRating    = "rating"
)

// ProductSort maps a client sort key to a Mongo sort document. Unknown keys
// sort newest first. _id is always the tiebreaker so pages are stable.
func ProductSort(key string) bson.D {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: -1}}
	case SortRating:
		return bson.D{{Key: "average_rating", Value: -1}, {Key: "review_count", Value: -1}, {Key: "_id", Value: -1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	}
}

// FoldedContains returns a regex matching q anywhere in a folded (_ci) field.
// Returns nil when q is blank.
func FoldedContains(q string) *primitive.Regex {
	q = text.Fold(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	return &primitive.Regex{Pattern: regexp.QuoteMeta(q)}
}
