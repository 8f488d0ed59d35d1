package metricsstore

import (
	"context"

	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// LowStockThreshold is the stock level at or below which an active product
// is reported as running low.
const LowStockThreshold = 5

// Counts is the set of totals shown on the admin dashboard.
type Counts struct {
	Customers      int64
	Products       int64
	Categories     int64
	PendingReviews int64
	LowStock       int64
}

// FetchDashboardCounts returns the high-level counts used by the admin dashboard.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchDashboardCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts

	if n, err := db.Collection("users").CountDocuments(ctx, bson.M{"role": models.RoleUser}); err == nil {
		out.Customers = n
	}

	if n, err := db.Collection("products").CountDocuments(ctx, bson.M{}); err == nil {
		out.Products = n
	}

	if n, err := db.Collection("categories").CountDocuments(ctx, bson.M{}); err == nil {
		out.Categories = n
	}

	if n, err := db.Collection("reviews").CountDocuments(ctx, bson.M{"is_approved": false}); err == nil {
		out.PendingReviews = n
	}

	lowStock := bson.M{"is_active": true, "stock": bson.M{"$lte": LowStockThreshold}}
	if n, err := db.Collection("products").CountDocuments(ctx, lowStock); err == nil {
		out.LowStock = n
	}

	return out
}
