// Package ratings keeps a product's averageRating and reviewCount equal to
// the aggregate over its approved reviews, and owns the review mutations that
// must trigger that recompute.
package ratings

import (
	"context"

	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	reviewstore "github.com/dalemusser/storefront/internal/app/store/reviews"
	"github.com/dalemusser/storefront/internal/app/system/instrument"
	"github.com/dalemusser/storefront/internal/app/system/keylock"
	"github.com/dalemusser/storefront/internal/app/system/money"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Result is the outcome of one recompute.
type Result struct {
	ProductID     primitive.ObjectID `json:"product"`
	AverageRating float64            `json:"averageRating"`
	ReviewCount   int                `json:"reviewCount"`
	// Skipped is set when the product no longer exists. It is not an error:
	// the review mutation that triggered the recompute still stands.
	Skipped bool `json:"skipped,omitempty"`
}

// Aggregator recomputes derived rating fields, one product at a time.
type Aggregator struct {
	reviews  *reviewstore.Store
	products *productstore.Store
	locks    *keylock.Locker
	metrics  *instrument.Metrics
	log      *zap.Logger
}

// NewAggregator wires an Aggregator. locks and metrics may be nil; a nil
// Locker is replaced by a process-local one.
func NewAggregator(db *mongo.Database, locks *keylock.Locker, metrics *instrument.Metrics, log *zap.Logger) *Aggregator {
	if locks == nil {
		locks = keylock.New("storefront:rating:", log)
	}
	return &Aggregator{
		reviews:  reviewstore.New(db),
		products: productstore.New(db),
		locks:    locks,
		metrics:  metrics,
		log:      log,
	}
}

// Recompute reads the approved set for productID and writes both derived
// fields in a single update. Calls for the same product never interleave.
func (a *Aggregator) Recompute(ctx context.Context, productID primitive.ObjectID) (Result, error) {
	unlock, err := a.locks.Lock(ctx, productID.Hex())
	if err != nil {
		a.metrics.Aggregation(instrument.AggregationFailed)
		return Result{}, err
	}
	defer unlock()

	stats, err := a.reviews.ApprovedStats(ctx, productID)
	if err != nil {
		a.metrics.Aggregation(instrument.AggregationFailed)
		return Result{}, err
	}

	res := Result{
		ProductID:     productID,
		AverageRating: money.RoundTenths(stats.Mean()),
		ReviewCount:   stats.Count,
	}

	found, err := a.products.SetRating(ctx, productID, res.AverageRating, res.ReviewCount)
	if err != nil {
		a.metrics.Aggregation(instrument.AggregationFailed)
		return Result{}, err
	}
	if !found {
		res.Skipped = true
		a.metrics.Aggregation(instrument.AggregationSkipped)
		a.log.Warn("rating aggregation skipped: product not found",
			zap.String("product_id", productID.Hex()))
		return res, nil
	}

	a.metrics.Aggregation(instrument.AggregationUpdated)
	return res, nil
}
