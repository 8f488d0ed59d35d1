// internal/app/store/reviews/reviewstore.go
package reviewstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/apperr"
	"github.com/dalemusser/storefront/internal/app/system/htmlsanitize"
	"github.com/dalemusser/storefront/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrAlreadyReviewed = apperr.Conflict("you have already reviewed this product")
	ErrNotFound        = apperr.NotFound("review")
	ErrProductNotFound = apperr.NotFound("product")
)

type Store struct {
	c        *mongo.Collection
	products *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:        db.Collection("reviews"),
		products: db.Collection("products"),
	}
}

// Stats is the aggregate of a product's approved reviews.
type Stats struct {
	Count int
	Sum   int
}

// Mean returns the arithmetic mean rating, or 0 for no reviews.
func (s Stats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Sum) / float64(s.Count)
}

// Create inserts a review after checking the rating range and that the
// product exists. A second review by the same user for the same product is
// rejected by the unique (user_id, product_id) index.
func (s *Store) Create(ctx context.Context, rv models.Review) (models.Review, error) {
	if rv.Rating < models.MinRating || rv.Rating > models.MaxRating {
		return models.Review{}, apperr.Invalid("rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	rv.Title = htmlsanitize.PlainText(rv.Title)
	rv.Comment = htmlsanitize.PlainText(rv.Comment)
	if rv.Title == "" || rv.Comment == "" {
		return models.Review{}, apperr.Invalid("title and comment are required")
	}

	n, err := s.products.CountDocuments(ctx, bson.M{"_id": rv.ProductID}, options.Count().SetLimit(1))
	if err != nil {
		return models.Review{}, err
	}
	if n == 0 {
		return models.Review{}, ErrProductNotFound
	}

	now := time.Now().UTC()
	rv.ID = primitive.NewObjectID()
	rv.Helpful = 0
	rv.CreatedAt = now
	rv.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, rv); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Review{}, ErrAlreadyReviewed
		}
		return models.Review{}, err
	}
	return rv, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	var rv models.Review
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&rv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Review{}, ErrNotFound
		}
		return models.Review{}, err
	}
	return rv, nil
}

// ListApproved returns a product's approved reviews, newest first.
func (s *Store) ListApproved(ctx context.Context, productID primitive.ObjectID) ([]models.Review, error) {
	return s.find(ctx, bson.M{"product_id": productID, "is_approved": true},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
}

// ListPending returns unapproved reviews, oldest first, for moderation.
func (s *Store) ListPending(ctx context.Context, limit int64) ([]models.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, bson.M{"is_approved": false}, opts)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Review, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Review{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetApproved sets the approval flag and returns the updated review and
// whether the flag actually changed.
func (s *Store) SetApproved(ctx context.Context, id primitive.ObjectID, approved bool) (models.Review, bool, error) {
	var before models.Review
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_approved": approved, "updated_at": time.Now().UTC()}},
		opts,
	).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Review{}, false, ErrNotFound
		}
		return models.Review{}, false, err
	}
	changed := before.IsApproved != approved
	after := before
	after.IsApproved = approved
	return after, changed, nil
}

// IncrementHelpful adds one helpful vote.
func (s *Store) IncrementHelpful(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	var rv models.Review
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"helpful": 1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		opts,
	).Decode(&rv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Review{}, ErrNotFound
		}
		return models.Review{}, err
	}
	return rv, nil
}

// Delete removes a review and returns it as it was, so callers know which
// product to re-aggregate.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	var rv models.Review
	if err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&rv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Review{}, ErrNotFound
		}
		return models.Review{}, err
	}
	return rv, nil
}

// ApprovedStats sums the ratings of a product's approved reviews in one
// aggregation.
func (s *Store) ApprovedStats(ctx context.Context, productID primitive.ObjectID) (Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"product_id": productID, "is_approved": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"count": bson.M{"$sum": 1},
			"sum":   bson.M{"$sum": "$rating"},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return Stats{}, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Count int `bson:"count"`
		Sum   int `bson:"sum"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return Stats{}, err
	}
	if len(rows) == 0 {
		return Stats{}, nil
	}
	return Stats{Count: rows[0].Count, Sum: rows[0].Sum}, nil
}

// CountPending returns the number of reviews awaiting moderation.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"is_approved": false})
}
