// internal/app/store/products/stock.go
package productstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReserveStock decrements stock by qty only if at least qty is available.
// It reports false when nothing was decremented, which means the product is
// missing or short; callers load the product to tell the two apart.
func (s *Store) ReserveStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{
			"$inc": bson.M{"stock": -qty},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// ReleaseStock returns qty units to a product. A product deleted since the
// reservation is ignored.
func (s *Store) ReleaseStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"stock": qty},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

// SetRating writes the two derived rating fields in one update. It reports
// false when the product no longer exists.
func (s *Store) SetRating(ctx context.Context, id primitive.ObjectID, average float64, count int) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"average_rating": average, "review_count": count}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
