// internal/app/store/orders/orderstore.go
package orderstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/apperr"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = apperr.NotFound("order")
	// ErrStatusChanged is returned when StatusChange.From no longer matches.
	ErrStatusChanged = apperr.Conflict("order status was changed concurrently")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("orders")}
}

// Filter narrows admin order listings. Zero values mean "any".
type Filter struct {
	UserID primitive.ObjectID
	Status string
}

func (f Filter) query() bson.M {
	q := bson.M{}
	if !f.UserID.IsZero() {
		q["user_id"] = f.UserID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	return q
}

// StatusChange carries an admin status update. TrackingNumber and
// EstimatedDelivery are written only when set. When From is set the update
// applies only if the order is still in that status.
type StatusChange struct {
	From              string
	Status            string
	TrackingNumber    string
	EstimatedDelivery *time.Time
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// Create inserts a fully built order. Callers set items, totals and addresses.
func (s *Store) Create(ctx context.Context, o models.Order) (models.Order, error) {
	now := time.Now().UTC()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, o); err != nil {
		return models.Order{}, err
	}
	return o, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	var o models.Order
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Order{}, ErrNotFound
		}
		return models.Order{}, err
	}
	return o, nil
}

// ListByUser returns a user's orders, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(newestFirst))
}

// List returns one page of orders matching f and the total count.
func (s *Store) List(ctx context.Context, f Filter, pg paging.Page) ([]models.Order, int64, error) {
	q := f.query()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	out, err := s.find(ctx, q, pg.Apply(options.Find().SetSort(newestFirst)))
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Recent returns the latest limit orders.
func (s *Store) Recent(ctx context.Context, limit int64) ([]models.Order, error) {
	return s.find(ctx, bson.M{}, options.Find().SetSort(newestFirst).SetLimit(limit))
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Order, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus applies a status change and returns the order before and after.
// Item snapshots are never touched.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, ch StatusChange) (before, after models.Order, err error) {
	set := bson.M{"status": ch.Status, "updated_at": time.Now().UTC()}
	if ch.TrackingNumber != "" {
		set["tracking_number"] = ch.TrackingNumber
	}
	if ch.EstimatedDelivery != nil {
		set["estimated_delivery"] = ch.EstimatedDelivery.UTC()
	}
	filter := bson.M{"_id": id}
	if ch.From != "" {
		filter["status"] = ch.From
	}
	if err = s.findAndUpdate(ctx, filter, set, &before); err != nil {
		if errors.Is(err, ErrNotFound) && ch.From != "" {
			if _, gerr := s.GetByID(ctx, id); gerr == nil {
				err = ErrStatusChanged
			}
		}
		return models.Order{}, models.Order{}, err
	}
	after = before
	after.Status = ch.Status
	after.UpdatedAt = set["updated_at"].(time.Time)
	if ch.TrackingNumber != "" {
		after.TrackingNumber = ch.TrackingNumber
	}
	if ch.EstimatedDelivery != nil {
		eta := ch.EstimatedDelivery.UTC()
		after.EstimatedDelivery = &eta
	}
	return before, after, nil
}

// SetPaymentStatus sets the payment status and returns the updated order.
func (s *Store) SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status string) (models.Order, error) {
	var before models.Order
	now := time.Now().UTC()
	if err := s.findAndUpdate(ctx, bson.M{"_id": id}, bson.M{"payment_status": status, "updated_at": now}, &before); err != nil {
		return models.Order{}, err
	}
	before.PaymentStatus = status
	before.UpdatedAt = now
	return before, nil
}

func (s *Store) findAndUpdate(ctx context.Context, filter bson.M, set bson.M, before *models.Order) error {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	err := s.c.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// Delete hard-deletes an order.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Sales is the order summary used by the admin dashboard.
type Sales struct {
	TotalSales  float64
	TotalOrders int64
}

// SalesSummary counts all orders and sums totals of non-cancelled ones.
func (s *Store) SalesSummary(ctx context.Context) (Sales, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"orders": bson.M{"$sum": 1},
			"sales": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$ne": bson.A{"$status", models.OrderCancelled}},
				"$total_amount",
				0,
			}}},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return Sales{}, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Orders int64   `bson:"orders"`
		Sales  float64 `bson:"sales"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return Sales{}, err
	}
	if len(rows) == 0 {
		return Sales{}, nil
	}
	return Sales{TotalSales: rows[0].Sales, TotalOrders: rows[0].Orders}, nil
}
