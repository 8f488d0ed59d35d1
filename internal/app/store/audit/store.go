// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Categories.
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Auth events; the login_failed_* types are written with Success false.
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedRateLimit     = "login_failed_rate_limit"
	EventRegistered               = "registered"
	EventEmailVerified            = "email_verified"
	EventPasswordResetRequested   = "password_reset_requested"
	EventPasswordReset            = "password_reset"
)

// Admin events record an ActorID and usually a TargetID.
const (
	EventCategoryCreated     = "category_created"
	EventCategoryUpdated     = "category_updated"
	EventCategoryDeleted     = "category_deleted"
	EventProductCreated      = "product_created"
	EventProductUpdated      = "product_updated"
	EventProductDeleted      = "product_deleted"
	EventReviewApproved      = "review_approved"
	EventReviewUnapproved    = "review_unapproved"
	EventReviewDeleted       = "review_deleted"
	EventOrderStatusChanged  = "order_status_changed"
	EventOrderPaymentChanged = "order_payment_changed"
	EventOrderDeleted        = "order_deleted"
)

// Event is one audit record. UserID is the account the event is about,
// ActorID the admin who caused it and TargetID the product, order, review
// or category it touched.
type Event struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	Timestamp time.Time           `bson:"timestamp"`
	Category  string              `bson:"category"`
	EventType string              `bson:"event_type"`
	UserID    *primitive.ObjectID `bson:"user_id,omitempty"`
	ActorID   *primitive.ObjectID `bson:"actor_id,omitempty"`
	TargetID  *primitive.ObjectID `bson:"target_id,omitempty"`
	IP        string              `bson:"ip"`
	UserAgent string              `bson:"user_agent,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// Filter narrows a Query or Count. Zero fields match everything.
type Filter struct {
	UserID     *primitive.ObjectID
	TargetID   *primitive.ObjectID
	Category   string
	EventType  string
	FailedOnly bool
	From       *time.Time
	To         *time.Time // inclusive

	Limit  int64 // defaults to defaultLimit
	Offset int64
}

const defaultLimit = 100

func (f Filter) bson() bson.M {
	m := bson.M{}
	if f.UserID != nil {
		m["user_id"] = *f.UserID
	}
	if f.TargetID != nil {
		m["target_id"] = *f.TargetID
	}
	if f.Category != "" {
		m["category"] = f.Category
	}
	if f.EventType != "" {
		m["event_type"] = f.EventType
	}
	if f.FailedOnly {
		m["success"] = false
	}
	ts := bson.M{}
	if f.From != nil {
		ts["$gte"] = *f.From
	}
	if f.To != nil {
		ts["$lte"] = *f.To
	}
	if len(ts) > 0 {
		m["timestamp"] = ts
	}
	return m
}

// Store persists audit events in the audit_events collection.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// EnsureIndexes creates the indexes behind the Filter fields; every index
// ends in timestamp descending to serve the newest-first sort.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	newest := bson.E{Key: "timestamp", Value: -1}
	models := []mongo.IndexModel{
		{Keys: bson.D{newest}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, newest}},
		{Keys: bson.D{{Key: "target_id", Value: 1}, newest}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, newest}},
		{Keys: bson.D{{Key: "success", Value: 1}, newest}},
	}
	_, err := s.c.Indexes().CreateMany(ctx, models)
	return err
}

// Log inserts e, filling in the id and a UTC timestamp when unset.
func (s *Store) Log(ctx context.Context, e Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// Query returns matching events, newest first.
func (s *Store) Query(ctx context.Context, f Filter) ([]Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(f.Offset).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, f.bson(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns how many events match f, ignoring Limit and Offset.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.bson())
}

// ForUser is Query restricted to events about userID.
func (s *Store) ForUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, Filter{UserID: &userID, Limit: limit})
}
