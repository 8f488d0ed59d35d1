// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EnsureAll reconciles the indexes of every storefront collection. It keeps
// going past a failing collection and returns all failures joined.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var errs []error

	for _, step := range []struct {
		coll string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"categories", ensureCategories},
		{"products", ensureProducts},
		{"reviews", ensureReviews},
		{"orders", ensureOrders},
	} {
		if err := step.fn(ctx, db); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.coll, err))
		}
	}
	return errors.Join(errs...)
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

// duplicateFinder returns a shell snippet that lists the offending
// duplicates for the unique indexes operators most often trip over.
func duplicateFinder(coll string, keys bson.D) string {
	fields := make([]string, 0, len(keys))
	for _, kv := range keys {
		fields = append(fields, fmt.Sprintf("%s: %q", kv.Key, "$"+kv.Key))
	}
	return fmt.Sprintf(`db.%s.aggregate([{ $group: { _id: { %s }, n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
		coll, strings.Join(fields, ", "))
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		// A collection that does not exist yet has no indexes.
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// ensureIndexSet makes every model exist with its desired name and
// uniqueness. An index with the same keys is reused when it matches, renamed
// when only the name differs, and rebuilt when uniqueness differs.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing := listIndexes(ctx, coll)
	var errs []string

	for _, m := range models {
		keys := m.Keys.(bson.D)
		sig := keySig(keys)
		name := ""
		unique := false
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = boolVal(m.Options.Unique)
		}
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique))

		ex, found := existing[sig]
		switch {
		case found && boolVal(ex.Unique) == unique && (name == "" || ex.Name == name):
			log.Debug("reusing existing index")
			continue
		case found:
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop existing index failed", zap.String("existing", ex.Name), zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop %s failed: %v", coll.Name(), name, ex.Name, err))
				continue
			}
			log.Info("dropped index to realign name or options", zap.String("existing", ex.Name))
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if unique && wafflemongo.IsDup(err) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present); find them with:\n%s",
					coll.Name(), name, duplicateFinder(coll.Name(), keys)))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			log.Warn("index ensure failed", zap.Duration("took", time.Since(start)), zap.Error(err))
			continue
		}
		log.Info("index ensured", zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// One-time token lookups; only a handful of users carry one at a time.
		{
			Keys:    bson.D{{Key: "verification_token", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_users_verification_token"),
		},
		{
			Keys:    bson.D{{Key: "reset_token", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_users_reset_token"),
		},
		// Expired-token cleanup.
		{
			Keys:    bson.D{{Key: "verification_expires", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_users_verification_expires"),
		},
		{
			Keys:    bson.D{{Key: "reset_expires", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_users_reset_expires"),
		},
		// Admin customer counts.
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_users_role_created"),
		},
	})
}

func ensureCategories(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("categories"), []mongo.IndexModel{
		// Names are unique case- and diacritics-insensitively.
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_categories_nameci"),
		},
		{
			Keys: bson.D{
				{Key: "is_active", Value: 1},
				{Key: "sort_order", Value: 1},
				{Key: "name_ci", Value: 1},
			},
			Options: options.Index().SetName("idx_categories_active_sort_nameci"),
		},
	})
}

func ensureProducts(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("products"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sku", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_products_sku"),
		},
		// Category listing and the category-in-use check on delete.
		{
			Keys: bson.D{
				{Key: "category_id", Value: 1},
				{Key: "is_active", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_products_category_active_created"),
		},
		{
			Keys:    bson.D{{Key: "is_active", Value: 1}, {Key: "is_featured", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_products_active_featured_created"),
		},
		{
			Keys:    bson.D{{Key: "is_active", Value: 1}, {Key: "price", Value: 1}},
			Options: options.Index().SetName("idx_products_active_price"),
		},
		{
			Keys: bson.D{
				{Key: "is_active", Value: 1},
				{Key: "average_rating", Value: -1},
				{Key: "review_count", Value: -1},
			},
			Options: options.Index().SetName("idx_products_active_rating"),
		},
		{
			Keys:    bson.D{{Key: "review_count", Value: -1}, {Key: "average_rating", Value: -1}},
			Options: options.Index().SetName("idx_products_popular"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_products_nameci"),
		},
		{
			Keys:    bson.D{{Key: "stock", Value: 1}},
			Options: options.Index().SetName("idx_products_stock"),
		},
	})
}

func ensureReviews(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("reviews"), []mongo.IndexModel{
		// One review per (user, product).
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_reviews_user_product"),
		},
		// Aggregation ($match product + approved) and the public listing.
		{
			Keys: bson.D{
				{Key: "product_id", Value: 1},
				{Key: "is_approved", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_reviews_product_approved_created"),
		},
		// Moderation queue.
		{
			Keys:    bson.D{{Key: "is_approved", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_reviews_approved_created"),
		},
	})
}

func ensureOrders(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("orders"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_orders_user_created"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_orders_status_created"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_orders_created"),
		},
	})
}
