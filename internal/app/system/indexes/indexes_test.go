package indexes_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/indexes"
	"github.com/dalemusser/storefront/internal/testutil"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes on %s: %v", coll, err)
	}
	defer cur.Close(ctx)

	names := map[string]bool{}
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	want := map[string][]string{
		"users":      {"uniq_users_email", "idx_users_verification_token", "idx_users_reset_token", "idx_users_reset_expires"},
		"categories": {"uniq_categories_nameci", "idx_categories_active_sort_nameci"},
		"products":   {"uniq_products_sku", "idx_products_category_active_created", "idx_products_popular", "idx_products_stock"},
		"reviews":    {"uniq_reviews_user_product", "idx_reviews_product_approved_created", "idx_reviews_approved_created"},
		"orders":     {"idx_orders_user_created", "idx_orders_status_created", "idx_orders_created"},
	}
	for coll, names := range want {
		got := indexNames(t, db, coll)
		for _, n := range names {
			if !got[n] {
				t.Errorf("%s: missing index %s", coll, n)
			}
		}
	}
}

func TestEnsureAll_RenamesExistingIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("orders").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: -1}},
		Options: options.Index().SetName("legacy_created"),
	})
	if err != nil {
		t.Fatalf("seed index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	got := indexNames(t, db, "orders")
	if got["legacy_created"] || !got["idx_orders_created"] {
		t.Errorf("index not renamed: %v", got)
	}
}

func TestEnsureAll_UniqueIndexesEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	uid, pid := primitive.NewObjectID(), primitive.NewObjectID()
	cases := []struct {
		coll string
		doc  func() bson.M
	}{
		{"users", func() bson.M { return bson.M{"_id": primitive.NewObjectID(), "email": "dup@example.com"} }},
		{"products", func() bson.M { return bson.M{"_id": primitive.NewObjectID(), "sku": "SKU-1"} }},
		{"categories", func() bson.M { return bson.M{"_id": primitive.NewObjectID(), "name_ci": "kitchen"} }},
		{"reviews", func() bson.M { return bson.M{"_id": primitive.NewObjectID(), "user_id": uid, "product_id": pid} }},
	}
	for _, tc := range cases {
		t.Run(tc.coll, func(t *testing.T) {
			c := db.Collection(tc.coll)
			if _, err := c.InsertOne(ctx, tc.doc()); err != nil {
				t.Fatalf("first insert: %v", err)
			}
			_, err := c.InsertOne(ctx, tc.doc())
			if !wafflemongo.IsDup(err) {
				t.Fatalf("second insert err = %v, want duplicate key", err)
			}
		})
	}
}

func TestEnsureAll_ReportsDuplicatesWithFinder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := db.Collection("products").InsertOne(ctx, bson.M{"sku": "SAME", "created_at": now}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	err := indexes.EnsureAll(ctx, db)
	if err == nil {
		t.Fatal("expected error for duplicate SKUs")
	}
	if !strings.Contains(err.Error(), "duplicates present") || !strings.Contains(err.Error(), "db.products.aggregate") {
		t.Errorf("error should explain duplicates: %v", err)
	}
}
