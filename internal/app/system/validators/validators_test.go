package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/validators"
	"github.com/dalemusser/storefront/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setup(t *testing.T) *mongo.Database {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	return db
}

func TestEnsureAll_IdempotentAndCreatesCollections(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll: %v", err)
	}
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "categories", "products", "reviews", "orders", "audit_events"} {
		if !have[want] {
			t.Errorf("collection %s not created", want)
		}
	}
}

func validProduct() bson.M {
	return bson.M{
		"_id":            primitive.NewObjectID(),
		"name":           "Mug",
		"sku":            "MUG-1",
		"price":          12.5,
		"stock":          3,
		"category_id":    primitive.NewObjectID(),
		"average_rating": 0.0,
		"review_count":   0,
	}
}

func validOrder() bson.M {
	return bson.M{
		"_id":     primitive.NewObjectID(),
		"user_id": primitive.NewObjectID(),
		"items": bson.A{bson.M{
			"product_id": primitive.NewObjectID(), "name": "Mug", "price": 12.5, "quantity": 1,
		}},
		"total_amount":   12.5,
		"status":         "pending",
		"payment_status": "pending",
		"payment_method": "paypal",
		"created_at":     time.Now(),
	}
}

func TestValidators(t *testing.T) {
	db := setup(t)

	with := func(base func() bson.M, k string, v any) bson.M {
		d := base()
		d[k] = v
		return d
	}
	without := func(base func() bson.M, k string) bson.M {
		d := base()
		delete(d, k)
		return d
	}
	review := func() bson.M {
		return bson.M{"user_id": primitive.NewObjectID(), "product_id": primitive.NewObjectID(), "rating": 4, "is_approved": false}
	}
	user := func() bson.M {
		return bson.M{"name": "Ada", "email": "ada@example.com", "password_hash": "x", "role": "user", "addresses": bson.A{}}
	}

	tests := []struct {
		name   string
		coll   string
		doc    bson.M
		wantOK bool
	}{
		{"valid product", "products", validProduct(), true},
		{"negative stock", "products", with(validProduct, "stock", -1), false},
		{"negative price", "products", with(validProduct, "price", -0.01), false},
		{"rating above five", "products", with(validProduct, "average_rating", 5.1), false},
		{"product without sku", "products", without(validProduct, "sku"), false},

		{"valid review", "reviews", review(), true},
		{"review rating zero", "reviews", with(review, "rating", 0), false},
		{"review rating six", "reviews", with(review, "rating", 6), false},

		{"valid order", "orders", validOrder(), true},
		{"order without items", "orders", with(validOrder, "items", bson.A{}), false},
		{"unknown order status", "orders", with(validOrder, "status", "lost"), false},
		{"unknown payment method", "orders", with(validOrder, "payment_method", "barter"), false},

		{"valid user", "users", user(), true},
		{"unknown role", "users", with(user, "role", "superadmin"), false},

		{"valid category", "categories", bson.M{"name": "Kitchen", "name_ci": "kitchen", "sort_order": 1}, true},
		{"blank category", "categories", bson.M{"name": "  ", "name_ci": "  "}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := testutil.TestContext()
			defer cancel()
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if tt.wantOK && err != nil {
				t.Errorf("insert rejected: %v", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestAuditEvents_NoValidator(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := db.Collection("audit_events").InsertOne(ctx, bson.M{"anything": true}); err != nil {
		t.Errorf("audit_events should accept any document: %v", err)
	}
}
