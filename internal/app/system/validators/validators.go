// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/storefront/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Mongo server error codes the schema pass tolerates.
const (
	codeNamespaceExists = 48
	codeCommandNotFound = 59
	codeNotImplemented  = 115
)

// schemas maps each storefront collection to its JSON-Schema validator.
// A nil schema only makes sure the collection exists.
func schemas() []struct {
	coll   string
	schema bson.M
} {
	return []struct {
		coll   string
		schema bson.M
	}{
		{"users", usersSchema()},
		{"categories", categoriesSchema()},
		{"products", productsSchema()},
		{"reviews", reviewsSchema()},
		{"orders", ordersSchema()},
		{"audit_events", nil},
	}
}

// EnsureAll creates the storefront collections if missing and attaches
// their validators. Servers that reject collMod (some DocumentDB versions)
// keep the collection unvalidated and only log it. All failures are joined
// into the returned error.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var errs []error
	for _, s := range schemas() {
		if err := ensureCollection(ctx, db, s.coll); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.coll, err))
			continue
		}
		if s.schema == nil {
			continue
		}
		err := setValidator(ctx, db, s.coll, s.schema)
		switch {
		case err == nil:
			zap.L().Info("validator ensured", zap.String("collection", s.coll))
		case serverErr(err, codeCommandNotFound, "no such command") ||
			serverErr(err, codeNotImplemented, "not implemented", "not supported"):
			zap.L().Info("validator skipped (unsupported)", zap.String("collection", s.coll))
		default:
			errs = append(errs, fmt.Errorf("%s: %w", s.coll, err))
		}
	}
	return errors.Join(errs...)
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err == nil && len(names) > 0 {
		return nil
	}
	// Listing can fail on restricted users; creating and tolerating
	// NamespaceExists covers that and concurrent starts.
	if err := db.CreateCollection(ctx, name); err != nil {
		if serverErr(err, codeNamespaceExists, "already exists", "namespace exists") {
			return nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	return db.RunCommand(ctx, bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}).Err()
}

// serverErr reports whether err carries code or mentions one of phrases.
func serverErr(err error, code int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

var (
	number  = bson.A{"double", "int", "long", "decimal"}
	integer = bson.A{"int", "long"}
	text    = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
)

func enumOf(vals []string) bson.A {
	out := make(bson.A, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "email", "password_hash", "role"},
			"properties": bson.M{
				"name":          text,
				"email":         text,
				"password_hash": text,
				"role":          bson.M{"enum": bson.A{models.RoleUser, models.RoleAdmin}},
				"is_verified":   bson.M{"bsonType": "bool"},
				"addresses": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"_id", "is_default"},
						"properties": bson.M{
							"type":       bson.M{"enum": enumOf(models.AddressTypes)},
							"is_default": bson.M{"bsonType": "bool"},
						},
					},
				},
				"favorite_categories": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
			},
		},
	}
}

func categoriesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci"},
			"properties": bson.M{
				"name":       text,
				"name_ci":    text,
				"is_active":  bson.M{"bsonType": "bool"},
				"sort_order": bson.M{"bsonType": integer},
			},
		},
	}
}

func productsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "sku", "price", "stock", "category_id"},
			"properties": bson.M{
				"name":           text,
				"sku":            text,
				"price":          bson.M{"bsonType": number, "minimum": 0},
				"compare_price":  bson.M{"bsonType": number, "minimum": 0},
				"stock":          bson.M{"bsonType": integer, "minimum": 0},
				"category_id":    bson.M{"bsonType": "objectId"},
				"average_rating": bson.M{"bsonType": number, "minimum": 0, "maximum": 5},
				"review_count":   bson.M{"bsonType": integer, "minimum": 0},
				"images":         bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"tags":           bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			},
		},
	}
}

func reviewsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "product_id", "rating", "is_approved"},
			"properties": bson.M{
				"user_id":     bson.M{"bsonType": "objectId"},
				"product_id":  bson.M{"bsonType": "objectId"},
				"rating":      bson.M{"bsonType": integer, "minimum": models.MinRating, "maximum": models.MaxRating},
				"is_approved": bson.M{"bsonType": "bool"},
				"helpful":     bson.M{"bsonType": integer, "minimum": 0},
			},
		},
	}
}

func ordersSchema() bson.M {
	amount := bson.M{"bsonType": number, "minimum": 0}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "items", "total_amount", "status", "payment_status", "payment_method"},
			"properties": bson.M{
				"user_id": bson.M{"bsonType": "objectId"},
				"items": bson.M{
					"bsonType": "array",
					"minItems": 1,
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"product_id", "name", "price", "quantity"},
						"properties": bson.M{
							"product_id": bson.M{"bsonType": "objectId"},
							"price":      amount,
							"quantity":   bson.M{"bsonType": integer, "minimum": 1},
						},
					},
				},
				"subtotal":        amount,
				"shipping_cost":   amount,
				"tax_amount":      amount,
				"discount_amount": amount,
				"total_amount":    amount,
				"status":          bson.M{"enum": enumOf(models.OrderStatuses)},
				"payment_status":  bson.M{"enum": enumOf(models.PaymentStatuses)},
				"payment_method":  bson.M{"enum": enumOf(models.PaymentMethods)},
			},
		},
	}
}
