package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a verified test user with TestPassword.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash password: %v", err)
	}
	now := time.Now().UTC()
	user := models.User{
		ID:                 primitive.NewObjectID(),
		Name:               name,
		NameCI:             text.Fold(name),
		Email:              email,
		PasswordHash:       string(hash),
		Role:               role,
		IsVerified:         true,
		Addresses:          []models.Address{},
		FavoriteCategories: []primitive.ObjectID{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateCustomer creates a test user with the "user" role.
func (f *Fixtures) CreateCustomer(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleUser)
}

// CreateAdmin creates a test admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleAdmin)
}

// CreateCategory creates an active test category.
func (f *Fixtures) CreateCategory(ctx context.Context, name string) models.Category {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Category{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "Test category",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("categories").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test category: %v", err)
	}
	return c
}

// CreateProduct creates an active product in the given category.
func (f *Fixtures) CreateProduct(ctx context.Context, name, sku string, price float64, stock int, categoryID primitive.ObjectID) models.Product {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Product{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "Test product description",
		Price:       price,
		CategoryID:  categoryID,
		SKU:         sku,
		Stock:       stock,
		Images:      []string{"https://img.test/" + sku + ".jpg"},
		Tags:        []string{},
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("products").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test product: %v", err)
	}
	return p
}

// CreateReview inserts a review directly, bypassing aggregation.
func (f *Fixtures) CreateReview(ctx context.Context, userID, productID primitive.ObjectID, rating int, approved bool) models.Review {
	f.t.Helper()

	now := time.Now().UTC()
	rv := models.Review{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		UserName:   "Reviewer",
		ProductID:  productID,
		Rating:     rating,
		Title:      "Test review",
		Comment:    "Test comment",
		IsApproved: approved,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("reviews").InsertOne(ctx, rv); err != nil {
		f.t.Fatalf("failed to create test review: %v", err)
	}
	return rv
}

// CreateOrder inserts a pending order for one unit of each product without
// touching stock.
func (f *Fixtures) CreateOrder(ctx context.Context, userID primitive.ObjectID, products ...models.Product) models.Order {
	f.t.Helper()

	now := time.Now().UTC()
	o := models.Order{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentPending,
		PaymentMethod: models.PayCashOnDelivery,
		ShippingAddress: models.PostalAddress{
			Street: "1 Test St", City: "Testville", State: "TS", ZipCode: "00000", Country: "US",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.BillingAddress = o.ShippingAddress
	for _, p := range products {
		o.Items = append(o.Items, models.OrderItem{
			ProductID: p.ID, Name: p.Name, Price: p.Price, Image: p.PrimaryImage(), Quantity: 1,
		})
		o.Subtotal += p.Price
	}
	o.TotalAmount = o.Subtotal
	if _, err := f.db.Collection("orders").InsertOne(ctx, o); err != nil {
		f.t.Fatalf("failed to create test order: %v", err)
	}
	return o
}
