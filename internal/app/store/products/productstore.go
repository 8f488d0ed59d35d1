// internal/app/store/products/productstore.go
package productstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/apperr"
	"github.com/dalemusser/storefront/internal/app/system/htmlsanitize"
	"github.com/dalemusser/storefront/internal/app/system/normalize"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/app/system/search"
	"github.com/dalemusser/storefront/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicateSKU     = apperr.Conflict("a product with this SKU already exists")
	ErrNotFound         = apperr.NotFound("product")
	ErrCategoryNotFound = apperr.NotFound("category")
)

type Store struct {
	c          *mongo.Collection
	categories *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:          db.Collection("products"),
		categories: db.Collection("categories"),
	}
}

// Collection exposes the products collection to services that need
// conditional updates on it (stock reservation, rating aggregation).
func (s *Store) Collection() *mongo.Collection { return s.c }

// Input is the client-writable part of a product. AverageRating and
// ReviewCount are deliberately absent.
type Input struct {
	Name           string
	Description    string
	Price          float64
	ComparePrice   *float64
	CategoryID     primitive.ObjectID
	Brand          string
	SKU            string
	Stock          int
	Images         []string
	Tags           []string
	IsActive       bool
	IsFeatured     bool
	Weight         *float64
	Dimensions     *models.Dimensions
	Specifications map[string]string
}

// Update holds optional product changes; nil fields are left untouched.
type Update struct {
	Name           *string
	Description    *string
	Price          *float64
	ComparePrice   *float64
	CategoryID     *primitive.ObjectID
	Brand          *string
	SKU            *string
	Stock          *int
	Images         *[]string
	Tags           *[]string
	IsActive       *bool
	IsFeatured     *bool
	Weight         *float64
	Dimensions     *models.Dimensions
	Specifications map[string]string
}

// Filter narrows List.
type Filter struct {
	CategoryID   primitive.ObjectID
	Search       string
	Sort         string
	FeaturedOnly bool
	// IncludeInactive is set for admin listings.
	IncludeInactive bool
}

func (f Filter) query() bson.M {
	q := bson.M{}
	if !f.IncludeInactive {
		q["is_active"] = true
	}
	if !f.CategoryID.IsZero() {
		q["category_id"] = f.CategoryID
	}
	if f.FeaturedOnly {
		q["is_featured"] = true
	}
	if re := search.FoldedContains(f.Search); re != nil {
		q["name_ci"] = re
	}
	return q
}

func validate(name, sku string, price float64, stock int) error {
	switch {
	case name == "":
		return apperr.Invalid("product name is required")
	case sku == "":
		return apperr.Invalid("product SKU is required")
	case price < 0:
		return apperr.Invalid("price cannot be negative")
	case stock < 0:
		return apperr.Invalid("stock cannot be negative")
	}
	return nil
}

func (s *Store) requireCategory(ctx context.Context, id primitive.ObjectID) error {
	if id.IsZero() {
		return apperr.Invalid("category is required")
	}
	n, err := s.categories.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func cleanImages(in []string) []string {
	out := make([]string, 0, len(in))
	for _, u := range in {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// Create validates and inserts a product. The rating fields always start at zero.
func (s *Store) Create(ctx context.Context, in Input) (models.Product, error) {
	name := normalize.Name(in.Name)
	sku := normalize.SKU(in.SKU)
	if err := validate(name, sku, in.Price, in.Stock); err != nil {
		return models.Product{}, err
	}
	if in.ComparePrice != nil && *in.ComparePrice < 0 {
		return models.Product{}, apperr.Invalid("compare price cannot be negative")
	}
	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return models.Product{}, err
	}

	now := time.Now().UTC()
	p := models.Product{
		ID:             primitive.NewObjectID(),
		Name:           name,
		NameCI:         text.Fold(name),
		Description:    htmlsanitize.Sanitize(in.Description),
		Price:          in.Price,
		ComparePrice:   in.ComparePrice,
		CategoryID:     in.CategoryID,
		Brand:          strings.TrimSpace(in.Brand),
		SKU:            sku,
		Stock:          in.Stock,
		Images:         cleanImages(in.Images),
		Tags:           normalize.Tags(in.Tags),
		IsActive:       in.IsActive,
		IsFeatured:     in.IsFeatured,
		Weight:         in.Weight,
		Dimensions:     in.Dimensions,
		Specifications: in.Specifications,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Product{}, ErrDuplicateSKU
		}
		return models.Product{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var p models.Product
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Product{}, ErrNotFound
		}
		return models.Product{}, err
	}
	return p, nil
}

// GetMany returns the products with the given ids keyed by id. Missing ids
// are simply absent from the map.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	out := make(map[primitive.ObjectID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var p models.Product
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, cur.Err()
}

// List returns one page of products plus the total number matching f.
func (s *Store) List(ctx context.Context, f Filter, pg paging.Page) ([]models.Product, int64, error) {
	q := f.query()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	find := pg.Apply(options.Find().SetSort(search.ProductSort(f.Sort)))
	cur, err := s.c.Find(ctx, q, find)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.Product{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Featured returns up to limit active featured products, newest first.
func (s *Store) Featured(ctx context.Context, limit int64) ([]models.Product, error) {
	return s.find(ctx, bson.M{"is_active": true, "is_featured": true},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
}

// Popular returns up to limit active products ranked by review count then rating.
func (s *Store) Popular(ctx context.Context, limit int64) ([]models.Product, error) {
	return s.find(ctx, bson.M{"is_active": true},
		options.Find().SetSort(bson.D{
			{Key: "review_count", Value: -1},
			{Key: "average_rating", Value: -1},
			{Key: "_id", Value: 1},
		}).SetLimit(limit))
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Product, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Product{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies upd. Rating fields cannot be changed here.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (models.Product, error) {
	set := bson.M{"updated_at": time.Now().UTC()}

	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		if name == "" {
			return models.Product{}, apperr.Invalid("product name is required")
		}
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if upd.SKU != nil {
		sku := normalize.SKU(*upd.SKU)
		if sku == "" {
			return models.Product{}, apperr.Invalid("product SKU is required")
		}
		set["sku"] = sku
	}
	if upd.Price != nil {
		if *upd.Price < 0 {
			return models.Product{}, apperr.Invalid("price cannot be negative")
		}
		set["price"] = *upd.Price
	}
	if upd.ComparePrice != nil {
		if *upd.ComparePrice < 0 {
			return models.Product{}, apperr.Invalid("compare price cannot be negative")
		}
		set["compare_price"] = *upd.ComparePrice
	}
	if upd.Stock != nil {
		if *upd.Stock < 0 {
			return models.Product{}, apperr.Invalid("stock cannot be negative")
		}
		set["stock"] = *upd.Stock
	}
	if upd.CategoryID != nil {
		if err := s.requireCategory(ctx, *upd.CategoryID); err != nil {
			return models.Product{}, err
		}
		set["category_id"] = *upd.CategoryID
	}
	if upd.Description != nil {
		set["description"] = htmlsanitize.Sanitize(*upd.Description)
	}
	if upd.Brand != nil {
		set["brand"] = strings.TrimSpace(*upd.Brand)
	}
	if upd.Images != nil {
		set["images"] = cleanImages(*upd.Images)
	}
	if upd.Tags != nil {
		set["tags"] = normalize.Tags(*upd.Tags)
	}
	if upd.IsActive != nil {
		set["is_active"] = *upd.IsActive
	}
	if upd.IsFeatured != nil {
		set["is_featured"] = *upd.IsFeatured
	}
	if upd.Weight != nil {
		set["weight"] = *upd.Weight
	}
	if upd.Dimensions != nil {
		set["dimensions"] = *upd.Dimensions
	}
	if upd.Specifications != nil {
		set["specifications"] = upd.Specifications
	}

	var p models.Product
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Product{}, ErrDuplicateSKU
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Product{}, ErrNotFound
		}
		return models.Product{}, err
	}
	return p, nil
}

// Delete removes a product. Reviews and past orders are left in place;
// later review mutations on it skip aggregation.
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

// Count returns the number of products matching filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
