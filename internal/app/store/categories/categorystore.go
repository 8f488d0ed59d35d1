// internal/app/store/categories/categorystore.go
package categorystore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/apperr"
	"github.com/dalemusser/storefront/internal/app/system/normalize"
	"github.com/dalemusser/storefront/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c        *mongo.Collection
	products *mongo.Collection
}

var (
	ErrDuplicateCategory = apperr.Conflict("a category with this name already exists")
	ErrNotFound          = apperr.NotFound("category")
	ErrInUse             = apperr.Conflict("category still has products")
)

func New(db *mongo.Database) *Store {
	return &Store{
		c:        db.Collection("categories"),
		products: db.Collection("products"),
	}
}

// Update holds the mutable category fields; nil pointers are left untouched.
type Update struct {
	Name        *string
	Description *string
	Image       *string
	IsActive    *bool
	SortOrder   *int
}

func (s *Store) Create(ctx context.Context, c models.Category) (models.Category, error) {
	c.Name = normalize.Name(c.Name)
	if c.Name == "" {
		return models.Category{}, apperr.Invalid("category name is required")
	}
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.NameCI = text.Fold(c.Name)
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Category{}, ErrDuplicateCategory
		}
		return models.Category{}, err
	}
	return c, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Category, error) {
	var c models.Category
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Category{}, ErrNotFound
		}
		return models.Category{}, err
	}
	return c, nil
}

// Exists reports whether a category with the given id exists.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

// CountExisting returns how many of ids refer to existing categories.
func (s *Store) CountExisting(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.c.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// List returns categories ordered by sort order then name. When activeOnly
// is set, inactive categories are skipped.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "sort_order", Value: 1}, {Key: "name_ci", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Category{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update modifies a category's mutable fields and refreshes UpdatedAt.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (models.Category, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		if name == "" {
			return models.Category{}, apperr.Invalid("category name is required")
		}
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if upd.Description != nil {
		set["description"] = strings.TrimSpace(*upd.Description)
	}
	if upd.Image != nil {
		set["image"] = strings.TrimSpace(*upd.Image)
	}
	if upd.IsActive != nil {
		set["is_active"] = *upd.IsActive
	}
	if upd.SortOrder != nil {
		set["sort_order"] = *upd.SortOrder
	}

	var c models.Category
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Category{}, ErrDuplicateCategory
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Category{}, ErrNotFound
		}
		return models.Category{}, err
	}
	return c, nil
}

// Delete removes a category that no product references.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	n, err := s.products.CountDocuments(ctx, bson.M{"category_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrInUse
	}
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
