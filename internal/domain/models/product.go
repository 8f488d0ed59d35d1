// internal/domain/models/product.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a catalog item.
//
// AverageRating and ReviewCount are derived from the product's approved
// reviews and are written only by the ratings aggregator. Older documents
// and clients call ReviewCount "totalReviews".
type Product struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"`
	Description  string             `bson:"description" json:"description"`
	Price        float64            `bson:"price" json:"price"`
	ComparePrice *float64           `bson:"compare_price,omitempty" json:"comparePrice,omitempty"`
	CategoryID   primitive.ObjectID `bson:"category_id" json:"category"`
	Brand        string             `bson:"brand,omitempty" json:"brand,omitempty"`
	SKU          string             `bson:"sku" json:"sku"`
	Stock        int                `bson:"stock" json:"stock"`
	Images       []string           `bson:"images" json:"images"`
	Tags         []string           `bson:"tags" json:"tags"`
	IsActive     bool               `bson:"is_active" json:"isActive"`
	IsFeatured   bool               `bson:"is_featured" json:"isFeatured"`

	Weight         *float64          `bson:"weight,omitempty" json:"weight,omitempty"`
	Dimensions     *Dimensions       `bson:"dimensions,omitempty" json:"dimensions,omitempty"`
	Specifications map[string]string `bson:"specifications,omitempty" json:"specifications,omitempty"`

	AverageRating float64 `bson:"average_rating" json:"averageRating"`
	ReviewCount   int     `bson:"review_count" json:"reviewCount"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Dimensions of a shippable product.
type Dimensions struct {
	Length float64 `bson:"length" json:"length"`
	Width  float64 `bson:"width" json:"width"`
	Height float64 `bson:"height" json:"height"`
}

// PrimaryImage returns the first image URL or "".
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
