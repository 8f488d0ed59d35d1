// internal/domain/models/review.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is a user's rating of a product. One per (user, product).
// Only approved reviews count toward Product.AverageRating / ReviewCount.
type Review struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user"`
	UserName   string             `bson:"user_name" json:"userName"`
	ProductID  primitive.ObjectID `bson:"product_id" json:"product"`
	Rating     int                `bson:"rating" json:"rating"`
	Title      string             `bson:"title" json:"title"`
	Comment    string             `bson:"comment" json:"comment"`
	IsApproved bool               `bson:"is_approved" json:"isApproved"`
	Helpful    int                `bson:"helpful" json:"helpful"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)
